package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
)

// scriptedLoader answers loads from a queue of responses. A response with a
// gate blocks until the gate is closed.
type scriptedLoader struct {
	mu        sync.Mutex
	responses []loadResponse
	calls     int
}

type loadResponse struct {
	stages []domain.Stage
	err    error
	gate   chan struct{}
}

func (l *scriptedLoader) Load(_ context.Context, _ domain.ProfileID) ([]domain.Stage, error) {
	l.mu.Lock()
	r := l.responses[l.calls]
	l.calls++
	l.mu.Unlock()

	if r.gate != nil {
		<-r.gate
	}
	return r.stages, r.err
}

func named(names ...string) []domain.Stage {
	out := make([]domain.Stage, len(names))
	for i, n := range names {
		out[i] = domain.Stage{ID: n, Name: n, Order: i + 1, Candidates: []domain.Candidate{}}
	}
	return out
}

func fixedProfile(id domain.ProfileID) func() domain.ProfileID {
	return func() domain.ProfileID { return id }
}

func TestBoard_Reload_AppliesStages(t *testing.T) {
	loader := &scriptedLoader{responses: []loadResponse{{stages: named("Applied", "Screening")}}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)

	got, err := b.Reload(context.Background())

	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, domain.ProfileID("prof-1"), b.ProfileID())
	assert.NoError(t, b.Err())

	st, ok := b.Stage("Screening")
	require.True(t, ok)
	assert.Equal(t, 2, st.Order)
}

func TestBoard_Reload_StaleResponseDiscarded(t *testing.T) {
	slow := make(chan struct{})
	loader := &scriptedLoader{responses: []loadResponse{
		{stages: named("Old"), gate: slow},
		{stages: named("New")},
	}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = b.Reload(context.Background())
	}()

	// Wait for the first load to be issued before starting the second.
	require.Eventually(t, func() bool {
		loader.mu.Lock()
		defer loader.mu.Unlock()
		return loader.calls == 1
	}, time.Second, time.Millisecond)

	_, err := b.Reload(context.Background())
	require.NoError(t, err)

	close(slow)
	<-done

	got := b.Stages()
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].Name)
}

func TestBoard_Reload_PreservesLastGoodOnError(t *testing.T) {
	loadErr := backend.New(backend.KindNetwork, "load pipeline", "the backend could not be reached")
	loader := &scriptedLoader{responses: []loadResponse{
		{stages: named("Applied")},
		{err: loadErr},
	}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)

	_, err := b.Reload(context.Background())
	require.NoError(t, err)

	got, err := b.Reload(context.Background())
	assert.ErrorIs(t, err, loadErr)
	assert.Len(t, got, 1)
	assert.Len(t, b.Stages(), 1)
	assert.ErrorIs(t, b.Err(), loadErr)
	assert.Equal(t, domain.ProfileID("prof-1"), b.ProfileID())
}

func TestBoard_Reload_ClearsOnErrorWhenConfigured(t *testing.T) {
	loader := &scriptedLoader{responses: []loadResponse{
		{stages: named("Applied")},
		{err: errors.New("boom")},
	}}
	b := NewBoard(loader, fixedProfile("prof-1"), false)

	_, _ = b.Reload(context.Background())
	got, err := b.Reload(context.Background())

	assert.Error(t, err)
	assert.Empty(t, got)
	assert.Empty(t, b.Stages())
	assert.True(t, b.ProfileID().IsZero())
}

func TestBoard_Reload_ErrorClearedBySuccess(t *testing.T) {
	loader := &scriptedLoader{responses: []loadResponse{
		{err: errors.New("boom")},
		{stages: named("Applied")},
	}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)

	_, _ = b.Reload(context.Background())
	require.Error(t, b.Err())

	_, err := b.Reload(context.Background())
	require.NoError(t, err)
	assert.NoError(t, b.Err())
}

func TestBoard_Reload_WithoutProfile(t *testing.T) {
	loader := &scriptedLoader{}
	b := NewBoard(loader, fixedProfile(""), true)

	_, err := b.Reload(context.Background())

	assert.Equal(t, backend.KindUnauthenticated, backend.KindOf(err))
	assert.Zero(t, loader.calls)
}

func TestBoard_Stages_ReturnsCopies(t *testing.T) {
	stages := named("Applied")
	stages[0].Candidates = []domain.Candidate{{ID: "cand-1", Name: "John Smith"}}
	loader := &scriptedLoader{responses: []loadResponse{{stages: stages}}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)
	_, _ = b.Reload(context.Background())

	got := b.Stages()
	got[0].Candidates[0].Name = "mutated"
	got[0].Name = "mutated"

	c, ok := b.Candidate("Applied", "cand-1")
	require.True(t, ok)
	assert.Equal(t, "John Smith", c.Name)
	assert.Equal(t, "Applied", b.Stages()[0].Name)

	_, ok = b.Candidate("Applied", "cand-2")
	assert.False(t, ok)
	_, ok = b.Candidate("Nowhere", "cand-1")
	assert.False(t, ok)
}

func TestBoard_Reset(t *testing.T) {
	loader := &scriptedLoader{responses: []loadResponse{{stages: named("Applied")}}}
	b := NewBoard(loader, fixedProfile("prof-1"), true)
	_, _ = b.Reload(context.Background())

	b.Reset()

	assert.Empty(t, b.Stages())
	assert.True(t, b.ProfileID().IsZero())
}
