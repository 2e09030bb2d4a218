package pipeline

import (
	"context"
	"sync"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
)

// Loader loads a pipeline. Store implements it.
type Loader interface {
	Load(ctx context.Context, profileID domain.ProfileID) ([]domain.Stage, error)
}

// Board is one client's view of its pipeline. Every load is tagged with a
// sequence number and a response older than the newest applied one is
// dropped, so a slow load never overwrites a newer result.
type Board struct {
	loader          Loader
	profile         func() domain.ProfileID
	preserveOnError bool

	mu        sync.RWMutex
	issued    uint64
	applied   uint64
	profileID domain.ProfileID
	stages    []domain.Stage
	err       error
}

// NewBoard creates an empty board that loads the pipeline of whichever
// profile profile returns. With preserveOnError a failed load keeps the
// last good stages; without it the board is cleared.
func NewBoard(loader Loader, profile func() domain.ProfileID, preserveOnError bool) *Board {
	return &Board{
		loader:          loader,
		profile:         profile,
		preserveOnError: preserveOnError,
		stages:          []domain.Stage{},
	}
}

// Reload loads the pipeline and applies it unless a newer load already
// landed. It returns the board's stages after the attempt and the load
// error, if any.
func (b *Board) Reload(ctx context.Context) ([]domain.Stage, error) {
	profileID := b.profile()
	if profileID.IsZero() {
		return b.Stages(), backend.New(backend.KindUnauthenticated, "load pipeline", "sign in to load your pipeline")
	}

	b.mu.Lock()
	b.issued++
	seq := b.issued
	b.mu.Unlock()

	stages, err := b.loader.Load(ctx, profileID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if seq <= b.applied {
		return cloneStages(b.stages), nil
	}
	b.applied = seq

	if err != nil {
		b.err = err
		if !b.preserveOnError {
			b.stages = []domain.Stage{}
			b.profileID = ""
		}
		return cloneStages(b.stages), err
	}

	b.err = nil
	b.profileID = profileID
	b.stages = stages
	return cloneStages(b.stages), nil
}

// Reset empties the board, for example after sign-out.
func (b *Board) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.applied = b.issued
	b.stages = []domain.Stage{}
	b.profileID = ""
	b.err = nil
}

// Stages returns a copy of the current stages.
func (b *Board) Stages() []domain.Stage {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneStages(b.stages)
}

// Err returns the error of the most recent applied load.
func (b *Board) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// ProfileID returns the owner of the displayed stages.
func (b *Board) ProfileID() domain.ProfileID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.profileID
}

// Stage returns a copy of the stage with id.
func (b *Board) Stage(id string) (domain.Stage, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, s := range b.stages {
		if s.ID == id {
			return cloneStage(s), true
		}
	}
	return domain.Stage{}, false
}

// Candidate finds a candidate in the given stage.
func (b *Board) Candidate(stageID, candidateID string) (domain.Candidate, bool) {
	st, ok := b.Stage(stageID)
	if !ok {
		return domain.Candidate{}, false
	}
	for _, c := range st.Candidates {
		if c.ID == candidateID {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

func cloneStages(in []domain.Stage) []domain.Stage {
	out := make([]domain.Stage, len(in))
	for i, s := range in {
		out[i] = cloneStage(s)
	}
	return out
}

func cloneStage(s domain.Stage) domain.Stage {
	cands := make([]domain.Candidate, len(s.Candidates))
	copy(cands, s.Candidates)
	s.Candidates = cands
	return s
}
