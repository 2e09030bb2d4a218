package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/move"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/session"
)

// Workspace is everything one signed-in client works with: its identity
// session, the resolved profile, the pipeline board and the move in
// progress. Workspaces share nothing with each other.
type Workspace struct {
	Identity *identity.Client
	Resolver *session.Resolver
	Board    *pipeline.Board
	Protocol *move.Protocol

	unsubscribe func()

	mu       sync.Mutex
	lastSeen time.Time
}

// Key is the session id the workspace is registered under.
func (w *Workspace) Key() string {
	return w.Identity.Key()
}

// ProfileID is the profile the board belongs to.
func (w *Workspace) ProfileID() domain.ProfileID {
	return w.Resolver.State().ProfileID
}

// EnsureLoaded loads the board when it holds no pipeline for the current
// profile. Otherwise it returns what the board has, including the error of
// its last load; retrying is an explicit Reload.
func (w *Workspace) EnsureLoaded(ctx context.Context) ([]domain.Stage, error) {
	if id := w.ProfileID(); !id.IsZero() && w.Board.ProfileID() == id {
		return w.Board.Stages(), w.Board.Err()
	}
	return w.Board.Reload(ctx)
}

func (w *Workspace) start(ctx context.Context) {
	w.unsubscribe = w.Identity.OnAuthStateChange(w.onAuthEvent)
	w.Resolver.Start(ctx)
}

func (w *Workspace) onAuthEvent(_ context.Context, ev identity.AuthEvent) {
	if ev.Type == identity.EventSignedOut {
		w.Protocol.Reset()
		w.Board.Reset()
	}
}

func (w *Workspace) close() {
	w.Resolver.Stop()
	if w.unsubscribe != nil {
		w.unsubscribe()
	}
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return now.Sub(w.lastSeen)
}
