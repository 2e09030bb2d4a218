package repository

import (
	"context"

	"github.com/reelhunter/recruiter/internal/domain"
)

// ProfileRepository defines the persistence operations on profiles.
type ProfileRepository interface {
	// GetByUserID retrieves the live profile owned by an identity user.
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)

	// GetByID retrieves a live profile by its identifier.
	GetByID(ctx context.Context, id domain.ProfileID) (*domain.Profile, error)

	// Create inserts a profile. The store assigns ID and timestamps, which
	// are written back into p.
	Create(ctx context.Context, p *domain.Profile) error

	// Update applies the non-nil fields of upd and returns the stored row.
	Update(ctx context.Context, id domain.ProfileID, upd domain.ProfileUpdate) (*domain.Profile, error)
}

// StageRepository defines the persistence operations on pipeline stages.
type StageRepository interface {
	// ListByRecruiter returns the recruiter's active stages ordered by
	// stage_order.
	ListByRecruiter(ctx context.Context, recruiterID domain.ProfileID) ([]domain.Stage, error)

	// CreateMany inserts stages in one transaction, skipping any whose
	// (recruiter, order) slot is already taken. It returns the number
	// inserted.
	CreateMany(ctx context.Context, stages []domain.Stage) (int, error)
}

// MoveParams describes one stage reassignment.
type MoveParams struct {
	CandidateID string
	RecruiterID domain.ProfileID
	FromStageID string
	ToStageID   string
	MovedBy     string
	Note        string
}

// PositionRepository defines the persistence operations on candidate
// positions and their move history.
type PositionRepository interface {
	// ListByRecruiter returns every position in the recruiter's pipeline
	// ordered by moved_at, then candidate id.
	ListByRecruiter(ctx context.Context, recruiterID domain.ProfileID) ([]domain.Position, error)

	// Move reassigns a candidate and records the move in one transaction.
	// It fails with a conflict when the candidate is no longer in
	// FromStageID.
	Move(ctx context.Context, p MoveParams) (*domain.MoveRecord, error)

	// Insert places a candidate into a stage. It fails with
	// apperrors.ErrAlreadyExists when the candidate already has a position
	// in the recruiter's pipeline.
	Insert(ctx context.Context, pos *domain.Position) error

	// ListMoves returns the most recent moves of one candidate, newest first.
	ListMoves(ctx context.Context, recruiterID domain.ProfileID, candidateID string, limit int) ([]domain.MoveRecord, error)
}

// CandidateRepository searches the live candidate pool.
type CandidateRepository interface {
	// Search returns up to domain.CandidateSearchLimit candidates matching
	// every set filter, best ReelPass score first, each with its skills.
	Search(ctx context.Context, f domain.SearchFilters) ([]domain.CandidateSearchResult, error)
}

// SessionStore caches identity sessions between process restarts.
type SessionStore interface {
	// Get returns the cached session for key.
	Get(ctx context.Context, key string) (*domain.Session, error)

	// Save stores the session under key.
	Save(ctx context.Context, key string, s *domain.Session) error

	// Delete removes the session stored under key.
	Delete(ctx context.Context, key string) error
}
