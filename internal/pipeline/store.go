// Package pipeline loads a recruiter's stages with their candidates and
// persists candidate moves between them.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/repository"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

// skeletonStages is the board every recruiter starts from.
var skeletonStages = []struct {
	name  string
	color string
}{
	{"Applied", "#3B82F6"},
	{"Screening", "#F59E0B"},
	{"Interview", "#8B5CF6"},
	{"Offer", "#10B981"},
}

// skeletonNamespace scopes skeleton stage ids so that each owner gets its
// own stable set.
var skeletonNamespace = uuid.MustParse("6f1c1f5e-3d0e-4c55-9a0b-2f6c2b8e5a10")

// TemplateSource supplies the default notification template for a stage.
type TemplateSource interface {
	DefaultTemplate(stageName string) string
}

// MoveRequest asks to move one candidate between two stages of a
// recruiter's pipeline.
type MoveRequest struct {
	CandidateID  string
	RecruiterID  domain.ProfileID
	FromStageID  string
	ToStageID    string
	ActingUserID string
	Note         string
}

// PlaceRequest asks to put a candidate into a stage.
type PlaceRequest struct {
	RecruiterID  domain.ProfileID
	CandidateID  string
	StageID      string
	ActingUserID string
	Note         string
}

// Store is stateless over its repositories and safe for concurrent use.
type Store struct {
	stages    repository.StageRepository
	positions repository.PositionRepository
	templates TemplateSource
	logger    *slog.Logger
}

// NewStore creates a Store. templates may be nil, in which case bootstrapped
// stages carry no notification template.
func NewStore(stages repository.StageRepository, positions repository.PositionRepository, templates TemplateSource, logger *slog.Logger) *Store {
	return &Store{
		stages:    stages,
		positions: positions,
		templates: templates,
		logger:    logger,
	}
}

// Skeleton returns the four default stages owned by owner with no template
// and no candidates. Stage ids are derived from the owner and stage name, so
// repeated loads agree and a later Bootstrap persists the same ids.
func Skeleton(owner domain.ProfileID) []domain.Stage {
	out := make([]domain.Stage, len(skeletonStages))
	for i, def := range skeletonStages {
		out[i] = domain.Stage{
			ID:          uuid.NewSHA1(skeletonNamespace, []byte(owner.String()+"/"+def.name)).String(),
			RecruiterID: owner,
			Name:        def.name,
			Order:       i + 1,
			Color:       def.color,
			IsActive:    true,
			Candidates:  []domain.Candidate{},
		}
	}
	return out
}

// Load returns the recruiter's stages in order, each with its candidates
// ordered by when they entered the stage. A degraded profile gets the
// skeleton without any query; a real profile without stages gets the
// skeleton tagged with its id.
func (s *Store) Load(ctx context.Context, profileID domain.ProfileID) ([]domain.Stage, error) {
	if profileID.IsZero() {
		return nil, backend.New(backend.KindValidation, "load pipeline", "no profile to load a pipeline for")
	}
	if profileID.IsDegraded() {
		return Skeleton(profileID), nil
	}

	stages, err := s.stages.ListByRecruiter(ctx, profileID)
	if err != nil {
		return nil, backend.Classify("load pipeline stages", err)
	}
	if len(stages) == 0 {
		return Skeleton(profileID), nil
	}

	positions, err := s.positions.ListByRecruiter(ctx, profileID)
	if err != nil {
		return nil, backend.Classify("load pipeline candidates", err)
	}

	index := make(map[string]int, len(stages))
	for i := range stages {
		index[stages[i].ID] = i
		if stages[i].Candidates == nil {
			stages[i].Candidates = []domain.Candidate{}
		}
	}
	for _, pos := range positions {
		i, ok := index[pos.CurrentStageID]
		if !ok {
			continue
		}
		stages[i].Candidates = append(stages[i].Candidates, domain.Candidate{
			ID:             pos.CandidateID,
			Name:           pos.CandidateName,
			Email:          pos.CandidateEmail,
			EnteredStageAt: pos.MovedAt,
		})
	}

	return stages, nil
}

// MoveCandidate moves a candidate and records the move as one unit.
func (s *Store) MoveCandidate(ctx context.Context, req MoveRequest) (*domain.MoveRecord, error) {
	const op = "move candidate"

	switch {
	case req.RecruiterID.IsZero() || req.RecruiterID.IsDegraded():
		return nil, backend.New(backend.KindValidation, op, "this pipeline is not saved yet, so candidates cannot be moved")
	case strings.TrimSpace(req.CandidateID) == "":
		return nil, backend.New(backend.KindValidation, op, "candidate is required")
	case req.FromStageID == "" || req.ToStageID == "":
		return nil, backend.New(backend.KindValidation, op, "source and destination stages are required")
	case req.FromStageID == req.ToStageID:
		return nil, backend.New(backend.KindValidation, op, "candidate is already in that stage")
	}

	rec, err := s.positions.Move(ctx, repository.MoveParams{
		CandidateID: req.CandidateID,
		RecruiterID: req.RecruiterID,
		FromStageID: req.FromStageID,
		ToStageID:   req.ToStageID,
		MovedBy:     req.ActingUserID,
		Note:        req.Note,
	})
	if err != nil {
		return nil, backend.Classify(op, err)
	}
	return rec, nil
}

// Bootstrap persists the skeleton with default templates for a recruiter
// that has no stages yet, then returns the loaded pipeline. Calling it
// again is harmless.
func (s *Store) Bootstrap(ctx context.Context, profileID domain.ProfileID) ([]domain.Stage, error) {
	const op = "bootstrap pipeline"

	if profileID.IsZero() || profileID.IsDegraded() {
		return nil, backend.New(backend.KindValidation, op, "a saved profile is required to create a pipeline")
	}

	existing, err := s.stages.ListByRecruiter(ctx, profileID)
	if err != nil {
		return nil, backend.Classify(op, err)
	}

	if len(existing) == 0 {
		stages := Skeleton(profileID)
		for i := range stages {
			if s.templates != nil {
				stages[i].AutoEmailTemplate = s.templates.DefaultTemplate(stages[i].Name)
			}
		}

		n, err := s.stages.CreateMany(ctx, stages)
		if err != nil {
			return nil, backend.Classify(op, err)
		}
		s.logger.InfoContext(ctx, "pipeline bootstrapped",
			slog.String("profile_id", profileID.String()),
			slog.Int("stages", n),
		)
	}

	return s.Load(ctx, profileID)
}

// PlaceCandidate puts a candidate who is not yet in the pipeline into one of
// the recruiter's stages.
func (s *Store) PlaceCandidate(ctx context.Context, req PlaceRequest) (*domain.Position, error) {
	const op = "place candidate"

	switch {
	case req.RecruiterID.IsZero() || req.RecruiterID.IsDegraded():
		return nil, backend.New(backend.KindValidation, op, "this pipeline is not saved yet, so candidates cannot be added")
	case strings.TrimSpace(req.CandidateID) == "" || req.StageID == "":
		return nil, backend.New(backend.KindValidation, op, "candidate and stage are required")
	}

	stages, err := s.stages.ListByRecruiter(ctx, req.RecruiterID)
	if err != nil {
		return nil, backend.Classify(op, err)
	}
	found := false
	for _, st := range stages {
		if st.ID == req.StageID {
			found = true
			break
		}
	}
	if !found {
		return nil, backend.New(backend.KindValidation, op, "stage does not belong to this pipeline")
	}

	pos := &domain.Position{
		CandidateID:    req.CandidateID,
		RecruiterID:    req.RecruiterID,
		CurrentStageID: req.StageID,
	}
	if req.ActingUserID != "" {
		pos.MovedBy = &req.ActingUserID
	}
	if req.Note != "" {
		pos.Notes = &req.Note
	}

	if err := s.positions.Insert(ctx, pos); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, &backend.Error{
				Kind:    backend.KindConflict,
				Op:      op,
				Message: "candidate is already in this pipeline, move them between stages instead",
				Err:     err,
			}
		}
		return nil, backend.Classify(op, err)
	}
	return pos, nil
}

// History returns a candidate's most recent moves, newest first.
func (s *Store) History(ctx context.Context, recruiterID domain.ProfileID, candidateID string, limit int) ([]domain.MoveRecord, error) {
	if recruiterID.IsZero() || recruiterID.IsDegraded() {
		return []domain.MoveRecord{}, nil
	}
	switch {
	case limit <= 0:
		limit = 20
	case limit > 100:
		limit = 100
	}

	moves, err := s.positions.ListMoves(ctx, recruiterID, candidateID, limit)
	if err != nil {
		return nil, backend.Classify("candidate history", err)
	}
	return moves, nil
}
