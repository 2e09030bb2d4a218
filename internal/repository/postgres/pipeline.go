package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/repository"
	"github.com/reelhunter/recruiter/pkg/database"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

// --- Stage Repository ---

// StageRepository implements repository.StageRepository using PostgreSQL.
type StageRepository struct {
	db database.DBTX
}

// NewStageRepository creates a new PostgreSQL-backed stage repository.
func NewStageRepository(db database.DBTX) *StageRepository {
	return &StageRepository{db: db}
}

// ListByRecruiter returns the recruiter's active stages in board order.
func (r *StageRepository) ListByRecruiter(ctx context.Context, recruiterID domain.ProfileID) (stages []domain.Stage, err error) {
	query := `
		SELECT id, recruiter_id, stage_name, stage_order, COALESCE(stage_color, ''), COALESCE(auto_email_template, ''), is_active
		FROM pipeline_stages
		WHERE recruiter_id = $1 AND is_active = true
		ORDER BY stage_order, id`

	ctx, end := database.TraceQuery(ctx, "ListStages", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, string(recruiterID))
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages = []domain.Stage{}
	for rows.Next() {
		var (
			s     domain.Stage
			owner string
		)
		if err := rows.Scan(
			&s.ID,
			&owner,
			&s.Name,
			&s.Order,
			&s.Color,
			&s.AutoEmailTemplate,
			&s.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan stage row: %w", err)
		}
		s.RecruiterID = domain.ProfileID(owner)
		s.Persisted = true
		s.Candidates = []domain.Candidate{}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage rows: %w", err)
	}

	return stages, nil
}

// CreateMany inserts stages, leaving occupied (recruiter, order) slots as is.
func (r *StageRepository) CreateMany(ctx context.Context, stages []domain.Stage) (inserted int, err error) {
	query := `
		INSERT INTO pipeline_stages (id, recruiter_id, stage_name, stage_order, stage_color, auto_email_template, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (recruiter_id, stage_order) DO NOTHING`

	ctx, end := database.TraceQuery(ctx, "CreateStages", query)
	defer func() { end(err) }()

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		for _, s := range stages {
			ct, err := tx.Exec(ctx, query,
				s.ID,
				string(s.RecruiterID),
				s.Name,
				s.Order,
				nullString(s.Color),
				nullString(s.AutoEmailTemplate),
				s.IsActive,
			)
			if err != nil {
				return fmt.Errorf("insert stage %q: %w", s.Name, err)
			}
			inserted += int(ct.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// --- Position Repository ---

// PositionRepository implements repository.PositionRepository using PostgreSQL.
type PositionRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewPositionRepository creates a new PostgreSQL-backed position repository.
func NewPositionRepository(db database.DBTX) *PositionRepository {
	return &PositionRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ListByRecruiter returns the recruiter's positions joined with each
// candidate's name and email.
func (r *PositionRepository) ListByRecruiter(ctx context.Context, recruiterID domain.ProfileID) (positions []domain.Position, err error) {
	query := `
		SELECT pos.id, pos.candidate_id, pos.recruiter_id, pos.current_stage_id, pos.previous_stage_id,
		       pos.moved_at, pos.moved_by, pos.notes,
		       COALESCE(TRIM(CONCAT(p.first_name, ' ', p.last_name)), ''), COALESCE(p.email, '')
		FROM candidate_pipeline_positions pos
		LEFT JOIN profiles p ON p.id = pos.candidate_id
		WHERE pos.recruiter_id = $1
		ORDER BY pos.moved_at, pos.candidate_id`

	ctx, end := database.TraceQuery(ctx, "ListPositions", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, string(recruiterID))
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	positions = []domain.Position{}
	for rows.Next() {
		var (
			pos   domain.Position
			owner string
		)
		if err := rows.Scan(
			&pos.ID,
			&pos.CandidateID,
			&owner,
			&pos.CurrentStageID,
			&pos.PreviousStageID,
			&pos.MovedAt,
			&pos.MovedBy,
			&pos.Notes,
			&pos.CandidateName,
			&pos.CandidateEmail,
		); err != nil {
			return nil, fmt.Errorf("scan position row: %w", err)
		}
		pos.RecruiterID = domain.ProfileID(owner)
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position rows: %w", err)
	}

	return positions, nil
}

// Move reassigns the candidate guarded on its expected current stage and
// appends the move to the audit trail, both in one transaction.
func (r *PositionRepository) Move(ctx context.Context, p repository.MoveParams) (rec *domain.MoveRecord, err error) {
	updateQuery := `
		UPDATE candidate_pipeline_positions
		SET previous_stage_id = current_stage_id,
		    current_stage_id = $1,
		    moved_at = $2,
		    moved_by = $3,
		    notes = COALESCE($4, notes),
		    updated_at = $2
		WHERE candidate_id = $5 AND recruiter_id = $6 AND current_stage_id = $7`

	insertQuery := `
		INSERT INTO candidate_pipeline_moves (candidate_id, recruiter_id, from_stage_id, to_stage_id, moved_by, moved_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "MoveCandidate", updateQuery)
	defer func() { end(err) }()

	movedAt := r.now()
	note := nullString(p.Note)

	rec = &domain.MoveRecord{
		CandidateID: p.CandidateID,
		RecruiterID: p.RecruiterID,
		FromStageID: p.FromStageID,
		ToStageID:   p.ToStageID,
		MovedBy:     p.MovedBy,
		MovedAt:     movedAt,
		Notes:       p.Note,
	}

	err = database.InTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, updateQuery,
			p.ToStageID,
			movedAt,
			p.MovedBy,
			note,
			p.CandidateID,
			string(p.RecruiterID),
			p.FromStageID,
		)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		if ct.RowsAffected() == 0 {
			return apperrors.Conflict(fmt.Sprintf("candidate %s is no longer in stage %s", p.CandidateID, p.FromStageID))
		}

		if err := tx.QueryRow(ctx, insertQuery,
			p.CandidateID,
			string(p.RecruiterID),
			p.FromStageID,
			p.ToStageID,
			p.MovedBy,
			movedAt,
			note,
		).Scan(&rec.ID); err != nil {
			return fmt.Errorf("insert move record: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Insert places a candidate who is not yet in the recruiter's pipeline.
// A candidate who already has a position is rejected with a conflict; stage
// changes go through Move so that they are audited.
func (r *PositionRepository) Insert(ctx context.Context, pos *domain.Position) (err error) {
	query := `
		INSERT INTO candidate_pipeline_positions (candidate_id, recruiter_id, current_stage_id, moved_at, moved_by, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (candidate_id, recruiter_id) DO NOTHING
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "InsertPosition", query)
	defer func() { end(err) }()

	if pos.MovedAt.IsZero() {
		pos.MovedAt = r.now()
	}

	err = r.db.QueryRow(ctx, query,
		pos.CandidateID,
		string(pos.RecruiterID),
		pos.CurrentStageID,
		pos.MovedAt,
		pos.MovedBy,
		pos.Notes,
	).Scan(&pos.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.AlreadyExists("pipeline position", "candidate_id", pos.CandidateID)
	}
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// ListMoves returns the candidate's latest moves, newest first.
func (r *PositionRepository) ListMoves(ctx context.Context, recruiterID domain.ProfileID, candidateID string, limit int) (moves []domain.MoveRecord, err error) {
	query := `
		SELECT id, candidate_id, recruiter_id, from_stage_id, to_stage_id, moved_by, moved_at, notes
		FROM candidate_pipeline_moves
		WHERE recruiter_id = $1 AND candidate_id = $2
		ORDER BY moved_at DESC, id
		LIMIT $3`

	ctx, end := database.TraceQuery(ctx, "ListMoves", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, string(recruiterID), candidateID, limit)
	if err != nil {
		return nil, fmt.Errorf("list moves: %w", err)
	}
	defer rows.Close()

	moves = []domain.MoveRecord{}
	for rows.Next() {
		var (
			m     domain.MoveRecord
			owner string
			notes *string
		)
		if err := rows.Scan(
			&m.ID,
			&m.CandidateID,
			&owner,
			&m.FromStageID,
			&m.ToStageID,
			&m.MovedBy,
			&m.MovedAt,
			&notes,
		); err != nil {
			return nil, fmt.Errorf("scan move row: %w", err)
		}
		m.RecruiterID = domain.ProfileID(owner)
		m.Notes = deref(notes)
		moves = append(moves, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate move rows: %w", err)
	}

	return moves, nil
}
