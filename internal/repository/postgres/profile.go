package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/pkg/database"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

const profileColumns = `id, user_id, email, first_name, last_name, role, completion_score, reelpass_verified, created_at, updated_at`

// ProfileRepository implements repository.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	db database.DBTX
}

// NewProfileRepository creates a new PostgreSQL-backed profile repository.
func NewProfileRepository(db database.DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByUserID retrieves the live profile owned by userID.
func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (p *domain.Profile, err error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE user_id = $1 AND is_deleted = false`

	ctx, end := database.TraceQuery(ctx, "GetProfileByUserID", query)
	defer func() { end(err) }()

	p, err = scanProfile(r.db.QueryRow(ctx, query, userID))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("profile for user", userID)
	}
	return p, err
}

// GetByID retrieves a live profile by its ID.
func (r *ProfileRepository) GetByID(ctx context.Context, id domain.ProfileID) (p *domain.Profile, err error) {
	query := `SELECT ` + profileColumns + `
		FROM profiles
		WHERE id = $1 AND is_deleted = false`

	ctx, end := database.TraceQuery(ctx, "GetProfileByID", query)
	defer func() { end(err) }()

	p, err = scanProfile(r.db.QueryRow(ctx, query, string(id)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("profile", string(id))
	}
	return p, err
}

// Create inserts a profile and writes the assigned ID and timestamps back.
func (r *ProfileRepository) Create(ctx context.Context, p *domain.Profile) (err error) {
	query := `
		INSERT INTO profiles (user_id, email, first_name, last_name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "CreateProfile", query)
	defer func() { end(err) }()

	var id string
	err = r.db.QueryRow(ctx, query,
		p.UserID,
		p.Email,
		p.FirstName,
		p.LastName,
		p.Role.String(),
	).Scan(&id, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("profile", "user_id", p.UserID)
		}
		return fmt.Errorf("insert profile: %w", err)
	}

	p.ID = domain.ProfileID(id)
	return nil
}

// Update applies the non-nil fields of upd.
func (r *ProfileRepository) Update(ctx context.Context, id domain.ProfileID, upd domain.ProfileUpdate) (p *domain.Profile, err error) {
	query := `
		UPDATE profiles
		SET first_name = COALESCE($1, first_name),
		    last_name = COALESCE($2, last_name),
		    updated_at = now()
		WHERE id = $3 AND is_deleted = false
		RETURNING ` + profileColumns

	ctx, end := database.TraceQuery(ctx, "UpdateProfile", query)
	defer func() { end(err) }()

	p, err = scanProfile(r.db.QueryRow(ctx, query, upd.FirstName, upd.LastName, string(id)))
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.NotFound("profile", string(id))
	}
	return p, err
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p    domain.Profile
		id   string
		role string
	)

	err := row.Scan(
		&id,
		&p.UserID,
		&p.Email,
		&p.FirstName,
		&p.LastName,
		&role,
		&p.CompletionScore,
		&p.ReelPassVerified,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	p.ID = domain.ProfileID(id)
	p.Role, err = domain.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan profile %s: %w", id, err)
	}
	return &p, nil
}
