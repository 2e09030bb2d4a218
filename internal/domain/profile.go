package domain

import (
	"strings"
	"time"
)

// DegradedPrefix marks profile ids synthesized when the real profile could
// not be resolved. Such ids never reach a persisted query.
const DegradedPrefix = "temp-"

// ProfileID identifies a profile row, or a degraded stand-in for one.
type ProfileID string

// DegradedProfileID returns the stand-in id for userID.
func DegradedProfileID(userID string) ProfileID {
	return ProfileID(DegradedPrefix + userID)
}

// IsDegraded reports whether id was synthesized rather than loaded.
func (id ProfileID) IsDegraded() bool {
	return strings.HasPrefix(string(id), DegradedPrefix)
}

// IsZero reports whether no profile has been resolved.
func (id ProfileID) IsZero() bool {
	return id == ""
}

func (id ProfileID) String() string {
	return string(id)
}

// Profile is the platform's record of a user, distinct from the identity
// provider's user.
type Profile struct {
	ID               ProfileID `json:"id"`
	UserID           string    `json:"user_id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"first_name"`
	LastName         string    `json:"last_name"`
	Role             Role      `json:"role"`
	CompletionScore  int       `json:"completion_score"`
	ReelPassVerified bool      `json:"reelpass_verified"`
	IsDeleted        bool      `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FullName joins the first and last name, skipping blanks.
func (p *Profile) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
}

// ProfileUpdate carries editable profile fields. Nil fields are left as is.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  *string `json:"last_name,omitempty" validate:"omitempty,max=100"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil
}
