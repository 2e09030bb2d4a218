package domain

import "time"

// User is the identity provider's view of an account.
type User struct {
	ID       string            `json:"id"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"user_metadata,omitempty"`
}

// Session is the token bundle issued by the identity provider.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Expired reports whether the access token is past its expiry at now.
// A small skew treats tokens about to expire as already expired.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !now.Add(30 * time.Second).Before(s.ExpiresAt)
}
