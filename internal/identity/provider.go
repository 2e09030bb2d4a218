// Package identity adapts the hosted identity provider: password sign-in,
// sign-up, sign-out, session refresh and access-token verification.
package identity

import (
	"context"

	"github.com/reelhunter/recruiter/internal/domain"
)

// EventType names an authentication state change.
type EventType string

const (
	EventInitialSession EventType = "INITIAL_SESSION"
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// AuthEvent is delivered to listeners on every state change. Session is nil
// for EventSignedOut.
type AuthEvent struct {
	Type    EventType
	Session *domain.Session
}

// Listener receives auth events in the order they happen.
type Listener func(ctx context.Context, ev AuthEvent)

// SignUpRequest carries the account to create and its display metadata.
type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=72"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// Provider is the identity surface the session resolver and the HTTP layer
// depend on.
type Provider interface {
	// GetSession returns the current session, or nil when signed out.
	GetSession(ctx context.Context) (*domain.Session, error)

	// OnAuthStateChange registers fn and returns a function that removes it.
	OnAuthStateChange(fn Listener) (unsubscribe func())

	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error)

	// SignUp creates an account. The session is nil when the provider
	// requires email confirmation first.
	SignUp(ctx context.Context, req SignUpRequest) (*domain.User, *domain.Session, error)

	// SignOut ends the current session.
	SignOut(ctx context.Context) error
}
