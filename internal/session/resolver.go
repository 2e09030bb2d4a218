// Package session turns identity events into the resolved recruiter state:
// who is signed in, which profile scopes their pipeline, and whether that
// profile is real or a degraded stand-in.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/pkg/logger"
)

var resolutions = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "recruiter_session_resolutions_total",
		Help: "Profile resolutions by outcome.",
	},
	[]string{"outcome"},
)

const (
	outcomeResolved         = "resolved"
	outcomeDegradedPolicy   = "degraded_policy"
	outcomeDegradedNotFound = "degraded_not_found"
	outcomeDegradedError    = "degraded_error"
)

// ProfileLookup finds the profile owned by an identity user.
type ProfileLookup interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Profile, error)
}

// State is a snapshot of the resolver.
type State struct {
	Authenticated     bool             `json:"authenticated"`
	User              *domain.User     `json:"user,omitempty"`
	Session           *domain.Session  `json:"-"`
	ProfileID         domain.ProfileID `json:"profile_id,omitempty"`
	Role              domain.Role      `json:"role,omitempty"`
	Degraded          bool             `json:"degraded"`
	AuthCheckComplete bool             `json:"auth_check_complete"`
	Loading           bool             `json:"loading"`
}

// IsRecruiter reports whether the signed-in user may work the pipeline.
func (s State) IsRecruiter() bool {
	return s.Authenticated && s.Role.CanOwnPipeline()
}

// Resolver tracks one client session. Events are applied one at a time in
// arrival order, and a profile lookup only lands if no newer event was
// handled while it was in flight.
type Resolver struct {
	provider identity.Provider
	profiles ProfileLookup
	logger   *slog.Logger

	eventMu sync.Mutex

	mu         sync.RWMutex
	state      State
	generation uint64

	unsubscribe func()
}

// NewResolver creates a resolver in its loading state.
func NewResolver(provider identity.Provider, profiles ProfileLookup, logger *slog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		profiles: profiles,
		logger:   logger,
		state:    State{Loading: true},
	}
}

// Start subscribes to the provider and resolves the initial session.
func (r *Resolver) Start(ctx context.Context) {
	r.unsubscribe = r.provider.OnAuthStateChange(r.HandleEvent)
	r.Initialize(ctx)
}

// Stop unsubscribes from the provider.
func (r *Resolver) Stop() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// Initialize reads the current session. A failure to read it is treated
// as having no session.
func (r *Resolver) Initialize(ctx context.Context) {
	sess, err := r.provider.GetSession(ctx)
	if err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "failed to read initial session",
			slog.String("error", err.Error()),
		)
		sess = nil
	}

	if sess == nil {
		r.eventMu.Lock()
		defer r.eventMu.Unlock()

		r.mu.Lock()
		r.generation++
		r.state = State{AuthCheckComplete: true}
		r.mu.Unlock()
		return
	}

	r.HandleEvent(ctx, identity.AuthEvent{Type: identity.EventInitialSession, Session: sess})
}

// HandleEvent applies one identity event.
func (r *Resolver) HandleEvent(ctx context.Context, ev identity.AuthEvent) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	switch ev.Type {
	case identity.EventSignedOut:
		r.mu.Lock()
		r.generation++
		r.state = State{AuthCheckComplete: true}
		r.mu.Unlock()

	case identity.EventSignedIn, identity.EventTokenRefreshed, identity.EventInitialSession:
		if ev.Session == nil {
			r.mu.Lock()
			r.generation++
			r.state = State{AuthCheckComplete: true}
			r.mu.Unlock()
			return
		}

		user := ev.Session.User

		r.mu.Lock()
		r.generation++
		gen := r.generation
		r.state.Authenticated = true
		r.state.User = &user
		r.state.Session = ev.Session
		r.state.Loading = true
		r.mu.Unlock()

		id, role, degraded := r.resolveProfile(ctx, user.ID)

		r.mu.Lock()
		if gen == r.generation {
			r.state.ProfileID = id
			r.state.Role = role
			r.state.Degraded = degraded
			r.state.Loading = false
			r.state.AuthCheckComplete = true
		}
		r.mu.Unlock()

	default:
		r.logger.WarnContext(ctx, "ignoring unknown auth event", slog.String("event", string(ev.Type)))
	}
}

// resolveProfile never fails: any lookup problem yields the degraded id and
// assumes the recruiter role.
func (r *Resolver) resolveProfile(ctx context.Context, userID string) (domain.ProfileID, domain.Role, bool) {
	log := logger.FromContext(ctx).With(slog.String("user_id", userID))

	p, err := r.profiles.GetByUserID(ctx, userID)
	if err == nil {
		resolutions.WithLabelValues(outcomeResolved).Inc()
		return p.ID, p.Role, false
	}

	outcome := outcomeDegradedError
	switch backend.KindOf(err) {
	case backend.KindPolicyRecursion:
		outcome = outcomeDegradedPolicy
		log.WarnContext(ctx, "profile access policy recursion, using degraded profile")
	case backend.KindNotFound:
		outcome = outcomeDegradedNotFound
		log.InfoContext(ctx, "no profile for user yet, using degraded profile")
	default:
		log.ErrorContext(ctx, "profile lookup failed, using degraded profile",
			slog.String("error", err.Error()),
		)
	}
	resolutions.WithLabelValues(outcome).Inc()

	return domain.DegradedProfileID(userID), domain.RoleRecruiter, true
}

// State returns a snapshot of the current state.
func (r *Resolver) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.state
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

// Refresh re-resolves the profile of the current session, for example after
// the profile row was provisioned.
func (r *Resolver) Refresh(ctx context.Context) {
	st := r.State()
	if !st.Authenticated || st.Session == nil {
		return
	}
	r.HandleEvent(ctx, identity.AuthEvent{Type: identity.EventInitialSession, Session: st.Session})
}
