package workspace

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/move"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/repository"
	"github.com/reelhunter/recruiter/internal/session"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/logger"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

var activeWorkspaces = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "recruiter_workspaces_active",
	Help: "Number of live client workspaces.",
})

// Deps are shared by every workspace the manager builds. Events may be nil.
type Deps struct {
	API             *identity.API
	Sessions        repository.SessionStore
	Profiles        repository.ProfileRepository
	Store           *pipeline.Store
	Renderer        move.Renderer
	Notifier        move.Notifier
	Events          move.EventPublisher
	Verifier        *identity.Verifier
	PreserveOnError bool
	IdleTTL         time.Duration
	Logger          *slog.Logger
}

// Manager owns the live workspaces, keyed by identity session id, and
// evicts the ones left idle longer than the TTL.
type Manager struct {
	deps Deps

	mu         sync.Mutex
	workspaces map[string]*Workspace
	nowFunc    func() time.Time
}

// NewManager creates an empty manager. Call Run to start eviction.
func NewManager(deps Deps) *Manager {
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = 30 * time.Minute
	}
	return &Manager{
		deps:       deps,
		workspaces: make(map[string]*Workspace),
		nowFunc:    time.Now,
	}
}

// Open returns the workspace for an authenticated request, rebuilding it
// from the cached session or the bearer token when it is not live.
func (m *Manager) Open(ctx context.Context, claims *middleware.Claims) (*Workspace, error) {
	if claims == nil || claims.SessionID == "" {
		return nil, apperrors.Unauthorized("missing session")
	}

	if ws := m.Get(claims.SessionID); ws != nil {
		return ws, nil
	}

	ac, err := m.deps.Verifier.Parse(claims.Token)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token")
	}

	ws := m.build(claims.SessionID)
	ws.Identity.Seed(ctx, identity.SessionFromToken(claims.Token, ac))
	ws.start(ctx)

	return m.adopt(ctx, ws), nil
}

// Get returns the live workspace under key and marks it used.
func (m *Manager) Get(key string) *Workspace {
	m.mu.Lock()
	ws, ok := m.workspaces[key]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	ws.touch(m.now())
	return ws
}

// SignIn signs in with a password and registers the new workspace under
// the provider's session id.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Workspace, *domain.Session, error) {
	ws := m.build("")
	ws.start(ctx)

	sess, err := ws.Identity.SignInWithPassword(ctx, strings.TrimSpace(email), password)
	if err != nil {
		ws.close()
		return nil, nil, err
	}

	key, err := m.sessionKey(sess)
	if err != nil {
		ws.close()
		return nil, nil, err
	}
	ws.Identity.SetKey(ctx, key)

	return m.replace(ctx, ws), sess, nil
}

// SignUp creates the account and its recruiter profile. When the provider
// signs the user in straight away the workspace is returned as well;
// otherwise the workspace is nil and the user must confirm their email.
func (m *Manager) SignUp(ctx context.Context, req identity.SignUpRequest) (*domain.User, *Workspace, *domain.Session, error) {
	ws := m.build("")
	ws.start(ctx)

	user, sess, err := ws.Identity.SignUp(ctx, req)
	if err != nil {
		ws.close()
		return nil, nil, nil, err
	}

	m.provisionProfile(ctx, user, req)

	if sess == nil {
		ws.close()
		return user, nil, nil, nil
	}

	key, err := m.sessionKey(sess)
	if err != nil {
		ws.close()
		return nil, nil, nil, err
	}
	ws.Identity.SetKey(ctx, key)
	ws.Resolver.Refresh(ctx)

	return user, m.replace(ctx, ws), sess, nil
}

// provisionProfile creates the recruiter profile for a new account. A
// failure leaves the user on a degraded profile until it is fixed.
func (m *Manager) provisionProfile(ctx context.Context, user *domain.User, req identity.SignUpRequest) {
	p := &domain.Profile{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      domain.RoleRecruiter,
	}
	if p.Email == "" {
		p.Email = req.Email
	}

	err := m.deps.Profiles.Create(ctx, p)
	switch {
	case err == nil:
		logger.FromContext(ctx).InfoContext(ctx, "profile provisioned",
			slog.String("user_id", user.ID),
			slog.String("profile_id", p.ID.String()),
		)
	case errors.Is(err, apperrors.ErrAlreadyExists):
	default:
		logger.FromContext(ctx).ErrorContext(ctx, "failed to provision profile",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}
}

// SignOut signs the workspace under key out and drops it. Local state is
// cleared even when the provider could not revoke the session.
func (m *Manager) SignOut(ctx context.Context, key string) error {
	m.mu.Lock()
	ws, ok := m.workspaces[key]
	delete(m.workspaces, key)
	m.mu.Unlock()
	if !ok {
		return nil
	}
	activeWorkspaces.Dec()

	err := ws.Identity.SignOut(ctx)
	ws.close()
	return err
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Run evicts idle workspaces until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.deps.IdleTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.cleanup(); n > 0 {
				m.deps.Logger.Debug("evicted idle workspaces", slog.Int("count", n))
			}
		}
	}
}

// Close drops every workspace. Cached sessions stay in the store so
// clients can resume after a restart.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.workspaces
	m.workspaces = make(map[string]*Workspace)
	m.mu.Unlock()

	for _, ws := range all {
		ws.close()
	}
	activeWorkspaces.Sub(float64(len(all)))
}

func (m *Manager) cleanup() int {
	now := m.now()

	m.mu.Lock()
	var idle []*Workspace
	for key, ws := range m.workspaces {
		if ws.idleSince(now) > m.deps.IdleTTL {
			delete(m.workspaces, key)
			idle = append(idle, ws)
		}
	}
	m.mu.Unlock()

	for _, ws := range idle {
		ws.close()
	}
	activeWorkspaces.Sub(float64(len(idle)))
	return len(idle)
}

func (m *Manager) build(key string) *Workspace {
	if key == "" {
		key = "pending-" + uuid.NewString()
	}

	client := identity.NewClient(m.deps.API, m.deps.Sessions, key, m.deps.Logger)
	resolver := session.NewResolver(client, m.deps.Profiles, m.deps.Logger)
	board := pipeline.NewBoard(m.deps.Store, func() domain.ProfileID {
		return resolver.State().ProfileID
	}, m.deps.PreserveOnError)

	ws := &Workspace{
		Identity: client,
		Resolver: resolver,
		Board:    board,
		Protocol: move.NewProtocol(move.Deps{
			Board:    board,
			Mover:    m.deps.Store,
			Renderer: m.deps.Renderer,
			Notifier: m.deps.Notifier,
			Events:   m.deps.Events,
			Logger:   m.deps.Logger,
		}),
	}
	ws.touch(m.now())
	return ws
}

// adopt registers ws unless another request registered the same key
// first, in which case that workspace wins and ws is discarded.
func (m *Manager) adopt(ctx context.Context, ws *Workspace) *Workspace {
	key := ws.Key()

	m.mu.Lock()
	if existing, ok := m.workspaces[key]; ok {
		m.mu.Unlock()
		ws.close()
		existing.touch(m.now())
		return existing
	}
	m.workspaces[key] = ws
	m.mu.Unlock()

	activeWorkspaces.Inc()
	logger.FromContext(ctx).DebugContext(ctx, "workspace opened", slog.String("session_id", key))
	return ws
}

// replace registers ws, closing any workspace previously under its key.
func (m *Manager) replace(ctx context.Context, ws *Workspace) *Workspace {
	key := ws.Key()

	m.mu.Lock()
	old, ok := m.workspaces[key]
	m.workspaces[key] = ws
	m.mu.Unlock()

	if ok {
		old.close()
	} else {
		activeWorkspaces.Inc()
	}
	logger.FromContext(ctx).DebugContext(ctx, "workspace opened", slog.String("session_id", key))
	return ws
}

func (m *Manager) sessionKey(sess *domain.Session) (string, error) {
	c, err := m.deps.Verifier.Validate(sess.AccessToken)
	if err != nil {
		return "", apperrors.ServiceUnavailable("identity provider issued an unverifiable token", err)
	}
	return c.SessionID, nil
}

func (m *Manager) now() time.Time {
	return m.nowFunc()
}
