package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/repository"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
)

// Client is one client session's view of the identity provider. It holds
// the current session, refreshes it when expired, mirrors it into the
// session store and notifies listeners of every change.
type Client struct {
	api    *API
	store  repository.SessionStore
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	key       string
	session   *domain.Session
	listeners map[int]Listener
	nextID    int
}

var _ Provider = (*Client)(nil)

// NewClient creates a client whose session is cached in store under key.
// store may be nil, in which case the session lives in memory only.
func NewClient(api *API, store repository.SessionStore, key string, logger *slog.Logger) *Client {
	return &Client{
		api:       api,
		store:     store,
		logger:    logger,
		now:       time.Now,
		key:       key,
		listeners: make(map[int]Listener),
	}
}

// Key returns the session store key.
func (c *Client) Key() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// SetKey moves the cached session to a new key. It is used once sign-in
// reveals the provider's session id.
func (c *Client) SetKey(ctx context.Context, key string) {
	c.mu.Lock()
	old, sess := c.key, c.session
	c.key = key
	c.mu.Unlock()

	if old == key || c.store == nil {
		return
	}
	if old != "" {
		c.forget(ctx, old)
	}
	if sess != nil {
		c.persist(ctx, key, sess)
	}
}

// Seed installs sess as the current session when none is cached. It never
// emits an event; the resolver picks the session up through GetSession.
func (c *Client) Seed(ctx context.Context, sess *domain.Session) {
	if sess == nil {
		return
	}
	if c.store != nil {
		if _, err := c.store.Get(ctx, c.Key()); err == nil {
			return
		}
	}

	c.mu.Lock()
	if c.session == nil {
		c.session = sess
	}
	c.mu.Unlock()
}

// OnAuthStateChange registers fn.
func (c *Client) OnAuthStateChange(fn Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.listeners, id)
			c.mu.Unlock()
		})
	}
}

// GetSession returns the current session. A session missing from memory is
// restored from the store; an expired one is refreshed, which emits
// TOKEN_REFRESHED. No session yields (nil, nil).
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	c.mu.Lock()
	sess, key := c.session, c.key
	c.mu.Unlock()

	if sess == nil && c.store != nil && key != "" {
		cached, err := c.store.Get(ctx, key)
		switch {
		case err == nil:
			sess = cached
			c.mu.Lock()
			c.session = cached
			c.mu.Unlock()
		case !errors.Is(err, apperrors.ErrNotFound):
			return nil, fmt.Errorf("restore session: %w", err)
		}
	}
	if sess == nil {
		return nil, nil
	}
	if !sess.Expired(c.now()) {
		return sess, nil
	}

	if sess.RefreshToken == "" {
		c.clear(ctx)
		return nil, nil
	}

	refreshed, err := c.api.RefreshGrant(ctx, sess.RefreshToken)
	if err != nil {
		c.clear(ctx)
		return nil, fmt.Errorf("refresh session: %w", err)
	}

	c.install(ctx, refreshed)
	c.emit(ctx, AuthEvent{Type: EventTokenRefreshed, Session: refreshed})
	return refreshed, nil
}

// SignInWithPassword signs in and emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	sess, err := c.api.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, err
	}

	c.install(ctx, sess)
	c.emit(ctx, AuthEvent{Type: EventSignedIn, Session: sess})
	return sess, nil
}

// SignUp creates the account. When the provider answers with a session the
// client is signed in and SIGNED_IN is emitted.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*domain.User, *domain.Session, error) {
	user, sess, err := c.api.SignUp(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	if sess != nil {
		c.install(ctx, sess)
		c.emit(ctx, AuthEvent{Type: EventSignedIn, Session: sess})
	}
	return user, sess, nil
}

// SignOut revokes the session upstream, clears it locally and emits
// SIGNED_OUT. The local state is cleared even when revocation fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()

	var err error
	if sess != nil {
		if err = c.api.Logout(ctx, sess.AccessToken); err != nil {
			c.logger.WarnContext(ctx, "upstream sign-out failed",
				slog.String("error", err.Error()),
			)
		}
	}

	c.clear(ctx)
	c.emit(ctx, AuthEvent{Type: EventSignedOut})
	return err
}

func (c *Client) install(ctx context.Context, sess *domain.Session) {
	c.mu.Lock()
	c.session = sess
	key := c.key
	c.mu.Unlock()

	if c.store != nil && key != "" {
		c.persist(ctx, key, sess)
	}
}

func (c *Client) clear(ctx context.Context) {
	c.mu.Lock()
	c.session = nil
	key := c.key
	c.mu.Unlock()

	if c.store != nil && key != "" {
		c.forget(ctx, key)
	}
}

func (c *Client) persist(ctx context.Context, key string, sess *domain.Session) {
	if err := c.store.Save(ctx, key, sess); err != nil {
		c.logger.WarnContext(ctx, "failed to cache session",
			slog.String("error", err.Error()),
		)
	}
}

func (c *Client) forget(ctx context.Context, key string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.WarnContext(ctx, "failed to drop cached session",
			slog.String("error", err.Error()),
		)
	}
}

func (c *Client) emit(ctx context.Context, ev AuthEvent) {
	c.mu.Lock()
	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	fns := make([]Listener, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, c.listeners[id])
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(ctx, ev)
	}
}
