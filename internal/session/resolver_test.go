package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httpclient"
)

// --- Mock implementations ---

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type fakeProvider struct {
	mu         sync.Mutex
	session    *domain.Session
	sessionErr error
	listeners  []identity.Listener
}

func (f *fakeProvider) GetSession(context.Context) (*domain.Session, error) {
	return f.session, f.sessionErr
}

func (f *fakeProvider) OnAuthStateChange(fn identity.Listener) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.listeners = nil
	}
}

func (f *fakeProvider) emit(ctx context.Context, ev identity.AuthEvent) {
	f.mu.Lock()
	fns := append([]identity.Listener(nil), f.listeners...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn(ctx, ev)
	}
}

func (f *fakeProvider) SignInWithPassword(context.Context, string, string) (*domain.Session, error) {
	return nil, errors.New("not used")
}

func (f *fakeProvider) SignUp(context.Context, identity.SignUpRequest) (*domain.User, *domain.Session, error) {
	return nil, nil, errors.New("not used")
}

func (f *fakeProvider) SignOut(context.Context) error { return nil }

// --- Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestResolver() (*Resolver, *fakeProvider, *mockProfiles) {
	provider := &fakeProvider{}
	profiles := new(mockProfiles)
	return NewResolver(provider, profiles, newTestLogger()), provider, profiles
}

func sampleSession(userID string) *domain.Session {
	return &domain.Session{
		AccessToken: "token-" + userID,
		ExpiresAt:   time.Now().Add(time.Hour),
		User:        domain.User{ID: userID, Email: userID + "@example.com"},
	}
}

func signedIn(userID string) identity.AuthEvent {
	return identity.AuthEvent{Type: identity.EventSignedIn, Session: sampleSession(userID)}
}

// ---------------------------------------------------------------------------
// Initialize
// ---------------------------------------------------------------------------

func TestResolver_StartsLoading(t *testing.T) {
	r, _, _ := newTestResolver()

	st := r.State()
	assert.True(t, st.Loading)
	assert.False(t, st.AuthCheckComplete)
	assert.False(t, st.Authenticated)
}

func TestResolver_Initialize_NoSession(t *testing.T) {
	r, _, profiles := newTestResolver()

	r.Initialize(context.Background())

	st := r.State()
	assert.False(t, st.Authenticated)
	assert.True(t, st.AuthCheckComplete)
	assert.False(t, st.Loading)
	profiles.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

func TestResolver_Initialize_ProviderErrorIsNoSession(t *testing.T) {
	r, provider, profiles := newTestResolver()
	provider.sessionErr = &httpclient.ResponseError{Service: "identity", Status: 503}

	r.Initialize(context.Background())

	st := r.State()
	assert.False(t, st.Authenticated)
	assert.True(t, st.AuthCheckComplete)
	assert.False(t, st.Loading)
	profiles.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

func TestResolver_Start_RestoresExistingSession(t *testing.T) {
	r, provider, profiles := newTestResolver()
	provider.session = sampleSession("user-1")
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-1", UserID: "user-1", Role: domain.RoleRecruiter}, nil)

	r.Start(context.Background())
	defer r.Stop()

	st := r.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, domain.ProfileID("prof-1"), st.ProfileID)
	assert.False(t, st.Degraded)
	assert.True(t, st.IsRecruiter())
	assert.Len(t, provider.listeners, 1)
}

// ---------------------------------------------------------------------------
// Profile resolution
// ---------------------------------------------------------------------------

func TestResolver_SignIn_AdoptsProfile(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-1", UserID: "user-1", Role: domain.RoleCandidate}, nil)

	r.HandleEvent(context.Background(), signedIn("user-1"))

	st := r.State()
	assert.True(t, st.Authenticated)
	assert.Equal(t, domain.ProfileID("prof-1"), st.ProfileID)
	assert.Equal(t, domain.RoleCandidate, st.Role)
	assert.False(t, st.IsRecruiter())
	assert.True(t, st.AuthCheckComplete)
	assert.False(t, st.Loading)
}

func TestResolver_SignIn_DegradesOnLookupFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"policy recursion", &pgconn.PgError{Code: "42P17", Message: "infinite recursion detected in policy"}},
		{"rest policy code", &httpclient.ResponseError{Status: 401, Code: "PGRST301"}},
		{"not found", apperrors.NotFound("profile for user", "user-1")},
		{"other", errors.New("connection reset by peer")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, profiles := newTestResolver()
			profiles.On("GetByUserID", mock.Anything, "user-1").Return(nil, tt.err)

			r.HandleEvent(context.Background(), signedIn("user-1"))

			st := r.State()
			assert.True(t, st.Authenticated, "profile failure must not become an auth failure")
			assert.Equal(t, domain.ProfileID("temp-user-1"), st.ProfileID)
			assert.True(t, st.ProfileID.IsDegraded())
			assert.True(t, st.Degraded)
			assert.True(t, st.IsRecruiter())
			assert.True(t, st.AuthCheckComplete)
			assert.False(t, st.Loading)
		})
	}
}

func TestResolver_NewUserWithoutProfile(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "8f2c").Return(nil, apperrors.NotFound("profile for user", "8f2c"))

	r.HandleEvent(context.Background(), signedIn("8f2c"))

	st := r.State()
	assert.Equal(t, domain.ProfileID("temp-8f2c"), st.ProfileID)
	assert.True(t, st.AuthCheckComplete)
	assert.True(t, st.Authenticated)
}

func TestResolver_TokenRefreshed_ResolvesAgain(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(nil, errors.New("timeout")).Once()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-1", Role: domain.RoleRecruiter}, nil).Once()

	r.HandleEvent(context.Background(), signedIn("user-1"))
	assert.True(t, r.State().Degraded)

	r.HandleEvent(context.Background(), identity.AuthEvent{Type: identity.EventTokenRefreshed, Session: sampleSession("user-1")})
	st := r.State()
	assert.False(t, st.Degraded)
	assert.Equal(t, domain.ProfileID("prof-1"), st.ProfileID)
	profiles.AssertExpectations(t)
}

// ---------------------------------------------------------------------------
// Sign-out
// ---------------------------------------------------------------------------

func TestResolver_SignOut_ClearsEverything(t *testing.T) {
	r, provider, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-1", Role: domain.RoleRecruiter}, nil)
	r.Start(context.Background())

	provider.emit(context.Background(), signedIn("user-1"))
	require.True(t, r.State().Authenticated)

	provider.emit(context.Background(), identity.AuthEvent{Type: identity.EventSignedOut})

	st := r.State()
	assert.False(t, st.Authenticated)
	assert.Nil(t, st.User)
	assert.Nil(t, st.Session)
	assert.True(t, st.ProfileID.IsZero())
	assert.False(t, st.Role.Valid())
	assert.True(t, st.AuthCheckComplete)
}

func TestResolver_SignInThenSignOut_EndsSignedOut(t *testing.T) {
	r, _, profiles := newTestResolver()

	entered := make(chan struct{})
	release := make(chan struct{})
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(&domain.Profile{ID: "prof-1", Role: domain.RoleRecruiter}, nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.HandleEvent(context.Background(), signedIn("user-1"))
	}()

	<-entered
	go func() {
		defer wg.Done()
		r.HandleEvent(context.Background(), identity.AuthEvent{Type: identity.EventSignedOut})
	}()

	close(release)
	wg.Wait()

	st := r.State()
	assert.False(t, st.Authenticated)
	assert.True(t, st.ProfileID.IsZero())
}

func TestResolver_RepeatedSignInSignOut(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, mock.Anything).
		Return(&domain.Profile{ID: "prof-1", Role: domain.RoleRecruiter}, nil)

	for i := 0; i < 5; i++ {
		r.HandleEvent(context.Background(), signedIn("user-1"))
		r.HandleEvent(context.Background(), identity.AuthEvent{Type: identity.EventSignedOut})

		st := r.State()
		assert.False(t, st.Authenticated)
		assert.True(t, st.ProfileID.IsZero())
	}
}

func TestResolver_State_ReturnsCopy(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-1", Role: domain.RoleRecruiter}, nil)
	r.HandleEvent(context.Background(), signedIn("user-1"))

	st := r.State()
	st.User.Email = "mutated@example.com"

	assert.Equal(t, "user-1@example.com", r.State().User.Email)
}

func TestResolver_Refresh(t *testing.T) {
	r, _, profiles := newTestResolver()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(nil, apperrors.NotFound("profile for user", "user-1")).Once()
	profiles.On("GetByUserID", mock.Anything, "user-1").
		Return(&domain.Profile{ID: "prof-9", Role: domain.RoleRecruiter}, nil).Once()

	r.HandleEvent(context.Background(), signedIn("user-1"))
	require.True(t, r.State().Degraded)

	r.Refresh(context.Background())
	assert.Equal(t, domain.ProfileID("prof-9"), r.State().ProfileID)
}
