package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/notification"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/repository"
	redisrepo "github.com/reelhunter/recruiter/internal/repository/redis"
	"github.com/reelhunter/recruiter/internal/search"
	"github.com/reelhunter/recruiter/internal/workspace"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/health"
	"github.com/reelhunter/recruiter/pkg/httpclient"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

const testSecret = "router-test-secret-long-enough-for-hs256"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- In-memory repositories ---

type memProfiles struct {
	mu     sync.Mutex
	byUser map[string]*domain.Profile
	nextID int
}

func (m *memProfiles) GetByUserID(_ context.Context, userID string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byUser[userID]
	if !ok {
		return nil, apperrors.NotFound("profile", userID)
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) GetByID(_ context.Context, id domain.ProfileID) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byUser {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, apperrors.NotFound("profile", id.String())
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byUser[p.UserID]; ok {
		return apperrors.AlreadyExists("profile", "user_id", p.UserID)
	}
	m.nextID++
	p.ID = domain.ProfileID(fmt.Sprintf("p%d", m.nextID))
	cp := *p
	m.byUser[p.UserID] = &cp
	return nil
}

func (m *memProfiles) Update(_ context.Context, id domain.ProfileID, upd domain.ProfileUpdate) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byUser {
		if p.ID != id {
			continue
		}
		if upd.FirstName != nil {
			p.FirstName = *upd.FirstName
		}
		if upd.LastName != nil {
			p.LastName = *upd.LastName
		}
		cp := *p
		return &cp, nil
	}
	return nil, apperrors.NotFound("profile", id.String())
}

type memStages struct {
	mu     sync.Mutex
	stages map[domain.ProfileID][]domain.Stage
}

func (m *memStages) ListByRecruiter(_ context.Context, id domain.ProfileID) ([]domain.Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Stage(nil), m.stages[id]...), nil
}

func (m *memStages) CreateMany(_ context.Context, stages []domain.Stage) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range stages {
		s.Persisted = true
		s.Candidates = nil
		m.stages[s.RecruiterID] = append(m.stages[s.RecruiterID], s)
	}
	return len(stages), nil
}

type candidateInfo struct {
	name  string
	email string
}

type memPositions struct {
	mu        sync.Mutex
	directory map[string]candidateInfo
	positions map[string]*domain.Position
	moves     []domain.MoveRecord
}

func (m *memPositions) ListByRecruiter(_ context.Context, id domain.ProfileID) ([]domain.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Position
	for _, p := range m.positions {
		if p.RecruiterID == id {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CandidateID < out[j].CandidateID })
	return out, nil
}

func (m *memPositions) Move(_ context.Context, p repository.MoveParams) (*domain.MoveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.positions[p.CandidateID]
	if !ok || pos.CurrentStageID != p.FromStageID {
		return nil, apperrors.Conflict("candidate is no longer in that stage")
	}
	from := pos.CurrentStageID
	pos.PreviousStageID = &from
	pos.CurrentStageID = p.ToStageID
	pos.MovedAt = time.Now()

	rec := domain.MoveRecord{
		ID:          fmt.Sprintf("m%d", len(m.moves)+1),
		CandidateID: p.CandidateID,
		RecruiterID: p.RecruiterID,
		FromStageID: p.FromStageID,
		ToStageID:   p.ToStageID,
		MovedBy:     p.MovedBy,
		MovedAt:     pos.MovedAt,
	}
	m.moves = append(m.moves, rec)
	return &rec, nil
}

func (m *memPositions) Insert(_ context.Context, pos *domain.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.positions[pos.CandidateID]; ok {
		return apperrors.AlreadyExists("pipeline position", "candidate_id", pos.CandidateID)
	}
	info := m.directory[pos.CandidateID]
	pos.ID = "pos-" + pos.CandidateID
	pos.MovedAt = time.Now()
	pos.CandidateName = info.name
	pos.CandidateEmail = info.email
	cp := *pos
	m.positions[pos.CandidateID] = &cp
	return nil
}

func (m *memPositions) ListMoves(_ context.Context, _ domain.ProfileID, candidateID string, limit int) ([]domain.MoveRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.MoveRecord{}
	for i := len(m.moves) - 1; i >= 0 && len(out) < limit; i-- {
		if m.moves[i].CandidateID == candidateID {
			out = append(out, m.moves[i])
		}
	}
	return out, nil
}

type memCandidates struct {
	mu   sync.Mutex
	pool []domain.CandidateSearchResult
	last domain.SearchFilters
}

func (m *memCandidates) Search(_ context.Context, f domain.SearchFilters) ([]domain.CandidateSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = f

	q := strings.ToLower(f.Query)
	out := []domain.CandidateSearchResult{}
	for _, c := range m.pool {
		if f.ReelPassOnly && c.ReelPassScore < domain.ReelPassThreshold {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.FullName()+" "+c.Headline), q) {
			continue
		}
		c.Currency = f.ResultCurrency()
		out = append(out, c)
	}
	return out, nil
}

func (m *memCandidates) lastFilters() domain.SearchFilters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// --- Fixture ---

type fixture struct {
	handler    http.Handler
	profiles   *memProfiles
	candidates *memCandidates
	verifier   *identity.Verifier
}

func signedToken(t *testing.T, v *identity.Verifier, userID, sessionID string) string {
	t.Helper()
	tok, err := v.Sign(identity.AccessClaims{
		Email:     userID + "@example.com",
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	require.NoError(t, err)
	return tok
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v := identity.NewVerifier(testSecret)
	access := signedToken(t, v, "user-1", "sess-1")

	gotrue := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/auth/v1/token":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  access,
				"refresh_token": "refresh-1",
				"expires_in":    3600,
				"user":          map[string]any{"id": "user-1", "email": "user-1@example.com"},
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gotrue.Close)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	composer, err := notification.NewComposer("Acme")
	require.NoError(t, err)
	dispatcher := notification.NewDispatcher(notification.NewDevSender(testLogger()), notification.DefaultSenderConfig(), nil, testLogger())

	profiles := &memProfiles{byUser: make(map[string]*domain.Profile)}
	positions := &memPositions{
		directory: map[string]candidateInfo{
			"c1": {name: "Jane Doe", email: "jane@example.com"},
		},
		positions: make(map[string]*domain.Position),
	}
	store := pipeline.NewStore(&memStages{stages: make(map[domain.ProfileID][]domain.Stage)}, positions, composer, testLogger())
	candidates := &memCandidates{pool: []domain.CandidateSearchResult{
		{ID: "c1", FirstName: "Jane", LastName: "Doe", Headline: "Go Engineer", ReelPassScore: 82, Skills: []string{"Go"}},
		{ID: "c2", FirstName: "Sipho", LastName: "Mokoena", Headline: "Designer", ReelPassScore: 45, Skills: []string{}},
	}}

	manager := workspace.NewManager(workspace.Deps{
		API:             identity.NewAPI(httpclient.New(httpclient.Config{Timeout: 5 * time.Second, MaxConnsPerHost: 4}), gotrue.URL, "anon"),
		Sessions:        redisrepo.NewSessionStore(rdb, time.Hour),
		Profiles:        profiles,
		Store:           store,
		Renderer:        composer,
		Notifier:        dispatcher,
		Verifier:        v,
		PreserveOnError: true,
		IdleTTL:         time.Minute,
		Logger:          testLogger(),
	})
	t.Cleanup(manager.Close)

	handler := NewRouter(RouterConfig{
		Workspaces:     manager,
		Store:          store,
		Profiles:       profiles,
		Search:         search.NewService(candidates, testLogger()),
		Composer:       composer,
		Dispatcher:     dispatcher,
		Verifier:       v,
		Health:         health.NewHandler(),
		CORS:           middleware.DefaultCORSConfig(),
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		Logger:         testLogger(),
	})

	return &fixture{handler: handler, profiles: profiles, candidates: candidates, verifier: v}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *fixture) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (f *fixture) signIn(t *testing.T) string {
	t.Helper()
	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", SignInRequest{Email: "user-1@example.com", Password: "pw"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.NotNil(t, resp.Session)
	return resp.Session.AccessToken
}

func (f *fixture) addProfile(t *testing.T, role domain.Role) {
	t.Helper()
	require.NoError(t, f.profiles.Create(context.Background(), &domain.Profile{
		UserID: "user-1", Email: "user-1@example.com", FirstName: "Thandi", Role: role,
	}))
}

func stageID(t *testing.T, stages []domain.Stage, name string) string {
	t.Helper()
	for _, s := range stages {
		if s.Name == name {
			return s.ID
		}
	}
	t.Fatalf("stage %q not found", name)
	return ""
}

// --- Tests ---

func TestHealth_Live(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPipeline_RequiresToken(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/pipeline", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignIn_RejectsNonJSONBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/sign-in", strings.NewReader("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestSignIn_ValidationError(t *testing.T) {
	f := newFixture(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/auth/sign-in", "", SignInRequest{Email: "not-an-email", Password: "pw"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestSignIn_ThenSession(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)

	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State struct {
			Authenticated bool   `json:"authenticated"`
			ProfileID     string `json:"profile_id"`
			Role          string `json:"role"`
			Degraded      bool   `json:"degraded"`
		} `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.True(t, resp.State.Authenticated)
	assert.Equal(t, "p1", resp.State.ProfileID)
	assert.Equal(t, "recruiter", resp.State.Role)
	assert.False(t, resp.State.Degraded)
}

func TestPipeline_SkeletonForNewRecruiter(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/pipeline", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var board BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Equal(t, domain.ProfileID("p1"), board.ProfileID)
	require.Len(t, board.Stages, 4)
	assert.Equal(t, "Applied", board.Stages[0].Name)
	assert.False(t, board.Stages[0].Persisted)
}

func TestPipeline_DegradedProfileGetsSkeleton(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/pipeline", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var board BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.True(t, board.Degraded)
	assert.Equal(t, domain.ProfileID("temp-user-1"), board.ProfileID)
	assert.Len(t, board.Stages, 4)
}

func TestPipeline_ForbiddenForCandidates(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleCandidate)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/pipeline", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestMoveFlow_ConfirmMovesAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodPost, "/api/v1/pipeline/bootstrap", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var board BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Stages, 4)
	applied := stageID(t, board.Stages, "Applied")
	interview := stageID(t, board.Stages, "Interview")

	rec, _ = f.do(t, http.MethodPost, "/api/v1/pipeline/candidates", token, PlaceCandidateRequest{CandidateID: "c1", StageID: applied})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, _ = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/pick-up", token, PickUpRequest{CandidateID: "c1", FromStageID: applied})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/drop", token, DropRequest{ToStageID: interview})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state struct {
		State        string `json:"state"`
		Confirmation struct {
			CandidateName string `json:"candidate_name"`
			ToStageName   string `json:"to_stage_name"`
			Email         string `json:"email"`
			Template      string `json:"template"`
		} `json:"confirmation"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &state))
	assert.Equal(t, "pending_confirmation", state.State)
	assert.Equal(t, "Jane Doe", state.Confirmation.CandidateName)
	assert.Equal(t, "Interview", state.Confirmation.ToStageName)
	assert.Equal(t, "jane@example.com", state.Confirmation.Email)
	assert.NotEmpty(t, state.Confirmation.Template)

	rec, env = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/confirm", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var confirmed ConfirmResponse
	require.NoError(t, json.Unmarshal(env.Data, &confirmed))
	require.NotNil(t, confirmed.Move)
	assert.Equal(t, applied, confirmed.Move.FromStageID)
	assert.Equal(t, interview, confirmed.Move.ToStageID)
	assert.Equal(t, "user-1", confirmed.Move.MovedBy)
	for _, s := range confirmed.Stages {
		if s.ID == interview {
			require.Len(t, s.Candidates, 1)
			assert.Equal(t, "c1", s.Candidates[0].ID)
		} else {
			assert.Empty(t, s.Candidates)
		}
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/pipeline/moves/confirmation", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"state":"idle"`)

	rec, env = f.do(t, http.MethodGet, "/api/v1/pipeline/candidates/c1/moves?limit=5", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.MoveRecord
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 1)
	assert.Equal(t, interview, history[0].ToStageID)
}

func TestMoveFlow_CancelDiscardsConfirmation(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/pipeline/bootstrap", token, nil)
	var board BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	applied := stageID(t, board.Stages, "Applied")
	offer := stageID(t, board.Stages, "Offer")

	rec, _ := f.do(t, http.MethodPost, "/api/v1/pipeline/candidates", token, PlaceCandidateRequest{CandidateID: "c1", StageID: applied})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/pick-up", token, PickUpRequest{CandidateID: "c1", FromStageID: applied})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/drop", token, DropRequest{ToStageID: offer})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/cancel", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"state":"idle"`)

	rec, _ = f.do(t, http.MethodPost, "/api/v1/pipeline/moves/confirm", token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPlaceCandidate_AlreadyPlacedIsConflict(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	_, env := f.do(t, http.MethodPost, "/api/v1/pipeline/bootstrap", token, nil)
	var board BoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	applied := stageID(t, board.Stages, "Applied")
	offer := stageID(t, board.Stages, "Offer")

	rec, _ := f.do(t, http.MethodPost, "/api/v1/pipeline/candidates", token, PlaceCandidateRequest{CandidateID: "c1", StageID: applied})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/api/v1/pipeline/candidates", token, PlaceCandidateRequest{CandidateID: "c1", StageID: offer})
	assert.Equal(t, http.StatusConflict, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, env = f.do(t, http.MethodGet, "/api/v1/pipeline", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &board))
	for _, s := range board.Stages {
		if s.ID == applied {
			require.Len(t, s.Candidates, 1)
		} else {
			assert.Empty(t, s.Candidates)
		}
	}

	rec, env = f.do(t, http.MethodGet, "/api/v1/pipeline/candidates/c1/moves", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history []domain.MoveRecord
	require.NoError(t, json.Unmarshal(env.Data, &history))
	assert.Empty(t, history)
}

func TestMoveFlow_PickUpUnknownCandidate(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/pipeline/moves/pick-up", token, PickUpRequest{CandidateID: "ghost", FromStageID: "s1"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfile_GetAndUpdate(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got ProfileResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Thandi", got.Profile.FirstName)

	name := "Nkosi"
	rec, env = f.do(t, http.MethodPatch, "/api/v1/profile", token, domain.ProfileUpdate{LastName: &name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Nkosi", got.Profile.LastName)

	rec, _ = f.do(t, http.MethodPatch, "/api/v1/profile", token, domain.ProfileUpdate{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile_UpdateRejectedWhileDegraded(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t)

	name := "Nkosi"
	rec, _ := f.do(t, http.MethodPatch, "/api/v1/profile", token, domain.ProfileUpdate{LastName: &name})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSignOut_EndsWorkspace(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, _ := f.do(t, http.MethodPost, "/api/v1/auth/sign-out", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCandidateSearch_ReturnsMatches(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet,
		"/api/v1/candidates/search?q=engineer&reelpass_only=true&province=Western+Cape&skills=Go,k8s&skills=SQL&currency=zar&salary_min=40000",
		token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp CandidateSearchResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	require.Len(t, resp.Candidates, 1)
	assert.Equal(t, "c1", resp.Candidates[0].ID)
	assert.Equal(t, "ZAR", resp.Candidates[0].Currency)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, domain.CandidateSearchLimit, resp.Limit)

	got := f.candidates.lastFilters()
	assert.True(t, got.ReelPassOnly)
	assert.Equal(t, "Western Cape", got.Province)
	assert.Equal(t, []string{"Go", "k8s", "SQL"}, got.Skills)
	require.NotNil(t, got.SalaryMin)
	assert.Equal(t, 40000, *got.SalaryMin)
	assert.Nil(t, got.SalaryMax)
}

func TestCandidateSearch_RejectsBadFilters(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleRecruiter)
	token := f.signIn(t)

	for _, path := range []string{
		"/api/v1/candidates/search?salary_min=lots",
		"/api/v1/candidates/search?salary_min=90000&salary_max=10",
		"/api/v1/candidates/search?reelpass_only=maybe",
		"/api/v1/candidates/search?province=Atlantis",
		"/api/v1/candidates/search?currency=rands",
	} {
		rec, env := f.do(t, http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.NotNil(t, env.Error, path)
	}
}

func TestCandidateSearch_ForbiddenForCandidates(t *testing.T) {
	f := newFixture(t)
	f.addProfile(t, domain.RoleCandidate)
	token := f.signIn(t)

	rec, env := f.do(t, http.MethodGet, "/api/v1/candidates/search?q=jane", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestCandidateSearch_RequiresToken(t *testing.T) {
	f := newFixture(t)

	rec, _ := f.do(t, http.MethodGet, "/api/v1/candidates/search", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
