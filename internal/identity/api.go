package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/pkg/httpclient"
)

const serviceName = "identity"

// API is a stateless client for the provider's REST endpoints. It is safe
// for concurrent use and shared by every workspace.
type API struct {
	doer    httpclient.Doer
	baseURL string
	anonKey string
	now     func() time.Time
}

// NewAPI creates an API rooted at baseURL (for example
// https://project.example.co).
func NewAPI(doer httpclient.Doer, baseURL, anonKey string) *API {
	return &API{
		doer:    doer,
		baseURL: strings.TrimRight(baseURL, "/"),
		anonKey: anonKey,
		now:     time.Now,
	}
}

type userResponse struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
}

type tokenResponse struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	User         *userResponse `json:"user"`

	// Sign-up without auto-confirm answers with the bare user object.
	userResponse
}

// PasswordGrant signs in with email and password.
func (a *API) PasswordGrant(ctx context.Context, email, password string) (*domain.Session, error) {
	body := map[string]string{"email": email, "password": password}

	var out tokenResponse
	if err := a.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", body, &out); err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}
	return a.session(&out)
}

// RefreshGrant exchanges a refresh token for a new session.
func (a *API) RefreshGrant(ctx context.Context, refreshToken string) (*domain.Session, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var out tokenResponse
	if err := a.call(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "", body, &out); err != nil {
		return nil, fmt.Errorf("refresh grant: %w", err)
	}
	return a.session(&out)
}

// SignUp creates the account with first, last and full name metadata.
func (a *API) SignUp(ctx context.Context, req SignUpRequest) (*domain.User, *domain.Session, error) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	body := map[string]any{
		"email":    req.Email,
		"password": req.Password,
		"data": map[string]string{
			"first_name": first,
			"last_name":  last,
			"full_name":  strings.TrimSpace(first + " " + last),
		},
	}

	var out tokenResponse
	if err := a.call(ctx, http.MethodPost, "/auth/v1/signup", "", body, &out); err != nil {
		return nil, nil, fmt.Errorf("sign up: %w", err)
	}

	if out.AccessToken == "" {
		if out.ID == "" {
			return nil, nil, fmt.Errorf("sign up: %w: response has neither session nor user", backend.ErrMalformed)
		}
		u := toUser(&out.userResponse)
		return &u, nil, nil
	}

	sess, err := a.session(&out)
	if err != nil {
		return nil, nil, err
	}
	return &sess.User, sess, nil
}

// Logout revokes the session behind accessToken.
func (a *API) Logout(ctx context.Context, accessToken string) error {
	if err := a.call(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *API) session(out *tokenResponse) (*domain.Session, error) {
	if out.AccessToken == "" || out.User == nil {
		return nil, fmt.Errorf("%w: token response without session", backend.ErrMalformed)
	}

	expires := time.Unix(out.ExpiresAt, 0).UTC()
	if out.ExpiresAt == 0 {
		expires = a.now().UTC().Add(time.Duration(out.ExpiresIn) * time.Second)
	}

	return &domain.Session{
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
		ExpiresAt:    expires,
		User:         toUser(out.User),
	}, nil
}

func toUser(u *userResponse) domain.User {
	meta := make(map[string]string, len(u.UserMetadata))
	for k, v := range u.UserMetadata {
		if s, ok := v.(string); ok {
			meta[k] = s
		}
	}
	return domain.User{ID: u.ID, Email: u.Email, Metadata: meta}
}

func (a *API) call(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = a.anonKey
	}
	req.Header.Set("apikey", a.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return httpclient.ParseResponseError(resp, serviceName)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
