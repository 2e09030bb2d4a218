package http

import (
	"log/slog"
	"net/http"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/identity"
	"github.com/reelhunter/recruiter/internal/session"
	"github.com/reelhunter/recruiter/internal/workspace"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httputil"
	"github.com/reelhunter/recruiter/pkg/middleware"
	"github.com/reelhunter/recruiter/pkg/validator"
)

// AuthHandler handles sign-up, sign-in, sign-out and session reads.
type AuthHandler struct {
	workspaces *workspace.Manager
	logger     *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(workspaces *workspace.Manager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{workspaces: workspaces, logger: logger}
}

// --- Request DTOs ---

// SignUpRequest is the JSON request body for account creation.
type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
}

// SignInRequest is the JSON request body for password sign-in.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// --- Response types ---

// SessionResponse pairs the provider session with the resolved state.
type SessionResponse struct {
	Session *domain.Session `json:"session,omitempty"`
	State   session.State   `json:"state"`
}

// SignUpResponse is returned by sign-up. Session is empty when the account
// must be confirmed by email first.
type SignUpResponse struct {
	User                 *domain.User    `json:"user"`
	Session              *domain.Session `json:"session,omitempty"`
	State                *session.State  `json:"state,omitempty"`
	ConfirmationRequired bool            `json:"confirmation_required"`
}

// --- Handlers ---

// SignUp handles POST /api/v1/auth/sign-up
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SignUpRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, asInputError(err), h.logger)
		return
	}

	user, ws, sess, err := h.workspaces.SignUp(r.Context(), identity.SignUpRequest{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	resp := SignUpResponse{User: user, Session: sess, ConfirmationRequired: ws == nil}
	if ws != nil {
		st := ws.Resolver.State()
		resp.State = &st
	}
	httputil.WriteData(w, http.StatusCreated, resp)
}

// SignIn handles POST /api/v1/auth/sign-in
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req SignInRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, asInputError(err), h.logger)
		return
	}

	ws, sess, err := h.workspaces.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, SessionResponse{Session: sess, State: ws.Resolver.State()})
}

// SignOut handles POST /api/v1/auth/sign-out
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.WriteError(w, r, apperrors.Unauthorized("missing session"), h.logger)
		return
	}

	if err := h.workspaces.SignOut(r.Context(), claims.SessionID); err != nil {
		h.logger.WarnContext(r.Context(), "sign-out was not confirmed upstream",
			slog.String("error", err.Error()),
		)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/v1/session. Reading the session refreshes it
// when the access token has expired.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	sess, err := ws.Identity.GetSession(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "failed to read session", slog.String("error", err.Error()))
	}

	httputil.WriteData(w, http.StatusOK, SessionResponse{Session: sess, State: ws.Resolver.State()})
}
