package http

import (
	"log/slog"
	"net/http"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/repository"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httputil"
)

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	profiles repository.ProfileRepository
	logger   *slog.Logger
}

// NewProfileHandler creates a new profile HTTP handler.
func NewProfileHandler(profiles repository.ProfileRepository, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// ProfileResponse is the caller's profile. A degraded profile has only the
// id and role it was assumed to have.
type ProfileResponse struct {
	Profile  *domain.Profile  `json:"profile,omitempty"`
	ID       domain.ProfileID `json:"id"`
	Role     domain.Role      `json:"role"`
	Degraded bool             `json:"degraded"`
}

// Get handles GET /api/v1/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	st := workspaceFrom(r.Context()).Resolver.State()
	resp := ProfileResponse{ID: st.ProfileID, Role: st.Role, Degraded: st.Degraded}

	if !st.Degraded && !st.ProfileID.IsZero() {
		p, err := h.profiles.GetByID(r.Context(), st.ProfileID)
		if err != nil {
			httputil.WriteError(w, r, backend.Classify("get profile", err), h.logger)
			return
		}
		resp.Profile = p
	}

	httputil.WriteData(w, http.StatusOK, resp)
}

// Update handles PATCH /api/v1/profile
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	st := ws.Resolver.State()
	if st.Degraded || st.ProfileID.IsZero() {
		httputil.WriteError(w, r, apperrors.Conflict("your profile is not available yet"), h.logger)
		return
	}

	var upd domain.ProfileUpdate
	if err := decode(w, r, &upd); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if upd.Empty() {
		httputil.WriteError(w, r, apperrors.InvalidInput("nothing to update"), h.logger)
		return
	}

	p, err := h.profiles.Update(r.Context(), st.ProfileID, upd)
	if err != nil {
		httputil.WriteError(w, r, backend.Classify("update profile", err), h.logger)
		return
	}

	h.logger.InfoContext(r.Context(), "profile updated", slog.String("profile_id", p.ID.String()))
	httputil.WriteData(w, http.StatusOK, ProfileResponse{Profile: p, ID: p.ID, Role: p.Role})
}
