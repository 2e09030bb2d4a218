package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/notification"
	"github.com/reelhunter/recruiter/internal/pipeline"
	"github.com/reelhunter/recruiter/internal/workspace"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httputil"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

// PipelineHandler serves the recruiter's pipeline board.
type PipelineHandler struct {
	store      *pipeline.Store
	composer   *notification.Composer
	dispatcher *notification.Dispatcher
	logger     *slog.Logger
}

// NewPipelineHandler creates a new pipeline HTTP handler.
func NewPipelineHandler(store *pipeline.Store, composer *notification.Composer, dispatcher *notification.Dispatcher, logger *slog.Logger) *PipelineHandler {
	return &PipelineHandler{store: store, composer: composer, dispatcher: dispatcher, logger: logger}
}

// --- Request DTOs ---

// PlaceCandidateRequest is the JSON request body for adding a candidate.
type PlaceCandidateRequest struct {
	CandidateID string `json:"candidate_id" validate:"required"`
	StageID     string `json:"stage_id" validate:"required"`
	Note        string `json:"note" validate:"max=1000"`
}

// InterviewInviteRequest is the JSON request body for an interview invite.
// Email overrides the candidate's stored address.
type InterviewInviteRequest struct {
	Email   string                        `json:"email" validate:"omitempty,email"`
	Details notification.InterviewDetails `json:"details"`
}

// --- Response types ---

// BoardResponse is the pipeline as the client renders it. LoadError is set
// when the last load failed and Stages are the last good ones.
type BoardResponse struct {
	ProfileID domain.ProfileID `json:"profile_id"`
	Degraded  bool             `json:"degraded"`
	Stages    []domain.Stage   `json:"stages"`
	LoadError string           `json:"load_error,omitempty"`
}

// --- Handlers ---

// Get handles GET /api/v1/pipeline
func (h *PipelineHandler) Get(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	stages, err := ws.EnsureLoaded(r.Context())
	h.writeBoard(w, r, ws, stages, err)
}

// Reload handles POST /api/v1/pipeline/reload
func (h *PipelineHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	stages, err := ws.Board.Reload(r.Context())
	h.writeBoard(w, r, ws, stages, err)
}

// Bootstrap handles POST /api/v1/pipeline/bootstrap
func (h *PipelineHandler) Bootstrap(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	if _, err := h.store.Bootstrap(r.Context(), ws.ProfileID()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	stages, err := ws.Board.Reload(r.Context())
	h.writeBoard(w, r, ws, stages, err)
}

// PlaceCandidate handles POST /api/v1/pipeline/candidates
func (h *PipelineHandler) PlaceCandidate(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	var req PlaceCandidateRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	pos, err := h.store.PlaceCandidate(r.Context(), pipeline.PlaceRequest{
		RecruiterID:  ws.ProfileID(),
		CandidateID:  req.CandidateID,
		StageID:      req.StageID,
		ActingUserID: actingUser(r),
		Note:         req.Note,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if _, err := ws.Board.Reload(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "reload after placing candidate failed", slog.String("error", err.Error()))
	}
	httputil.WriteData(w, http.StatusCreated, pos)
}

// History handles GET /api/v1/pipeline/candidates/{candidateID}/moves
func (h *PipelineHandler) History(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	moves, err := h.store.History(r.Context(), ws.ProfileID(), chi.URLParam(r, "candidateID"), queryInt(r, "limit", 20))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, moves)
}

// InterviewInvite handles POST /api/v1/pipeline/candidates/{candidateID}/interview-invite
func (h *PipelineHandler) InterviewInvite(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())
	candidateID := chi.URLParam(r, "candidateID")

	var req InterviewInviteRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	candidate, ok := findCandidate(ws.Board.Stages(), candidateID)
	if !ok {
		httputil.WriteError(w, r, apperrors.NotFound("candidate", candidateID), h.logger)
		return
	}
	email := candidate.Email
	if req.Email != "" {
		email = req.Email
	}

	res := h.dispatcher.Send(r.Context(), h.composer.InterviewInvite(email, candidate.Name, req.Details))
	if !res.Success {
		httputil.WriteError(w, r, apperrors.ServiceUnavailable("the invitation could not be sent: "+res.Error, nil), h.logger)
		return
	}
	httputil.WriteData(w, http.StatusAccepted, res)
}

func (h *PipelineHandler) writeBoard(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace, stages []domain.Stage, err error) {
	if err != nil && len(stages) == 0 {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	st := ws.Resolver.State()
	resp := BoardResponse{ProfileID: st.ProfileID, Degraded: st.Degraded, Stages: stages}
	if err != nil {
		resp.LoadError = err.Error()
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

func findCandidate(stages []domain.Stage, id string) (domain.Candidate, bool) {
	for _, s := range stages {
		for _, c := range s.Candidates {
			if c.ID == id {
				return c, true
			}
		}
	}
	return domain.Candidate{}, false
}

func actingUser(r *http.Request) string {
	if c := middleware.ClaimsFromContext(r.Context()); c != nil {
		return c.UserID
	}
	return ""
}
