package http

import (
	"log/slog"
	"net/http"

	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/move"
	"github.com/reelhunter/recruiter/pkg/httputil"
)

// MoveHandler drives the drag, drop and confirm protocol.
type MoveHandler struct {
	logger *slog.Logger
}

// NewMoveHandler creates a new move HTTP handler.
func NewMoveHandler(logger *slog.Logger) *MoveHandler {
	return &MoveHandler{logger: logger}
}

// --- Request DTOs ---

// PickUpRequest starts a drag.
type PickUpRequest struct {
	CandidateID string `json:"candidate_id" validate:"required"`
	FromStageID string `json:"from_stage_id" validate:"required"`
}

// DropRequest ends a drag over a stage. An empty stage id is a drop
// outside any stage.
type DropRequest struct {
	ToStageID string `json:"to_stage_id"`
}

// EmailRequest edits the notification address.
type EmailRequest struct {
	Email string `json:"email"`
}

// --- Response types ---

// MoveStateResponse is the protocol state and the pending confirmation.
type MoveStateResponse struct {
	State        move.State         `json:"state"`
	Confirmation *move.Confirmation `json:"confirmation,omitempty"`
}

// ConfirmResponse is returned by a committed move with the reloaded board.
type ConfirmResponse struct {
	Move   *domain.MoveRecord `json:"move"`
	Stages []domain.Stage     `json:"stages"`
}

// --- Handlers ---

// PickUp handles POST /api/v1/pipeline/moves/pick-up
func (h *MoveHandler) PickUp(w http.ResponseWriter, r *http.Request) {
	p := workspaceFrom(r.Context()).Protocol

	var req PickUpRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := p.PickUp(req.CandidateID, req.FromStageID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeState(w, p)
}

// Drop handles POST /api/v1/pipeline/moves/drop
func (h *MoveHandler) Drop(w http.ResponseWriter, r *http.Request) {
	p := workspaceFrom(r.Context()).Protocol

	var req DropRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if _, err := p.Drop(req.ToStageID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeState(w, p)
}

// Release handles POST /api/v1/pipeline/moves/release
func (h *MoveHandler) Release(w http.ResponseWriter, r *http.Request) {
	p := workspaceFrom(r.Context()).Protocol
	p.Release()
	h.writeState(w, p)
}

// SetEmail handles PUT /api/v1/pipeline/moves/email
func (h *MoveHandler) SetEmail(w http.ResponseWriter, r *http.Request) {
	p := workspaceFrom(r.Context()).Protocol

	var req EmailRequest
	if err := decode(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := p.SetEmail(req.Email); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeState(w, p)
}

// Confirm handles POST /api/v1/pipeline/moves/confirm
func (h *MoveHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ws := workspaceFrom(r.Context())

	rec, err := ws.Protocol.Confirm(r.Context(), actingUser(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, ConfirmResponse{Move: rec, Stages: ws.Board.Stages()})
}

// Cancel handles POST /api/v1/pipeline/moves/cancel
func (h *MoveHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	p := workspaceFrom(r.Context()).Protocol
	if err := p.Cancel(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	h.writeState(w, p)
}

// Confirmation handles GET /api/v1/pipeline/moves/confirmation
func (h *MoveHandler) Confirmation(w http.ResponseWriter, r *http.Request) {
	h.writeState(w, workspaceFrom(r.Context()).Protocol)
}

func (h *MoveHandler) writeState(w http.ResponseWriter, p *move.Protocol) {
	resp := MoveStateResponse{State: p.State()}
	if c, ok := p.Confirmation(); ok {
		resp.Confirmation = &c
	}
	httputil.WriteData(w, http.StatusOK, resp)
}
