package move

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reelhunter/recruiter/internal/backend"
	"github.com/reelhunter/recruiter/internal/domain"
	"github.com/reelhunter/recruiter/internal/notification"
	"github.com/reelhunter/recruiter/internal/pipeline"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/validator"
)

var movesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "recruiter_moves_total",
		Help: "Move protocol outcomes.",
	},
	[]string{"outcome"},
)

// State is a step of the move protocol.
type State int

const (
	StateIdle State = iota
	StateDragging
	StatePendingConfirmation
	StateConfirming
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDragging:
		return "dragging"
	case StatePendingConfirmation:
		return "pending_confirmation"
	case StateConfirming:
		return "confirming"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Confirmation is the pending move shown to the recruiter before it is
// committed.
type Confirmation struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	FromStageID   string `json:"from_stage_id"`
	FromStageName string `json:"from_stage_name"`
	ToStageID     string `json:"to_stage_id"`
	ToStageName   string `json:"to_stage_name"`
	Template      string `json:"template,omitempty"`
	Email         string `json:"email"`
	InFlight      bool   `json:"in_flight"`
	Error         string `json:"error,omitempty"`
}

// Notifies reports whether confirming sends the candidate an email.
func (c *Confirmation) Notifies() bool {
	return c.Template != ""
}

// Board is the view of the pipeline the protocol reads and refreshes.
type Board interface {
	ProfileID() domain.ProfileID
	Stage(id string) (domain.Stage, bool)
	Candidate(stageID, candidateID string) (domain.Candidate, bool)
	Reload(ctx context.Context) ([]domain.Stage, error)
}

// Mover commits moves. pipeline.Store implements it.
type Mover interface {
	MoveCandidate(ctx context.Context, req pipeline.MoveRequest) (*domain.MoveRecord, error)
}

// Renderer turns a transition into an email.
type Renderer interface {
	StageTransition(t notification.Transition) notification.Message
}

// Notifier delivers email. notification.Dispatcher implements it.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message) notification.Result
}

// EventPublisher announces committed moves.
type EventPublisher interface {
	PublishCandidateMoved(ctx context.Context, rec *domain.MoveRecord, notified bool) error
}

// Deps are the collaborators of a Protocol. Events may be nil.
type Deps struct {
	Board    Board
	Mover    Mover
	Renderer Renderer
	Notifier Notifier
	Events   EventPublisher
	Logger   *slog.Logger
}

// Protocol drives one recruiter's drag, drop and confirm cycle.
type Protocol struct {
	deps Deps

	mu           sync.Mutex
	state        State
	candidateID  string
	fromStageID  string
	confirmation *Confirmation
}

// NewProtocol creates an idle Protocol.
func NewProtocol(deps Deps) *Protocol {
	return &Protocol{deps: deps}
}

// State returns the current step.
func (p *Protocol) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Confirmation returns a copy of the pending confirmation, if any.
func (p *Protocol) Confirmation() (Confirmation, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.confirmation == nil {
		return Confirmation{}, false
	}
	return *p.confirmation, true
}

// PickUp starts dragging a candidate out of its current stage.
func (p *Protocol) PickUp(candidateID, fromStageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateIdle {
		return apperrors.Conflict("another move is in progress")
	}
	if _, ok := p.deps.Board.Candidate(fromStageID, candidateID); !ok {
		return apperrors.NotFound("candidate", candidateID)
	}

	p.state = StateDragging
	p.candidateID = candidateID
	p.fromStageID = fromStageID
	return nil
}

// Drop releases the dragged candidate over a stage. Dropping on the source
// stage or on no known stage ends the drag without side effects.
func (p *Protocol) Drop(targetStageID string) (State, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateDragging {
		return p.state, apperrors.Conflict("no candidate is being dragged")
	}

	target, ok := p.deps.Board.Stage(targetStageID)
	if targetStageID == "" || targetStageID == p.fromStageID || !ok {
		movesTotal.WithLabelValues("noop").Inc()
		p.resetLocked()
		return p.state, nil
	}

	from, _ := p.deps.Board.Stage(p.fromStageID)
	candidate, _ := p.deps.Board.Candidate(p.fromStageID, p.candidateID)

	p.confirmation = &Confirmation{
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		FromStageID:   from.ID,
		FromStageName: from.Name,
		ToStageID:     target.ID,
		ToStageName:   target.Name,
		Template:      target.AutoEmailTemplate,
		Email:         candidate.Email,
	}
	p.state = StatePendingConfirmation
	return p.state, nil
}

// Release ends a drag that was not dropped on a stage.
func (p *Protocol) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDragging {
		p.resetLocked()
	}
}

// SetEmail edits the address the notification goes to.
func (p *Protocol) SetEmail(email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePendingConfirmation {
		return apperrors.Conflict("no move is awaiting confirmation")
	}
	p.confirmation.Email = strings.TrimSpace(email)
	p.confirmation.Error = ""
	return nil
}

// Cancel discards the pending move without touching the backend.
func (p *Protocol) Cancel() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePendingConfirmation {
		return apperrors.Conflict("no move is awaiting confirmation")
	}
	p.state = StateCancelled
	movesTotal.WithLabelValues("cancelled").Inc()
	p.resetLocked()
	return nil
}

// Reset abandons any move in progress, e.g. when the user signs out.
func (p *Protocol) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

func (p *Protocol) resetLocked() {
	p.state = StateIdle
	p.candidateID = ""
	p.fromStageID = ""
	p.confirmation = nil
}

// Confirm commits the pending move. When the destination stage has a
// template the candidate is emailed once; a failed email is logged and does
// not affect the move. The board is reloaded after every committed move.
// If the move fails the confirmation stays open with the error attached.
func (p *Protocol) Confirm(ctx context.Context, actingUserID string) (*domain.MoveRecord, error) {
	const op = "confirm move"

	p.mu.Lock()
	if p.state != StatePendingConfirmation {
		p.mu.Unlock()
		return nil, apperrors.Conflict("no move is awaiting confirmation")
	}

	conf := p.confirmation
	if conf.Notifies() {
		if err := validator.Email("email", conf.Email); err != nil {
			conf.Error = err.Error()
			p.mu.Unlock()
			movesTotal.WithLabelValues("invalid").Inc()
			return nil, err
		}
	}

	p.state = StateConfirming
	conf.InFlight = true
	conf.Error = ""
	pending := *conf
	p.mu.Unlock()

	rec, err := p.deps.Mover.MoveCandidate(ctx, pipeline.MoveRequest{
		CandidateID:  pending.CandidateID,
		RecruiterID:  p.deps.Board.ProfileID(),
		FromStageID:  pending.FromStageID,
		ToStageID:    pending.ToStageID,
		ActingUserID: actingUserID,
	})
	if err != nil {
		err = backend.Classify(op, err)
		p.mu.Lock()
		if p.confirmation == conf {
			p.state = StatePendingConfirmation
			conf.InFlight = false
			conf.Error = err.Error()
		}
		p.mu.Unlock()

		movesTotal.WithLabelValues("failed").Inc()
		p.deps.Logger.WarnContext(ctx, "move failed",
			slog.String("candidate_id", pending.CandidateID),
			slog.String("to_stage_id", pending.ToStageID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	notified := false
	if pending.Notifies() {
		notified = p.notify(ctx, pending)
	}

	if p.deps.Events != nil {
		if err := p.deps.Events.PublishCandidateMoved(ctx, rec, notified); err != nil {
			p.deps.Logger.WarnContext(ctx, "failed to publish candidate moved event",
				slog.String("candidate_id", pending.CandidateID),
				slog.String("error", err.Error()),
			)
		}
	}

	if _, err := p.deps.Board.Reload(ctx); err != nil {
		p.deps.Logger.WarnContext(ctx, "reload after move failed",
			slog.String("error", err.Error()),
		)
	}

	p.mu.Lock()
	p.resetLocked()
	p.mu.Unlock()

	movesTotal.WithLabelValues("confirmed").Inc()
	p.deps.Logger.InfoContext(ctx, "candidate moved",
		slog.String("candidate_id", pending.CandidateID),
		slog.String("from_stage_id", pending.FromStageID),
		slog.String("to_stage_id", pending.ToStageID),
		slog.Bool("notified", notified),
	)
	return rec, nil
}

func (p *Protocol) notify(ctx context.Context, c Confirmation) bool {
	msg := p.deps.Renderer.StageTransition(notification.Transition{
		CandidateName:  c.CandidateName,
		CandidateEmail: c.Email,
		FromStage:      c.FromStageName,
		ToStage:        c.ToStageName,
		Template:       c.Template,
	})

	res := p.deps.Notifier.Send(ctx, msg)
	if !res.Success {
		p.deps.Logger.WarnContext(ctx, "stage notification not delivered",
			slog.String("candidate_id", c.CandidateID),
			slog.String("to", c.Email),
			slog.String("error", res.Error),
		)
		return false
	}
	return true
}
