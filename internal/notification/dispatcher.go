package notification

import (
	"context"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/reelhunter/recruiter/internal/event"
	"github.com/reelhunter/recruiter/pkg/validator"
)

var notificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "recruiter_notifications_total",
		Help: "Notification dispatch attempts by sender and outcome.",
	},
	[]string{"sender", "status"},
)

// Result is the outcome of a dispatch. Dispatch never returns an error;
// callers inspect Success.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// EventPublisher records dispatch outcomes.
type EventPublisher interface {
	PublishNotificationSent(ctx context.Context, data event.NotificationData) error
	PublishNotificationFailed(ctx context.Context, data event.NotificationData) error
}

// Dispatcher validates, sanitizes and sends notification emails.
type Dispatcher struct {
	sender Sender
	from   SenderConfig
	policy *bluemonday.Policy
	events EventPublisher
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. events may be nil.
func NewDispatcher(sender Sender, from SenderConfig, events EventPublisher, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		from:   from,
		policy: newEmailPolicy(),
		events: events,
		logger: logger,
	}
}

// SenderName reports which sender backs the dispatcher.
func (d *Dispatcher) SenderName() string {
	return d.sender.Name()
}

// Send delivers msg. Failures are reported in the Result.
func (d *Dispatcher) Send(ctx context.Context, msg Message) Result {
	msg.To = strings.TrimSpace(msg.To)
	msg.Subject = strings.TrimSpace(msg.Subject)

	if err := validator.Validate(msg); err != nil {
		notificationsTotal.WithLabelValues(d.sender.Name(), "invalid").Inc()
		d.logger.WarnContext(ctx, "notification rejected",
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		return Result{Error: err.Error()}
	}

	msg.HTMLBody = d.policy.Sanitize(msg.HTMLBody)
	if strings.TrimSpace(msg.HTMLBody) == "" {
		notificationsTotal.WithLabelValues(d.sender.Name(), "invalid").Inc()
		return Result{Error: "email body is empty after sanitizing"}
	}

	id, err := d.sender.Send(ctx, d.from, msg)
	data := event.NotificationData{
		MessageID: id,
		Sender:    d.sender.Name(),
		To:        msg.To,
		Subject:   msg.Subject,
	}

	if err != nil {
		notificationsTotal.WithLabelValues(d.sender.Name(), "failed").Inc()
		d.logger.ErrorContext(ctx, "failed to send notification",
			slog.String("sender", d.sender.Name()),
			slog.String("to", msg.To),
			slog.String("error", err.Error()),
		)
		data.Error = err.Error()
		d.publish(ctx, data, false)
		return Result{Error: err.Error()}
	}

	notificationsTotal.WithLabelValues(d.sender.Name(), "sent").Inc()
	d.logger.InfoContext(ctx, "notification sent",
		slog.String("sender", d.sender.Name()),
		slog.String("message_id", id),
		slog.String("to", msg.To),
	)
	d.publish(ctx, data, true)
	return Result{Success: true, MessageID: id}
}

func (d *Dispatcher) publish(ctx context.Context, data event.NotificationData, sent bool) {
	if d.events == nil {
		return
	}

	var err error
	if sent {
		err = d.events.PublishNotificationSent(ctx, data)
	} else {
		err = d.events.PublishNotificationFailed(ctx, data)
	}
	if err != nil {
		d.logger.WarnContext(ctx, "failed to publish notification event",
			slog.String("to", data.To),
			slog.String("error", err.Error()),
		)
	}
}
