package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/reelhunter/recruiter/internal/domain"
	pkgkafka "github.com/reelhunter/recruiter/pkg/kafka"
	"github.com/reelhunter/recruiter/pkg/logger"
)

// Kafka topics for recruiter events.
const (
	TopicPipeline      = "recruiter.pipeline"
	TopicNotifications = "recruiter.notifications"
)

// Event types.
const (
	TypeCandidateMoved     = "pipeline.candidate_moved"
	TypeNotificationSent   = "notification.sent"
	TypeNotificationFailed = "notification.failed"
)

const (
	aggregateCandidate    = "candidate"
	aggregateNotification = "notification"
	source                = "recruiter-service"
)

// CandidateMovedData is the payload for a pipeline.candidate_moved event.
type CandidateMovedData struct {
	MoveID      string    `json:"move_id,omitempty"`
	CandidateID string    `json:"candidate_id"`
	RecruiterID string    `json:"recruiter_id"`
	FromStageID string    `json:"from_stage_id"`
	ToStageID   string    `json:"to_stage_id"`
	MovedBy     string    `json:"moved_by"`
	MovedAt     time.Time `json:"moved_at"`
	Notified    bool      `json:"notified"`
}

// NotificationData is the payload for notification.sent and notification.failed.
type NotificationData struct {
	MessageID string `json:"message_id,omitempty"`
	Sender    string `json:"sender"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Error     string `json:"error,omitempty"`
}

// Producer publishes recruiter domain events. A Producer with no Kafka
// producer behind it drops events silently.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishCandidateMoved publishes a pipeline.candidate_moved event.
func (p *Producer) PublishCandidateMoved(ctx context.Context, rec *domain.MoveRecord, notified bool) error {
	if p == nil || p.kafka == nil {
		return nil
	}

	data := CandidateMovedData{
		MoveID:      rec.ID,
		CandidateID: rec.CandidateID,
		RecruiterID: rec.RecruiterID.String(),
		FromStageID: rec.FromStageID,
		ToStageID:   rec.ToStageID,
		MovedBy:     rec.MovedBy,
		MovedAt:     rec.MovedAt,
		Notified:    notified,
	}
	return p.publish(ctx, TopicPipeline, TypeCandidateMoved, rec.CandidateID, aggregateCandidate, data)
}

// PublishNotificationSent publishes a notification.sent event.
func (p *Producer) PublishNotificationSent(ctx context.Context, data NotificationData) error {
	if p == nil || p.kafka == nil {
		return nil
	}
	return p.publish(ctx, TopicNotifications, TypeNotificationSent, data.To, aggregateNotification, data)
}

// PublishNotificationFailed publishes a notification.failed event.
func (p *Producer) PublishNotificationFailed(ctx context.Context, data NotificationData) error {
	if p == nil || p.kafka == nil {
		return nil
	}
	return p.publish(ctx, TopicNotifications, TypeNotificationFailed, data.To, aggregateNotification, data)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(eventType, aggregateID, aggregateType, source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", eventType, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("event_type", eventType),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}
