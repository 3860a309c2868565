package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionStarted publishes reading.session.started events.
func (p *EventPublisher) PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error {
	payload := struct {
		SessionID string         `json:"session_id"`
		UserID    string         `json:"user_id"`
		StartedAt time.Time      `json:"started_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		SessionID: event.SessionID,
		UserID:    event.UserID,
		StartedAt: event.StartedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "reading.session.started", event.UserID, event.StartedAt, payload)
}

// PublishSessionEnded publishes reading.session.ended events.
func (p *EventPublisher) PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error {
	payload := struct {
		SessionID         string         `json:"session_id"`
		UserID            string         `json:"user_id"`
		EndedAt           time.Time      `json:"ended_at"`
		TotalActiveMillis int64          `json:"total_active_ms"`
		ActiveMinutes     int            `json:"active_minutes"`
		PointsAwarded     int            `json:"points_awarded"`
		Reason            string         `json:"reason"`
		EndedBy           string         `json:"ended_by"`
		Metadata          map[string]any `json:"metadata,omitempty"`
	}{
		SessionID:         event.SessionID,
		UserID:            event.UserID,
		EndedAt:           event.EndedAt.UTC(),
		TotalActiveMillis: event.TotalActiveMillis,
		ActiveMinutes:     event.ActiveMinutes,
		PointsAwarded:     event.PointsAwarded,
		Reason:            string(event.Reason),
		EndedBy:           event.EndedBy,
		Metadata:          event.Metadata,
	}

	return p.publish(ctx, event.EventID, "reading.session.ended", event.UserID, event.EndedAt, payload)
}

// PublishSessionReclaimed publishes reading.session.reclaimed events.
func (p *EventPublisher) PublishSessionReclaimed(ctx context.Context, event domain.SessionReclaimedEvent) error {
	payload := struct {
		SessionID     string         `json:"session_id"`
		UserID        string         `json:"user_id"`
		ReclaimedAt   time.Time      `json:"reclaimed_at"`
		ActiveMinutes int            `json:"active_minutes"`
		SessionAgeMS  int64          `json:"session_age_ms"`
		Metadata      map[string]any `json:"metadata,omitempty"`
	}{
		SessionID:     event.SessionID,
		UserID:        event.UserID,
		ReclaimedAt:   event.ReclaimedAt.UTC(),
		ActiveMinutes: event.ActiveMinutes,
		SessionAgeMS:  event.SessionAge.Milliseconds(),
		Metadata:      event.Metadata,
	}

	return p.publish(ctx, event.EventID, "reading.session.reclaimed", event.UserID, event.ReclaimedAt, payload)
}

// PublishPointsAwarded publishes reading.points.awarded events.
func (p *EventPublisher) PublishPointsAwarded(ctx context.Context, event domain.PointsAwardedEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		SessionID string         `json:"session_id"`
		Points    int            `json:"points"`
		AwardedAt time.Time      `json:"awarded_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		SessionID: event.SessionID,
		Points:    event.Points,
		AwardedAt: event.AwardedAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "reading.points.awarded", event.UserID, event.AwardedAt, payload)
}

// PublishAccountPaid publishes reading.account.paid events.
func (p *EventPublisher) PublishAccountPaid(ctx context.Context, event domain.AccountPaidEvent) error {
	payload := struct {
		UserID    string         `json:"user_id"`
		Reference string         `json:"reference,omitempty"`
		PaidAt    time.Time      `json:"paid_at"`
		Metadata  map[string]any `json:"metadata,omitempty"`
	}{
		UserID:    event.UserID,
		Reference: event.Reference,
		PaidAt:    event.PaidAt.UTC(),
		Metadata:  event.Metadata,
	}

	return p.publish(ctx, event.EventID, "reading.account.paid", event.UserID, event.PaidAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
