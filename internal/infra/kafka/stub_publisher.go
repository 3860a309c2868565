package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionStarted logs reading.session.started events.
func (p *StubPublisher) PublishSessionStarted(_ context.Context, event domain.SessionStartedEvent) error {
	payload := map[string]any{
		"session_id": event.SessionID,
		"user_id":    event.UserID,
		"started_at": event.StartedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("reading.session.started", event.UserID, event.StartedAt, payload)
	return nil
}

// PublishSessionEnded logs reading.session.ended events.
func (p *StubPublisher) PublishSessionEnded(_ context.Context, event domain.SessionEndedEvent) error {
	payload := map[string]any{
		"session_id":      event.SessionID,
		"user_id":         event.UserID,
		"ended_at":        event.EndedAt,
		"total_active_ms": event.TotalActiveMillis,
		"active_minutes":  event.ActiveMinutes,
		"points_awarded":  event.PointsAwarded,
		"reason":          string(event.Reason),
		"ended_by":        event.EndedBy,
		"metadata":        event.Metadata,
	}
	p.logEvent("reading.session.ended", event.UserID, event.EndedAt, payload)
	return nil
}

// PublishSessionReclaimed logs reading.session.reclaimed events.
func (p *StubPublisher) PublishSessionReclaimed(_ context.Context, event domain.SessionReclaimedEvent) error {
	payload := map[string]any{
		"session_id":     event.SessionID,
		"user_id":        event.UserID,
		"reclaimed_at":   event.ReclaimedAt,
		"active_minutes": event.ActiveMinutes,
		"session_age_ms": event.SessionAge.Milliseconds(),
		"metadata":       event.Metadata,
	}
	p.logEvent("reading.session.reclaimed", event.UserID, event.ReclaimedAt, payload)
	return nil
}

// PublishPointsAwarded logs reading.points.awarded events.
func (p *StubPublisher) PublishPointsAwarded(_ context.Context, event domain.PointsAwardedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"session_id": event.SessionID,
		"points":     event.Points,
		"awarded_at": event.AwardedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent("reading.points.awarded", event.UserID, event.AwardedAt, payload)
	return nil
}

// PublishAccountPaid logs reading.account.paid events.
func (p *StubPublisher) PublishAccountPaid(_ context.Context, event domain.AccountPaidEvent) error {
	payload := map[string]any{
		"user_id":   event.UserID,
		"reference": event.Reference,
		"paid_at":   event.PaidAt,
		"metadata":  event.Metadata,
	}
	p.logEvent("reading.account.paid", event.UserID, event.PaidAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
