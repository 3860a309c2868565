package port

import (
	"context"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

// EventPublisher publishes domain events to the message bus. Publishing
// happens after the owning transaction commits and is best effort; a publish
// failure never rolls back committed state.
type EventPublisher interface {
	PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error
	PublishSessionEnded(ctx context.Context, event domain.SessionEndedEvent) error
	PublishSessionReclaimed(ctx context.Context, event domain.SessionReclaimedEvent) error
	PublishPointsAwarded(ctx context.Context, event domain.PointsAwardedEvent) error
	PublishAccountPaid(ctx context.Context, event domain.AccountPaidEvent) error
}
