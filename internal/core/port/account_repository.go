package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

// AccountRepository exposes persistence behavior for user accounts.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	Get(ctx context.Context, id string) (*domain.Account, error)
	MarkPaid(ctx context.Context, id string, reference string, at time.Time) error
	SetHasActiveSession(ctx context.Context, id string, active bool) error
	// ApplySessionCompletion atomically increments the reward counters for a
	// finished session. points may be zero when the reward threshold was not
	// reached.
	ApplySessionCompletion(ctx context.Context, id string, activeMinutes int, points int) error
	TopByPoints(ctx context.Context, limit int) ([]domain.Account, error)
}
