package port

import (
	"context"
	"time"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

// SessionRepository deals with session storage.
type SessionRepository interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, session domain.Session) error
	// ListLiveByUser returns the user's sessions still in active or paused
	// status. The one-live-session invariant keeps this at most one row, but
	// the repository does not assume it.
	ListLiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	// ListLive returns live sessions across all users, newest first.
	ListLive(ctx context.Context, limit int) ([]domain.Session, error)
	// ListStuck returns live sessions started before the cutoff, oldest first.
	ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error)
}
