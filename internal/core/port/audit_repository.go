package port

import (
	"context"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

// AuditRepository persists the append-only termination trail.
type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error)
}
