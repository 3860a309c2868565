package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

// AdminService serves the operator surface: live session listings and the
// audit trail. Authorization is checked here against the accounts table, not
// only in transport, so scripts calling the service directly get the same
// gate.
type AdminService struct {
	accounts port.AccountRepository
	sessions port.SessionRepository
	audit    port.AuditRepository
	logger   *zap.Logger
}

// NewAdminService constructs the operator service over pool-backed
// repositories.
func NewAdminService(accounts port.AccountRepository, sessions port.SessionRepository, audit port.AuditRepository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{accounts: accounts, sessions: sessions, audit: audit, logger: logger}
}

func (s *AdminService) requireAdmin(ctx context.Context, callerID string) error {
	account, err := s.accounts.Get(ctx, callerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAdminRequired
		}
		return fmt.Errorf("get account: %w", err)
	}
	if !account.Admin {
		return ErrAdminRequired
	}
	return nil
}

// ListLiveSessions returns currently active or paused sessions, oldest first.
func (s *AdminService) ListLiveSessions(ctx context.Context, callerID string, limit int) ([]domain.Session, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	sessions, err := s.sessions.ListLive(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list live sessions: %w", err)
	}
	return sessions, nil
}

// ListAuditEntries returns the most recent audit log entries.
func (s *AdminService) ListAuditEntries(ctx context.Context, callerID string, limit int) ([]domain.AuditEntry, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	entries, err := s.audit.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
