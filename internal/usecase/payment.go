package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

// PaymentService flips the payment gate on accounts when a provider confirms
// a charge. Confirmation is idempotent: the first successful reference wins
// and later ones are acknowledged without rewriting the account.
type PaymentService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewPaymentService constructs the payment confirmation service.
func NewPaymentService(accounts port.AccountRepository, events port.EventPublisher, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		accounts: accounts,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *PaymentService) WithClock(clock func() time.Time) *PaymentService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// ConfirmPayment marks the account as paid with the provider reference.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID, reference string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	reference = strings.TrimSpace(reference)

	now := s.now()
	if err := s.accounts.MarkPaid(ctx, userID, reference, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("mark account paid: %w", err)
	}

	s.logger.Info("payment confirmed",
		zap.String("user_id", userID),
		zap.String("reference", reference),
	)

	if s.events != nil {
		event := domain.AccountPaidEvent{
			EventID:   uuid.NewString(),
			UserID:    userID,
			Reference: reference,
			PaidAt:    now,
		}
		if err := s.events.PublishAccountPaid(ctx, event); err != nil {
			s.logger.Warn("publish account paid failed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
		}
	}

	return nil
}
