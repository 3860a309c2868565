package postgres

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

const (
	defaultTxAttempts = 3
	defaultRetryDelay = 10 * time.Millisecond
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Store implements port.Transactor on top of PostgreSQL serializable
// transactions. Conflicting commits surface as SQLSTATE 40001/40P01; the
// store rolls back, re-runs the transaction body, and only reports
// repository.ErrSerializationFailure once the attempt budget is spent.
type Store struct {
	db         txBeginner
	logger     *zap.Logger
	attempts   int
	retryDelay time.Duration
}

// NewStore wires a transactor backed by the provided pool.
func NewStore(pool *pgxpool.Pool, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: pool, logger: logger, attempts: defaultTxAttempts, retryDelay: defaultRetryDelay}
}

// WithMaxAttempts overrides the retry budget for conflicting transactions.
func (s *Store) WithMaxAttempts(attempts int) *Store {
	if attempts > 0 {
		s.attempts = attempts
	}
	return s
}

// RunSerializable implements port.Transactor.
func (s *Store) RunSerializable(ctx context.Context, fn func(ctx context.Context, stores port.Stores) error) error {
	attempts := s.attempts
	if attempts <= 0 {
		attempts = defaultTxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := s.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isSerializationFailure(err) {
			return err
		}

		lastErr = err
		s.logger.Debug("serializable transaction conflicted, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
		)
		if attempt < attempts {
			if waitErr := s.waitBeforeRetry(ctx, attempt); waitErr != nil {
				return waitErr
			}
		}
	}

	return fmt.Errorf("%w: %v", repository.ErrSerializationFailure, lastErr)
}

// waitBeforeRetry sleeps a jittered linear backoff so conflicting
// transactions do not restart in lockstep.
func (s *Store) waitBeforeRetry(ctx context.Context, attempt int) error {
	if s.retryDelay <= 0 {
		return nil
	}
	delay := time.Duration(attempt)*s.retryDelay + time.Duration(rand.Int63n(int64(s.retryDelay)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (s *Store) runOnce(ctx context.Context, fn func(ctx context.Context, stores port.Stores) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin serializable tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	stores := port.Stores{
		Sessions: NewSessionRepository(tx),
		Accounts: NewAccountRepository(tx),
		Audit:    NewAuditRepository(tx),
	}

	if err := fn(ctx, stores); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	// 40001 serialization_failure, 40P01 deadlock_detected
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}

var _ port.Transactor = (*Store)(nil)
