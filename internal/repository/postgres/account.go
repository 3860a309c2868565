package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

// AccountRepository implements port.AccountRepository using PostgreSQL.
type AccountRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAccountRepository wires a PostgreSQL-backed account repository.
func NewAccountRepository(exec pgExecutor) *AccountRepository {
	return &AccountRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AccountRepository) WithTx(tx pgx.Tx) *AccountRepository {
	if tx == nil {
		return r
	}
	return &AccountRepository{exec: tx, builder: r.builder}
}

// Create inserts a new account row. Used by provisioning glue and fixtures.
func (r *AccountRepository) Create(ctx context.Context, account domain.Account) error {
	createdAt := account.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	stmt, args, err := r.builder.Insert("reading.accounts").
		Columns(
			"id",
			"paid",
			"is_admin",
			"has_active_session",
			"points",
			"sessions_completed",
			"active_minutes_accrued",
			"paid_at",
			"payment_reference",
			"created_at",
		).
		Values(
			account.ID,
			account.Paid,
			account.Admin,
			account.HasActiveSession,
			account.Points,
			account.TotalSessionsCompleted,
			account.TotalActiveMinutes,
			optionalTime(account.PaidAt),
			optionalString(account.PaymentReference),
			createdAt.UTC(),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert account sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	return nil
}

// Get fetches an account by id.
func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	stmt, args, err := r.selectAccounts().
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select account sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}

	return account, nil
}

// MarkPaid flips the payment gate. Already-paid rows are left untouched so
// duplicate webhook deliveries stay idempotent.
func (r *AccountRepository) MarkPaid(ctx context.Context, id string, reference string, at time.Time) error {
	stmt := `
        UPDATE reading.accounts
           SET paid = TRUE,
               paid_at = COALESCE(paid_at, $2),
               payment_reference = COALESCE(payment_reference, $3)
         WHERE id = $1
    `

	ref := strings.TrimSpace(reference)
	var refValue any
	if ref != "" {
		refValue = ref
	}

	tag, err := r.exec.Exec(ctx, stmt, id, at.UTC(), refValue)
	if err != nil {
		return fmt.Errorf("mark account paid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetHasActiveSession updates the denormalized live-session flag.
func (r *AccountRepository) SetHasActiveSession(ctx context.Context, id string, active bool) error {
	tag, err := r.exec.Exec(ctx, "UPDATE reading.accounts SET has_active_session = $2 WHERE id = $1", id, active)
	if err != nil {
		return fmt.Errorf("set has_active_session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ApplySessionCompletion atomically advances the reward counters.
func (r *AccountRepository) ApplySessionCompletion(ctx context.Context, id string, activeMinutes int, points int) error {
	stmt := `
        UPDATE reading.accounts
           SET points = points + $2,
               sessions_completed = sessions_completed + 1,
               active_minutes_accrued = active_minutes_accrued + $3
         WHERE id = $1
    `

	tag, err := r.exec.Exec(ctx, stmt, id, points, activeMinutes)
	if err != nil {
		return fmt.Errorf("apply session completion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// TopByPoints lists the highest scoring accounts, ties broken by id for a
// stable order.
func (r *AccountRepository) TopByPoints(ctx context.Context, limit int) ([]domain.Account, error) {
	builder := r.selectAccounts().OrderBy("points DESC", "id ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top accounts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}

	return accounts, nil
}

func (r *AccountRepository) selectAccounts() squirrel.SelectBuilder {
	return r.builder.
		Select(
			"id",
			"paid",
			"is_admin",
			"has_active_session",
			"points",
			"sessions_completed",
			"active_minutes_accrued",
			"paid_at",
			"payment_reference",
			"created_at",
		).
		From("reading.accounts")
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account   domain.Account
		paidAt    sql.NullTime
		reference sql.NullString
	)

	if err := row.Scan(
		&account.ID,
		&account.Paid,
		&account.Admin,
		&account.HasActiveSession,
		&account.Points,
		&account.TotalSessionsCompleted,
		&account.TotalActiveMinutes,
		&paidAt,
		&reference,
		&account.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	account.PaidAt = nullableTimePtr(paidAt)
	account.PaymentReference = nullableStringPtr(reference)

	return &account, nil
}

func optionalString(value *string) any {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func nullableStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := strings.TrimSpace(value.String)
	if v == "" {
		return nil
	}
	return &v
}

var _ port.AccountRepository = (*AccountRepository)(nil)
