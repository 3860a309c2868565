package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
	"github.com/arklim/social-platform-reading/internal/repository"
)

var liveStatuses = []string{string(domain.SessionActive), string(domain.SessionPaused)}

// SessionRepository implements port.SessionRepository backed by PostgreSQL.
type SessionRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a repository backed by any executor that
// satisfies pgExecutor (a pool or an open transaction).
func NewSessionRepository(exec pgExecutor) *SessionRepository {
	return &SessionRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *SessionRepository) WithTx(tx pgx.Tx) *SessionRepository {
	if tx == nil {
		return r
	}
	return &SessionRepository{exec: tx, builder: r.builder}
}

// Create persists a new session row.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sqlStmt, args, err := r.builder.Insert("reading.sessions").
		Columns(
			"id",
			"user_id",
			"status",
			"started_at",
			"last_resumed_at",
			"last_paused_at",
			"paused_accum_ms",
			"ended_at",
			"total_active_ms",
			"termination_reason",
		).
		Values(
			session.ID,
			session.UserID,
			string(session.Status),
			session.StartedAt.UTC(),
			optionalTime(session.LastResumedAt),
			optionalTime(session.LastPausedAt),
			session.PausedAccumMillis,
			optionalTime(session.EndedAt),
			session.TotalActiveMillis,
			terminationValue(session.TerminationReason),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sqlStmt, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// Get fetches a session by its identifier.
func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	stmt, args, err := r.selectSessions().
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)
	session, err := scanSession(row)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	return session, nil
}

// Update rewrites the mutable columns of an existing session.
func (r *SessionRepository) Update(ctx context.Context, session domain.Session) error {
	stmt, args, err := r.builder.Update("reading.sessions").
		Set("status", string(session.Status)).
		Set("last_resumed_at", optionalTime(session.LastResumedAt)).
		Set("last_paused_at", optionalTime(session.LastPausedAt)).
		Set("paused_accum_ms", session.PausedAccumMillis).
		Set("ended_at", optionalTime(session.EndedAt)).
		Set("total_active_ms", session.TotalActiveMillis).
		Set("termination_reason", terminationValue(session.TerminationReason)).
		Where(squirrel.Eq{"id": session.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update session sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListLiveByUser retrieves the user's sessions still in a live status.
func (r *SessionRepository) ListLiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	stmt, args, err := r.selectSessions().
		Where(squirrel.Eq{"user_id": userID, "status": liveStatuses}).
		OrderBy("started_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list live sessions sql: %w", err)
	}

	return r.querySessions(ctx, stmt, args)
}

// ListLive retrieves live sessions across all users, newest first.
func (r *SessionRepository) ListLive(ctx context.Context, limit int) ([]domain.Session, error) {
	builder := r.selectSessions().
		Where(squirrel.Eq{"status": liveStatuses}).
		OrderBy("started_at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list live sessions sql: %w", err)
	}

	return r.querySessions(ctx, stmt, args)
}

// ListStuck retrieves live sessions started before the cutoff, oldest first.
func (r *SessionRepository) ListStuck(ctx context.Context, cutoff time.Time, limit int) ([]domain.Session, error) {
	builder := r.selectSessions().
		Where(squirrel.Eq{"status": liveStatuses}).
		Where(squirrel.Lt{"started_at": cutoff.UTC()}).
		OrderBy("started_at ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list stuck sessions sql: %w", err)
	}

	return r.querySessions(ctx, stmt, args)
}

func (r *SessionRepository) selectSessions() squirrel.SelectBuilder {
	return r.builder.
		Select(
			"id",
			"user_id",
			"status",
			"started_at",
			"last_resumed_at",
			"last_paused_at",
			"paused_accum_ms",
			"ended_at",
			"total_active_ms",
			"termination_reason",
		).
		From("reading.sessions")
}

func (r *SessionRepository) querySessions(ctx context.Context, stmt string, args []any) ([]domain.Session, error) {
	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session       domain.Session
		status        string
		lastResumedAt sql.NullTime
		lastPausedAt  sql.NullTime
		endedAt       sql.NullTime
		reason        sql.NullString
	)

	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&status,
		&session.StartedAt,
		&lastResumedAt,
		&lastPausedAt,
		&session.PausedAccumMillis,
		&endedAt,
		&session.TotalActiveMillis,
		&reason,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	session.Status = domain.SessionStatus(status)
	session.LastResumedAt = nullableTimePtr(lastResumedAt)
	session.LastPausedAt = nullableTimePtr(lastPausedAt)
	session.EndedAt = nullableTimePtr(endedAt)
	if reason.Valid {
		session.TerminationReason = domain.TerminationReason(reason.String)
	}

	return &session, nil
}

func terminationValue(reason domain.TerminationReason) any {
	if reason == domain.TerminationNone {
		return nil
	}
	return string(reason)
}

func optionalTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return (*value).UTC()
}

func nullableTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

var _ port.SessionRepository = (*SessionRepository)(nil)
