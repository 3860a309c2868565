package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/core/port"
)

// AuditRepository implements port.AuditRepository using PostgreSQL. The table
// is append-only; there is intentionally no update or delete path.
type AuditRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAuditRepository wires a PostgreSQL-backed audit repository.
func NewAuditRepository(exec pgExecutor) *AuditRepository {
	return &AuditRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *AuditRepository) WithTx(tx pgx.Tx) *AuditRepository {
	if tx == nil {
		return r
	}
	return &AuditRepository{exec: tx, builder: r.builder}
}

// Append records a termination event.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	details, err := marshalAuditDetails(entry.Details)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert("reading.audit_log").
		Columns(
			"id",
			"actor_id",
			"action",
			"target_user_id",
			"target_session_id",
			"reason",
			"at",
			"details",
		).
		Values(
			entry.ID,
			entry.ActorID,
			entry.Action,
			entry.TargetUserID,
			entry.TargetSessionID,
			entry.Reason,
			entry.At.UTC(),
			details,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert audit entry sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	return nil
}

// ListRecent returns the newest audit entries.
func (r *AuditRepository) ListRecent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	builder := r.builder.
		Select("id", "actor_id", "action", "target_user_id", "target_session_id", "reason", "at", "details").
		From("reading.audit_log").
		OrderBy("at DESC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	stmt, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list audit entries sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			reason  sql.NullString
			details []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.TargetUserID,
			&entry.TargetSessionID,
			&reason,
			&entry.At,
			&details,
		); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if reason.Valid {
			entry.Reason = reason.String
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}

	return entries, nil
}

func marshalAuditDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		return nil, nil
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return nil, fmt.Errorf("marshal audit details: %w", err)
	}
	return payload, nil
}

var _ port.AuditRepository = (*AuditRepository)(nil)
