package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/repository"
)

func TestSessionRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	startedAt := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	resumedAt := startedAt
	session := domain.Session{
		ID:            "sess-1",
		UserID:        "user-1",
		Status:        domain.SessionActive,
		StartedAt:     startedAt,
		LastResumedAt: &resumedAt,
	}

	mock.ExpectExec(`INSERT INTO reading\.sessions`).
		WithArgs(
			session.ID,
			session.UserID,
			string(domain.SessionActive),
			startedAt,
			resumedAt,
			nil,
			int64(0),
			nil,
			int64(0),
			nil,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Create(context.Background(), session); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_Get(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	startedAt := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	pausedAt := startedAt.Add(30 * time.Minute)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "status", "started_at", "last_resumed_at", "last_paused_at",
		"paused_accum_ms", "ended_at", "total_active_ms", "termination_reason",
	}).AddRow(
		"sess-1", "user-1", "paused", startedAt, startedAt, pausedAt,
		int64(60000), nil, int64(0), nil,
	)

	mock.ExpectQuery(`SELECT .*FROM reading\.sessions`).WithArgs("sess-1").WillReturnRows(rows)

	session, err := repo.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if session.Status != domain.SessionPaused {
		t.Fatalf("expected paused status, got %s", session.Status)
	}
	if session.LastPausedAt == nil || !session.LastPausedAt.Equal(pausedAt) {
		t.Fatalf("expected paused at %v, got %v", pausedAt, session.LastPausedAt)
	}
	if session.PausedAccumMillis != 60000 {
		t.Fatalf("expected 60000ms accumulated, got %d", session.PausedAccumMillis)
	}
	if session.EndedAt != nil || session.TerminationReason != domain.TerminationNone {
		t.Fatalf("expected live session, got %+v", session)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_GetNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "status", "started_at", "last_resumed_at", "last_paused_at",
		"paused_accum_ms", "ended_at", "total_active_ms", "termination_reason",
	})
	mock.ExpectQuery(`SELECT .*FROM reading\.sessions`).WithArgs("sess-404").WillReturnRows(rows)

	if _, err := repo.Get(context.Background(), "sess-404"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_UpdateMissingRow(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	endedAt := time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC)
	session := domain.Session{
		ID:                "sess-404",
		UserID:            "user-1",
		Status:            domain.SessionEnded,
		StartedAt:         endedAt.Add(-time.Hour),
		EndedAt:           &endedAt,
		TotalActiveMillis: 3600000,
		TerminationReason: domain.TerminationUserEnded,
	}

	mock.ExpectExec(`UPDATE reading\.sessions`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "sess-404",
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.Update(context.Background(), session); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRepository_ListStuck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewSessionRepository(mock)

	cutoff := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)
	oldStart := cutoff.Add(-2 * time.Hour)

	rows := pgxmock.NewRows([]string{
		"id", "user_id", "status", "started_at", "last_resumed_at", "last_paused_at",
		"paused_accum_ms", "ended_at", "total_active_ms", "termination_reason",
	}).AddRow(
		"sess-old", "user-1", "active", oldStart, oldStart, nil,
		int64(0), nil, int64(0), nil,
	)

	mock.ExpectQuery(`SELECT .*FROM reading\.sessions`).
		WithArgs("active", "paused", cutoff).
		WillReturnRows(rows)

	sessions, err := repo.ListStuck(context.Background(), cutoff, 100)
	if err != nil {
		t.Fatalf("ListStuck returned error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-old" {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_MarkPaidIdempotent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	paidAt := time.Date(2026, 3, 8, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE reading\.accounts`).
		WithArgs("user-1", paidAt, "ps_ref_001").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.MarkPaid(context.Background(), "user-1", "ps_ref_001", paidAt); err != nil {
		t.Fatalf("MarkPaid returned error: %v", err)
	}

	mock.ExpectExec(`UPDATE reading\.accounts`).
		WithArgs("ghost", paidAt, nil).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.MarkPaid(context.Background(), "ghost", "", paidAt); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAccountRepository_ApplySessionCompletion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewAccountRepository(mock)

	mock.ExpectExec(`UPDATE reading\.accounts`).
		WithArgs("user-1", 5, 65).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := repo.ApplySessionCompletion(context.Background(), "user-1", 65, 5); err != nil {
		t.Fatalf("ApplySessionCompletion returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
