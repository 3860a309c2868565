package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

func seedLiveSession(t *testing.T, store *fakeStore, id, userID string, startedAt time.Time, status domain.SessionStatus) {
	t.Helper()
	session := domain.Session{
		ID:        id,
		UserID:    userID,
		Status:    status,
		StartedAt: startedAt,
	}
	if status == domain.SessionActive {
		resumedAt := startedAt
		session.LastResumedAt = &resumedAt
	} else {
		pausedAt := startedAt.Add(time.Minute)
		resumedAt := startedAt
		session.LastResumedAt = &resumedAt
		session.LastPausedAt = &pausedAt
	}
	if err := store.sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("seed session %s: %v", id, err)
	}
}

func TestReclaimer_SweepReclaimsOnlyStuckSessions(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(newFakeSessionRepository(), newFakeAccountRepository(
		domain.Account{ID: "user-old", Paid: true, HasActiveSession: true},
		domain.Account{ID: "user-fresh", Paid: true, HasActiveSession: true},
	))
	publisher := &fakeEventPublisher{}
	reclaimer := NewReclaimer(store, store.sessions, publisher, ReclaimerConfig{}, nil).
		WithClock(func() time.Time { return base })

	seedLiveSession(t, store, "sess-old", "user-old", base.Add(-25*time.Hour), domain.SessionActive)
	seedLiveSession(t, store, "sess-paused-old", "user-old", base.Add(-48*time.Hour), domain.SessionPaused)
	seedLiveSession(t, store, "sess-fresh", "user-fresh", base.Add(-23*time.Hour), domain.SessionActive)

	result, err := reclaimer.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("expected 2 candidates scanned, got %d", result.Scanned)
	}
	if len(result.Reclaimed) != 2 || result.Failed != 0 {
		t.Fatalf("expected 2 reclaimed and 0 failed, got %+v", result)
	}

	ctx := context.Background()
	for _, id := range []string{"sess-old", "sess-paused-old"} {
		session, _ := store.sessions.Get(ctx, id)
		if session.Status != domain.SessionEnded || session.TerminationReason != domain.TerminationStuckCleanup {
			t.Fatalf("expected %s reclaimed, got %+v", id, session)
		}
	}
	fresh, _ := store.sessions.Get(ctx, "sess-fresh")
	if !fresh.IsLive() {
		t.Fatalf("expected fresh session untouched, got status %s", fresh.Status)
	}

	account, _ := store.accounts.Get(ctx, "user-old")
	if account.HasActiveSession {
		t.Fatalf("expected active flag cleared for user-old")
	}
	if len(store.audit.entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(store.audit.entries))
	}
	if len(publisher.reclaimed) != 2 {
		t.Fatalf("expected 2 reclaimed events, got %d", len(publisher.reclaimed))
	}
}

func TestReclaimer_SweepIsIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(newFakeSessionRepository(), newFakeAccountRepository(
		domain.Account{ID: "user-1", Paid: true, HasActiveSession: true},
	))
	reclaimer := NewReclaimer(store, store.sessions, nil, ReclaimerConfig{}, nil).
		WithClock(func() time.Time { return base })

	seedLiveSession(t, store, "sess-1", "user-1", base.Add(-30*time.Hour), domain.SessionActive)

	first, err := reclaimer.Sweep(context.Background())
	if err != nil {
		t.Fatalf("first Sweep returned error: %v", err)
	}
	if len(first.Reclaimed) != 1 {
		t.Fatalf("expected 1 reclaimed, got %d", len(first.Reclaimed))
	}

	second, err := reclaimer.Sweep(context.Background())
	if err != nil {
		t.Fatalf("second Sweep returned error: %v", err)
	}
	if second.Scanned != 0 || len(second.Reclaimed) != 0 {
		t.Fatalf("expected nothing to reclaim on second pass, got %+v", second)
	}
	if len(store.audit.entries) != 1 {
		t.Fatalf("expected a single audit entry, got %d", len(store.audit.entries))
	}
}

func TestReclaimer_SkipsSessionEndedBetweenListAndReclaim(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	sessions := newFakeSessionRepository()
	store := newFakeStore(sessions, newFakeAccountRepository(
		domain.Account{ID: "user-1", Paid: true},
	))
	reclaimer := NewReclaimer(store, sessions, nil, ReclaimerConfig{}, nil).
		WithClock(func() time.Time { return base })

	// Ended after the listing would have picked it up; the transactional
	// re-check must leave it alone.
	endedAt := base.Add(-time.Minute)
	frozen := domain.Session{
		ID:                "sess-done",
		UserID:            "user-1",
		Status:            domain.SessionEnded,
		StartedAt:         base.Add(-26 * time.Hour),
		EndedAt:           &endedAt,
		TotalActiveMillis: 120000,
		TerminationReason: domain.TerminationUserEnded,
	}
	if err := sessions.Create(context.Background(), frozen); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	reclaimed, err := reclaimer.reclaimOne(context.Background(), "sess-done", base)
	if err != nil {
		t.Fatalf("reclaimOne returned error: %v", err)
	}
	if reclaimed != nil {
		t.Fatalf("expected ended session skipped, got %+v", reclaimed)
	}

	session, _ := sessions.Get(context.Background(), "sess-done")
	if session.TerminationReason != domain.TerminationUserEnded {
		t.Fatalf("expected original termination reason kept, got %s", session.TerminationReason)
	}

	if reclaimed, err := reclaimer.reclaimOne(context.Background(), "sess-gone", base); err != nil || reclaimed != nil {
		t.Fatalf("expected missing session skipped, got %+v, %v", reclaimed, err)
	}
}

func TestReclaimer_SweepToleratesMissingAccount(t *testing.T) {
	base := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(newFakeSessionRepository(), newFakeAccountRepository(
		domain.Account{ID: "user-2", Paid: true, HasActiveSession: true},
	))
	reclaimer := NewReclaimer(store, store.sessions, nil, ReclaimerConfig{}, nil).
		WithClock(func() time.Time { return base })

	// user-1 has no account row; clearing its flag is skipped and the
	// session is still reclaimed.
	seedLiveSession(t, store, "sess-a", "user-1", base.Add(-25*time.Hour), domain.SessionActive)
	seedLiveSession(t, store, "sess-b", "user-2", base.Add(-25*time.Hour), domain.SessionActive)

	result, err := reclaimer.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep returned error: %v", err)
	}
	if result.Scanned != 2 {
		t.Fatalf("expected 2 scanned, got %d", result.Scanned)
	}
	if len(result.Reclaimed) != 2 {
		t.Fatalf("expected both reclaimed, got %+v", result)
	}
}
