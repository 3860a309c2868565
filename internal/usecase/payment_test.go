package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/arklim/social-platform-reading/internal/core/domain"
)

func TestPaymentService_ConfirmPayment(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	accounts := newFakeAccountRepository(domain.Account{ID: "user-1"})
	publisher := &fakeEventPublisher{}
	svc := NewPaymentService(accounts, publisher, nil).
		WithClock(func() time.Time { return base })

	ctx := context.Background()
	if err := svc.ConfirmPayment(ctx, "user-1", "ps_ref_001"); err != nil {
		t.Fatalf("ConfirmPayment returned error: %v", err)
	}

	account, _ := accounts.Get(ctx, "user-1")
	if !account.Paid {
		t.Fatalf("expected account marked paid")
	}
	if account.PaidAt == nil || !account.PaidAt.Equal(base) {
		t.Fatalf("expected paid at %v, got %v", base, account.PaidAt)
	}
	if account.PaymentReference == nil || *account.PaymentReference != "ps_ref_001" {
		t.Fatalf("expected reference ps_ref_001, got %v", account.PaymentReference)
	}
	if len(publisher.paid) != 1 || publisher.paid[0].Reference != "ps_ref_001" {
		t.Fatalf("expected one paid event, got %+v", publisher.paid)
	}

	// Replayed confirmations keep the first reference and timestamp.
	later := base.Add(time.Hour)
	svc.WithClock(func() time.Time { return later })
	if err := svc.ConfirmPayment(ctx, "user-1", "ps_ref_002"); err != nil {
		t.Fatalf("replayed ConfirmPayment returned error: %v", err)
	}
	account, _ = accounts.Get(ctx, "user-1")
	if *account.PaymentReference != "ps_ref_001" || !account.PaidAt.Equal(base) {
		t.Fatalf("expected first confirmation to win, got %+v", account)
	}

	if err := svc.ConfirmPayment(ctx, "ghost", "ps_ref_003"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if err := svc.ConfirmPayment(ctx, " ", "ps_ref_004"); err == nil {
		t.Fatalf("expected error for blank user id")
	}
}

func TestLeaderboardService_TopPrefersCache(t *testing.T) {
	accounts := newFakeAccountRepository(
		domain.Account{ID: "user-1", Points: 10},
		domain.Account{ID: "user-2", Points: 25},
	)
	board := newFakeLeaderboard()
	board.points["user-2"] = 25
	board.points["user-1"] = 10
	svc := NewLeaderboardService(board, accounts, nil)

	entries, err := svc.Top(context.Background(), 10)
	if err != nil {
		t.Fatalf("Top returned error: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "user-2" || entries[0].Points != 25 {
		t.Fatalf("unexpected ranking: %+v", entries)
	}
}

func TestLeaderboardService_TopFallsBackToAccounts(t *testing.T) {
	accounts := newFakeAccountRepository(
		domain.Account{ID: "user-1", Points: 10},
		domain.Account{ID: "user-2", Points: 25},
		domain.Account{ID: "user-3", Points: 25},
	)
	board := newFakeLeaderboard()
	board.topErr = errors.New("cache down")
	svc := NewLeaderboardService(board, accounts, nil)

	entries, err := svc.Top(context.Background(), 2)
	if err != nil {
		t.Fatalf("Top returned error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "user-2" || entries[1].UserID != "user-3" {
		t.Fatalf("expected ties broken by id, got %+v", entries)
	}

	// An empty cache also falls through to the accounts table.
	svcEmpty := NewLeaderboardService(newFakeLeaderboard(), accounts, nil)
	entries, err = svcEmpty.Top(context.Background(), 1)
	if err != nil {
		t.Fatalf("Top returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "user-2" {
		t.Fatalf("expected user-2 from accounts fallback, got %+v", entries)
	}

	// No cache configured at all.
	svcNone := NewLeaderboardService(nil, accounts, nil)
	if entries, err = svcNone.Top(context.Background(), 0); err != nil || len(entries) != 3 {
		t.Fatalf("expected full ranking without cache, got %+v, %v", entries, err)
	}
}

func TestAdminService_RequiresAdmin(t *testing.T) {
	base := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	accounts := newFakeAccountRepository(
		domain.Account{ID: "admin-1", Admin: true},
		domain.Account{ID: "user-1"},
	)
	sessions := newFakeSessionRepository()
	audit := &fakeAuditRepository{}
	svc := NewAdminService(accounts, sessions, audit, nil)

	resumedAt := base.Add(-time.Hour)
	_ = sessions.Create(context.Background(), domain.Session{
		ID: "sess-1", UserID: "user-1", Status: domain.SessionActive,
		StartedAt: base.Add(-time.Hour), LastResumedAt: &resumedAt,
	})
	_ = audit.Append(context.Background(), domain.AuditEntry{
		ID: "audit-1", ActorID: "admin-1", Action: domain.AuditActionForceEnd, At: base,
	})

	ctx := context.Background()
	if _, err := svc.ListLiveSessions(ctx, "user-1", 10); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired, got %v", err)
	}
	if _, err := svc.ListAuditEntries(ctx, "ghost", 10); !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ErrAdminRequired for unknown caller, got %v", err)
	}

	live, err := svc.ListLiveSessions(ctx, "admin-1", 0)
	if err != nil {
		t.Fatalf("ListLiveSessions returned error: %v", err)
	}
	if len(live) != 1 || live[0].ID != "sess-1" {
		t.Fatalf("unexpected live sessions: %+v", live)
	}

	entries, err := svc.ListAuditEntries(ctx, "admin-1", 0)
	if err != nil {
		t.Fatalf("ListAuditEntries returned error: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "audit-1" {
		t.Fatalf("unexpected audit entries: %+v", entries)
	}
}
