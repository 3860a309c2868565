package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/core/domain"
	"github.com/arklim/social-platform-reading/internal/repository"
	"github.com/arklim/social-platform-reading/internal/usecase"
)

type fakeAccounts struct {
	paid      map[string]string
	markedIDs []string
}

func newFakeAccounts(ids ...string) *fakeAccounts {
	f := &fakeAccounts{paid: make(map[string]string)}
	for _, id := range ids {
		f.paid[id] = ""
	}
	return f
}

func (f *fakeAccounts) Create(ctx context.Context, account domain.Account) error { return nil }

func (f *fakeAccounts) Get(ctx context.Context, id string) (*domain.Account, error) {
	if _, ok := f.paid[id]; !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.Account{ID: id}, nil
}

func (f *fakeAccounts) MarkPaid(ctx context.Context, id string, reference string, at time.Time) error {
	if _, ok := f.paid[id]; !ok {
		return repository.ErrNotFound
	}
	f.paid[id] = reference
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

func (f *fakeAccounts) SetHasActiveSession(ctx context.Context, id string, active bool) error {
	return nil
}

func (f *fakeAccounts) ApplySessionCompletion(ctx context.Context, id string, activeMinutes int, points int) error {
	return nil
}

func (f *fakeAccounts) TopByPoints(ctx context.Context, limit int) ([]domain.Account, error) {
	return nil, nil
}

const webhookTestSecret = "whsec_test"

func signBody(body []byte) string {
	mac := hmac.New(sha512.New, []byte(webhookTestSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func performWebhook(t *testing.T, accounts *fakeAccounts, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	payments := usecase.NewPaymentService(accounts, nil, zap.NewNop())
	handler := NewPaymentHandler(payments, webhookTestSecret, zap.NewNop())

	router := gin.New()
	router.POST("/webhook", handler.PaystackWebhook)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("x-paystack-signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaystackWebhook_MarksAccountPaid(t *testing.T) {
	accounts := newFakeAccounts("user-1")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","metadata":{"user_id":"user-1"}}}`)

	w := performWebhook(t, accounts, body, signBody(body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := accounts.paid["user-1"]; got != "ref-1" {
		t.Fatalf("expected reference ref-1 recorded, got %q", got)
	}
}

func TestPaystackWebhook_RejectsBadSignature(t *testing.T) {
	accounts := newFakeAccounts("user-1")
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","metadata":{"user_id":"user-1"}}}`)

	cases := []struct {
		name      string
		signature string
	}{
		{name: "missing signature", signature: ""},
		{name: "wrong signature", signature: signBody([]byte("other body"))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performWebhook(t, accounts, body, tc.signature)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			if len(accounts.markedIDs) != 0 {
				t.Fatalf("account must not be marked paid: %v", accounts.markedIDs)
			}
		})
	}
}

func TestPaystackWebhook_IgnoresOtherEvents(t *testing.T) {
	accounts := newFakeAccounts("user-1")
	body := []byte(`{"event":"charge.failed","data":{"reference":"ref-1","metadata":{"user_id":"user-1"}}}`)

	w := performWebhook(t, accounts, body, signBody(body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(accounts.markedIDs) != 0 {
		t.Fatalf("account must not be marked paid: %v", accounts.markedIDs)
	}
}

func TestPaystackWebhook_AcknowledgesUnknownAccount(t *testing.T) {
	accounts := newFakeAccounts()
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1","metadata":{"user_id":"ghost"}}}`)

	w := performWebhook(t, accounts, body, signBody(body))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 so the provider stops retrying, got %d", w.Code)
	}
}
