package routes_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/social-platform-reading/internal/infra/config"
	"github.com/arklim/social-platform-reading/internal/infra/security"
	httproutes "github.com/arklim/social-platform-reading/internal/transport/http/routes"
)

type staticVerifier struct {
	claims *security.Claims
	err    error
}

func (v *staticVerifier) Verify(token string) (*security.Claims, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.claims, nil
}

func newTestRouter(verifier *staticVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	return httproutes.Register(httproutes.Dependencies{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Verifier: verifier,
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(&staticVerifier{})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestSessionRoutesRequireAuth(t *testing.T) {
	r := newTestRouter(&staticVerifier{err: security.ErrInvalidToken})

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/v1/sessions"},
		{http.MethodGet, "/api/v1/sessions/active"},
		{http.MethodPost, "/api/v1/sessions/abc/pause"},
		{http.MethodPost, "/api/v1/sessions/abc/resume"},
		{http.MethodPost, "/api/v1/sessions/abc/end"},
	}

	for _, route := range routes {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest(route.method, route.path, nil)

		r.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, w.Code)
		}
	}
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	r := newTestRouter(&staticVerifier{claims: &security.Claims{UserID: "user-1"}})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/admin/sessions", nil)
	req.Header.Set("Authorization", "Bearer token")

	r.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	r := newTestRouter(&staticVerifier{})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
