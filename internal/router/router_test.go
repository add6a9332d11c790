package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"UsersAPI/internal/auth"
	"UsersAPI/internal/config"
	"UsersAPI/internal/filters"
	"UsersAPI/internal/handler"
	"UsersAPI/internal/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type emptyStore struct{}

func (emptyStore) Find(context.Context, string, filters.QueryOptions) ([]map[string]any, error) {
	return []map[string]any{}, nil
}

func (emptyStore) Count(context.Context, string, filters.QueryOptions) (int, error) {
	return 0, nil
}

func (emptyStore) Update(context.Context, string, map[string]any, filters.Where) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{CORS: config.CORSConfig{AllowOrigin: "*"}}
}

func testUsers() *handler.Users {
	return handler.NewUsers(handler.UsersConfig{DefaultLimit: 20, LimitMax: 50}, emptyStore{})
}

func TestRouterServesUsersAndCountsRequests(t *testing.T) {
	srv := httptest.NewServer(NewRouter(testConfig(), Deps{Users: testUsers()}))
	defer srv.Close()

	before := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET /api/users/count", "200"))
	resp, err := http.Get(srv.URL + "/api/users/count")
	if err != nil {
		t.Fatalf("GET /api/users/count failed: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get(requestIDHeader) == "" {
		t.Fatalf("response lacks a request id")
	}
	if got := testutil.ToFloat64(metrics.RequestsTotal.WithLabelValues("GET /api/users/count", "200")); got != before+1 {
		t.Fatalf("request not counted: before=%v after=%v", before, got)
	}
}

func TestRouterWritesUsers(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Users: testUsers()})
	id := "5a0c3c1e-2b4d-4e6f-8a9b-0c1d2e3f4a5b"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/"+id, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("DELETE: expected 404 from an empty store, got %d", w.Code)
	}
	if got := w.Header().Get("X-Response-Total-Affected"); got != "0" {
		t.Fatalf("X-Response-Total-Affected = %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/api/users/"+id, strings.NewReader(`{"firstName":"Ada"}`)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("PATCH: expected 404 from an empty store, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/users/"+id, nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT: expected 405, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/users/"+id, nil)
	req.Header.Set("Origin", "https://app.example.com")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") || !strings.Contains(got, "DELETE") {
		t.Fatalf("preflight must allow writes, got %q", got)
	}
}

func TestRouterKeepsClientRequestID(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Users: testUsers()})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}

func TestHealthz(t *testing.T) {
	h := NewRouter(testConfig(), Deps{
		Users:  testUsers(),
		Health: func(context.Context) error { return errors.New("postgres down") },
	})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}

	h = NewRouter(testConfig(), Deps{Users: testUsers()})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Fatalf("expected ok health, got %d %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(testConfig(), Deps{Users: testUsers()})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "go_goroutines") {
		t.Fatalf("go collector missing from /metrics output")
	}
}

func TestRouterAuth(t *testing.T) {
	jwtCfg := config.JWTConfig{
		ValidationType: "HS256",
		Issuer:         "auth-service",
		Audience:       "users-api",
		HMACSecret:     "super-secret",
	}
	v, err := auth.NewJWTValidator(jwtCfg)
	if err != nil {
		t.Fatalf("NewJWTValidator failed: %v", err)
	}
	h := NewRouter(testConfig(), Deps{Users: testUsers(), Auth: v})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": jwtCfg.Issuer,
		"aud": jwtCfg.Audience,
		"iat": now.Unix(),
		"exp": now.Add(time.Minute).Unix(),
	}).SignedString([]byte(jwtCfg.HMACSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d body=%s", w.Code, w.Body.String())
	}

	// health and metrics stay public
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected public /healthz, got %d", w.Code)
	}
}
