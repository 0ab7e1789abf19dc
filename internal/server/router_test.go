package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/internal/platform/metrics"
	id "sigil/pkg/domain"
	authmw "sigil/pkg/platform/middleware/auth"
	"sigil/pkg/platform/middleware/metadata"
	"sigil/pkg/platform/middleware/ratelimit"
)

type stubValidator struct{}

func (stubValidator) ValidateAccessToken(token string) (*authmw.AccessClaims, error) {
	switch token {
	case "user":
		return &authmw.AccessClaims{UserID: 1}, nil
	case "admin":
		return &authmw.AccessClaims{UserID: 2}, nil
	}
	return nil, errors.New("bad token")
}

type stubPrincipals struct{}

func (stubPrincipals) LoadPrincipal(_ context.Context, userID id.UserID) (*authmw.Principal, error) {
	return &authmw.Principal{UserID: userID, IsAdmin: userID == 2}, nil
}

type routes struct{}

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func (routes) Register(r chi.Router)              { r.Post("/v1/auth/refresh", ok) }
func (routes) RegisterAuthenticated(r chi.Router) { r.Get("/v1/user", ok) }
func (routes) RegisterAdmin(r chi.Router)         { r.Get("/v1/users", ok) }

type public struct{}

func (public) Register(r chi.Router) { r.Get("/.well-known/jwks", ok) }

func newTestRouter(t *testing.T, health *Health) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterDeps{
		Logger:        logger,
		Metrics:       metrics.New(reg),
		Gatherer:      reg,
		Limiter:       ratelimit.New(1, 2),
		Health:        health,
		Validator:     stubValidator{},
		Principals:    stubPrincipals{},
		Throttled:     []PublicRoutes{routes{}},
		Public:        []PublicRoutes{public{}},
		Authenticated: []AuthenticatedRoutes{routes{}},
		Admin:         []AdminRoutes{routes{}},
	})
}

func serve(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterAccessTiers(t *testing.T) {
	h := newTestRouter(t, nil)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/.well-known/jwks", "").Code)

	rec := serve(h, http.MethodGet, "/v1/user", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "login_required")

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/v1/user", "user").Code)

	rec = serve(h, http.MethodGet, "/v1/users", "user")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "admin_required")

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/v1/users", "admin").Code)
}

func TestRouterThrottlesAuthRoutes(t *testing.T) {
	h := newTestRouter(t, nil)

	codes := make([]int, 0, 3)
	for range 3 {
		codes = append(codes, serve(h, http.MethodPost, "/v1/auth/refresh", "").Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/.well-known/jwks", "").Code,
		"public routes are not throttled")
}

func TestRouterThrottleIgnoresForgedForwardedFor(t *testing.T) {
	h := newTestRouter(t, nil)

	allowed := 0
	for i := range 50 {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 2, allowed, "one socket peer gets one bucket")
}

func TestRouterThrottleHonoursTrustedProxy(t *testing.T) {
	proxies, err := metadata.ParseTrustedProxies([]string{"10.0.0.1"})
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	h := NewRouter(RouterDeps{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:        metrics.New(reg),
		Limiter:        ratelimit.New(0.0001, 1),
		TrustedProxies: proxies,
		Validator:      stubValidator{},
		Principals:     stubPrincipals{},
		Throttled:      []PublicRoutes{routes{}},
	})

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusOK, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.1"))
	assert.Equal(t, http.StatusOK, send("203.0.113.2"), "clients behind the proxy get their own buckets")
}

func TestRouterExposesMetrics(t *testing.T) {
	h := newTestRouter(t, nil)
	serve(h, http.MethodGet, "/.well-known/jwks", "")

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `sigil_http_request_duration_ms`)
}

func TestHealth(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	health := NewHealth(map[string]Check{
		"postgres": db.PingContext,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	h := newTestRouter(t, health)

	mock.ExpectPing()
	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"postgres":"ok","redis":"ok"}}`, rec.Body.String())

	mr.Close()
	mock.ExpectPing()
	rec = serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"unavailable"}}`, rec.Body.String())
}
