// Package server assembles the HTTP router and the process-wide
// dependencies behind it.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sigil/internal/platform/metrics"
	"sigil/internal/platform/middleware"
	adminmw "sigil/pkg/platform/middleware/admin"
	authmw "sigil/pkg/platform/middleware/auth"
	"sigil/pkg/platform/middleware/metadata"
	"sigil/pkg/platform/middleware/ratelimit"
	request "sigil/pkg/platform/middleware/request"
	"sigil/pkg/platform/middleware/requesttime"
)

// Feature handlers mount themselves through one or more of these.
type (
	PublicRoutes interface {
		Register(r chi.Router)
	}
	AuthenticatedRoutes interface {
		RegisterAuthenticated(r chi.Router)
	}
	AdminRoutes interface {
		RegisterAdmin(r chi.Router)
	}
)

// RouterDeps is everything NewRouter mounts.
type RouterDeps struct {
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
	CORSOrigin string
	Limiter    *ratelimit.Limiter
	Health     *Health

	// TrustedProxies gates X-Forwarded-For; nil keys clients on the socket peer.
	TrustedProxies metadata.TrustedProxies

	Validator  authmw.TokenValidator
	Principals authmw.PrincipalLoader

	// Throttled routes are mounted behind the rate limiter.
	Throttled     []PublicRoutes
	Public        []PublicRoutes
	Authenticated []AuthenticatedRoutes
	Admin         []AdminRoutes
}

// NewRouter builds the chi router with the shared middleware chain:
// request id, recovery, request logging, request time, client metadata and
// CORS, then bearer authentication that attaches claims when present.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata(d.TrustedProxies))
	r.Use(middleware.CORS(d.CORSOrigin))
	r.Use(authmw.Authenticate(d.Validator, d.Logger))

	if d.Health != nil {
		r.Get("/healthz", d.Health.ServeHTTP)
	}
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	for _, h := range d.Public {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		if d.Limiter != nil {
			r.Use(d.Limiter.Middleware)
		}
		for _, h := range d.Throttled {
			h.Register(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireUser(d.Principals, d.Logger))
		for _, h := range d.Authenticated {
			h.RegisterAuthenticated(r)
		}
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(d.Logger))
			for _, h := range d.Admin {
				h.RegisterAdmin(r)
			}
		})
	})
	return r
}
