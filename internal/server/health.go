package server

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"sigil/pkg/platform/httputil"
)

// Check reports whether one dependency is reachable.
type Check func(ctx context.Context) error

// Health runs every check in parallel and answers 200 only when all pass.
type Health struct {
	checks  map[string]Check
	timeout time.Duration
}

func NewHealth(checks map[string]Check) *Health {
	return &Health{checks: checks, timeout: 2 * time.Second}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	out := make([]error, len(names))
	var g errgroup.Group
	for i, name := range names {
		check := h.checks[name]
		g.Go(func() error {
			out[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	status := http.StatusOK
	for i, name := range names {
		if out[i] != nil {
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	res := healthResponse{Status: "ok", Checks: results}
	if status != http.StatusOK {
		res.Status = "degraded"
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, status, res)
}
