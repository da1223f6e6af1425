package handler

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker verifies connectivity for one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HealthHandler serves the health endpoint.
type HealthHandler struct {
	checks    map[string]HealthChecker
	startedAt time.Time
}

// NewHealthHandler creates a HealthHandler with named dependency checks.
func NewHealthHandler(checks map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{
		checks:    checks,
		startedAt: time.Now().UTC(),
	}
}

// HealthCheck reports overall and per-dependency health.
// GET /healthz
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, c := range h.checks {
		if err := c.Health(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	writeJSON(w, status, map[string]any{
		"status":       http.StatusText(status),
		"uptime_sec":   int64(time.Since(h.startedAt).Seconds()),
		"dependencies": deps,
	})
}
