package handler

import (
	"context"
	"net/http"
	"time"
)

// readyzTimeout bounds the dependency pings so a hung database cannot
// stall the probe past the kubelet's own timeout.
const readyzTimeout = 5 * time.Second

// Pinger is the connectivity check both backing stores expose.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the liveness and readiness probes. Postgres backs
// the run queue and result storage; Redis backs the shared Dashboard
// rate-limit bucket and the caches. The service cannot do useful work
// without either, so readiness requires both.
type HealthHandler struct {
	checks []dependency
}

type dependency struct {
	name   string
	pinger Pinger
}

// NewHealthHandler creates a HealthHandler. Pass nil for a dependency
// that is not configured (e.g. CLI-style deployments without Redis);
// it is then reported but not required.
func NewHealthHandler(db, cache Pinger) *HealthHandler {
	return &HealthHandler{
		checks: []dependency{
			{name: "postgres", pinger: db},
			{name: "redis", pinger: cache},
		},
	}
}

// HealthResponse is the body of both probe endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness probe: 200 whenever the process is serving.
// No dependency checks here, so a dead database does not get the
// process restarted.
//
// GET /healthz
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz is the readiness probe: 200 only when every configured
// dependency answers a ping within the timeout.
//
// GET /readyz
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyzTimeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	ready := true

	for _, dep := range h.checks {
		if dep.pinger == nil {
			results[dep.name] = "not configured"
			continue
		}
		if err := dep.pinger.Ping(ctx); err != nil {
			results[dep.name] = "error: " + err.Error()
			ready = false
			continue
		}
		results[dep.name] = "ok"
	}

	status := "ok"
	code := http.StatusOK
	if !ready {
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, HealthResponse{Status: status, Checks: results})
}
