package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/poirisk/pkg/metrics"
)

// ReadyChecker reports whether the service can answer view requests.
type ReadyChecker interface {
	Ready() bool
}

// HealthHandler handles health and readiness requests.
type HealthHandler struct {
	ready ReadyChecker
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(ready ReadyChecker) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// HandleHealth handles GET /healthz requests with the Prometheus exposition
// of the custom registry.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

type readyResponse struct {
	Status string `json:"status"`
}

// HandleReady handles GET /readyz requests.
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	if h.ready == nil || !h.ready.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, readyResponse{Status: "loading"})
		return
	}
	writeJSON(w, http.StatusOK, readyResponse{Status: "ready"})
}
