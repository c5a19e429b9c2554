package handler

import (
	"net/http"
)

// ConnChecker reports whether a backing connection is up.
type ConnChecker interface {
	IsConnected() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	natsClient ConnChecker
	corpus     string
	candidates int
}

// NewHealthHandler creates a new health handler. natsClient is nil when the
// delivery log is not backed by NATS.
func NewHealthHandler(natsClient ConnChecker, corpus string, candidates int) *HealthHandler {
	return &HealthHandler{
		natsClient: natsClient,
		corpus:     corpus,
		candidates: candidates,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.natsClient != nil && !h.natsClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "ready",
		"knowledge":   h.corpus,
		"specialists": h.candidates,
	})
}
