package handler

import (
	"net/http"

	"github.com/taskmate-ai/task-assistant/internal/events"
	"github.com/taskmate-ai/task-assistant/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	store       *store.Store
	eventClient *events.Client
}

// NewHealthHandler creates a new health handler. eventClient may be nil
// when no audit stream is configured.
func NewHealthHandler(st *store.Store, ec *events.Client) *HealthHandler {
	return &HealthHandler{
		store:       st,
		eventClient: ec,
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
	if err := h.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	// The audit stream is optional at startup, but once configured a
	// lost connection means dropped audit events.
	if h.eventClient != nil && !h.eventClient.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
