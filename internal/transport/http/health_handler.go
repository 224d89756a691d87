package http

import (
	"net/http"
	"time"

	"github.com/go-chi/render"

	"datalens/internal/session"
)

// HealthHandler reports service liveness.
type HealthHandler struct {
	registry *session.Registry
	started  time.Time
	version  string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(registry *session.Registry, version string) *HealthHandler {
	return &HealthHandler{
		registry: registry,
		started:  time.Now(),
		version:  version,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"status":          "healthy",
		"version":         h.version,
		"uptime_seconds":  int(time.Since(h.started).Seconds()),
		"active_sessions": h.registry.Len(),
	})
}

// Root handles GET /
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"message": "Data Analysis API is running!"})
}
