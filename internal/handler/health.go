package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness/readiness checks.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a health handler over the cart store.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Check handles GET /healthz. The store ping is bounded so a wedged store
// degrades to a fast 503 instead of a hanging probe.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		JSONResponse(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"store":  "unreachable",
		})
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{"status": "ok"})
}
