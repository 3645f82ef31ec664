package api

import (
	"net/http"

	"github.com/arcadehq/arcade/internal/health"
	"github.com/arcadehq/arcade/internal/middleware"
)

// HealthHandlers holds dependencies for the health endpoint.
type HealthHandlers struct {
	checker *health.Checker
}

// NewHealthHandlers creates a new HealthHandlers instance.
func NewHealthHandlers(checker *health.Checker) *HealthHandlers {
	return &HealthHandlers{checker: checker}
}

// Health handles GET /health - reports server and dependency status.
// Returns 503 when a dependency is unreachable.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	status, healthy := h.checker.Check(r.Context())
	if !healthy {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		middleware.UpdateResponseContext(w, ctx)
		WriteJSON(w, ctx, http.StatusServiceUnavailable, status)
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, status)
}
