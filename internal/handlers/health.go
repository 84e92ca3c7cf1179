package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker reports whether one dependency is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Availability reports whether the model service is up.
type Availability interface {
	CheckAvailability(ctx context.Context) bool
}

// HealthHandler aggregates dependency checks into one status.
type HealthHandler struct {
	vectorIndex HealthChecker
	model       Availability
	database    HealthChecker
}

func NewHealthHandler(vectorIndex HealthChecker, model Availability, database HealthChecker) *HealthHandler {
	return &HealthHandler{
		vectorIndex: vectorIndex,
		model:       model,
		database:    database,
	}
}

// HealthResponse reports overall and per-dependency status. Overall status
// is healthy when everything is up, unhealthy when the stores are down, and
// degraded when only the model service is unavailable.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// Health runs the dependency checks.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{
		"vector_index": "ok",
		"model":        "ok",
		"database":     "ok",
	}

	storesOK := true
	if !h.vectorIndex.HealthCheck(ctx) {
		checks["vector_index"] = "error"
		storesOK = false
	}
	if !h.database.HealthCheck(ctx) {
		checks["database"] = "error"
		storesOK = false
	}
	modelOK := h.model.CheckAvailability(ctx)
	if !modelOK {
		checks["model"] = "error"
	}

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case !storesOK:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case !modelOK:
		status = "degraded"
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}
