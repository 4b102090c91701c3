package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clarifyai/internal/contextutil"
)

// IndexCounter reports the number of records in the vector index.
type IndexCounter interface {
	Count(ctx context.Context) (int, error)
}

// Pinger verifies a database connection. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	index              IndexCounter
	db                 Pinger
	providers          []string
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler. providers lists the
// configured LLM providers in fallback order.
func NewHealthHandler(index IndexCounter, db Pinger, providers []string) *HealthHandler {
	return &HealthHandler{
		index:              index,
		db:                 db,
		providers:          providers,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy", "degraded", or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// Number of records in the vector index
	IndexRecords int `json:"index_records"`

	// List of issues (only present if status is degraded or unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Returns 200 OK if healthy or degraded, 503 Service Unavailable if unhealthy.
// A missing LLM provider only degrades the service: retrieval still works and
// questions get the unavailable answer.
//
// swagger:route GET /api/health healthCheck
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy or degraded
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	unhealthy := false

	records, ok := h.checkIndex(checkCtx, logger)
	if ok {
		checks["vector_index"] = "ok"
	} else {
		checks["vector_index"] = "error"
		issues = append(issues, "vector_index_unavailable")
		unhealthy = true
	}

	if h.checkDatabase(checkCtx, logger) {
		checks["database"] = "ok"
	} else {
		checks["database"] = "error"
		issues = append(issues, "database_unavailable")
		unhealthy = true
	}

	if len(h.providers) > 0 {
		checks["llm"] = strings.Join(h.providers, ",")
	} else {
		checks["llm"] = "none"
		issues = append(issues, "no_llm_provider_configured")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	switch {
	case unhealthy:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	case len(issues) > 0:
		status = "degraded"
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:       status,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Checks:       checks,
		IndexRecords: records,
		Issues:       issues,
	})
}

func (h *HealthHandler) checkIndex(ctx context.Context, logger *slog.Logger) (int, bool) {
	n, err := h.index.Count(ctx)
	if err != nil {
		logger.WarnContext(ctx, "vector index health check failed", "error", err)
		return 0, false
	}
	return n, true
}

func (h *HealthHandler) checkDatabase(ctx context.Context, logger *slog.Logger) bool {
	if h.db == nil {
		return true
	}
	if err := h.db.PingContext(ctx); err != nil {
		logger.WarnContext(ctx, "database health check failed", "error", err)
		return false
	}
	return true
}
