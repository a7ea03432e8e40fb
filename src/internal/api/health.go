package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const healthTimeout = 3 * time.Second

// CheckHealth reports whether the metadata store answers and the statement
// catalogue is loaded. Unhealthy responses use 503.
// GET /api/v1/health
func (h *Handler) CheckHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	response := HealthCheckResponse{
		Healthy: true,
		Checks:  make(map[string]CheckResult),
	}

	if err := h.catalog.Ping(ctx); err != nil {
		logger.Errorf("Health check: metadata store ping failed: %v", err)
		response.Healthy = false
		response.Checks["config_store"] = CheckResult{
			Passed:  false,
			Message: "Metadata store is unreachable",
		}
	} else {
		response.Checks["config_store"] = CheckResult{
			Passed:  true,
			Message: "Metadata store is reachable",
		}
	}

	switch {
	case h.statements == nil:
		response.Checks["statements"] = CheckResult{Passed: true, Message: "No statement catalogue configured"}
	case h.statements.Len() == 0:
		response.Healthy = false
		response.Checks["statements"] = CheckResult{Passed: false, Message: "Statement catalogue is empty"}
	default:
		response.Checks["statements"] = CheckResult{
			Passed:  true,
			Message: fmt.Sprintf("%d statement(s) loaded", h.statements.Len()),
		}
	}

	status := http.StatusOK
	if !response.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// GetStatus returns version and wiring information.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Version:   h.version,
		Executors: h.executors,
		Hosts:     h.hosts,
	}
	if h.statements != nil {
		response.Statements = h.statements.Len()
	}
	writeJSONData(w, response)
}
