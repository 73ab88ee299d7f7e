package handlers

import (
	"net/http"
	"runtime"
	"time"

	"visionvault/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Ready             bool   `json:"ready"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	Sweeping          bool   `json:"sweeping"`
	LastSweep         string `json:"lastSweep,omitempty"`
	InitialSweepError string `json:"initialSweepError,omitempty"`

	// Root store propagations waiting for a retry
	PendingPropagations int `json:"pendingPropagations"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`

	// Totals from the last completed sweep
	Directories int `json:"directories,omitempty"`
	Records     int `json:"records,omitempty"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthStatus := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Ready:               healthStatus.Ready,
		Version:             startup.Version,
		Uptime:              healthStatus.Uptime,
		Sweeping:            healthStatus.Sweeping,
		PendingPropagations: healthStatus.PendingPropagations,
		GoVersion:           runtime.Version(),
		NumCPU:              runtime.NumCPU(),
		NumGoroutine:        runtime.NumGoroutine(),
	}

	switch {
	case healthStatus.InitialSweepError != "":
		response.InitialSweepError = healthStatus.InitialSweepError
		response.Status = statusDegraded
	case healthStatus.Ready:
		response.Status = statusHealthy
	default:
		response.Status = statusStarting
	}

	if !healthStatus.LastSweep.IsZero() {
		response.LastSweep = healthStatus.LastSweep.Format(time.RFC3339)
	}
	if res := healthStatus.LastResult; res != nil {
		response.Directories = res.Directories
		response.Records = res.Records
	}

	// Return 503 only if not ready at all
	status := http.StatusOK
	if !healthStatus.Ready {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		writeJSON(w, response)
	}
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only once the first sweep has finished
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status, body := http.StatusOK, "ready"
	if !h.indexer.IsReady() {
		status, body = http.StatusServiceUnavailable, "not_ready"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": body})
	}
}
