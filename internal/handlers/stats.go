package handlers

import (
	"net/http"
	"time"

	"visionvault/internal/indexer"
	"visionvault/internal/metrics"
)

// StatsResponse is the reply of GET /api/stats.
type StatsResponse struct {
	metrics.Stats
	LastSweep time.Time `json:"lastSweep,omitempty"`
	Sweeping  bool      `json:"sweeping"`
}

// GetStats summarizes the root store.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.lib.LibraryStats()
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, StatsResponse{
		Stats:     stats,
		LastSweep: h.indexer.LastSweep(),
		Sweeping:  h.indexer.IsSweeping(),
	})
}

// TriggerReindex starts a sweep in the background.
func (h *Handlers) TriggerReindex(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsSweeping() || !h.indexer.TriggerAsync(indexer.TriggerManual) {
		writeJSONStatus(w, http.StatusOK, map[string]string{
			"status":  "already_running",
			"message": "A sweep is already in progress",
		})
		return
	}

	writeJSONStatus(w, http.StatusAccepted, map[string]string{
		"status":  "started",
		"message": "Sweep started",
	})
}
