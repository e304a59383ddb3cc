package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"media-converter/internal/logging"
	"media-converter/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// checkTimeout bounds the dependency checks made by the health endpoints.
const checkTimeout = 2 * time.Second

// HealthResponse contains the health check response
type HealthResponse struct {
	Status    string           `json:"status"`
	Ready     bool             `json:"ready"`
	Version   string           `json:"version"`
	Uptime    string           `json:"uptime"`
	Problems  []string         `json:"problems,omitempty"`
	Mappings  int              `json:"mappings"`
	Storage   map[string]int64 `json:"storage"`
	Languages []string         `json:"languages,omitempty"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// check runs every readiness check and returns a description of each
// failure. An empty result means the service can accept traffic.
func (h *Handlers) check(ctx context.Context) []string {
	var problems []string

	if err := h.storage.Writable(); err != nil {
		problems = append(problems, "storage: "+err.Error())
	}
	if _, err := h.registry.Count(ctx); err != nil {
		problems = append(problems, "mappings: "+err.Error())
	}
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			problems = append(problems, "database: "+err.Error())
		}
	}
	if h.opts.UnderPressure != nil && h.opts.UnderPressure() {
		problems = append(problems, "memory: usage above critical watermark")
	}
	return problems
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	problems := h.check(ctx)
	mappings, _ := h.registry.Count(ctx)

	response := HealthResponse{
		Status:       statusHealthy,
		Ready:        len(problems) == 0,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Problems:     problems,
		Mappings:     mappings,
		Storage:      h.storage.Usage(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	if h.transcription != nil {
		response.Languages = h.transcription.Languages().Codes()
	}

	w.Header().Set("Content-Type", "application/json")
	if len(problems) > 0 {
		response.Status = statusDegraded
		logging.Warn("Health check degraded: %v", problems)
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	writeJSON(w, response)
}

// LivenessCheck is a simple liveness check (always returns 200 if server is running)
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

// ReadinessCheck returns 200 only when storage, the mapping store and the
// database all respond.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if problems := h.check(ctx); len(problems) > 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, map[string]interface{}{
			"status":   "not_ready",
			"problems": problems,
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	writeJSON(w, map[string]string{
		"status": "ready",
	})
}
