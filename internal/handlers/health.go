package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/config"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/media"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Database      bool `json:"database"`
	ObjectStore   bool `json:"objectStore"`
	VipsAvailable bool `json:"vipsAvailable"`

	TotalMedia int64 `json:"totalMedia,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbOK := h.db.Ping(r.Context()) == nil

	response := HealthResponse{
		Version:       config.Version,
		Uptime:        time.Since(h.started).Round(time.Second).String(),
		Database:      dbOK,
		ObjectStore:   h.store.PresignEnabled(),
		VipsAvailable: media.IsVipsAvailable(),
		GoVersion:     runtime.Version(),
		NumCPU:        runtime.NumCPU(),
		NumGoroutine:  runtime.NumGoroutine(),
	}

	status := http.StatusOK
	if dbOK {
		response.Status = statusHealthy
		if count, err := h.db.CountMedia(r.Context()); err == nil {
			response.TotalMedia = count
		}
	} else {
		response.Status = statusDegraded
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, response)
}

// Livez reports process liveness.
func (h *Handlers) Livez(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, "alive")
}

// Readyz reports whether the service can take traffic.
func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	writeStatus(w, http.StatusOK, "ready")
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"status": status})
}
