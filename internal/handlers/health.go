package handlers

import (
	"net/http"
	"runtime"
	"time"

	"tubegate/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	Remux RemuxHealth `json:"remux"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// RemuxHealth reports the ffmpeg side of the service.
type RemuxHealth struct {
	FFmpegAvailable bool `json:"ffmpegAvailable"`
	ActiveJobs      int  `json:"activeJobs"`
	MaxJobs         int  `json:"maxJobs,omitempty"`
}

// probeStatus is the body of the liveness and readiness probes.
type probeStatus struct {
	Status string `json:"status"`
}

// HealthCheck reports service status. A missing ffmpeg only degrades it since
// direct downloads still work; 503 is reserved for a server that is shutting
// down.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()
	resp := HealthResponse{
		Status:       statusHealthy,
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Remux:        RemuxHealth{FFmpegAvailable: h.ffmpegAvailable},
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.remuxer != nil {
		resp.Remux.ActiveJobs = h.remuxer.ActiveJobs()
		resp.Remux.MaxJobs = h.remuxer.MaxJobs()
	}
	if !h.ffmpegAvailable {
		resp.Status = statusDegraded
	}

	respond(w, r, readyStatus(ready), resp)
}

// LivenessCheck answers 200 while the process can serve HTTP at all.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, probeStatus{Status: "alive"})
}

// ReadinessCheck answers 200 until shutdown begins.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if h.ready.Load() {
		respond(w, r, http.StatusOK, probeStatus{Status: "ready"})
		return
	}
	respond(w, r, http.StatusServiceUnavailable, probeStatus{Status: "not_ready"})
}

func readyStatus(ready bool) int {
	if ready {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}
