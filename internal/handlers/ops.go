package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tubegate/internal/logging"
	"tubegate/internal/startup"
)

// VersionResponse is the build information plus what the server can do with
// it.
type VersionResponse struct {
	startup.BuildInfo
	Remux RemuxFeature `json:"remux"`
}

// RemuxFeature reports whether video-only formats can be downloaded.
type RemuxFeature struct {
	Available bool   `json:"available"`
	InputMode string `json:"inputMode,omitempty"`
}

// GetVersion returns the application version and build information
func (h *Handlers) GetVersion(w http.ResponseWriter, r *http.Request) {
	resp := VersionResponse{
		BuildInfo: startup.GetBuildInfo(),
		Remux:     RemuxFeature{Available: h.ffmpegAvailable && h.remuxer != nil},
	}
	if h.remuxer != nil {
		resp.Remux.InputMode = string(h.remuxer.Mode())
	}

	w.Header().Set("Cache-Control", "no-cache")
	respond(w, r, http.StatusOK, resp)
}

// MetricsHandler serves the default registry, negotiating OpenMetrics when the
// scraper asks for it. Gather errors are logged and the remaining metrics are
// still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			ErrorLog:          promErrorLog{},
			ErrorHandling:     promhttp.ContinueOnError,
			EnableOpenMetrics: true,
		}),
	)
}

// promErrorLog adapts the logging package to promhttp.Logger.
type promErrorLog struct{}

func (promErrorLog) Println(v ...interface{}) {
	logging.Println(append([]interface{}{"metrics:"}, v...)...)
}
