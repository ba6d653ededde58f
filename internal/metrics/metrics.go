package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubegate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300, 900},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tubegate_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Upstream resolution metrics
var (
	InfoRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_info_requests_total",
			Help: "Total number of video info resolutions by outcome",
		},
		[]string{"status"}, // "success", "bad_request", "upstream_error"
	)

	UpstreamFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tubegate_upstream_fetch_duration_seconds",
			Help:    "Duration of upstream metadata fetches in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"}, // "info", "download"
	)

	CredentialLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_credential_loads_total",
			Help: "Total number of credential resolutions by source and outcome",
		},
		[]string{"source", "status"}, // status: "loaded", "error", "absent"
	)
)

// Download metrics
var (
	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_downloads_total",
			Help: "Total number of download requests by mode and outcome",
		},
		[]string{"mode", "status"}, // mode: "direct", "remux"
	)

	BytesStreamedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_bytes_streamed_total",
			Help: "Total number of bytes streamed to clients",
		},
		[]string{"mode"},
	)
)

// Remux metrics
var (
	RemuxJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_remux_jobs_total",
			Help: "Total number of remux jobs",
		},
		[]string{"status"}, // "success", "error", "client_gone"
	)

	RemuxJobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tubegate_remux_job_duration_seconds",
			Help:    "Remux job duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		},
	)
)

// Authentication metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"status"},
	)
)

// Thumbnail proxy metrics
var (
	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tubegate_thumbnail_requests_total",
			Help: "Total number of thumbnail proxy requests",
		},
		[]string{"status"},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tubegate_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
