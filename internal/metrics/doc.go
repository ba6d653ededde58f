// Package metrics provides Prometheus instrumentation for tubegate.
//
// All metrics are prefixed with "tubegate_" and registered with the default
// registry through promauto.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal: Counter of total requests by method, path, and status
//   - HTTPRequestDuration: Histogram of request duration by method and path
//   - HTTPRequestsInFlight: Gauge of currently processing requests
//
// ## Upstream Metrics
//   - InfoRequestsTotal: Counter of info resolutions by outcome
//   - UpstreamFetchDuration: Histogram of metadata fetch latency
//   - CredentialLoadsTotal: Counter of credential resolutions by source and outcome
//
// ## Download and Remux Metrics
//   - DownloadsTotal: Counter by mode (direct/remux) and status
//   - BytesStreamedTotal: Counter of body bytes sent to clients by mode
//   - RemuxJobsTotal, RemuxJobDuration
//   - tubegate_remux_jobs_active, tubegate_remux_job_slots: read at scrape
//     time by [RemuxCollector]
//
// ## Other
//   - AuthAttemptsTotal: Counter of login attempts by status
//   - ThumbnailRequestsTotal: Counter of thumbnail proxy requests by status
//   - AppInfo: build information
//
// # Usage
//
// Register the remux collector once the remuxer exists, then serve the
// default registry on the metrics port:
//
//	metrics.RegisterRemux(remuxer)
//	mux.Handle("/metrics", promhttp.Handler())
//
// Go runtime figures (heap, goroutines) come from the default registry's Go
// collector.
//
// Example PromQL for remux failure rate:
//
//	sum(rate(tubegate_remux_jobs_total{status="error"}[5m])) / sum(rate(tubegate_remux_jobs_total[5m]))
package metrics
