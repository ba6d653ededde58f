package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "bad_request", "upstream_error"} {
		InfoRequestsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"info", "download"} {
		UpstreamFetchDuration.WithLabelValues(op)
	}

	for _, source := range []string{"env", "file"} {
		for _, status := range []string{"loaded", "error"} {
			CredentialLoadsTotal.WithLabelValues(source, status)
		}
	}
	CredentialLoadsTotal.WithLabelValues("none", "absent")

	for _, mode := range []string{"direct", "remux"} {
		for _, status := range []string{"success", "not_found", "bad_request", "upstream_error", "stream_error"} {
			DownloadsTotal.WithLabelValues(mode, status)
		}
		BytesStreamedTotal.WithLabelValues(mode)
	}

	for _, status := range []string{"success", "error", "client_gone"} {
		RemuxJobsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"success", "failure"} {
		AuthAttemptsTotal.WithLabelValues(status)
	}

	for _, status := range []string{"invalid", "cache_hit", "generated", "error"} {
		ThumbnailRequestsTotal.WithLabelValues(status)
	}
}
