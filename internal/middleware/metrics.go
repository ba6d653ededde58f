package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"tubegate/internal/metrics"
)

// otherRoute labels every path outside the known route set.
const otherRoute = "other"

// MetricsConfig holds configuration for the metrics middleware
type MetricsConfig struct {
	// SkipPaths are path prefixes that should not be recorded
	SkipPaths []string
	// Routes are recorded under their own path label.
	Routes []string
	// Prefixes collapse every path below them into one "<prefix>*" label.
	Prefixes []string
}

// DefaultMetricsConfig returns the default metrics configuration
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		SkipPaths: []string{"/metrics", "/healthz", "/livez", "/readyz"},
		Routes:    []string{"/", "/login", "/auth", "/logout", "/info", "/download", "/thumbnail", "/version"},
		Prefixes:  []string{"/static/"},
	}
}

// routeLabel bounds the path label cardinality; scans of arbitrary paths all
// land in otherRoute.
func (c MetricsConfig) routeLabel(path string) string {
	for _, prefix := range c.Prefixes {
		if strings.HasPrefix(path, prefix) {
			return prefix + "*"
		}
	}
	if slices.Contains(c.Routes, path) {
		return path
	}
	return otherRoute
}

// Metrics returns a middleware that records Prometheus metrics
func Metrics(config MetricsConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range config.SkipPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			sw := recordStatus(w)
			start := time.Now()

			next.ServeHTTP(sw, r)

			route := config.routeLabel(r.URL.Path)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}
