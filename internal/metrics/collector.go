package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// RemuxStats reports live remux activity.
type RemuxStats interface {
	ActiveJobs() int
	MaxJobs() int
}

// RemuxCollector exports remux activity, read from the remuxer on every
// scrape.
type RemuxCollector struct {
	stats  RemuxStats
	active *prometheus.Desc
	slots  *prometheus.Desc
}

// NewRemuxCollector returns a collector reading from stats.
func NewRemuxCollector(stats RemuxStats) *RemuxCollector {
	return &RemuxCollector{
		stats: stats,
		active: prometheus.NewDesc(
			"tubegate_remux_jobs_active",
			"Number of ffmpeg remux processes currently running",
			nil, nil,
		),
		slots: prometheus.NewDesc(
			"tubegate_remux_job_slots",
			"Maximum number of concurrent remux processes",
			nil, nil,
		),
	}
}

// RegisterRemux registers a RemuxCollector for stats with the default
// registry.
func RegisterRemux(stats RemuxStats) {
	prometheus.MustRegister(NewRemuxCollector(stats))
}

// Describe implements prometheus.Collector.
func (c *RemuxCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.active
	ch <- c.slots
}

// Collect implements prometheus.Collector. An unlimited pool reports no
// slots sample.
func (c *RemuxCollector) Collect(ch chan<- prometheus.Metric) {
	if c.stats == nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.active, prometheus.GaugeValue, float64(c.stats.ActiveJobs()))
	if slots := c.stats.MaxJobs(); slots > 0 {
		ch <- prometheus.MustNewConstMetric(c.slots, prometheus.GaugeValue, float64(slots))
	}
}
