// Package prometheus implements the metrics interfaces on client_golang and
// exposes the stats receiver to Prometheus scrapes.
package prometheus

import (
	"strings"
	"unicode"

	"github.com/marmos91/srvkit/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// StatsCollector turns each stats snapshot into constant Prometheus metrics.
// Counters become counters, gauges become gauges, and histograms become
// summaries carrying the receiver's quantiles.
type StatsCollector struct {
	namespace string
	snapshot  func() stats.Snapshot
}

var _ prometheus.Collector = (*StatsCollector)(nil)

// NewStatsCollector creates a collector reading snapshots from snapshot.
func NewStatsCollector(namespace string, snapshot func() stats.Snapshot) *StatsCollector {
	return &StatsCollector{namespace: namespace, snapshot: snapshot}
}

// Describe sends nothing: the metric set changes as names are registered,
// which makes this an unchecked collector.
func (c *StatsCollector) Describe(chan<- *prometheus.Desc) {}

// Collect emits one metric per stat.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	for name, v := range snap.Counters {
		desc := prometheus.NewDesc(c.metricName(name, "_total"), "Counter "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v))
	}
	for name, v := range snap.Gauges {
		desc := prometheus.NewDesc(c.metricName(name, ""), "Gauge "+name, nil, nil)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	for name, h := range snap.Histograms {
		desc := prometheus.NewDesc(c.metricName(name, ""), "Histogram "+name, nil, nil)
		ch <- prometheus.MustNewConstSummary(desc, uint64(h.Count), h.Sum, map[float64]float64{
			0.5:    h.P50,
			0.9:    h.P90,
			0.95:   h.P95,
			0.99:   h.P99,
			0.999:  h.P999,
			0.9999: h.P9999,
		})
	}
}

// metricName maps "http/admin/requests" to "<namespace>_http_admin_requests".
func (c *StatsCollector) metricName(name, suffix string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return r
		}
		return '_'
	}, name)
	if sanitized != "" && unicode.IsDigit(rune(sanitized[0])) {
		sanitized = "_" + sanitized
	}
	if suffix != "" && !strings.HasSuffix(sanitized, suffix) {
		sanitized += suffix
	}
	return prometheus.BuildFQName(c.namespace, "", sanitized)
}
