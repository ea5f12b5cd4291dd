package prometheus

import (
	"strconv"
	"time"

	"github.com/marmos91/srvkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// adminMetrics is the Prometheus implementation of metrics.AdminMetrics.
type adminMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewAdminMetrics registers admin HTTP metrics on reg. Returns nil if reg is nil.
func NewAdminMetrics(reg prometheus.Registerer, namespace string) metrics.AdminMetrics {
	if reg == nil {
		return nil
	}

	return &adminMetrics{
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_requests_total",
				Help:      "Total admin HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "admin_request_duration_seconds",
				Help:      "Admin HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

func (m *adminMetrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// exportMetrics is the Prometheus implementation of metrics.ExportMetrics.
type exportMetrics struct {
	exports  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewExportMetrics registers snapshot export metrics on reg. Returns nil if reg is nil.
func NewExportMetrics(reg prometheus.Registerer, namespace string) metrics.ExportMetrics {
	if reg == nil {
		return nil
	}

	return &exportMetrics{
		exports: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stats_exports_total",
				Help:      "Final snapshot exports by target scheme and result",
			},
			[]string{"target", "result"},
		),
		duration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stats_export_duration_seconds",
				Help:      "Time spent writing the final snapshot",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

func (m *exportMetrics) ObserveExport(target string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(target, result).Inc()
	m.duration.Observe(duration.Seconds())
}
