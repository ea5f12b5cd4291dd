package prometheus

import (
	"time"

	"github.com/marmos91/srvkit/pkg/lifecycle"
	"github.com/marmos91/srvkit/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// lifecycleMetrics is the Prometheus implementation of metrics.LifecycleMetrics.
type lifecycleMetrics struct {
	phaseDuration    *prometheus.HistogramVec
	phaseFailures    *prometheus.CounterVec
	currentPhase     *prometheus.GaugeVec
	shutdownRequests *prometheus.CounterVec
}

// NewLifecycleMetrics registers lifecycle metrics on reg.
//
// Returns nil if reg is nil so callers get zero overhead.
func NewLifecycleMetrics(reg prometheus.Registerer, namespace string) metrics.LifecycleMetrics {
	if reg == nil {
		return nil
	}

	m := &lifecycleMetrics{
		phaseDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "lifecycle_phase_duration_seconds",
				Help:      "Duration of each lifecycle phase in seconds",
				Buckets: []float64{
					0.001, // 1ms - empty phases
					0.01,  // 10ms
					0.1,   // 100ms
					1,     // 1s - typical startup work
					10,    // 10s
					60,    // 1m
					600,   // 10m
					3600,  // 1h - long-running main
					86400, // 1d
				},
			},
			[]string{"phase"},
		),
		phaseFailures: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_phase_failures_total",
				Help:      "Total number of failed lifecycle hooks by phase",
			},
			[]string{"phase"},
		),
		currentPhase: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "lifecycle_phase",
				Help:      "1 for the phase currently executing, 0 otherwise",
			},
			[]string{"phase"},
		),
		shutdownRequests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "shutdown_requests_total",
				Help:      "Effective shutdown requests by source",
			},
			[]string{"source"},
		),
	}

	for _, p := range lifecycle.Phases {
		m.currentPhase.WithLabelValues(p.String()).Set(0)
	}
	return m
}

func (m *lifecycleMetrics) ObservePhase(phase string, duration time.Duration, failed bool) {
	m.phaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
	if failed {
		m.phaseFailures.WithLabelValues(phase).Inc()
	}
}

func (m *lifecycleMetrics) SetPhase(phase string) {
	for _, p := range lifecycle.Phases {
		v := 0.0
		if p.String() == phase {
			v = 1
		}
		m.currentPhase.WithLabelValues(p.String()).Set(v)
	}
}

func (m *lifecycleMetrics) ObserveShutdownRequest(source string) {
	m.shutdownRequests.WithLabelValues(source).Inc()
}
