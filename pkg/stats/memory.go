package stats

import (
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/marmos91/srvkit/internal/logger"
)

type metric struct {
	kind      Kind
	counter   *counter
	gauge     *gauge
	histogram *histogram
}

// store is the backing map shared by a root receiver and all its scopes.
type store struct {
	mu      sync.RWMutex
	metrics map[string]*metric
	logger  *slog.Logger
}

// InMemory is the default Receiver. The zero value is not usable; use NewInMemory.
type InMemory struct {
	store  *store
	prefix string
}

var _ Receiver = (*InMemory)(nil)

// NewInMemory creates an empty root receiver. Kind conflicts are logged to logger.
func NewInMemory(logger *slog.Logger) *InMemory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &InMemory{
		store: &store{
			metrics: make(map[string]*metric),
			logger:  logger,
		},
	}
}

// Prefix returns the scope prefix of this receiver ("" for the root).
func (r *InMemory) Prefix() string { return r.prefix }

// Scope returns a view that prefixes names with prefix. Scopes nest.
func (r *InMemory) Scope(prefix string) Receiver {
	return &InMemory{store: r.store, prefix: JoinName(r.prefix, prefix)}
}

// Counter returns the counter named name, creating it at zero if needed.
func (r *InMemory) Counter(name string) Counter {
	m := r.getOrCreate(JoinName(r.prefix, name), KindCounter)
	if m == nil {
		return &counter{}
	}
	return m.counter
}

// Gauge returns the gauge named name, creating it at zero if needed.
func (r *InMemory) Gauge(name string) Gauge {
	m := r.getOrCreate(JoinName(r.prefix, name), KindGauge)
	if m == nil {
		return &gauge{}
	}
	return m.gauge
}

// Histogram returns the histogram named name, creating it empty if needed.
func (r *InMemory) Histogram(name string) Histogram {
	m := r.getOrCreate(JoinName(r.prefix, name), KindHistogram)
	if m == nil {
		return newHistogram()
	}
	return m.histogram
}

// ProvideGauge registers a computed gauge. A second registration under the same
// name is ignored with a warning.
func (r *InMemory) ProvideGauge(name string, fn func() float64) {
	full := JoinName(r.prefix, name)

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, exists := r.store.metrics[full]; exists {
		r.store.logger.Warn("Gauge already registered, ignoring provider", logger.Metric(full))
		return
	}
	r.store.metrics[full] = &metric{kind: KindGauge, gauge: &gauge{fn: fn}}
}

// getOrCreate returns the metric under name, or nil if it exists with another
// kind. Callers hand out a detached metric in that case so writes are dropped
// rather than corrupting the existing one.
func (r *InMemory) getOrCreate(name string, kind Kind) *metric {
	r.store.mu.RLock()
	m, ok := r.store.metrics[name]
	r.store.mu.RUnlock()

	if !ok {
		r.store.mu.Lock()
		m, ok = r.store.metrics[name]
		if !ok {
			m = &metric{kind: kind}
			switch kind {
			case KindCounter:
				m.counter = &counter{}
			case KindGauge:
				m.gauge = &gauge{}
			case KindHistogram:
				m.histogram = newHistogram()
			}
			r.store.metrics[name] = m
		}
		r.store.mu.Unlock()
	}

	if m.kind != kind {
		r.store.logger.Warn("Metric kind conflict, returning detached metric",
			logger.Metric(name),
			"registered_kind", m.kind.String(),
			"requested_kind", kind.String())
		return nil
	}
	return m
}

// Snapshot reads every metric under this receiver's scope. Names in the
// snapshot are fully qualified. Gauges holding NaN or an infinity are left
// out so a snapshot always encodes as JSON.
func (r *InMemory) Snapshot() Snapshot {
	r.store.mu.RLock()
	entries := make(map[string]*metric, len(r.store.metrics))
	for name, m := range r.store.metrics {
		if r.inScope(name) {
			entries[name] = m
		}
	}
	r.store.mu.RUnlock()

	snap := newSnapshot(time.Now())
	for name, m := range entries {
		switch m.kind {
		case KindCounter:
			snap.Counters[name] = m.counter.Value()
		case KindGauge:
			if v := safeGaugeValue(m.gauge); !math.IsNaN(v) && !math.IsInf(v, 0) {
				snap.Gauges[name] = v
			}
		case KindHistogram:
			snap.Histograms[name] = m.histogram.Summary()
		}
	}
	return snap
}

func (r *InMemory) inScope(name string) bool {
	if r.prefix == "" {
		return true
	}
	return name == r.prefix || strings.HasPrefix(name, r.prefix+Separator)
}

// Names returns every metric name under this receiver's scope, sorted.
func (r *InMemory) Names() []string {
	r.store.mu.RLock()
	names := make([]string, 0, len(r.store.metrics))
	for name := range r.store.metrics {
		if r.inScope(name) {
			names = append(names, name)
		}
	}
	r.store.mu.RUnlock()

	slices.Sort(names)
	return names
}

// safeGaugeValue shields snapshots from a panicking provider.
func safeGaugeValue(g *gauge) (v float64) {
	defer func() {
		if recover() != nil {
			v = 0
		}
	}()
	return g.Value()
}
