// Package stats provides a concurrent in-memory statistics receiver.
//
// Metrics are addressed by "/"-joined names. A scoped receiver is a prefixed
// view over the same store, so metrics recorded through any scope show up in
// every snapshot of the root. Counters only go up, gauges hold the last value
// set, and histograms keep a streaming quantile summary.
package stats

import (
	"errors"
	"fmt"
	"strings"
)

// Separator joins scope prefixes and metric names.
const Separator = "/"

// ErrNegativeDelta is returned by Counter.Incr when asked to decrease.
var ErrNegativeDelta = errors.New("stats: counter delta must not be negative")

// Kind identifies the type of a metric.
type Kind int

const (
	KindCounter Kind = iota + 1
	KindGauge
	KindHistogram
)

func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "unknown"
	}
}

// MarshalText renders the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText parses a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for _, c := range []Kind{KindCounter, KindGauge, KindHistogram} {
		if c.String() == string(text) {
			*k = c
			return nil
		}
	}
	return fmt.Errorf("stats: unknown metric kind %q", text)
}

// Counter is a monotonically increasing count.
type Counter interface {
	// Incr adds delta. A negative delta returns ErrNegativeDelta and changes nothing.
	Incr(delta int64) error
	Value() int64
}

// Gauge is an instantaneous value.
type Gauge interface {
	Set(v float64)
	Add(delta float64)
	Value() float64
}

// Histogram records a distribution of observations.
type Histogram interface {
	Observe(v float64)
	Summary() HistogramSummary
}

// Receiver creates and looks up metrics. Implementations are safe for concurrent use.
type Receiver interface {
	Counter(name string) Counter
	Gauge(name string) Gauge
	Histogram(name string) Histogram

	// ProvideGauge registers a gauge whose value is computed by fn at snapshot time.
	ProvideGauge(name string, fn func() float64)

	// Scope returns a receiver that prefixes every name with prefix.
	Scope(prefix string) Receiver

	// Snapshot returns the current value of every metric. Each metric is read
	// atomically; the snapshot as a whole is not.
	Snapshot() Snapshot
}

// JoinName joins name parts with Separator, skipping empty parts.
func JoinName(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		p = strings.Trim(p, Separator)
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, Separator)
}
