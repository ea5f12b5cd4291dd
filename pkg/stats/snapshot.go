package stats

import (
	"fmt"
	"slices"
	"time"
)

// Snapshot is a point-in-time copy of every metric in a receiver.
type Snapshot struct {
	Taken      time.Time                   `json:"taken"`
	Counters   map[string]int64            `json:"counters"`
	Gauges     map[string]float64          `json:"gauges"`
	Histograms map[string]HistogramSummary `json:"histograms"`
}

func newSnapshot(t time.Time) Snapshot {
	return Snapshot{
		Taken:      t,
		Counters:   make(map[string]int64),
		Gauges:     make(map[string]float64),
		Histograms: make(map[string]HistogramSummary),
	}
}

// Entry is one metric in a Snapshot, for ordered listings.
type Entry struct {
	Name      string            `json:"name"`
	Kind      Kind              `json:"kind"`
	Value     float64           `json:"value"`
	Histogram *HistogramSummary `json:"histogram,omitempty"`
}

// Entries lists every metric sorted by name. Histograms report their count as Value.
func (s Snapshot) Entries() []Entry {
	entries := make([]Entry, 0, len(s.Counters)+len(s.Gauges)+len(s.Histograms))
	for name, v := range s.Counters {
		entries = append(entries, Entry{Name: name, Kind: KindCounter, Value: float64(v)})
	}
	for name, v := range s.Gauges {
		entries = append(entries, Entry{Name: name, Kind: KindGauge, Value: v})
	}
	for name, h := range s.Histograms {
		h := h
		entries = append(entries, Entry{Name: name, Kind: KindHistogram, Value: float64(h.Count), Histogram: &h})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		default:
			return 0
		}
	})
	return entries
}

// Flatten renders the snapshot as a single name to value map. Histograms
// expand into name.count, name.sum, name.avg, name.min, name.max and one
// name.pNN key per quantile.
func (s Snapshot) Flatten() map[string]float64 {
	out := make(map[string]float64, len(s.Counters)+len(s.Gauges)+len(s.Histograms)*11)
	for name, v := range s.Counters {
		out[name] = float64(v)
	}
	for name, v := range s.Gauges {
		out[name] = v
	}
	for name, h := range s.Histograms {
		for suffix, v := range h.fields() {
			out[fmt.Sprintf("%s.%s", name, suffix)] = v
		}
	}
	return out
}

func (h HistogramSummary) fields() map[string]float64 {
	return map[string]float64{
		"count": float64(h.Count),
		"sum":   h.Sum,
		"avg":   h.Avg,
		"min":   h.Min,
		"max":   h.Max,
		"p50":   h.P50,
		"p90":   h.P90,
		"p95":   h.P95,
		"p99":   h.P99,
		"p9990": h.P999,
		"p9999": h.P9999,
	}
}
