package handlers

import (
	"net/http"
	"slices"
	"time"

	"github.com/marmos91/srvkit/pkg/stats"
)

// Snapshotter produces stats snapshots.
type Snapshotter interface {
	Snapshot() stats.Snapshot
}

// DeltaSource reports counter movement over the last sampling interval.
type DeltaSource interface {
	Deltas() map[string]int64
	LastSample() time.Time
}

// MetricEntry is one line of GET /admin/metrics.
type MetricEntry struct {
	stats.Entry
	Delta *int64 `json:"delta,omitempty"`
}

// MetricsReport is the payload of GET /admin/metrics.
type MetricsReport struct {
	Taken       time.Time     `json:"taken"`
	DeltaSample time.Time     `json:"delta_sample,omitzero"`
	Metrics     []MetricEntry `json:"metrics"`
}

// MetricsHandler serves the metric read endpoints.
type MetricsHandler struct {
	stats  Snapshotter
	deltas DeltaSource
}

// NewMetricsHandler creates a metrics handler. deltas may be nil.
func NewMetricsHandler(s Snapshotter, deltas DeltaSource) *MetricsHandler {
	return &MetricsHandler{stats: s, deltas: deltas}
}

// List serves GET /admin/metrics: every metric sorted by name, counters with
// their last delta. Repeated ?m=name or ?metric=name parameters restrict the
// output.
func (h *MetricsHandler) List(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	q := r.URL.Query()
	wanted := slices.Concat(q["m"], q["metric"])

	var deltas map[string]int64
	report := MetricsReport{Taken: snap.Taken, Metrics: []MetricEntry{}}
	if h.deltas != nil {
		deltas = h.deltas.Deltas()
		report.DeltaSample = h.deltas.LastSample()
	}

	for _, e := range snap.Entries() {
		if len(wanted) > 0 && !slices.Contains(wanted, e.Name) {
			continue
		}
		me := MetricEntry{Entry: e}
		if d, ok := deltas[e.Name]; ok && e.Kind == stats.KindCounter {
			me.Delta = &d
		}
		report.Metrics = append(report.Metrics, me)
	}

	writeJSON(w, http.StatusOK, okResponse(report), isPretty(r))
}

// JSON serves GET /admin/metrics.json: a flat name to value map with
// histograms expanded into name.count, name.p99 and so on.
func (h *MetricsHandler) JSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.Snapshot().Flatten(), isPretty(r))
}

// Histogram distribution formats accepted by ?fmt=.
const (
	FormatPDF = "pdf"
	FormatCDF = "cdf"
)

// BucketShare is one point of a histogram distribution: the fraction of
// observations in a bucket (pdf) or in it and every bucket below (cdf).
type BucketShare struct {
	LowerLimit float64 `json:"lower_limit"`
	UpperLimit float64 `json:"upper_limit"`
	Percentage float64 `json:"percentage"`
}

// Histograms serves GET /admin/histograms.json. Repeated ?h=name parameters
// select histograms; an unknown name answers 404. With ?fmt=pdf or ?fmt=cdf
// each histogram is rendered as its bucket distribution instead of a summary.
func (h *MetricsHandler) Histograms(w http.ResponseWriter, r *http.Request) {
	snap := h.stats.Snapshot()
	q := r.URL.Query()

	format := q.Get("fmt")
	if format != "" && format != FormatPDF && format != FormatCDF {
		BadRequest(w, "unknown histogram format: "+format)
		return
	}

	selected := snap.Histograms
	if wanted := q["h"]; len(wanted) > 0 {
		selected = make(map[string]stats.HistogramSummary, len(wanted))
		for _, name := range wanted {
			s, ok := snap.Histograms[name]
			if !ok {
				NotFound(w, "histogram not found: "+name)
				return
			}
			selected[name] = s
		}
	}

	if format == "" {
		writeJSON(w, http.StatusOK, selected, isPretty(r))
		return
	}
	out := make(map[string][]BucketShare, len(selected))
	for name, s := range selected {
		out[name] = Distribution(s, format == FormatCDF)
	}
	writeJSON(w, http.StatusOK, out, isPretty(r))
}

// Distribution converts the buckets of s into fractions of its count,
// cumulative when cumulative is set.
func Distribution(s stats.HistogramSummary, cumulative bool) []BucketShare {
	out := make([]BucketShare, 0, len(s.Buckets))
	if s.Count == 0 {
		return out
	}
	var seen int64
	for _, b := range s.Buckets {
		n := b.Count
		if cumulative {
			seen += b.Count
			n = seen
		}
		out = append(out, BucketShare{
			LowerLimit: b.LowerLimit,
			UpperLimit: b.UpperLimit,
			Percentage: float64(n) / float64(s.Count),
		})
	}
	return out
}
