package stats

import (
	"cmp"
	"math"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/beorn7/perks/quantile"
)

type counter struct {
	v atomic.Int64
}

func (c *counter) Incr(delta int64) error {
	if delta < 0 {
		return ErrNegativeDelta
	}
	c.v.Add(delta)
	return nil
}

func (c *counter) Value() int64 { return c.v.Load() }

type gauge struct {
	bits atomic.Uint64
	fn   func() float64 // set for provided gauges
}

func (g *gauge) Set(v float64) {
	if g.fn != nil {
		return
	}
	g.bits.Store(math.Float64bits(v))
}

func (g *gauge) Add(delta float64) {
	if g.fn != nil {
		return
	}
	for {
		old := g.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if g.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

func (g *gauge) Value() float64 {
	if g.fn != nil {
		return g.fn()
	}
	return math.Float64frombits(g.bits.Load())
}

// Quantiles reported for every histogram, with their allowed rank error.
var Quantiles = map[float64]float64{
	0.5:    0.05,
	0.9:    0.01,
	0.95:   0.005,
	0.99:   0.001,
	0.999:  0.0001,
	0.9999: 0.00001,
}

// HistogramSummary is a point-in-time view of a histogram.
type HistogramSummary struct {
	Count int64   `json:"count"`
	Sum   float64 `json:"sum"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	P50   float64 `json:"p50"`
	P90   float64 `json:"p90"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	P999  float64 `json:"p9990"`
	P9999 float64 `json:"p9999"`

	// Buckets holds the non-empty buckets in ascending order. It is served by
	// the histogram distribution endpoint and left out of snapshot encodings.
	Buckets []Bucket `json:"-"`
}

// Bucket counts the observations between LowerLimit and UpperLimit. A bucket
// includes the limit closest to zero. The zero bucket has both limits at 0.
type Bucket struct {
	LowerLimit float64 `json:"lower_limit"`
	UpperLimit float64 `json:"upper_limit"`
	Count      int64   `json:"count"`
}

// bucketsPerOctave splits every power of two into equal-width buckets, which
// bounds the relative bucket width to 1/8.
const bucketsPerOctave = 8

// bucketKey identifies a bucket by the sign, binary exponent and sub-bucket
// of its values. The zero value is the zero bucket.
type bucketKey struct {
	sign int8
	exp  int16
	sub  int8
}

func bucketOf(v float64) bucketKey {
	if v == 0 {
		return bucketKey{}
	}
	sign := int8(1)
	if v < 0 {
		sign, v = -1, -v
	}
	frac, exp := math.Frexp(v)
	sub := int8((frac*2 - 1) * bucketsPerOctave)
	return bucketKey{sign: sign, exp: int16(exp), sub: sub}
}

// limits returns the half-open range covered by k.
func (k bucketKey) limits() (lower, upper float64) {
	if k.sign == 0 {
		return 0, 0
	}
	lo := math.Ldexp(1+float64(k.sub)/bucketsPerOctave, int(k.exp)-1)
	hi := math.Ldexp(1+float64(k.sub+1)/bucketsPerOctave, int(k.exp)-1)
	if k.sign < 0 {
		return -hi, -lo
	}
	return lo, hi
}

type histogram struct {
	mu     sync.Mutex
	stream *quantile.Stream
	count  int64
	sum    float64
	min    float64
	max    float64
	counts map[bucketKey]int64
}

func newHistogram() *histogram {
	return &histogram{
		stream: quantile.NewTargeted(Quantiles),
		counts: make(map[bucketKey]int64),
	}
}

// Observe records v. Non-finite values, and values that would overflow the
// running sum, are dropped so summaries always encode as JSON.
func (h *histogram) Observe(v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if math.IsInf(h.sum+v, 0) {
		return
	}

	if h.count == 0 || v < h.min {
		h.min = v
	}
	if h.count == 0 || v > h.max {
		h.max = v
	}
	h.count++
	h.sum += v
	h.stream.Insert(v)
	h.counts[bucketOf(v)]++
}

func (h *histogram) Summary() HistogramSummary {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return HistogramSummary{}
	}
	return HistogramSummary{
		Count:   h.count,
		Sum:     h.sum,
		Avg:     h.sum / float64(h.count),
		Min:     h.min,
		Max:     h.max,
		P50:     h.stream.Query(0.5),
		P90:     h.stream.Query(0.9),
		P95:     h.stream.Query(0.95),
		P99:     h.stream.Query(0.99),
		P999:    h.stream.Query(0.999),
		P9999:   h.stream.Query(0.9999),
		Buckets: h.buckets(),
	}
}

func (h *histogram) buckets() []Bucket {
	out := make([]Bucket, 0, len(h.counts))
	for k, n := range h.counts {
		lo, hi := k.limits()
		out = append(out, Bucket{LowerLimit: lo, UpperLimit: hi, Count: n})
	}
	slices.SortFunc(out, func(a, b Bucket) int { return cmp.Compare(a.LowerLimit, b.LowerLimit) })
	return out
}
