package stats

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounter(t *testing.T) {
	r := NewInMemory(nil)

	c := r.Counter("requests")
	require.NoError(t, c.Incr(1))
	require.NoError(t, c.Incr(4))
	assert.Equal(t, int64(5), c.Value())

	assert.ErrorIs(t, c.Incr(-1), ErrNegativeDelta)
	assert.Equal(t, int64(5), c.Value(), "negative delta leaves value unchanged")

	assert.Same(t, c, r.Counter("requests"), "same name yields same counter")
	assert.Equal(t, int64(5), r.Snapshot().Counters["requests"])
}

func TestGauge(t *testing.T) {
	r := NewInMemory(nil)

	g := r.Gauge("queue_depth")
	g.Set(3)
	g.Add(1.5)
	g.Add(-0.5)
	assert.Equal(t, 4.0, g.Value())
	assert.Equal(t, 4.0, r.Snapshot().Gauges["queue_depth"])
}

func TestProvideGauge(t *testing.T) {
	r := NewInMemory(nil)

	v := 1.0
	r.ProvideGauge("computed", func() float64 { return v })
	v = 2.0
	assert.Equal(t, 2.0, r.Snapshot().Gauges["computed"])

	r.ProvideGauge("computed", func() float64 { return 99 })
	assert.Equal(t, 2.0, r.Snapshot().Gauges["computed"], "second provider ignored")

	r.Gauge("computed").Set(50)
	assert.Equal(t, 2.0, r.Snapshot().Gauges["computed"], "provided gauges ignore Set")

	r.ProvideGauge("panics", func() float64 { panic("boom") })
	assert.Equal(t, 0.0, r.Snapshot().Gauges["panics"])
}

func TestHistogram(t *testing.T) {
	r := NewInMemory(nil)

	h := r.Histogram("latency_ms")
	for i := 1; i <= 1000; i++ {
		h.Observe(float64(i))
	}

	s := h.Summary()
	assert.Equal(t, int64(1000), s.Count)
	assert.Equal(t, 500500.0, s.Sum)
	assert.Equal(t, 500.5, s.Avg)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 1000.0, s.Max)
	assert.InDelta(t, 500, s.P50, 50)
	assert.InDelta(t, 990, s.P99, 5)
	assert.LessOrEqual(t, s.P50, s.P90)
	assert.LessOrEqual(t, s.P90, s.P99)

	assert.Equal(t, HistogramSummary{}, r.Histogram("empty").Summary())
}

func TestScope(t *testing.T) {
	r := NewInMemory(nil)

	http := r.Scope("http")
	admin := http.Scope("admin")
	require.NoError(t, admin.Counter("requests").Incr(2))
	require.NoError(t, r.Counter("http/admin/requests").Incr(3))
	require.NoError(t, r.Counter("other").Incr(1))

	snap := r.Snapshot()
	assert.Equal(t, int64(5), snap.Counters["http/admin/requests"], "scopes share the store")

	scoped := http.Snapshot()
	assert.Contains(t, scoped.Counters, "http/admin/requests")
	assert.NotContains(t, scoped.Counters, "other")

	assert.Equal(t, "http/admin", admin.(*InMemory).Prefix())
	assert.Equal(t, "a/b", JoinName("/a/", "", "b"))
}

func TestKindConflictReturnsDetached(t *testing.T) {
	buf := new(bytes.Buffer)
	r := NewInMemory(slog.New(slog.NewTextHandler(buf, nil)))

	require.NoError(t, r.Counter("x").Incr(7))

	g := r.Gauge("x")
	g.Set(100)
	assert.Equal(t, 100.0, g.Value())

	snap := r.Snapshot()
	assert.Equal(t, int64(7), snap.Counters["x"])
	assert.NotContains(t, snap.Gauges, "x")
	assert.Contains(t, buf.String(), "kind conflict")
}

func TestConcurrentIncrements(t *testing.T) {
	r := NewInMemory(nil)

	const writers, perWriter = 16, 1000
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_ = r.Counter("hits").Incr(1)
				r.Histogram("lat").Observe(float64(j))
				r.Gauge("g").Add(1)
				if j%100 == 0 {
					_ = r.Snapshot()
				}
			}
		}()
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.Equal(t, int64(writers*perWriter), snap.Counters["hits"])
	assert.Equal(t, int64(writers*perWriter), snap.Histograms["lat"].Count)
	assert.Equal(t, float64(writers*perWriter), snap.Gauges["g"])
}

func TestSnapshotEntriesAndFlatten(t *testing.T) {
	r := NewInMemory(nil)
	require.NoError(t, r.Counter("b").Incr(2))
	r.Gauge("a").Set(1)
	r.Histogram("c").Observe(10)

	snap := r.Snapshot()
	entries := snap.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{entries[0].Name, entries[1].Name, entries[2].Name})
	assert.Equal(t, KindHistogram, entries[2].Kind)
	require.NotNil(t, entries[2].Histogram)

	flat := snap.Flatten()
	assert.Equal(t, 2.0, flat["b"])
	assert.Equal(t, 1.0, flat["c.count"])
	assert.Equal(t, 10.0, flat["c.p99"])
	assert.Equal(t, 10.0, flat["c.max"])
}

func TestDeltaTracker(t *testing.T) {
	r := NewInMemory(nil)
	d := NewDeltaTracker()
	c := r.Counter("requests")

	require.NoError(t, c.Incr(3))
	d.Sample(r.Snapshot())
	delta, ok := d.Delta("requests")
	require.True(t, ok)
	assert.Equal(t, int64(3), delta)

	require.NoError(t, c.Incr(4))
	d.Sample(r.Snapshot())
	delta, _ = d.Delta("requests")
	assert.Equal(t, int64(4), delta)

	d.Sample(r.Snapshot())
	assert.Equal(t, map[string]int64{"requests": 0}, d.Deltas())
	assert.False(t, d.LastSample().IsZero())

	_, ok = d.Delta("missing")
	assert.False(t, ok)
}

func TestProcessGauges(t *testing.T) {
	r := NewInMemory(nil)
	RegisterProcessGauges(r, time.Now().Add(-time.Second))

	g := r.Snapshot().Gauges
	assert.GreaterOrEqual(t, g["process/uptime_ms"], 1000.0)
	assert.Greater(t, g["process/goroutines"], 0.0)
	assert.Greater(t, g["process/mem/heap_alloc_bytes"], 0.0)
	assert.Contains(t, g, "process/gc/count")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "counter", KindCounter.String())
	assert.Equal(t, "histogram", KindHistogram.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestKindUnmarshalText(t *testing.T) {
	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("gauge")))
	assert.Equal(t, KindGauge, k)
	assert.Error(t, k.UnmarshalText([]byte("timer")))
}

func TestSnapshotSkipsNonFiniteGauges(t *testing.T) {
	r := NewInMemory(nil)
	r.Gauge("ok").Set(1)
	r.Gauge("nan").Set(math.NaN())
	r.ProvideGauge("inf", func() float64 { return math.Inf(1) })

	snap := r.Snapshot()
	assert.Contains(t, snap.Gauges, "ok")
	assert.NotContains(t, snap.Gauges, "nan")
	assert.NotContains(t, snap.Gauges, "inf")
}

func TestHistogramDropsNonFiniteObservations(t *testing.T) {
	r := NewInMemory(nil)
	h := r.Histogram("latency")
	h.Observe(5)
	h.Observe(math.Inf(1))
	h.Observe(math.Inf(-1))
	h.Observe(math.NaN())
	h.Observe(math.MaxFloat64)
	h.Observe(math.MaxFloat64)

	s := r.Snapshot().Histograms["latency"]
	assert.Equal(t, int64(2), s.Count, "the second MaxFloat64 would overflow the sum")
	assert.Equal(t, 5.0, s.Min)
	assert.Equal(t, math.MaxFloat64, s.Max)

	for name, v := range r.Snapshot().Flatten() {
		assert.False(t, math.IsInf(v, 0) || math.IsNaN(v), "%s = %v", name, v)
	}
	_, err := json.Marshal(r.Snapshot())
	require.NoError(t, err)
}

func TestHistogramBuckets(t *testing.T) {
	h := NewInMemory(nil).Histogram("sizes")
	for _, v := range []float64{0, 1, 1.1, 3, 100, -2} {
		h.Observe(v)
	}

	buckets := h.Summary().Buckets
	require.Len(t, buckets, 5)

	var total int64
	for i, b := range buckets {
		total += b.Count
		if i > 0 {
			assert.Less(t, buckets[i-1].LowerLimit, b.LowerLimit, "buckets ascend")
		}
	}
	assert.Equal(t, int64(6), total)

	assert.Equal(t, Bucket{LowerLimit: -2.25, UpperLimit: -2, Count: 1}, buckets[0])
	assert.Equal(t, Bucket{LowerLimit: 0, UpperLimit: 0, Count: 1}, buckets[1])
	assert.Equal(t, Bucket{LowerLimit: 1, UpperLimit: 1.125, Count: 2}, buckets[2])
	assert.Equal(t, Bucket{LowerLimit: 3, UpperLimit: 3.25, Count: 1}, buckets[3])
	assert.Equal(t, Bucket{LowerLimit: 96, UpperLimit: 104, Count: 1}, buckets[4])
}
