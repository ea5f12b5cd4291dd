package stats

import (
	"runtime"
	"sync"
	"time"
)

// memStatsCache avoids stopping the world once per gauge when a snapshot reads
// several memory gauges back to back.
type memStatsCache struct {
	mu   sync.Mutex
	at   time.Time
	ttl  time.Duration
	stat runtime.MemStats
}

func (c *memStatsCache) get() runtime.MemStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if time.Since(c.at) > c.ttl {
		runtime.ReadMemStats(&c.stat)
		c.at = time.Now()
	}
	return c.stat
}

// RegisterProcessGauges publishes process-level gauges under "process/" on r.
func RegisterProcessGauges(r Receiver, start time.Time) {
	scope := r.Scope("process")
	mem := &memStatsCache{ttl: time.Second}

	scope.ProvideGauge("uptime_ms", func() float64 {
		return float64(time.Since(start).Milliseconds())
	})
	scope.ProvideGauge("goroutines", func() float64 {
		return float64(runtime.NumGoroutine())
	})
	scope.ProvideGauge("mem/heap_alloc_bytes", func() float64 {
		m := mem.get()
		return float64(m.HeapAlloc)
	})
	scope.ProvideGauge("mem/sys_bytes", func() float64 {
		m := mem.get()
		return float64(m.Sys)
	})
	scope.ProvideGauge("gc/count", func() float64 {
		m := mem.get()
		return float64(m.NumGC)
	})
	scope.ProvideGauge("gc/pause_total_ms", func() float64 {
		m := mem.get()
		return float64(m.PauseTotalNs) / float64(time.Millisecond)
	})
}
