package stats

import (
	"sync"
	"time"
)

// DeltaTracker remembers counter values between samples so readers can see
// how much each counter moved during the last interval.
type DeltaTracker struct {
	mu      sync.RWMutex
	prev    map[string]int64
	deltas  map[string]int64
	sampled time.Time
}

// NewDeltaTracker creates a tracker with no samples.
func NewDeltaTracker() *DeltaTracker {
	return &DeltaTracker{
		prev:   make(map[string]int64),
		deltas: make(map[string]int64),
	}
}

// Sample records the counters in snap. A counter seen for the first time
// reports its full value as the delta.
func (d *DeltaTracker) Sample(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()

	deltas := make(map[string]int64, len(snap.Counters))
	for name, v := range snap.Counters {
		deltas[name] = v - d.prev[name]
	}
	d.prev = make(map[string]int64, len(snap.Counters))
	for name, v := range snap.Counters {
		d.prev[name] = v
	}
	d.deltas = deltas
	d.sampled = snap.Taken
}

// Delta returns the change of counter name over the last interval.
func (d *DeltaTracker) Delta(name string) (int64, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.deltas[name]
	return v, ok
}

// Deltas returns a copy of every counter delta from the last interval.
func (d *DeltaTracker) Deltas() map[string]int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]int64, len(d.deltas))
	for k, v := range d.deltas {
		out[k] = v
	}
	return out
}

// LastSample returns when Sample was last called, or the zero time.
func (d *DeltaTracker) LastSample() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.sampled
}
