// Package profiling provides monotonic clocks for timer measurements
package profiling

import (
	"sync"
	"time"
)

// Clock reports elapsed time from a fixed origin.
// Implementations must be monotonic: adjustments to the system clock never
// move the reading backwards.
type Clock interface {
	Now() time.Duration
}

// MonotonicClock provides access to the monotonic clock
type MonotonicClock struct {
	base time.Time
}

// NewMonotonicClock creates a new monotonic clock
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{
		base: time.Now(),
	}
}

// Now returns the current monotonic time.
// time.Since uses the monotonic reading carried by base.
func (mc *MonotonicClock) Now() time.Duration {
	return time.Since(mc.base)
}

// Since returns the duration since the given monotonic time
func (mc *MonotonicClock) Since(t time.Duration) time.Duration {
	return mc.Now() - t
}

// ManualClock is a Clock that only moves when told to. Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewManualClock creates a manual clock at zero
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// Now returns the current manual reading
func (mc *ManualClock) Now() time.Duration {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.now
}

// Advance moves the clock forward by d. Negative values are ignored.
func (mc *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	mc.mu.Lock()
	mc.now += d
	mc.mu.Unlock()
}

// Set moves the clock to an absolute reading, never backwards
func (mc *ManualClock) Set(t time.Duration) {
	mc.mu.Lock()
	if t > mc.now {
		mc.now = t
	}
	mc.mu.Unlock()
}
