// Package profiling provides the start/stop timer and its running statistics
package profiling

import (
	"math"
	"sync"
	"time"
)

// Timer is a stopwatch that keeps running statistics over every completed
// start/stop pair: count, sum and sum of squares of the elapsed durations.
// Mean and RMS are derived from those, so individual samples are never stored.
//
// Values are accumulated in milliseconds at the clock's full resolution.
// A Timer must not be copied after first use.
type Timer struct {
	name  string
	clock Clock

	mu        sync.Mutex
	running   bool
	startedAt time.Duration
	last      time.Duration
	count     uint64
	sum       float64
	sumSq     float64
}

// Stats is a point-in-time copy of a timer's statistics, in milliseconds
type Stats struct {
	Name  string
	Count uint64
	Total float64
	Mean  float64
	RMS   float64
}

// NewTimer creates a new timer reading from clock.
// A nil clock falls back to a fresh MonotonicClock.
func NewTimer(name string, clock Clock) *Timer {
	t := &Timer{}
	t.init(name, clock)
	return t
}

func (t *Timer) init(name string, clock Clock) {
	if clock == nil {
		clock = NewMonotonicClock()
	}
	t.name = name
	t.clock = clock
}

// Name returns the timer name
func (t *Timer) Name() string {
	return t.name
}

// Start begins a measurement
func (t *Timer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return NewError(ErrCodeAlreadyRunning, t.name, ErrAlreadyRunning.Message)
	}
	t.startedAt = t.clock.Now()
	t.running = true
	return nil
}

// Stop ends the current measurement, folds it into the statistics and
// returns the elapsed duration
func (t *Timer) Stop() (time.Duration, error) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0, NewError(ErrCodeNotRunning, t.name, ErrNotRunning.Message)
	}

	elapsed := now - t.startedAt
	if elapsed < 0 {
		elapsed = 0
	}
	ms := Milliseconds(elapsed)

	t.count++
	t.sum += ms
	t.sumSq += ms * ms
	t.last = elapsed
	t.running = false
	return elapsed, nil
}

// Running reports whether a measurement is open
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

// Elapsed returns the duration of the last completed measurement
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

// Count returns the number of completed measurements
func (t *Timer) Count() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Mean returns the mean duration in milliseconds, 0 when nothing was measured
func (t *Timer) Mean() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mean(t.sum, t.count)
}

// RMS returns the root-mean-square duration in milliseconds.
// It is not centered on the mean. Returns 0 when nothing was measured.
func (t *Timer) RMS() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return rms(t.sumSq, t.count)
}

// Total returns count × mean in milliseconds
func (t *Timer) Total() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.count) * mean(t.sum, t.count)
}

// Stats returns a consistent copy of the statistics
func (t *Timer) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	m := mean(t.sum, t.count)
	return Stats{
		Name:  t.name,
		Count: t.count,
		Total: float64(t.count) * m,
		Mean:  m,
		RMS:   rms(t.sumSq, t.count),
	}
}

// Reset clears all statistics and any open measurement
func (t *Timer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.running = false
	t.startedAt = 0
	t.last = 0
	t.count = 0
	t.sum = 0
	t.sumSq = 0
}

// Milliseconds converts d to fractional milliseconds
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mean(sum float64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func rms(sumSq float64, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return math.Sqrt(sumSq / float64(count))
}
