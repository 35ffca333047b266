// Package clock provides the time source every deadline and remaining-time
// computation goes through.
package clock

import (
	"sync"
	"time"
)

// TimeSource supplies the current time.
type TimeSource interface {
	Now() time.Time
}

// System reads the wall clock. Go's time.Now carries a monotonic reading, so
// differences between two values are immune to wall-clock steps.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a TimeSource that only moves when told to.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set jumps the clock to t.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

// Remaining returns max(0, deadline-now) in whole seconds, rounded down.
func Remaining(deadline, now time.Time) int64 {
	d := deadline.Sub(now)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}
