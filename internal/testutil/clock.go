package testutil

import (
	"sync"
	"time"
)

// ReferenceTime is the default instant used by deterministic tests.
var ReferenceTime = time.Date(2024, time.March, 15, 9, 30, 0, 0, time.Local)

// DeterministicClock is a settable wall clock for tests.
//
// Unlike engine.SystemClock, DeterministicClock only moves when told to, so
// the same scenario produces byte-identical signal timestamps on every run.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewDeterministicClock creates a clock fixed at t.
// A zero t means ReferenceTime.
func NewDeterministicClock(t time.Time) *DeterministicClock {
	if t.IsZero() {
		t = ReferenceTime
	}
	return &DeterministicClock{now: t}
}

// Now returns the current fixed instant.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *DeterministicClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t.
func (c *DeterministicClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
