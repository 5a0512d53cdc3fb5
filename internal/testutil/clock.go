package testutil

import (
	"sync"
	"time"
)

// Epoch is the default instant of a FrozenClock.
var Epoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// FrozenClock is a wall clock that only moves when told to.
//
// Its Now method can be passed to trial.WithNow so that StartedAt, durations
// and deadlines are identical across runs.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFrozenClock creates a clock stopped at t. A zero t uses Epoch.
func NewFrozenClock(t time.Time) *FrozenClock {
	if t.IsZero() {
		t = Epoch
	}
	return &FrozenClock{now: t}
}

// Now returns the current frozen instant.
func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *FrozenClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// Reset stops the clock at t again (Epoch when zero).
func (c *FrozenClock) Reset(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.IsZero() {
		t = Epoch
	}
	c.now = t
}
