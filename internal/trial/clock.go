package trial

import "sync/atomic"

// Clock is the monotonic logical clock that numbers trials.
//
// Trial IDs come from Next() and are strictly increasing for the lifetime of
// the sequencer, so log lines and reports order correctly even when the
// wall clock jumps.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0. The first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
