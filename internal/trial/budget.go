package trial

import "time"

// DefaultMaxPolls bounds a trial at one minute of polling at the reference
// 250 ms cadence.
const DefaultMaxPolls = 240

// PollBudget tracks the polls charged to one trial and enforces the poll
// limit and the wall-clock deadline.
//
// A zero maxPolls or zero timeout disables that bound. With both disabled the
// budget never fires and a trial the hardware never completes stays RUNNING
// until aborted.
type PollBudget struct {
	maxPolls int
	timeout  time.Duration
	started  time.Time
	current  int
}

// NewPollBudget creates a budget for a trial started at started.
func NewPollBudget(maxPolls int, timeout time.Duration, started time.Time) *PollBudget {
	return &PollBudget{
		maxPolls: maxPolls,
		timeout:  timeout,
		started:  started,
	}
}

// Check charges one poll and validates both bounds.
//
// Returns *TrialTimeoutError once the poll count exceeds maxPolls or now is
// past the deadline. Called before the status read so an exhausted budget
// never touches the hardware.
func (b *PollBudget) Check(trialID int64, now time.Time) error {
	b.current++
	if b.maxPolls > 0 && b.current > b.maxPolls {
		return &TrialTimeoutError{
			TrialID:  trialID,
			Polls:    b.current,
			MaxPolls: b.maxPolls,
		}
	}
	if b.timeout > 0 {
		if elapsed := now.Sub(b.started); elapsed > b.timeout {
			return &TrialTimeoutError{
				TrialID: trialID,
				Polls:   b.current,
				Elapsed: elapsed.String(),
			}
		}
	}
	return nil
}

// Current returns the number of polls charged so far.
func (b *PollBudget) Current() int {
	return b.current
}

// Remaining returns the polls left before the limit, or -1 when unlimited.
func (b *PollBudget) Remaining() int {
	if b.maxPolls <= 0 {
		return -1
	}
	if r := b.maxPolls - b.current; r > 0 {
		return r
	}
	return 0
}
