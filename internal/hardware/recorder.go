package hardware

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/gonogo/internal/trial"
)

// ErrInjected is the default error returned by a scripted failure.
var ErrInjected = errors.New("injected failure")

// Call is one recorded HardwareLink operation.
type Call struct {
	Seq    int64
	Op     trial.Op
	Addr   trial.Address
	Value  uint32 // trigger mask, written value or read result
	Failed bool
}

// Recorder is a scripted HardwareLink.
//
// Status reads return the scripted values in order and repeat the last one
// once the script is exhausted (0 when empty). Every call is recorded with a
// sequence number from a logical clock, which callers may share to interleave
// their own events with the hardware trace.
type Recorder struct {
	mu     sync.Mutex
	clock  *trial.Clock
	status []uint32
	reads  int
	calls  []Call

	failOp  trial.Op
	failAt  int
	failErr error
	seen    map[trial.Op]int
	closed  bool
}

// NewRecorder creates a Recorder. A nil clock gets a fresh one.
func NewRecorder(clock *trial.Clock, status ...uint32) *Recorder {
	if clock == nil {
		clock = trial.NewClock()
	}
	return &Recorder{
		clock:  clock,
		status: status,
		seen:   make(map[trial.Op]int),
	}
}

// Script replaces the status script and restarts it from the first value.
func (r *Recorder) Script(status ...uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
	r.reads = 0
}

// FailOn makes the at-th call (1-based, counted from now) of op fail with
// err. A nil err uses ErrInjected.
func (r *Recorder) FailOn(op trial.Op, at int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	r.failOp = op
	r.failAt = at
	r.failErr = err
	r.seen[op] = 0
}

// ClearFailure removes any scripted failure.
func (r *Recorder) ClearFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOp = ""
	r.failAt = 0
	r.failErr = nil
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ready implements Device.
func (r *Recorder) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Close implements Device.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// SendTrigger implements trial.HardwareLink.
func (r *Recorder) SendTrigger(_ context.Context, addr trial.Address, m uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(trial.OpTrigger, addr, m)
}

// ReadStatus implements trial.HardwareLink.
func (r *Recorder) ReadStatus(_ context.Context, addr trial.Address) (uint32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var v uint32
	if n := len(r.status); n > 0 {
		i := r.reads
		if i >= n {
			i = n - 1
		}
		v = r.status[i]
	}
	if err := r.record(trial.OpRead, addr, v); err != nil {
		return 0, err
	}
	r.reads++
	return v, nil
}

// WriteRegister implements trial.HardwareLink.
func (r *Recorder) WriteRegister(_ context.Context, addr trial.Address, value uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(trial.OpWrite, addr, value)
}

// Commit implements trial.HardwareLink.
func (r *Recorder) Commit(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.record(trial.OpCommit, 0, 0)
}

// record appends the call and applies any scripted failure. Caller holds mu.
func (r *Recorder) record(op trial.Op, addr trial.Address, value uint32) error {
	c := Call{Seq: r.clock.Next(), Op: op, Addr: addr, Value: value}

	if r.closed {
		c.Failed = true
		r.calls = append(r.calls, c)
		return ErrClosed
	}

	r.seen[op]++
	if r.failAt > 0 && op == r.failOp && r.seen[op] == r.failAt {
		c.Failed = true
		if op == trial.OpRead {
			c.Value = 0
		}
		r.calls = append(r.calls, c)
		return r.failErr
	}

	r.calls = append(r.calls, c)
	return nil
}
