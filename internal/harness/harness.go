package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/gonogo/internal/hardware"
	"github.com/roach88/gonogo/internal/rig"
	"github.com/roach88/gonogo/internal/testutil"
	"github.com/roach88/gonogo/internal/trial"
)

// pollGuard bounds a step whose trial never finishes (no poll budget and a
// status script that never raises DONE).
const pollGuard = 10_000

// Harness executes one scenario against the real sequencer.
//
// The sequencer talks to a hardware.Recorder. Every recorded call and every
// harness event (stimulus request, abort, outcome) is stamped from one logical
// clock, so the merged trace is totally ordered and identical across runs.
// Wall time is a FrozenClock advanced by the rig poll interval on each poll.
type Harness struct {
	seq      *trial.Sequencer
	link     *hardware.Recorder
	clock    *trial.Clock
	wall     *testutil.FrozenClock
	wiring   trial.Wiring
	interval time.Duration
	logger   *slog.Logger

	result *Result
	events []TraceEvent
	step   int
	starts []int64 // clock value when each step began
}

// Option configures a scenario run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
}

// WithLogger routes sequencer and harness logs to l (discarded by default).
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Load the rig profile (default when the scenario names none)
// 2. Build a sequencer on a fresh Recorder with deterministic clocks
// 3. Run each trial step: script the link, start, poll, check expect
// 4. Merge the trace and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all;
// failed expectations and assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	profile := rig.Default()
	if path := scenario.RigPath(); path != "" {
		p, err := rig.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load rig: %w", err)
		}
		profile = *p
	}
	maxPolls := profile.MaxPolls
	if scenario.MaxPolls > 0 {
		maxPolls = scenario.MaxPolls
	}

	clock := trial.NewClock()
	h := &Harness{
		link:     hardware.NewRecorder(clock),
		clock:    clock,
		wall:     testutil.NewFrozenClock(time.Time{}),
		wiring:   profile.Wiring,
		interval: profile.PollInterval,
		logger:   cfg.logger,
		result:   NewResult(),
	}

	seq, err := trial.New(h.link, tracePlayer{h}, trial.ListenerFunc(h.onOutcome),
		trial.WithWiring(profile.Wiring),
		trial.WithMaxPolls(maxPolls),
		trial.WithTimeout(profile.Timeout),
		trial.WithSessionGenerator(testutil.NewFixedSessionGenerator(scenario.Session)),
		trial.WithNow(h.wall.Now),
		trial.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sequencer: %w", err)
	}
	h.seq = seq

	ctx := context.Background()
	for i, step := range scenario.Trials {
		h.runStep(ctx, i+1, step)
	}

	h.result.FinalState = seq.State().String()
	h.result.Trace = h.mergeTrace()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", h.result.Pass,
		"events", len(h.result.Trace),
	)
	return h.result, nil
}

// runStep scripts the link for one step, starts the trial and polls it.
func (h *Harness) runStep(ctx context.Context, n int, step TrialStep) {
	h.step = n
	h.starts = append(h.starts, h.clock.Current())
	h.link.Script(step.Status...)
	if step.Fail != nil {
		h.link.FailOn(trial.Op(step.Fail.Op), step.Fail.At, nil)
	} else {
		h.link.ClearFailure()
	}

	typ, _ := trial.ParseType(step.Type) // validated on load
	first := len(h.result.Outcomes)

	if _, err := h.seq.Start(ctx, typ); err != nil {
		label := errorLabel(err)
		h.emit("start:error:" + label)
		h.result.Outcomes = append(h.result.Outcomes, Outcome{
			Step:   n,
			Type:   typ.String(),
			Result: label,
			Error:  err.Error(),
		})
	} else {
		h.poll(ctx, n, step)
	}

	h.checkExpect(n, step, h.result.Outcomes[first:])
}

func (h *Harness) poll(ctx context.Context, n int, step TrialStep) {
	for polls := 0; h.seq.State() == trial.Running; polls++ {
		if step.Polls > 0 && polls == step.Polls {
			return
		}
		if step.AbortAfter > 0 && polls == step.AbortAfter {
			h.emit("abort")
			if err := h.seq.Abort(ctx, "scenario abort_after"); err != nil {
				h.result.AddError(fmt.Sprintf("step %d: abort failed: %v", n, err))
			}
			return
		}
		if polls == pollGuard {
			h.result.AddError(fmt.Sprintf("step %d: trial still running after %d polls", n, pollGuard))
			return
		}
		h.wall.Advance(h.interval)
		h.seq.Poll(ctx)
	}
}

func (h *Harness) checkExpect(n int, step TrialStep, got []Outcome) {
	if step.Expect == nil {
		return
	}
	if len(got) != 1 {
		h.result.AddError(fmt.Sprintf("step %d: expected exactly one report, got %d", n, len(got)))
		return
	}

	want := step.Expect.Outcome
	if want == "" {
		want = step.Expect.Error
	}
	if got[0].Result != want {
		msg := fmt.Sprintf("step %d: expected %s, got %s", n, want, got[0].Result)
		if got[0].Error != "" {
			msg += " (" + got[0].Error + ")"
		}
		h.result.AddError(msg)
	}
}

// onOutcome is the sequencer's listener.
func (h *Harness) onOutcome(r trial.Report) {
	o := Outcome{
		Step:    h.step,
		TrialID: r.Trial.ID,
		Type:    r.Trial.Type.String(),
		Polls:   r.Trial.Polls,
	}
	if r.OK() {
		o.Result = r.Outcome.String()
		h.emit("outcome:" + o.Result)
	} else {
		o.Result = errorLabel(r.Err)
		o.Error = r.Err.Error()
		h.emit("outcome:error:" + o.Result)
	}
	h.result.Outcomes = append(h.result.Outcomes, o)
}

func (h *Harness) emit(event string) {
	h.events = append(h.events, TraceEvent{Seq: h.clock.Next(), Step: h.step, Event: event})
}

// mergeTrace interleaves recorded hardware calls with harness events by seq.
func (h *Harness) mergeTrace() []TraceEvent {
	calls := h.link.Calls()
	trace := make([]TraceEvent, 0, len(calls)+len(h.events))
	trace = append(trace, h.events...)

	for _, c := range calls {
		trace = append(trace, TraceEvent{
			Seq:    c.Seq,
			Step:   h.stepAt(c.Seq),
			Event:  callLabel(c, h.wiring),
			Failed: c.Failed,
		})
	}

	sort.Slice(trace, func(i, j int) bool { return trace[i].Seq < trace[j].Seq })
	return trace
}

// stepAt returns the step during which seq was allocated.
func (h *Harness) stepAt(seq int64) int {
	step := 1
	for i, start := range h.starts {
		if seq <= start {
			break
		}
		step = i + 1
	}
	return step
}

// tracePlayer records stimulus requests into the trace.
type tracePlayer struct {
	h *Harness
}

func (p tracePlayer) Play(_ context.Context, id trial.StimulusID) error {
	p.h.emit("play:" + string(id))
	return nil
}
