package trial

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Sequencer drives one go/no-go trial at a time.
//
// INVARIANTS:
//   - At most one trial is active; Start outside IDLE fails with
//     *AlreadyRunningError and performs no hardware call.
//   - Poll outside RUNNING is a no-op.
//   - Each trial that reaches RUNNING produces exactly one OnOutcome call,
//     issued after the sequencer is back in IDLE.
//   - Successful evaluation issues, in order: actuation write+commit (skipped
//     for CorrectRejection), clearing write+commit, reset trigger.
type Sequencer struct {
	link     HardwareLink
	player   StimulusPlayer
	listener OutcomeListener

	wiring   Wiring
	clock    *Clock
	sessions SessionGenerator
	now      func() time.Time
	maxPolls int
	timeout  time.Duration
	logger   *slog.Logger
	tracer   trace.Tracer
	outcomes metric.Int64Counter

	state  State
	active *Trial
	budget *PollBudget
	span   trace.Span
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithWiring overrides the register map (default: DefaultWiring()).
func WithWiring(w Wiring) Option {
	return func(s *Sequencer) { s.wiring = w }
}

// WithMaxPolls sets the per-trial poll limit. 0 disables the limit.
//
// Default: DefaultMaxPolls.
func WithMaxPolls(n int) Option {
	return func(s *Sequencer) { s.maxPolls = n }
}

// WithTimeout sets a wall-clock deadline per trial. 0 disables it (default).
func WithTimeout(d time.Duration) Option {
	return func(s *Sequencer) { s.timeout = d }
}

// WithLogger sets the structured logger (default: otelslog bridge).
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithTracer sets the tracer for trial spans (default: the global provider's).
func WithTracer(t trace.Tracer) Option {
	return func(s *Sequencer) { s.tracer = t }
}

// WithClock sets the logical clock used for trial IDs.
func WithClock(c *Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithSessionGenerator sets the session ID generator (default: UUIDv7Generator).
func WithSessionGenerator(g SessionGenerator) Option {
	return func(s *Sequencer) { s.sessions = g }
}

// WithNow sets the wall-clock source used for StartedAt and the deadline.
func WithNow(now func() time.Time) Option {
	return func(s *Sequencer) { s.now = now }
}

// New creates an idle Sequencer.
//
// player may be nil, in which case no stimulus is requested. listener may be
// nil, in which case reports are only logged.
func New(link HardwareLink, player StimulusPlayer, listener OutcomeListener, opts ...Option) (*Sequencer, error) {
	if link == nil {
		return nil, errors.New("hardware link is required")
	}
	if listener == nil {
		listener = ListenerFunc(func(Report) {})
	}

	s := &Sequencer{
		link:     link,
		player:   player,
		listener: listener,
		wiring:   DefaultWiring(),
		clock:    NewClock(),
		sessions: UUIDv7Generator{},
		now:      time.Now,
		maxPolls: DefaultMaxPolls,
		logger:   logger,
		tracer:   tracer,
		outcomes: newOutcomeCounter(),
		state:    Idle,
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.wiring.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wiring: %w", err)
	}
	if s.maxPolls < 0 || s.timeout < 0 {
		return nil, fmt.Errorf("poll bounds must be non-negative (max_polls=%d, timeout=%s)", s.maxPolls, s.timeout)
	}

	return s, nil
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	return s.state
}

// Active returns a snapshot of the active trial, if any.
func (s *Sequencer) Active() (Trial, bool) {
	if s.active == nil {
		return Trial{}, false
	}
	return *s.active, true
}

// Wiring returns the register map in use.
func (s *Sequencer) Wiring() Wiring {
	return s.wiring
}

// Start arms a trial, fires the start trigger and requests the stimulus.
//
// On success the sequencer is RUNNING and the returned Trial is a snapshot.
// If the start trigger fails the sequencer returns to IDLE and the
// *HardwareIOError is returned here; no OnOutcome is emitted for it.
func (s *Sequencer) Start(ctx context.Context, t Type) (Trial, error) {
	if s.state != Idle {
		var activeID int64
		if s.active != nil {
			activeID = s.active.ID
		}
		s.logger.Warn("start rejected",
			"requested", t.String(),
			"active_trial", activeID,
			"state", s.state.String(),
		)
		return Trial{}, &AlreadyRunningError{Requested: t, ActiveID: activeID, State: s.state}
	}
	if !t.Valid() {
		return Trial{}, fmt.Errorf("%w: %d", ErrInvalidType, int(t))
	}

	tr := &Trial{
		ID:        s.clock.Next(),
		Session:   s.sessions.Generate(),
		Type:      t,
		State:     Armed,
		StartedAt: s.now(),
	}
	s.state = Armed
	s.active = tr

	ctx, s.span = s.tracer.Start(ctx, "trial", trace.WithAttributes(
		attribute.Int64("trial.id", tr.ID),
		attribute.String("trial.session", tr.Session),
		attribute.String("trial.type", t.String()),
	))

	s.logger.Debug("trial armed", "trial", tr.ID, "session", tr.Session, "type", t.String())

	if err := s.link.SendTrigger(ctx, s.wiring.TriggerAddr, s.wiring.StartMask()); err != nil {
		ioErr := &HardwareIOError{Op: OpTrigger, Addr: s.wiring.TriggerAddr, TrialID: tr.ID, Err: err}
		s.logger.Error("start trigger failed", "trial", tr.ID, "error", ioErr)
		s.record(ctx, t, string(ErrCodeHardwareIO))
		s.endSpan(Report{Trial: *tr, Err: ioErr})
		s.clear()
		return Trial{}, ioErr
	}

	s.play(ctx, tr)

	tr.State = Running
	s.state = Running
	s.budget = NewPollBudget(s.maxPolls, s.timeout, tr.StartedAt)

	s.logger.Info("trial started",
		"trial", tr.ID,
		"session", tr.Session,
		"type", t.String(),
		"max_polls", s.maxPolls,
	)
	return *tr, nil
}

// Poll advances a RUNNING trial by one status read.
//
// Outside RUNNING it returns immediately without touching the hardware, so
// spurious scheduler ticks are harmless.
func (s *Sequencer) Poll(ctx context.Context) {
	if s.state != Running || s.active == nil {
		return
	}
	tr := s.active

	// Charge the poll before reading: an exhausted budget never reaches the hardware.
	err := s.budget.Check(tr.ID, s.now())
	tr.Polls = s.budget.Current()
	if err != nil {
		s.logger.Warn("trial timed out", "trial", tr.ID, "polls", tr.Polls, "error", err)
		s.abandon(ctx, err)
		return
	}

	status, err := s.link.ReadStatus(ctx, s.wiring.StatusAddr)
	if err != nil {
		s.fail(ctx, &HardwareIOError{Op: OpRead, Addr: s.wiring.StatusAddr, TrialID: tr.ID, Err: err})
		return
	}

	if !bitSet(status, s.wiring.DoneBit) {
		s.logger.Debug("trial window open",
			"trial", tr.ID,
			"poll", tr.Polls,
			"remaining", s.budget.Remaining(),
			"status", status,
		)
		return
	}

	tr.State = Evaluating
	s.state = Evaluating
	s.evaluate(ctx, status)
}

// Abort cancels the running trial without actuation.
//
// The trial is reported with *TrialAbortedError. A best-effort reset trigger
// re-arms the hardware module. Returns ErrNotRunning when no trial is running.
func (s *Sequencer) Abort(ctx context.Context, reason string) error {
	if s.state != Running || s.active == nil {
		return ErrNotRunning
	}
	s.logger.Warn("trial aborted", "trial", s.active.ID, "reason", reason)
	s.abandon(ctx, &TrialAbortedError{TrialID: s.active.ID, Reason: reason})
	return nil
}

// evaluate classifies a completed window and drives actuation.
func (s *Sequencer) evaluate(ctx context.Context, status uint32) {
	tr := s.active
	responded := bitSet(status, s.wiring.ResponseBit)
	outcome := Classify(tr.Type, responded)
	act := ActuationFor(outcome)

	s.logger.Debug("trial window closed",
		"trial", tr.ID,
		"status", status,
		"responded", responded,
		"outcome", outcome.String(),
		"actuation", act.String(),
	)

	if err := s.actuate(ctx, tr.ID, act); err != nil {
		s.fail(ctx, err)
		return
	}

	s.finish(ctx, Report{Outcome: outcome, Status: status})
}

// actuate asserts the actuation line, clears it and resets the module.
func (s *Sequencer) actuate(ctx context.Context, trialID int64, a Actuation) error {
	addr := s.wiring.ActuationAddr

	if m, ok := s.wiring.ActuationMask(a); ok {
		if err := s.write(ctx, trialID, addr, m); err != nil {
			return err
		}
		s.span.AddEvent("actuated", trace.WithAttributes(attribute.String("actuation", a.String())))
	}

	if err := s.write(ctx, trialID, addr, 0); err != nil {
		return err
	}

	if err := s.link.SendTrigger(ctx, s.wiring.TriggerAddr, s.wiring.ResetMask()); err != nil {
		return &HardwareIOError{Op: OpTrigger, Addr: s.wiring.TriggerAddr, TrialID: trialID, Err: err}
	}
	return nil
}

// write stages value at addr and commits it.
func (s *Sequencer) write(ctx context.Context, trialID int64, addr Address, value uint32) error {
	if err := s.link.WriteRegister(ctx, addr, value); err != nil {
		return &HardwareIOError{Op: OpWrite, Addr: addr, TrialID: trialID, Err: err}
	}
	if err := s.link.Commit(ctx); err != nil {
		return &HardwareIOError{Op: OpCommit, Addr: addr, TrialID: trialID, Err: err}
	}
	return nil
}

// play requests the stimulus for the trial. Failures are logged only.
func (s *Sequencer) play(ctx context.Context, tr *Trial) {
	if s.player == nil {
		return
	}
	id := tr.Type.Stimulus()
	if err := s.playRecovered(ctx, id); err != nil {
		s.logger.Warn("stimulus playback failed", "trial", tr.ID, "stimulus", string(id), "error", err)
		s.span.AddEvent("stimulus failed", trace.WithAttributes(attribute.String("stimulus", string(id))))
		return
	}
	s.logger.Debug("stimulus requested", "trial", tr.ID, "stimulus", string(id))
}

// playRecovered calls the player and reports a panic as an error.
func (s *Sequencer) playRecovered(ctx context.Context, id StimulusID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stimulus player panicked: %v", r)
		}
	}()
	return s.player.Play(ctx, id)
}

// fail ends the trial after a hardware error. No further hardware calls are made.
func (s *Sequencer) fail(ctx context.Context, err error) {
	s.logger.Error("trial failed", "trial", s.active.ID, "error", err)
	s.finish(ctx, Report{Err: err})
}

// abandon ends a trial that never completed (timeout or abort). The reset
// trigger is sent so the module is ready for the next trial; its failure is
// logged and does not replace the original error.
func (s *Sequencer) abandon(ctx context.Context, cause error) {
	if err := s.link.SendTrigger(ctx, s.wiring.TriggerAddr, s.wiring.ResetMask()); err != nil {
		s.logger.Error("reset trigger failed", "trial", s.active.ID, "error", err)
	}
	s.finish(ctx, Report{Err: cause})
}

// finish returns to IDLE and emits the single report for the active trial.
func (s *Sequencer) finish(ctx context.Context, r Report) {
	tr := *s.active
	tr.State = Idle
	if s.budget != nil {
		tr.Polls = s.budget.Current()
	}
	r.Trial = tr
	r.Duration = s.now().Sub(tr.StartedAt)

	result := r.Outcome.String()
	if r.Err != nil {
		result = string(CodeOf(r.Err))
	}
	s.record(ctx, tr.Type, result)
	s.endSpan(r)
	s.clear()

	if r.Err == nil {
		s.logger.Info("trial finished",
			"trial", tr.ID,
			"session", tr.Session,
			"type", tr.Type.String(),
			"outcome", r.Outcome.String(),
			"polls", tr.Polls,
			"duration", r.Duration,
		)
	}

	s.listener.OnOutcome(r)
}

func (s *Sequencer) record(ctx context.Context, t Type, result string) {
	s.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trial.type", t.String()),
		attribute.String("trial.result", result),
	))
}

func (s *Sequencer) endSpan(r Report) {
	if s.span == nil {
		return
	}
	s.span.SetAttributes(attribute.Int("trial.polls", r.Trial.Polls))
	if r.Err != nil {
		s.span.RecordError(r.Err)
		s.span.SetStatus(codes.Error, r.Err.Error())
	} else {
		s.span.SetAttributes(attribute.String("trial.outcome", r.Outcome.String()))
	}
	s.span.End()
}

// clear drops all per-trial state and returns to IDLE.
func (s *Sequencer) clear() {
	s.state = Idle
	s.active = nil
	s.budget = nil
	s.span = nil
}
