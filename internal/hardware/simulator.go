package hardware

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/gonogo/internal/trial"
)

// DefaultWindow is the number of status reads a simulated window stays open.
// At the default 250ms poll interval this is a two second response window.
const DefaultWindow = 8

// Simulator emulates the timed-response module behind the register map.
//
// A start trigger opens a response window that closes after a fixed number
// of status reads. A response may be injected at any point during the window
// with Respond, or automatically after a number of reads. Wire-in writes are
// staged until Commit, and the committed reward and punishment lines are
// exposed as LED state.
//
// Thread-safety: all methods are safe for concurrent use. The console injects
// responses from key handlers while the sequencer polls.
type Simulator struct {
	mu     sync.Mutex
	wiring trial.Wiring
	logger *slog.Logger

	window       int
	respondAfter int

	armed     bool
	reads     int
	responded bool
	done      bool

	staged *uint32
	output uint32

	rewards     int
	punishments int
	closed      bool
}

// SimOption configures a Simulator.
type SimOption func(*Simulator)

// WithWindow sets the number of status reads before DONE is raised.
func WithWindow(reads int) SimOption {
	return func(s *Simulator) {
		if reads > 0 {
			s.window = reads
		}
	}
}

// WithRespondAfter raises RESPONSE automatically on the n-th status read of a
// window. 0 disables the automatic response.
func WithRespondAfter(n int) SimOption {
	return func(s *Simulator) { s.respondAfter = n }
}

// WithSimLogger sets the logger for module-level events.
func WithSimLogger(l *slog.Logger) SimOption {
	return func(s *Simulator) { s.logger = l }
}

// NewSimulator creates an idle simulated module for the given wiring.
func NewSimulator(w trial.Wiring, opts ...SimOption) *Simulator {
	s := &Simulator{
		wiring: w,
		window: DefaultWindow,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SimState is a point-in-time view of the simulated module.
type SimState struct {
	Armed       bool
	Reads       int
	Responded   bool
	Done        bool
	Output      uint32
	Reward      bool
	Punishment  bool
	Rewards     int
	Punishments int
}

// State returns a snapshot of the module.
func (s *Simulator) State() SimState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimState{
		Armed:       s.armed,
		Reads:       s.reads,
		Responded:   s.responded,
		Done:        s.done,
		Output:      s.output,
		Reward:      s.output&(1<<s.wiring.RewardBit) != 0,
		Punishment:  s.output&(1<<s.wiring.PunishmentBit) != 0,
		Rewards:     s.rewards,
		Punishments: s.punishments,
	}
}

// Respond injects a subject response into the open window.
//
// Returns false when no window is open (not armed, or already done); the
// response is dropped in that case, as on the real module.
func (s *Simulator) Respond() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed || s.done {
		return false
	}
	if !s.responded {
		s.logger.Debug("response latched", "read", s.reads)
	}
	s.responded = true
	return true
}

// Ready reports whether the module can be used.
func (s *Simulator) Ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the module closed.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// SendTrigger implements trial.HardwareLink.
func (s *Simulator) SendTrigger(ctx context.Context, addr trial.Address, m uint32) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.wiring.TriggerAddr {
		return &UnknownRegisterError{Op: trial.OpTrigger, Addr: addr}
	}

	if m&s.wiring.ResetMask() != 0 {
		s.armed = false
		s.reads = 0
		s.responded = false
		s.done = false
		s.staged = nil
		s.logger.Debug("module reset")
	}
	if m&s.wiring.StartMask() != 0 {
		s.armed = true
		s.reads = 0
		s.responded = false
		s.done = false
		s.logger.Debug("window opened", "reads", s.window)
	}
	return nil
}

// ReadStatus implements trial.HardwareLink. Each read while armed advances
// the window by one step.
func (s *Simulator) ReadStatus(ctx context.Context, addr trial.Address) (uint32, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.wiring.StatusAddr {
		return 0, &UnknownRegisterError{Op: trial.OpRead, Addr: addr}
	}

	if s.armed && !s.done {
		s.reads++
		if s.respondAfter > 0 && s.reads >= s.respondAfter {
			s.responded = true
		}
		if s.reads >= s.window {
			s.done = true
			s.logger.Debug("window closed", "responded", s.responded)
		}
	}

	var v uint32
	if s.responded {
		v |= 1 << s.wiring.ResponseBit
	}
	if s.done {
		v |= 1 << s.wiring.DoneBit
	}
	return v, nil
}

// WriteRegister implements trial.HardwareLink. The value takes effect on Commit.
func (s *Simulator) WriteRegister(ctx context.Context, addr trial.Address, value uint32) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if addr != s.wiring.ActuationAddr {
		return &UnknownRegisterError{Op: trial.OpWrite, Addr: addr}
	}
	v := value
	s.staged = &v
	return nil
}

// Commit implements trial.HardwareLink. A commit with nothing staged is a no-op.
func (s *Simulator) Commit(ctx context.Context) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.staged == nil {
		return nil
	}
	prev := s.output
	s.output = *s.staged
	s.staged = nil

	reward := uint32(1) << s.wiring.RewardBit
	punish := uint32(1) << s.wiring.PunishmentBit
	if s.output&reward != 0 && prev&reward == 0 {
		s.rewards++
		s.logger.Debug("reward line asserted", "count", s.rewards)
	}
	if s.output&punish != 0 && prev&punish == 0 {
		s.punishments++
		s.logger.Debug("punishment line asserted", "count", s.punishments)
	}
	return nil
}

func (s *Simulator) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}
