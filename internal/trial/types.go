package trial

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Type is the trial condition chosen by the operator before a run.
type Type int

const (
	// Go trials reward a response.
	Go Type = iota + 1
	// NoGo trials punish a response.
	NoGo
)

// String returns the operator-facing name ("go" or "no-go").
func (t Type) String() string {
	switch t {
	case Go:
		return "go"
	case NoGo:
		return "no-go"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Valid reports whether t is one of the defined trial types.
func (t Type) Valid() bool {
	return t == Go || t == NoGo
}

// Stimulus returns the stimulus played for this trial type.
func (t Type) Stimulus() StimulusID {
	if t == NoGo {
		return StimulusNoGo
	}
	return StimulusGo
}

// ParseType parses "go", "no-go" or "nogo" (case-insensitive).
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "go":
		return Go, nil
	case "no-go", "nogo", "no_go":
		return NoGo, nil
	default:
		return 0, fmt.Errorf("unknown trial type %q: must be go or no-go", s)
	}
}

// Outcome is the classified result of a completed trial.
type Outcome int

const (
	Hit Outcome = iota + 1
	Miss
	FalseStart
	CorrectRejection
)

func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case FalseStart:
		return "false_start"
	case CorrectRejection:
		return "correct_rejection"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Title is the short heading shown to the operator.
func (o Outcome) Title() string {
	switch o {
	case Hit:
		return "Hit"
	case Miss:
		return "Miss"
	case FalseStart:
		return "False start"
	case CorrectRejection:
		return "Correct rejection"
	default:
		return o.String()
	}
}

// Message is the operator-facing description of the outcome.
func (o Outcome) Message() string {
	switch o {
	case Hit:
		return "Correct response on a GO trial. Reward is activated."
	case Miss:
		return "No response on a GO trial. Punishment is activated."
	case FalseStart:
		return "Response on a NO-GO trial. Punishment is activated."
	case CorrectRejection:
		return "Correctly withheld response on a NO-GO trial."
	default:
		return ""
	}
}

// ParseOutcome parses the String form of an outcome.
func ParseOutcome(s string) (Outcome, error) {
	for _, o := range []Outcome{Hit, Miss, FalseStart, CorrectRejection} {
		if o.String() == s {
			return o, nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// State is the sequencer lifecycle state.
type State int

const (
	Idle State = iota
	Armed
	Running
	Evaluating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Running:
		return "running"
	case Evaluating:
		return "evaluating"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ParseState parses the String form of a state.
func ParseState(s string) (State, error) {
	for _, st := range []State{Idle, Armed, Running, Evaluating} {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown state %q", s)
}

// Actuation is the physical output driven for an outcome.
type Actuation int

const (
	NoActuation Actuation = iota
	Reward
	Punishment
)

func (a Actuation) String() string {
	switch a {
	case Reward:
		return "reward"
	case Punishment:
		return "punishment"
	default:
		return "none"
	}
}

// Address identifies a hardware endpoint (trigger, wire-in or wire-out).
type Address uint16

func (a Address) String() string {
	return fmt.Sprintf("0x%02X", uint16(a))
}

// StimulusID names a pre-loaded stimulus.
type StimulusID string

const (
	StimulusGo   StimulusID = "go"
	StimulusNoGo StimulusID = "no-go"
)

// Trial is the unit of work tracked by the sequencer.
//
// Trials are value snapshots: the sequencer hands out copies and keeps the
// authoritative record internally until the outcome is reported.
type Trial struct {
	// ID is a monotonic, per-sequencer identifier (logical clock).
	ID int64

	// Session correlates the trial in logs and traces (UUIDv7 by default).
	Session string

	Type      Type
	State     State
	StartedAt time.Time

	// Polls is the number of Poll calls charged to this trial.
	Polls int
}

// Report is delivered to the OutcomeListener exactly once per trial that
// reached RUNNING.
//
// Outcome is meaningful only when Err is nil. Err is one of
// *HardwareIOError, *TrialTimeoutError or *TrialAbortedError.
type Report struct {
	Trial    Trial
	Outcome  Outcome
	Status   uint32
	Duration time.Duration
	Err      error
}

// OK reports whether the trial completed with a classified outcome.
func (r Report) OK() bool {
	return r.Err == nil
}

// HardwareLink is the sequencer's view of the trial hardware.
//
// Register writes are staged until Commit. Every method returns an error on
// transport failure; the sequencer wraps it in *HardwareIOError.
type HardwareLink interface {
	SendTrigger(ctx context.Context, addr Address, mask uint32) error
	ReadStatus(ctx context.Context, addr Address) (uint32, error)
	WriteRegister(ctx context.Context, addr Address, value uint32) error
	Commit(ctx context.Context) error
}

// StimulusPlayer starts playback of a stimulus and returns immediately.
//
// Errors are logged by the sequencer and never affect the trial.
type StimulusPlayer interface {
	Play(ctx context.Context, id StimulusID) error
}

// OutcomeListener receives trial reports (the presentation layer).
type OutcomeListener interface {
	OnOutcome(Report)
}

// ListenerFunc adapts a function to OutcomeListener.
type ListenerFunc func(Report)

// OnOutcome calls f(r).
func (f ListenerFunc) OnOutcome(r Report) {
	f(r)
}
