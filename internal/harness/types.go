package harness

import (
	"fmt"

	"github.com/roach88/gonogo/internal/hardware"
	"github.com/roach88/gonogo/internal/trial"
)

// TraceEvent is one entry of a scenario trace: a hardware call, a stimulus
// request, an abort, or a trial outcome.
type TraceEvent struct {
	Seq    int64  `json:"seq"`
	Step   int    `json:"step"`
	Event  string `json:"event"`
	Failed bool   `json:"failed,omitempty"`
}

// Outcome summarizes one sequencer report (or a synchronous Start error).
type Outcome struct {
	Step    int    `json:"step"`
	TrialID int64  `json:"trial,omitempty"`
	Type    string `json:"type"`
	Result  string `json:"result"` // outcome name, or an error label
	Polls   int    `json:"polls"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace holds every event in sequence order.
	Trace []TraceEvent `json:"trace"`

	// Outcomes holds one entry per report, in emission order.
	Outcomes []Outcome `json:"outcomes"`

	// FinalState is the sequencer state after the last step.
	FinalState string `json:"final_state"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Outcomes: []Outcome{},
		Errors:   []string{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Labels returns the event labels of the trace in order.
func (r *Result) Labels() []string {
	out := make([]string, len(r.Trace))
	for i, e := range r.Trace {
		out[i] = e.Event
	}
	return out
}

// Error labels used in expectations, outcome events and outcome_count.
const (
	ErrorAlreadyRunning = "already_running"
	ErrorHardwareIO     = "hardware_io"
	ErrorTimeout        = "timeout"
	ErrorAborted        = "aborted"
)

// errorLabel maps a sequencer error to its scenario label.
func errorLabel(err error) string {
	switch trial.CodeOf(err) {
	case trial.ErrCodeAlreadyRunning:
		return ErrorAlreadyRunning
	case trial.ErrCodeHardwareIO:
		return ErrorHardwareIO
	case trial.ErrCodeTimeout:
		return ErrorTimeout
	case trial.ErrCodeAborted:
		return ErrorAborted
	default:
		return "error"
	}
}

// callLabel renders a recorded hardware call as a trace label.
func callLabel(c hardware.Call, w trial.Wiring) string {
	switch c.Op {
	case trial.OpTrigger:
		switch c.Value {
		case w.StartMask():
			return "trigger:start"
		case w.ResetMask():
			return "trigger:reset"
		default:
			return fmt.Sprintf("trigger:0x%X", c.Value)
		}
	case trial.OpRead:
		return fmt.Sprintf("read:%d", c.Value)
	case trial.OpWrite:
		return fmt.Sprintf("write:%d", c.Value)
	default:
		return string(c.Op)
	}
}
