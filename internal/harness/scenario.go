package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gonogo/internal/trial"
)

// Scenario is a scripted sequence of trials run against a recorded link.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name" json:"name" jsonschema:"required"`

	// Description explains what the scenario validates.
	Description string `yaml:"description" json:"description" jsonschema:"required"`

	// Rig is an optional CUE rig profile, relative to the scenario file.
	Rig string `yaml:"rig,omitempty" json:"rig,omitempty"`

	// Session is the fixed session ID stamped on every trial.
	Session string `yaml:"session,omitempty" json:"session,omitempty"`

	// MaxPolls overrides the rig's poll budget. 0 keeps the rig value.
	MaxPolls int `yaml:"max_polls,omitempty" json:"max_polls,omitempty" jsonschema:"minimum=0"`

	// Trials run in order on one sequencer.
	Trials []TrialStep `yaml:"trials" json:"trials" jsonschema:"required,minItems=1"`

	// Assertions validate the trace, outcomes and final state.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// dir is the directory of the scenario file.
	dir string
}

// TrialStep starts one trial and polls it.
type TrialStep struct {
	// Type is "go" or "no-go".
	Type string `yaml:"type" json:"type" jsonschema:"required,enum=go,enum=no-go"`

	// Status values returned by successive reads. The last value repeats.
	Status []uint32 `yaml:"status,omitempty" json:"status,omitempty"`

	// Fail injects one hardware failure during this step.
	Fail *FailSpec `yaml:"fail,omitempty" json:"fail,omitempty"`

	// Polls stops polling after N polls and leaves the trial running.
	Polls int `yaml:"polls,omitempty" json:"polls,omitempty" jsonschema:"minimum=0"`

	// AbortAfter aborts the trial after N polls.
	AbortAfter int `yaml:"abort_after,omitempty" json:"abort_after,omitempty" jsonschema:"minimum=0"`

	// Expect is checked against the step's report. nil skips the check.
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// FailSpec makes the at-th call of op within a step fail.
type FailSpec struct {
	Op string `yaml:"op" json:"op" jsonschema:"required,enum=trigger,enum=read,enum=write,enum=commit"`
	At int    `yaml:"at" json:"at" jsonschema:"required,minimum=1"`
}

// Expect is the expected result of a step: an outcome or an error label.
type Expect struct {
	Outcome string `yaml:"outcome,omitempty" json:"outcome,omitempty" jsonschema:"enum=hit,enum=miss,enum=false_start,enum=correct_rejection"`
	Error   string `yaml:"error,omitempty" json:"error,omitempty" jsonschema:"enum=already_running,enum=hardware_io,enum=timeout,enum=aborted"`
}

// Assertion validates the finished run.
type Assertion struct {
	// Type is one of call_order, call_count, outcome_count, final_state.
	Type string `yaml:"type" json:"type" jsonschema:"required,enum=call_order,enum=call_count,enum=outcome_count,enum=final_state"`

	// Calls is the expected label subsequence (call_order).
	Calls []string `yaml:"calls,omitempty" json:"calls,omitempty"`

	// Call is the label to count (call_count).
	Call string `yaml:"call,omitempty" json:"call,omitempty"`

	// Outcome is the outcome name or error label to count (outcome_count).
	Outcome string `yaml:"outcome,omitempty" json:"outcome,omitempty"`

	// Count is the expected number of occurrences.
	Count int `yaml:"count,omitempty" json:"count,omitempty" jsonschema:"minimum=0"`

	// State is the expected sequencer state (final_state).
	State string `yaml:"state,omitempty" json:"state,omitempty" jsonschema:"enum=idle,enum=armed,enum=running,enum=evaluating"`
}

// Assertion type constants.
const (
	AssertCallOrder    = "call_order"
	AssertCallCount    = "call_count"
	AssertOutcomeCount = "outcome_count"
	AssertFinalState   = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScenario decodes and validates scenario YAML. A relative rig path is
// resolved against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// RigPath returns the rig profile path resolved against the scenario file,
// or "" when the scenario uses the default rig.
func (s *Scenario) RigPath() string {
	if s.Rig == "" || filepath.IsAbs(s.Rig) {
		return s.Rig
	}
	return filepath.Join(s.dir, s.Rig)
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.MaxPolls < 0 {
		return fmt.Errorf("max_polls must be non-negative")
	}
	if len(s.Trials) == 0 {
		return fmt.Errorf("trials list is required and must be non-empty")
	}

	for i, step := range s.Trials {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *TrialStep) error {
	if _, err := trial.ParseType(step.Type); err != nil {
		return fmt.Errorf("trials[%d]: %w", index, err)
	}
	if step.Polls < 0 || step.AbortAfter < 0 {
		return fmt.Errorf("trials[%d]: polls and abort_after must be non-negative", index)
	}
	if step.Polls > 0 && step.AbortAfter > 0 {
		return fmt.Errorf("trials[%d]: polls and abort_after are mutually exclusive", index)
	}
	if f := step.Fail; f != nil {
		switch trial.Op(f.Op) {
		case trial.OpTrigger, trial.OpRead, trial.OpWrite, trial.OpCommit:
		default:
			return fmt.Errorf("trials[%d].fail: unknown op %q", index, f.Op)
		}
		if f.At < 1 {
			return fmt.Errorf("trials[%d].fail: at must be >= 1", index)
		}
	}
	if e := step.Expect; e != nil {
		if (e.Outcome == "") == (e.Error == "") {
			return fmt.Errorf("trials[%d].expect: exactly one of outcome or error is required", index)
		}
		if e.Outcome != "" {
			if _, err := trial.ParseOutcome(e.Outcome); err != nil {
				return fmt.Errorf("trials[%d].expect: %w", index, err)
			}
		}
		if e.Error != "" && !isErrorLabel(e.Error) {
			return fmt.Errorf("trials[%d].expect: unknown error %q", index, e.Error)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}

	switch a.Type {
	case AssertCallOrder:
		if len(a.Calls) == 0 {
			return fmt.Errorf("assertions[%d]: calls list is required for call_order", index)
		}
	case AssertCallCount:
		if a.Call == "" {
			return fmt.Errorf("assertions[%d]: call is required for call_count", index)
		}
	case AssertOutcomeCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for outcome_count", index)
		}
	case AssertFinalState:
		if _, err := trial.ParseState(a.State); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

func isErrorLabel(s string) bool {
	switch s {
	case ErrorAlreadyRunning, ErrorHardwareIO, ErrorTimeout, ErrorAborted:
		return true
	}
	return false
}
