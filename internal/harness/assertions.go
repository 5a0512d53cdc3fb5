package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			mark := ""
			if event.Failed {
				mark = " (failed)"
			}
			fmt.Fprintf(&buf, "  [%d] step %d %s%s\n", event.Seq, event.Step, event.Event, mark)
		}
	}

	return buf.String()
}

// assertCallOrder checks that the labels appear in the trace as a
// subsequence: in order, with other events allowed in between. Repeated
// labels must match distinct events.
func assertCallOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next < len(a.Calls) && event.Event == a.Calls[next] {
			next++
		}
	}
	if next == len(a.Calls) {
		return nil
	}

	matched := "none"
	if next > 0 {
		matched = strings.Join(a.Calls[:next], ", ")
	}
	return &AssertionError{
		Type:     AssertCallOrder,
		Expected: fmt.Sprintf("events in order: %v", a.Calls),
		Actual:   fmt.Sprintf("matched [%s], then no %q", matched, a.Calls[next]),
		Trace:    trace,
	}
}

// assertCallCount checks that the label appears exactly Count times.
func assertCallCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Event == a.Call {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCallCount,
		Expected: fmt.Sprintf("%s to appear %d time(s)", a.Call, a.Count),
		Actual:   fmt.Sprintf("appeared %d time(s)", count),
		Trace:    trace,
	}
}

// assertOutcomeCount checks how many reports carry the outcome or error label.
func assertOutcomeCount(outcomes []Outcome, a Assertion) error {
	count := 0
	for _, o := range outcomes {
		if o.Result == a.Outcome {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	got := make([]string, len(outcomes))
	for i, o := range outcomes {
		got[i] = o.Result
	}
	return &AssertionError{
		Type:     AssertOutcomeCount,
		Expected: fmt.Sprintf("%d report(s) with %s", a.Count, a.Outcome),
		Actual:   fmt.Sprintf("%d, reports were %v", count, got),
	}
}

// assertFinalState checks the sequencer state after the last step.
func assertFinalState(state string, a Assertion) error {
	if state == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: a.State,
		Actual:   state,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertCallOrder:
			err = assertCallOrder(result.Trace, assertion)
		case AssertCallCount:
			err = assertCallCount(result.Trace, assertion)
		case AssertOutcomeCount:
			err = assertOutcomeCount(result.Outcomes, assertion)
		case AssertFinalState:
			err = assertFinalState(result.FinalState, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
