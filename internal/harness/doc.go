// Package harness runs scripted go/no-go scenarios against the real trial
// sequencer and checks the resulting hardware trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: go_hit
//	description: "GO trial with a response is rewarded"
//	rig: rig.cue            # optional, relative to the scenario file
//	session: booth-2        # optional fixed session ID
//	max_polls: 10           # optional, overrides the rig budget
//	trials:
//	  - type: go
//	    status: [0x0, 0x3]  # values returned by successive status reads
//	    fail: {op: read, at: 2}
//	    polls: 2            # stop polling, leave the trial running
//	    abort_after: 3      # abort after N polls
//	    expect: {outcome: hit}
//	assertions:
//	  - {type: call_order, calls: ["trigger:start", "write:1", "commit", "trigger:reset"]}
//	  - {type: call_count, call: "write:2", count: 0}
//	  - {type: outcome_count, outcome: hit, count: 1}
//	  - {type: final_state, state: idle}
//
// Decoding is strict: unknown keys are rejected.
//
// # Trace Labels
//
// Hardware calls are labelled trigger:start, trigger:reset, read:<value>,
// write:<value> and commit. Harness events are play:<stimulus>, abort,
// outcome:<outcome>, outcome:error:<label> and start:error:<label>, where
// label is one of already_running, hardware_io, timeout, aborted.
//
// # Assertion Types
//
//   - call_order: the labels appear in order (other events may intervene)
//   - call_count: a label appears exactly N times
//   - outcome_count: N reports carry the outcome or error label
//   - final_state: the sequencer state after the last step
//
// # Deterministic Testing
//
// Every trace event is stamped from one logical clock, session IDs are fixed
// and wall time is a frozen clock advanced by the poll interval, so the same
// scenario always yields a byte-identical canonical trace for golden
// comparison.
package harness
