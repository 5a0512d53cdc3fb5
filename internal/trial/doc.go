// Package trial implements the go/no-go trial sequencer.
//
// The sequencer owns the lifecycle of a single behavioral trial: it arms the
// trial, fires the hardware start trigger, requests the stimulus, polls the
// hardware status register until the timed window closes, classifies the
// outcome and drives reward/punishment actuation before re-arming.
//
// ARCHITECTURE:
//
// Externally Clocked State Machine:
// The sequencer never blocks and never starts goroutines. Waiting for the
// hardware is modelled as repeated Poll() calls supplied by the host (an
// event loop tick, a ticker goroutine, a test driving a virtual clock).
//
//	IDLE --Start--> ARMED --trigger+stimulus--> RUNNING
//	RUNNING --Poll (DONE unset)--> RUNNING
//	RUNNING --Poll (DONE set)--> EVALUATING --actuate+clear+reset--> IDLE
//	RUNNING --I/O error | poll budget | Abort--> IDLE (no actuation)
//
// Every trial that reaches RUNNING ends with exactly one OutcomeListener
// notification, including failed, timed-out and aborted trials.
//
// Thread-safety:
// The sequencer is NOT internally synchronized. Start, Poll and Abort must be
// serialized by the host (single event loop or single-owner goroutine).
//
// Fail-safe actuation:
// Hardware errors are never retried. The sequencer drops to IDLE and issues
// no further hardware calls, not even the reset trigger. If the clearing
// write fails after an actuation commit, the actuation line stays asserted
// until the host resets the module; the error report names the failed
// operation.
package trial
