package trial

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes sequencer errors.
type ErrorCode string

const (
	// ErrCodeAlreadyRunning indicates Start was called while a trial is active.
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// ErrCodeHardwareIO indicates a trigger, register read/write or commit failed.
	ErrCodeHardwareIO ErrorCode = "HARDWARE_IO"

	// ErrCodeTimeout indicates the poll budget or deadline was exhausted.
	ErrCodeTimeout ErrorCode = "TRIAL_TIMEOUT"

	// ErrCodeAborted indicates the trial was cancelled by the host.
	ErrCodeAborted ErrorCode = "TRIAL_ABORTED"
)

var (
	// ErrNotRunning is returned by Abort when no trial is running.
	ErrNotRunning = errors.New("no trial is running")

	// ErrInvalidType is returned by Start for an undefined trial type.
	ErrInvalidType = errors.New("invalid trial type")
)

// AlreadyRunningError is returned by Start when the sequencer is not IDLE.
// The sequencer state and the active trial are left untouched.
type AlreadyRunningError struct {
	Requested Type
	ActiveID  int64
	State     State
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("%s: cannot start %s trial, trial %d is %s",
		ErrCodeAlreadyRunning, e.Requested, e.ActiveID, e.State)
}

// Code returns ErrCodeAlreadyRunning.
func (e *AlreadyRunningError) Code() ErrorCode { return ErrCodeAlreadyRunning }

// Op names the hardware operation that failed.
type Op string

const (
	OpTrigger Op = "trigger"
	OpRead    Op = "read"
	OpWrite   Op = "write"
	OpCommit  Op = "commit"
)

// HardwareIOError wraps a HardwareLink failure.
type HardwareIOError struct {
	Op      Op
	Addr    Address
	TrialID int64
	Err     error
}

func (e *HardwareIOError) Error() string {
	if e.Op == OpCommit {
		return fmt.Sprintf("%s: %s failed (trial=%d): %v", ErrCodeHardwareIO, e.Op, e.TrialID, e.Err)
	}
	return fmt.Sprintf("%s: %s %s failed (trial=%d): %v", ErrCodeHardwareIO, e.Op, e.Addr, e.TrialID, e.Err)
}

func (e *HardwareIOError) Unwrap() error { return e.Err }

// Code returns ErrCodeHardwareIO.
func (e *HardwareIOError) Code() ErrorCode { return ErrCodeHardwareIO }

// TrialTimeoutError reports a trial the hardware never completed.
type TrialTimeoutError struct {
	TrialID int64
	Polls   int

	// MaxPolls is the poll limit in force (0 when the deadline fired).
	MaxPolls int

	// Elapsed is set when the wall-clock deadline fired.
	Elapsed string
}

func (e *TrialTimeoutError) Error() string {
	if e.Elapsed != "" {
		return fmt.Sprintf("%s: trial %d exceeded deadline after %s (%d polls)",
			ErrCodeTimeout, e.TrialID, e.Elapsed, e.Polls)
	}
	return fmt.Sprintf("%s: trial %d exceeded max polls (%d > %d)",
		ErrCodeTimeout, e.TrialID, e.Polls, e.MaxPolls)
}

// Code returns ErrCodeTimeout.
func (e *TrialTimeoutError) Code() ErrorCode { return ErrCodeTimeout }

// TrialAbortedError reports a trial cancelled through Abort.
type TrialAbortedError struct {
	TrialID int64
	Reason  string
}

func (e *TrialAbortedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: trial %d aborted", ErrCodeAborted, e.TrialID)
	}
	return fmt.Sprintf("%s: trial %d aborted: %s", ErrCodeAborted, e.TrialID, e.Reason)
}

// Code returns ErrCodeAborted.
func (e *TrialAbortedError) Code() ErrorCode { return ErrCodeAborted }

// CodeOf returns the ErrorCode carried by err, or "" if none.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var coded interface{ Code() ErrorCode }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}

// IsAlreadyRunning returns true if err is an AlreadyRunningError.
func IsAlreadyRunning(err error) bool {
	var e *AlreadyRunningError
	return errors.As(err, &e)
}

// IsHardwareIO returns true if err is a HardwareIOError.
func IsHardwareIO(err error) bool {
	var e *HardwareIOError
	return errors.As(err, &e)
}

// IsTimeout returns true if err is a TrialTimeoutError.
func IsTimeout(err error) bool {
	var e *TrialTimeoutError
	return errors.As(err, &e)
}

// IsAborted returns true if err is a TrialAbortedError.
func IsAborted(err error) bool {
	var e *TrialAbortedError
	return errors.As(err, &e)
}
