// Package hardware provides trial.HardwareLink implementations: an in-process
// Simulator of the timed-response module and a scripted Recorder used by the
// scenario harness and tests.
package hardware

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/gonogo/internal/trial"
)

// ErrClosed is returned by every operation on a closed device.
var ErrClosed = errors.New("device closed")

// Device is a trial.HardwareLink with a connection lifecycle.
type Device interface {
	trial.HardwareLink

	// Ready blocks until the device accepts register operations or ctx ends.
	Ready(ctx context.Context) error

	// Close releases the device. Further operations return ErrClosed.
	Close() error
}

// UnknownRegisterError reports an operation on an address the device does
// not expose for that operation.
type UnknownRegisterError struct {
	Op   trial.Op
	Addr trial.Address
}

func (e *UnknownRegisterError) Error() string {
	return fmt.Sprintf("%s: no register at %s", e.Op, e.Addr)
}

var (
	_ Device = (*Simulator)(nil)
	_ Device = (*Recorder)(nil)
)
