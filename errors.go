package eventbus

import "errors"

// Bus errors. Configuration errors from handler discovery are reported as
// *inspect.InvalidHandlerError; mechanism faults during delivery as
// *inspect.InvocationError. Use errors.As to inspect either.
var (
	// ErrBusClosed is returned by Register and Unregister after Close.
	ErrBusClosed = errors.New("bus is closed")

	// ErrNilEvent is returned by Post for a nil event.
	ErrNilEvent = errors.New("event must not be nil")

	// ErrNilListener is returned by Register and Unregister for a nil
	// listener.
	ErrNilListener = errors.New("listener must not be nil")

	// ErrNotComparable is returned when a listener's dynamic type cannot be
	// used as an identity key. Register listeners through pointers.
	ErrNotComparable = errors.New("listener type is not comparable")

	// ErrExecutorStopped is returned by a pool executor after Stop.
	ErrExecutorStopped = errors.New("executor is stopped")
)
