package inspect

import (
	"fmt"
	"reflect"
	"runtime/debug"
)

// InvalidHandlerError reports a method that is marked as a handler but does
// not have a valid handler shape. It is a configuration error: discovery
// fails fast and the listener is not registered.
type InvalidHandlerError struct {
	Type   reflect.Type
	Method string
	Reason string
}

func (e *InvalidHandlerError) Error() string {
	return fmt.Sprintf("invalid handler %s.%s: %s", e.Type, e.Method, e.Reason)
}

// InvocationError reports that the invocation mechanism failed before the
// handler ran. It indicates a programming error and is never converted into
// an exception event.
type InvocationError struct {
	Method Method
	Err    error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s: %v", e.Method, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// HandlerError reports that the handler ran and failed, either by returning
// a non-nil error or by panicking. The router recovers it into an exception
// event instead of propagating it to the poster.
type HandlerError struct {
	Method Method
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed: %v", e.Method, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// PanicError carries a recovered handler panic and the stack at the point of
// recovery.
type PanicError struct {
	Value any
	Stack []byte
}

// NewPanicError captures the current stack for a recovered panic value.
func NewPanicError(v any) *PanicError {
	return &PanicError{Value: v, Stack: debug.Stack()}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
