// Package inspect discovers and invokes event handler methods on listener
// types. It is the introspection boundary of the router: the core dispatch
// code never touches reflection directly, it goes through a Provider. A
// Provider can enumerate the handler methods a type declares, report the
// single event type each one accepts, and invoke a handler on a target with
// one argument while keeping invocation-mechanism failures distinct from
// faults raised by the handler itself.
//
// The default provider marks a method as a handler by name: every exported
// method whose name starts with the configured prefix (default "Handle") and
// whose signature is func(T) or func(T) error, where T is the accepted event
// type. A method that carries the prefix but has a different shape is a
// configuration error, reported as *InvalidHandlerError.
package inspect

import (
	"fmt"
	"reflect"
	"strings"
)

// DefaultPrefix is the method name prefix that marks handler methods.
const DefaultPrefix = "Handle"

// Method describes one handler method declared by a listener type.
type Method struct {
	// Name is the method name on the listener type.
	Name string
	// EventType is the single event parameter type the handler accepts.
	EventType reflect.Type
	// Index is the method's position in the listener type's method set.
	Index int
}

func (m Method) String() string {
	return fmt.Sprintf("%s(%s)", m.Name, m.EventType)
}

// Provider is the capability inspection contract. Methods covers enumeration,
// handler marking and parameter extraction; Invoke covers invocation with the
// mechanism/handler fault distinction.
type Provider interface {
	// Methods returns the handler methods declared by listener type t,
	// or *InvalidHandlerError if a marked method has the wrong shape.
	Methods(t reflect.Type) ([]Method, error)

	// Invoke calls handler m on target with event as its sole argument.
	// A nil return means the handler ran and returned normally. An
	// *InvocationError means the invocation mechanism itself failed and the
	// handler was never entered. A *HandlerError means the handler ran and
	// failed, either by returning an error or by panicking.
	Invoke(m Method, target, event any) error
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

// provider is the reflection-backed Provider.
type provider struct {
	prefix string
}

// Option configures the default provider.
type Option func(*provider)

// WithPrefix overrides the handler method name prefix.
func WithPrefix(prefix string) Option {
	return func(p *provider) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// NewProvider creates the default reflection-based provider.
func NewProvider(opts ...Option) Provider {
	p := &provider{prefix: DefaultPrefix}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Methods walks the method set of t. Go method sets already contain promoted
// methods from embedded types with shadowed ones resolved, so an override of
// an embedded handler shows up exactly once.
func (p *provider) Methods(t reflect.Type) ([]Method, error) {
	if t == nil {
		return nil, nil
	}
	var methods []Method
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !m.IsExported() || !strings.HasPrefix(m.Name, p.prefix) {
			continue
		}
		ft := m.Type
		// The receiver counts as the first input for non-interface types.
		numIn := ft.NumIn()
		argBase := 1
		if t.Kind() == reflect.Interface {
			argBase = 0
			numIn++
		}
		if numIn != 2 {
			return nil, &InvalidHandlerError{
				Type:   t,
				Method: m.Name,
				Reason: fmt.Sprintf("handler must accept exactly one event parameter, has %d", numIn-1),
			}
		}
		switch ft.NumOut() {
		case 0:
		case 1:
			if ft.Out(0) != errType {
				return nil, &InvalidHandlerError{
					Type:   t,
					Method: m.Name,
					Reason: fmt.Sprintf("handler result must be error, is %s", ft.Out(0)),
				}
			}
		default:
			return nil, &InvalidHandlerError{
				Type:   t,
				Method: m.Name,
				Reason: fmt.Sprintf("handler must return nothing or error, returns %d values", ft.NumOut()),
			}
		}
		methods = append(methods, Method{
			Name:      m.Name,
			EventType: ft.In(argBase),
			Index:     m.Index,
		})
	}
	return methods, nil
}

// Invoke delivers event to m on target. The assignability check runs before
// the call so an argument-shape mismatch surfaces as a mechanism fault, never
// as a handler fault.
func (p *provider) Invoke(m Method, target, event any) (err error) {
	tv := reflect.ValueOf(target)
	tt := tv.Type()
	if m.Index < 0 || m.Index >= tt.NumMethod() || tt.Method(m.Index).Name != m.Name {
		return &InvocationError{
			Method: m,
			Err:    fmt.Errorf("method %s not declared by %s", m.Name, tt),
		}
	}
	et := reflect.TypeOf(event)
	if et == nil || !et.AssignableTo(m.EventType) {
		return &InvocationError{
			Method: m,
			Err:    fmt.Errorf("event type %v is not assignable to %s", et, m.EventType),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Method: m, Err: NewPanicError(r)}
		}
	}()
	out := tv.Method(m.Index).Call([]reflect.Value{reflect.ValueOf(event)})
	if len(out) == 1 && !out[0].IsNil() {
		return &HandlerError{Method: m, Err: out[0].Interface().(error)}
	}
	return nil
}
