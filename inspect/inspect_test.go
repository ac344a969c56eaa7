package inspect

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ N int }

type widget struct {
	got  []any
	err  error
	boom bool
}

func (w *widget) HandlePing(e ping) {
	if w.boom {
		panic("widget exploded")
	}
	w.got = append(w.got, e)
}

func (w *widget) HandlePong(e pong) error {
	w.got = append(w.got, e)
	return w.err
}

// Refresh is not marked as a handler: no prefix.
func (w *widget) Refresh(e ping) {}

// unexported methods never mark handlers.
func (w *widget) handleHidden(e ping) {}

type base struct{}

func (b *base) HandlePing(e ping) {}

type derived struct {
	*base
	calls int
}

// HandlePing shadows the promoted method; it must be discovered once.
func (d *derived) HandlePing(e ping) { d.calls++ }

type twoArgs struct{}

func (twoArgs) HandlePair(a ping, b pong) {}

type badResult struct{}

func (badResult) HandlePing(e ping) string { return "" }

func TestMethodsDiscovery(t *testing.T) {
	p := NewProvider()
	methods, err := p.Methods(reflect.TypeOf(&widget{}))
	require.NoError(t, err)
	require.Len(t, methods, 2)

	byName := map[string]Method{}
	for _, m := range methods {
		byName[m.Name] = m
	}
	assert.Equal(t, reflect.TypeOf(ping{}), byName["HandlePing"].EventType)
	assert.Equal(t, reflect.TypeOf(pong{}), byName["HandlePong"].EventType)
}

func TestMethodsOverrideDeduplicated(t *testing.T) {
	p := NewProvider()
	methods, err := p.Methods(reflect.TypeOf(&derived{}))
	require.NoError(t, err)
	require.Len(t, methods, 1, "shadowed promoted handler must appear once")

	d := &derived{base: &base{}}
	require.NoError(t, p.Invoke(methods[0], d, ping{N: 1}))
	assert.Equal(t, 1, d.calls, "the override, not the embedded method, runs")
}

func TestMethodsArityError(t *testing.T) {
	p := NewProvider()
	_, err := p.Methods(reflect.TypeOf(twoArgs{}))
	var ihe *InvalidHandlerError
	require.ErrorAs(t, err, &ihe)
	assert.Equal(t, "HandlePair", ihe.Method)
}

func TestMethodsResultError(t *testing.T) {
	p := NewProvider()
	_, err := p.Methods(reflect.TypeOf(badResult{}))
	var ihe *InvalidHandlerError
	require.ErrorAs(t, err, &ihe)
	assert.Contains(t, ihe.Reason, "error")
}

func TestPrefixOverride(t *testing.T) {
	p := NewProvider(WithPrefix("Refresh"))
	methods, err := p.Methods(reflect.TypeOf(&widget{}))
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, "Refresh", methods[0].Name)
}

func TestInvokeNormalReturn(t *testing.T) {
	p := NewProvider()
	w := &widget{}
	methods, err := p.Methods(reflect.TypeOf(w))
	require.NoError(t, err)

	for _, m := range methods {
		switch m.Name {
		case "HandlePing":
			require.NoError(t, p.Invoke(m, w, ping{N: 1}))
		case "HandlePong":
			require.NoError(t, p.Invoke(m, w, pong{N: 2}))
		}
	}
	assert.Equal(t, []any{ping{N: 1}, pong{N: 2}}, w.got)
}

func findMethod(t *testing.T, p Provider, target any, name string) Method {
	t.Helper()
	methods, err := p.Methods(reflect.TypeOf(target))
	require.NoError(t, err)
	for _, m := range methods {
		if m.Name == name {
			return m
		}
	}
	t.Fatalf("method %s not found", name)
	return Method{}
}

func TestInvokeHandlerError(t *testing.T) {
	p := NewProvider()
	w := &widget{err: errors.New("no table space")}
	m := findMethod(t, p, w, "HandlePong")

	err := p.Invoke(m, w, pong{N: 1})
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	assert.ErrorIs(t, herr.Err, w.err)
}

func TestInvokeHandlerPanic(t *testing.T) {
	p := NewProvider()
	w := &widget{boom: true}
	m := findMethod(t, p, w, "HandlePing")

	err := p.Invoke(m, w, ping{})
	var herr *HandlerError
	require.ErrorAs(t, err, &herr)
	var pe *PanicError
	require.ErrorAs(t, herr, &pe)
	assert.Equal(t, "widget exploded", pe.Value)
	assert.NotEmpty(t, pe.Stack)
}

func TestInvokeMechanismFault(t *testing.T) {
	p := NewProvider()
	w := &widget{}
	m := findMethod(t, p, w, "HandlePing")

	// Argument-shape mismatch is detected before the handler runs.
	err := p.Invoke(m, w, pong{N: 1})
	var ierr *InvocationError
	require.ErrorAs(t, err, &ierr)
	assert.Empty(t, w.got)

	// Nil event can never be assigned to a concrete parameter.
	err = p.Invoke(m, w, nil)
	require.ErrorAs(t, err, &ierr)

	// A descriptor pointing at a method the target does not declare is a
	// mechanism fault, not a panic.
	err = p.Invoke(Method{Name: "HandleGone", EventType: reflect.TypeOf(ping{}), Index: 99}, w, ping{})
	require.ErrorAs(t, err, &ierr)
}
