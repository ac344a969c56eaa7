package eventbus

import (
	"log/slog"
	"reflect"
	"sync"

	"github.com/busfactor/eventbus/inspect"
)

// SubscriberLoader discovers and caches, per concrete listener type, the set
// of handler methods, and per event type, its flattened dispatch hierarchy.
// Implementations must be safe for concurrent use; both operations are pure
// functions of their inputs and may be recomputed by concurrent callers as
// long as they converge.
type SubscriberLoader interface {
	// FindSubscriberMethods returns the handler methods declared by the
	// listener type t.
	FindSubscriberMethods(t reflect.Type) ([]inspect.Method, error)

	// FlattenHierarchy returns the dispatch types for an event of type t:
	// t itself first, then every candidate interface type t is assignable
	// to, preserving candidate order. generation identifies the candidate
	// set; a cached result computed for a different generation is stale.
	FlattenHierarchy(t reflect.Type, candidates []reflect.Type, generation uint64) []reflect.Type

	// InvalidateAll drops both caches.
	InvalidateAll()
}

// typeLoader is the default SubscriberLoader.
type typeLoader struct {
	provider inspect.Provider
	logger   *slog.Logger

	methods     sync.Map // reflect.Type -> []inspect.Method
	hierarchies sync.Map // reflect.Type -> *hierarchyEntry
}

type hierarchyEntry struct {
	generation uint64
	types      []reflect.Type
}

// NewLoader creates the default capability cache on top of the given
// inspection provider.
func NewLoader(p inspect.Provider, logger *slog.Logger) SubscriberLoader {
	if p == nil {
		p = inspect.NewProvider()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &typeLoader{provider: p, logger: logger}
}

func (l *typeLoader) FindSubscriberMethods(t reflect.Type) ([]inspect.Method, error) {
	if v, ok := l.methods.Load(t); ok {
		return v.([]inspect.Method), nil
	}
	methods, err := l.provider.Methods(t)
	if err != nil {
		// Configuration errors are not cached so a corrected provider
		// swapped in by tests is picked up.
		return nil, err
	}
	actual, _ := l.methods.LoadOrStore(t, methods)
	return actual.([]inspect.Method), nil
}

func (l *typeLoader) FlattenHierarchy(t reflect.Type, candidates []reflect.Type, generation uint64) []reflect.Type {
	if v, ok := l.hierarchies.Load(t); ok {
		if e := v.(*hierarchyEntry); e.generation == generation {
			return e.types
		}
	}
	types := make([]reflect.Type, 0, len(candidates)+1)
	types = append(types, t)
	for _, c := range candidates {
		if c == nil {
			// A candidate that cannot be inspected is skipped, not fatal.
			l.logger.Warn("skipping nil candidate type in hierarchy walk", "event_type", t.String())
			continue
		}
		if c != t && t.AssignableTo(c) {
			types = append(types, c)
		}
	}
	l.hierarchies.Store(t, &hierarchyEntry{generation: generation, types: types})
	return types
}

func (l *typeLoader) InvalidateAll() {
	l.methods.Clear()
	l.hierarchies.Clear()
}
