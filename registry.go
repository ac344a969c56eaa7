package eventbus

import (
	"fmt"
	"reflect"
	"sync"
)

// subscriberKey is the identity of a binding: the listener interface value
// plus the handler method name. For pointer listeners interface equality is
// pointer identity, so the same listener registered twice collapses to one
// binding while two distinct listeners of equal value do not.
type subscriberKey struct {
	listener any
	method   string
}

// registry indexes subscribers by the event type their handler accepts.
// Buckets are created atomically on first registration for a type and are
// never removed while the bus is open; an emptied bucket is tolerated because
// deleting it concurrently with a lookup cannot be done safely without a
// global lock.
type registry struct {
	bus    *Bus
	loader SubscriberLoader

	buckets sync.Map // reflect.Type -> *bucket

	// Interface-typed bucket keys, in creation order. They are the candidate
	// supertypes for hierarchy resolution; generation changes whenever the
	// set grows so cached hierarchies are recomputed lazily.
	mu         sync.Mutex
	ifaces     []reflect.Type
	generation uint64
}

func newRegistry(bus *Bus, loader SubscriberLoader) *registry {
	return &registry{bus: bus, loader: loader}
}

// bucket is a concurrency-safe set of subscribers for one event type.
// Readers take an eager snapshot; a torn or partial insert is never observed.
type bucket struct {
	mu      sync.RWMutex
	members map[subscriberKey]*Subscriber
}

// add inserts s unless an equal binding is already present. Idempotent.
func (b *bucket) add(s *Subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.members[s.key]; ok {
		return false
	}
	b.members[s.key] = s
	return true
}

func (b *bucket) remove(key subscriberKey) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.members[key]; !ok {
		return false
	}
	delete(b.members, key)
	return true
}

// snapshot appends the current membership to dst. Order within a bucket is
// unspecified.
func (b *bucket) snapshot(dst []*Subscriber) []*Subscriber {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.members {
		dst = append(dst, s)
	}
	return dst
}

// bucketFor returns the bucket for event type t, creating it if absent.
// Concurrent creators converge on the same bucket instance.
func (r *registry) bucketFor(t reflect.Type) *bucket {
	if v, ok := r.buckets.Load(t); ok {
		return v.(*bucket)
	}
	nb := &bucket{members: make(map[subscriberKey]*Subscriber)}
	v, loaded := r.buckets.LoadOrStore(t, nb)
	if !loaded && t.Kind() == reflect.Interface {
		r.mu.Lock()
		r.ifaces = append(r.ifaces, t)
		r.generation++
		r.mu.Unlock()
	}
	return v.(*bucket)
}

// interfaceKeys returns the current candidate supertypes and their
// generation.
func (r *registry) interfaceKeys() ([]reflect.Type, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]reflect.Type, len(r.ifaces))
	copy(keys, r.ifaces)
	return keys, r.generation
}

// register discovers the handler bindings of listener and indexes them by
// accepted event type. Returns the number of bindings added, which excludes
// bindings equal to ones already registered.
func (r *registry) register(listener any) (int, error) {
	t := reflect.TypeOf(listener)
	if !t.Comparable() {
		return 0, fmt.Errorf("%w: %s", ErrNotComparable, t)
	}
	methods, err := r.loader.FindSubscriberMethods(t)
	if err != nil {
		return 0, err
	}
	added := 0
	for _, m := range methods {
		s := newSubscriber(r.bus, listener, m)
		if r.bucketFor(m.EventType).add(s) {
			added++
		}
	}
	return added, nil
}

// unregister removes the listener's bindings. When the caller already holds
// a *Subscriber the precomputed event type key is used directly, without
// recomputing discovery. Returns the number of bindings removed.
func (r *registry) unregister(listener any) (int, error) {
	if s, ok := listener.(*Subscriber); ok {
		if r.removeSubscriber(s) {
			return 1, nil
		}
		return 0, nil
	}
	t := reflect.TypeOf(listener)
	if !t.Comparable() {
		return 0, fmt.Errorf("%w: %s", ErrNotComparable, t)
	}
	methods, err := r.loader.FindSubscriberMethods(t)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range methods {
		if v, ok := r.buckets.Load(m.EventType); ok {
			if v.(*bucket).remove(subscriberKey{listener: listener, method: m.Name}) {
				removed++
			}
		}
	}
	return removed, nil
}

func (r *registry) removeSubscriber(s *Subscriber) bool {
	if v, ok := r.buckets.Load(s.eventType); ok {
		return v.(*bucket).remove(s.key)
	}
	return false
}

// getSubscribers resolves the subscribers for event at call time. Each
// contributing bucket is snapshotted independently; there is no cross-bucket
// consistency. Order follows the flattened hierarchy: the event's own type
// first, then matching interface types in bucket-creation order.
func (r *registry) getSubscribers(event any) []*Subscriber {
	if ts, ok := event.(TypeSupplier); ok {
		if dt := ts.DispatchType(); dt != nil {
			if v, ok := r.buckets.Load(dt); ok {
				return v.(*bucket).snapshot(nil)
			}
			return nil
		}
	}
	et := reflect.TypeOf(event)
	candidates, generation := r.interfaceKeys()
	var subs []*Subscriber
	for _, t := range r.loader.FlattenHierarchy(et, candidates, generation) {
		if v, ok := r.buckets.Load(t); ok {
			subs = v.(*bucket).snapshot(subs)
		}
	}
	return subs
}

// subscribersForType returns the bucket membership for one event type.
// Test hook.
func (r *registry) subscribersForType(t reflect.Type) []*Subscriber {
	if v, ok := r.buckets.Load(t); ok {
		return v.(*bucket).snapshot(nil)
	}
	return nil
}

// clear drops all buckets and invalidates the capability cache.
func (r *registry) clear() {
	r.buckets.Clear()
	r.mu.Lock()
	r.ifaces = nil
	r.generation++
	r.mu.Unlock()
	r.loader.InvalidateAll()
}
