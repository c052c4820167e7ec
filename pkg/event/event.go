// Package event provides the keyed callback registry used for component
// lifecycle events.
//
// Events are identified by typed keys with pointer identity: two keys
// created with the same name are still distinct events. Subscribers for a
// key are invoked in subscription order. The registry is safe for
// concurrent use and for reentrant mutation: a callback may cancel itself
// or any other subscription, or subscribe new callbacks, while a
// notification pass is running.
package event

import (
	"sync"

	"github.com/go-weft/weft/pkg/errors"
)

// Key identifies an event carrying a payload of type T. Create keys with
// NewKey; identity is the pointer, not the name.
type Key[T any] struct {
	name string
}

// NewKey returns a new event key. The name is used in diagnostics only.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// Name returns the diagnostic name the key was created with.
func (k *Key[T]) Name() string { return k.name }

type entry struct {
	id      int
	call    func(any)
	removed bool
}

type keyList struct {
	entries []*entry
}

// Registry dispatches typed events to ordered subscriber lists.
// The zero value is not usable; create registries with NewRegistry.
type Registry struct {
	mu     sync.Mutex
	lists  map[any]*keyList
	nextID int

	// depth counts active notification passes. While it is non-zero,
	// cancellations are tombstoned and swept when the outermost pass
	// completes, so an in-flight pass never skips or repeats a callback.
	depth int
	dirty bool

	onPanic func(keyName string, recovered any)
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{lists: make(map[any]*keyList)}
}

// SetPanicHook overrides what happens when a subscriber panics during
// Emit. The default reports through the errors package. Pass nil to
// restore the default.
func (r *Registry) SetPanicHook(fn func(keyName string, recovered any)) {
	r.mu.Lock()
	r.onPanic = fn
	r.mu.Unlock()
}

// Subscription identifies one registered callback.
type Subscription struct {
	r   *Registry
	key any
	id  int
}

// Cancel removes the subscription. It is idempotent. When called from
// inside a notification pass the removal is deferred: the callback will
// not run again, and the entry is physically removed once the pass ends.
func (s Subscription) Cancel() {
	if s.r == nil {
		return
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	l := s.r.lists[s.key]
	if l == nil {
		return
	}
	for i, e := range l.entries {
		if e.id != s.id {
			continue
		}
		if s.r.depth > 0 {
			e.removed = true
			s.r.dirty = true
		} else {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			if len(l.entries) == 0 {
				delete(s.r.lists, s.key)
			}
		}
		return
	}
}

// Subscribe registers fn for events emitted under k. Callbacks run in
// subscription order. Subscribing during a notification pass is allowed;
// the new callback first runs on the next Emit.
func Subscribe[T any](r *Registry, k *Key[T], fn func(T)) Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.lists[k]
	if l == nil {
		l = &keyList{}
		r.lists[k] = l
	}
	r.nextID++
	id := r.nextID
	l.entries = append(l.entries, &entry{
		id:   id,
		call: func(v any) { fn(v.(T)) },
	})
	return Subscription{r: r, key: k, id: id}
}

// Emit invokes every live subscriber of k with v, in subscription order.
// A panicking subscriber is reported and does not stop the pass. Nested
// Emit calls from inside callbacks are permitted.
func Emit[T any](r *Registry, k *Key[T], v T) {
	r.mu.Lock()
	l := r.lists[k]
	if l == nil || len(l.entries) == 0 {
		r.mu.Unlock()
		return
	}
	pass := make([]*entry, len(l.entries))
	copy(pass, l.entries)
	r.depth++
	hook := r.onPanic
	r.mu.Unlock()

	for _, e := range pass {
		r.mu.Lock()
		dead := e.removed
		r.mu.Unlock()
		if dead {
			continue
		}
		invoke(e, v, k.name, hook)
	}

	r.mu.Lock()
	r.depth--
	if r.depth == 0 && r.dirty {
		r.sweepLocked()
	}
	r.mu.Unlock()
}

func invoke(e *entry, v any, keyName string, hook func(string, any)) {
	defer func() {
		if rec := recover(); rec != nil {
			if hook != nil {
				hook(keyName, rec)
				return
			}
			errors.ReportPanic(&errors.PanicError{
				Op:         "event.Emit(" + keyName + ")",
				Value:      rec,
				StackTrace: errors.CaptureStack(),
			})
		}
	}()
	e.call(v)
}

func (r *Registry) sweepLocked() {
	for key, l := range r.lists {
		live := l.entries[:0]
		for _, e := range l.entries {
			if !e.removed {
				live = append(live, e)
			}
		}
		l.entries = live
		if len(l.entries) == 0 {
			delete(r.lists, key)
		}
	}
	r.dirty = false
}

// Count reports the number of live subscriptions for k.
func Count[T any](r *Registry, k *Key[T]) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	l := r.lists[k]
	if l == nil {
		return 0
	}
	n := 0
	for _, e := range l.entries {
		if !e.removed {
			n++
		}
	}
	return n
}
