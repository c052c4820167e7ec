package state

import (
	"context"
	"sync"
)

// Value is a plain observable holding a current value of T. Unlike
// [Cached] it has no supplier and no validity window; it changes only
// through Set and Update.
type Value[T any] struct {
	mu      sync.Mutex
	v       T
	version uint64
	eq      func(a, b T) bool
	subs    map[int]chan T
	nextID  int
}

// NewValue returns an observable initialized to initial.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{v: initial, subs: make(map[int]chan T)}
}

// NewValueWithEquality is NewValue with an equality function: a Set whose
// new value is equal to the current one neither emits nor advances the
// version.
func NewValueWithEquality[T any](initial T, eq func(a, b T) bool) *Value[T] {
	v := NewValue(initial)
	v.eq = eq
	return v
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.v
}

// Version returns a counter that advances on every effective Set.
func (v *Value[T]) Version() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.version
}

// Set stores nv and notifies watchers.
func (v *Value[T]) Set(nv T) {
	v.mu.Lock()
	if v.eq != nil && v.eq(v.v, nv) {
		v.mu.Unlock()
		return
	}
	v.v = nv
	v.version++
	for _, ch := range v.subs {
		trySend(ch, nv)
	}
	v.mu.Unlock()
}

// Update applies fn to the current value and stores the result.
func (v *Value[T]) Update(fn func(T) T) {
	v.mu.Lock()
	nv := fn(v.v)
	if v.eq != nil && v.eq(v.v, nv) {
		v.mu.Unlock()
		return
	}
	v.v = nv
	v.version++
	for _, ch := range v.subs {
		trySend(ch, nv)
	}
	v.mu.Unlock()
}

// Watcher delivers value changes. Receive from C; call Cancel when done.
type Watcher[T any] struct {
	v    *Value[T]
	id   int
	ch   chan T
	once sync.Once
	stop func() bool
}

// C returns the delivery channel. The current value is replayed first.
func (w *Watcher[T]) C() <-chan T { return w.ch }

// Cancel detaches the watcher and closes its channel. Idempotent.
func (w *Watcher[T]) Cancel() {
	w.once.Do(func() {
		w.v.mu.Lock()
		stop := w.stop
		delete(w.v.subs, w.id)
		close(w.ch)
		w.v.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// Watch registers a change consumer. The current value is delivered
// immediately; the watcher is released on Cancel or when ctx is done.
func (v *Value[T]) Watch(ctx context.Context) *Watcher[T] {
	v.mu.Lock()
	v.nextID++
	w := &Watcher[T]{v: v, id: v.nextID, ch: make(chan T, subscriberBuffer)}
	v.subs[w.id] = w.ch
	w.ch <- v.v
	if ctx != nil && ctx.Done() != nil {
		w.stop = context.AfterFunc(ctx, w.Cancel)
	}
	v.mu.Unlock()
	return w
}

// Derived is a lazily recomputed combination of observable inputs. It
// re-runs its function only when an input's version advanced since the
// last read, so repeated reads of unchanged inputs are cheap.
type Derived[T any] struct {
	mu        sync.Mutex
	versions  func() [2]uint64
	recompute func() T
	seen      [2]uint64
	memo      T
	valid     bool
}

// Combine derives a value from two independently updated observables.
func Combine[A, B, T any](a *Value[A], b *Value[B], fn func(A, B) T) *Derived[T] {
	return &Derived[T]{
		versions:  func() [2]uint64 { return [2]uint64{a.Version(), b.Version()} },
		recompute: func() T { return fn(a.Get(), b.Get()) },
	}
}

// Get returns the combined value, reflecting the latest state of both
// inputs at the time of the call.
func (d *Derived[T]) Get() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	cur := d.versions()
	if !d.valid || cur != d.seen {
		d.memo = d.recompute()
		d.seen = cur
		d.valid = true
	}
	return d.memo
}
