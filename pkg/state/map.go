package state

import (
	"sync"
	"time"
	"weak"
)

// CachedMap lazily creates one [Cached] per key. Entries are held weakly:
// once no consumer references a key's value it becomes collectable, and
// its table slot is swept on the next access. Two concurrent Gets for the
// same live key return the same instance.
type CachedMap[K comparable, T any] struct {
	factory  func(K) Supplier[T]
	validity time.Duration
	opts     []Option

	mu      sync.Mutex
	entries map[K]weak.Pointer[Cached[T]]
}

// NewCachedMap returns a keyed cache family. factory builds the supplier
// for a key; validity and opts apply to every entry.
func NewCachedMap[K comparable, T any](factory func(K) Supplier[T], validity time.Duration, opts ...Option) *CachedMap[K, T] {
	return &CachedMap[K, T]{
		factory:  factory,
		validity: validity,
		opts:     opts,
		entries:  make(map[K]weak.Pointer[Cached[T]]),
	}
}

// Get returns the cached source for key, creating it on first access or
// after the previous instance was collected.
func (m *CachedMap[K, T]) Get(key K) *Cached[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wp, ok := m.entries[key]; ok {
		if c := wp.Value(); c != nil {
			return c
		}
		delete(m.entries, key)
	}
	c := NewCached(m.factory(key), m.validity, m.opts...)
	m.entries[key] = weak.Make(c)
	return c
}

// ClearAll clears every live entry and sweeps dead ones.
func (m *CachedMap[K, T]) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, wp := range m.entries {
		if c := wp.Value(); c != nil {
			c.Clear()
		} else {
			delete(m.entries, key)
		}
	}
}

// Len reports the number of live entries, sweeping dead ones.
func (m *CachedMap[K, T]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, wp := range m.entries {
		if wp.Value() == nil {
			delete(m.entries, key)
		}
	}
	return len(m.entries)
}
