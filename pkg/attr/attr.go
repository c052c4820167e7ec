// Package attr provides the hierarchical attribute store components use to
// share contextual values down the tree.
//
// A store holds typed entries keyed by identity (two keys with the same
// name are distinct) and optionally delegates missing lookups to a parent
// store, so a component sees its own values first and its ancestors'
// values otherwise. Setting a key locally shadows the parent; unsetting it
// removes the shadow and the parent value shows through again.
package attr

import (
	"fmt"
	"sync"
)

// Key identifies an attribute of type T. Create keys with NewKey.
type Key[T any] struct {
	name string
}

// NewKey returns a new attribute key. The name appears in diagnostics.
func NewKey[T any](name string) *Key[T] {
	return &Key[T]{name: name}
}

// Name returns the diagnostic name the key was created with.
func (k *Key[T]) Name() string { return k.name }

// Store is a typed key-value map with an optional parent chain. The parent
// is consulted on lookup misses and is never mutated or owned by the
// child. A nil *Store is a valid empty read-only store.
type Store struct {
	mu     sync.RWMutex
	values map[any]any
	parent *Store
}

// NewStore returns an empty store delegating misses to parent.
// parent may be nil.
func NewStore(parent *Store) *Store {
	return &Store{parent: parent}
}

// Parent returns the store lookups fall through to, or nil.
func (s *Store) Parent() *Store {
	if s == nil {
		return nil
	}
	return s.parent
}

// Get returns the value for k from the nearest store in the chain that
// has it set.
func Get[T any](s *Store, k *Key[T]) (T, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.values[k]
		cur.mu.RUnlock()
		if ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}

// MustGet returns the value for k and panics when it is absent from the
// whole chain. Use it for attributes a component cannot function without.
func MustGet[T any](s *Store, k *Key[T]) T {
	v, ok := Get(s, k)
	if !ok {
		panic(fmt.Sprintf("attr: required attribute %q is not set", k.name))
	}
	return v
}

// Set stores v for k locally, shadowing any parent value.
func Set[T any](s *Store, k *Key[T], v T) {
	s.mu.Lock()
	if s.values == nil {
		s.values = make(map[any]any)
	}
	s.values[k] = v
	s.mu.Unlock()
}

// Unset removes the local entry for k. After Unset, lookups fall through
// to the parent again. Unsetting an absent key is a no-op.
func Unset[T any](s *Store, k *Key[T]) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.values, k)
	s.mu.Unlock()
}
