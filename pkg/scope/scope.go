// Package scope provides hierarchical lifecycle scopes.
//
// A scope is what a dependency-injection container hands to each component:
// something that can host cleanup hooks and be closed exactly once. Scopes
// form a tree; closing a parent closes its live children first. The
// framework only depends on the [Scope] and [Provider] contracts, so an
// application can plug in a real container; [NewRoot] returns the built-in
// implementation.
package scope

import (
	"sync"

	"github.com/go-weft/weft/pkg/errors"
)

// Scope is a closeable lifecycle container.
type Scope interface {
	// Child returns a new scope that closes when this one closes.
	// A child created from an already-closed scope starts closed.
	Child() Scope

	// OnClose registers a cleanup hook. Hooks run in reverse
	// registration order when the scope closes; registering on a closed
	// scope runs the hook immediately. The returned function unregisters
	// the hook.
	OnClose(fn func()) (cancel func())

	// Close closes the scope: live children first (newest first), then
	// this scope's hooks. Close is idempotent. A panicking hook is
	// reported and does not stop the remaining hooks.
	Close()

	// Closed reports whether Close has been called.
	Closed() bool
}

// Provider hands out per-component scopes. The owner is the component
// requesting the scope; containers may use it for keyed registration.
type Provider interface {
	ScopeFor(owner any) Scope
}

// NewRoot returns a new root scope using the built-in implementation.
func NewRoot() Scope {
	return &basicScope{}
}

type basicScope struct {
	mu       sync.Mutex
	closed   bool
	hooks    []func()
	children []*basicScope
	parent   *basicScope
}

func (s *basicScope) Child() Scope {
	child := &basicScope{parent: s}
	s.mu.Lock()
	if s.closed {
		child.closed = true
		s.mu.Unlock()
		return child
	}
	s.children = append(s.children, child)
	s.mu.Unlock()
	return child
}

func (s *basicScope) OnClose(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		runHook(fn)
		return func() {}
	}
	index := len(s.hooks)
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.hooks) {
			s.hooks[index] = nil
		}
	}
}

func (s *basicScope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	children := s.children
	hooks := s.hooks
	s.children = nil
	s.hooks = nil
	s.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Close()
	}
	for i := len(hooks) - 1; i >= 0; i-- {
		if hooks[i] != nil {
			runHook(hooks[i])
		}
	}
	if s.parent != nil {
		s.parent.removeChild(s)
	}
}

func (s *basicScope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// removeChild detaches a closed child so long-lived parents do not
// accumulate dead entries.
func (s *basicScope) removeChild(child *basicScope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func runHook(fn func()) {
	defer errors.Recover("scope.Close")
	fn()
}

// providerFunc adapts a function to the Provider interface.
type providerFunc func(owner any) Scope

func (f providerFunc) ScopeFor(owner any) Scope { return f(owner) }

// ProviderOf returns a Provider that derives every component scope from
// root, ignoring the owner.
func ProviderOf(root Scope) Provider {
	return providerFunc(func(any) Scope { return root.Child() })
}
