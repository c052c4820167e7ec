// Package task ties background goroutines to a component lifetime.
//
// A Scope owns the goroutines started through it. Work spawned with
// [Scope.Go] receives the scope's context and is expected to return when
// that context is canceled. Canceling a scope is synchronous and does not
// wait for in-flight work; it abandons it. [Scope.Wait] exists for tests
// and orderly shutdown.
//
// [Bind] couples a scope to a component: when the component is destroyed
// the scope is canceled, so a destroyed component never keeps background
// work alive.
//
// A panic inside a task never crosses the goroutine boundary. It is
// recovered and reported through the global error handler, and sibling
// tasks keep running.
package task

import (
	"context"
	"sync"

	"github.com/go-weft/weft/pkg/errors"
)

// Scope owns a group of goroutines sharing one cancelable context.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScope creates a scope whose context descends from parent.
func NewScope(parent context.Context) *Scope {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Owner is the slice of a component lifecycle a scope binds to.
// *core.Base satisfies it.
type Owner interface {
	// OnDestroy registers fn to run when the owner is destroyed. If the
	// owner is already destroyed, fn runs immediately. The returned
	// function cancels the registration.
	OnDestroy(fn func()) (cancel func())
}

// Bind creates a scope that is canceled when owner is destroyed. Binding
// to an already-destroyed owner yields an already-canceled scope.
func Bind(owner Owner) *Scope {
	s := NewScope(context.Background())
	owner.OnDestroy(s.Cancel)
	return s
}

// Context returns the scope's context. It is canceled by Cancel or, for a
// bound scope, by the owner's destruction.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Go starts fn in its own goroutine with the scope's context. The name
// identifies the task in panic reports. Starting a task on a canceled
// scope still runs fn; its context is already done, so it should return
// promptly.
func (s *Scope) Go(name string, fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer errors.Recover("task.Go(" + name + ")")
		fn(s.ctx)
	}()
}

// Cancel cancels the scope's context. It returns immediately without
// waiting for tasks to observe the cancellation. Cancel is idempotent.
func (s *Scope) Cancel() {
	s.cancel()
}

// Wait blocks until every task started through the scope has returned.
// It does not cancel anything itself.
func (s *Scope) Wait() {
	s.wg.Wait()
}

// Err reports the scope's cancellation state: nil while the scope is
// live, a non-nil error once canceled.
func (s *Scope) Err() error {
	return s.ctx.Err()
}
