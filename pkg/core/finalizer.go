package core

import (
	"runtime"
	"sync/atomic"
)

// Finalizer arranges for fn to run at some point after target becomes
// unreachable. The returned function cancels a registration that has not
// fired yet.
//
// Implementations are best-effort: the runtime-backed default gives no
// timing guarantee at all, and a hook may never fire. Deterministic
// teardown must not rely on it. Tests use a manual implementation that
// records registrations and fires them on demand.
type Finalizer interface {
	Register(target any, fn func()) (unregister func())
}

// GCFinalizer returns the runtime-backed finalizer. The target must be a
// pointer; the hook runs on the collector's finalizer goroutine.
func GCFinalizer() Finalizer { return gcFinalizer{} }

type gcFinalizer struct{}

func (gcFinalizer) Register(target any, fn func()) func() {
	if target == nil || fn == nil {
		return func() {}
	}
	var stopped atomic.Bool
	runtime.SetFinalizer(target, func(any) {
		if !stopped.Load() {
			fn()
		}
	})
	return func() {
		stopped.Store(true)
		runtime.SetFinalizer(target, nil)
	}
}
