package core

import (
	"github.com/go-weft/weft/pkg/event"
)

// DestroySource identifies which of the three destruction paths fired.
type DestroySource int

const (
	// SourceExplicit is a direct Destroy call by user code.
	SourceExplicit DestroySource = iota
	// SourceParent is the parent's destruction cascading into the child.
	SourceParent
	// SourceFinalizer is the best-effort hook that runs when the
	// component's element is collected.
	SourceFinalizer
)

func (s DestroySource) String() string {
	switch s {
	case SourceExplicit:
		return "explicit"
	case SourceParent:
		return "parent"
	case SourceFinalizer:
		return "finalization"
	default:
		return "unknown"
	}
}

// Lifecycle event keys, emitted on each component's own registry.
var (
	// Rendered fires after RenderTo produced the component's element.
	Rendered = event.NewKey[Component]("core.rendered")
	// Updated fires after a scheduled re-render replaced the
	// component's children.
	Updated = event.NewKey[Component]("core.updated")
	// Destroyed fires exactly once, with the source that triggered the
	// destruction. A panicking subscriber is reported and does not stop
	// the rest.
	Destroyed = event.NewKey[DestroySource]("core.destroyed")
)

// Destroy tears the component down. It is idempotent: the first call
// wins, whatever its source, and later calls return immediately.
//
// Order: the component is marked destroyed, registered children are
// cascade-destroyed top-down, Destroyed subscribers run, the element's
// finalizer registration is dropped, a scope the component owns is
// closed, and finally the component detaches from its parent's registry.
func (b *Base) Destroy(source DestroySource) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return
	}
	b.destroyed = true
	b.pending = false
	b.element = nil
	kids := b.children
	b.children = nil
	unreg := b.unregFin
	b.unregFin = nil
	b.mu.Unlock()

	for _, child := range kids {
		child.base().Destroy(SourceParent)
	}

	event.Emit(b.events, Destroyed, source)

	if unreg != nil {
		unreg()
	}
	if b.ownsScope {
		b.sc.Close()
	}
	if b.parent != nil {
		b.parent.base().removeChild(b.self)
	}
}

// OnDestroy registers fn to run when the component is destroyed. If the
// component is already destroyed, fn runs immediately. The returned
// function cancels the registration; it is safe to call more than once.
func (b *Base) OnDestroy(fn func()) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		fn()
		return func() {}
	}
	sub := event.Subscribe(b.events, Destroyed, func(DestroySource) { fn() })
	b.mu.Unlock()
	return sub.Cancel
}
