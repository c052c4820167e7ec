// Package core provides the component tree, its lifecycle, and the
// per-frame update scheduler.
//
// A component owns one element in the host document. Components form a
// tree: each is constructed under a parent, renders its own tagged
// element through a markup.Builder, and re-renders its children when its
// state changes. Destroying a component cascades to its children, fires
// lifecycle subscribers, and releases the resources it owns.
//
// # Components
//
// A component is a struct embedding *Base and implementing RenderContent.
// The constructor wires the two together:
//
//	type counter struct {
//	    *core.Base
//	    n int
//	}
//
//	func newCounter(parent core.Component) *counter {
//	    c := &counter{}
//	    c.Base = core.New(c, parent, "div")
//	    return c
//	}
//
//	func (c *counter) RenderContent(b markup.Builder) error {
//	    return b.Text(strconv.Itoa(c.n))
//	}
//
// Base's methods promote onto the component, so callers use c.RenderTo,
// c.RequestUpdate, and c.Destroy directly. Only types embedding *Base can
// satisfy Component.
//
// # Updates
//
// RequestUpdate marks the component dirty and schedules it; many requests
// within one frame coalesce into a single re-render. The Scheduler sorts
// the frame's batch by tree depth so parents render before children, and
// an update requested while a flush is running lands on the next frame.
// A render error or panic during a flush is reported through pkg/errors
// and never stops the scheduler.
//
// # Destruction
//
// Destroy is idempotent and can be triggered from three places: an
// explicit call, the parent cascading into its children, and the
// best-effort finalizer hook that fires when the component's element is
// collected. Whatever the source, lifecycle subscribers run exactly once,
// a scope the component owns is closed, and the component detaches from
// its parent. The finalizer path is a convenience, not a guarantee;
// deterministic teardown goes through Destroy or the owning scope.
package core
