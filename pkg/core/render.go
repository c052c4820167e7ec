package core

import (
	stderrors "errors"
	"weak"

	"github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/event"
	"github.com/go-weft/weft/pkg/markup"
)

// RenderTo emits the component's own tagged element into b, with the
// static attributes given at construction, and runs RenderContent to
// populate it. The produced node is bound back to the component (see
// FromNode) and registered with the finalizer so collection of the node
// triggers Destroy(SourceFinalizer). Rendering again replaces the
// previous registration.
//
// Errors from RenderContent propagate to the caller; the first render
// has no prior state to fall back to. Rendering a destroyed component
// fails fast with a misuse error.
func (b *Base) RenderTo(builder markup.Builder) (markup.Node, error) {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil, &errors.MisuseError{
			Op:        "core.RenderTo",
			Component: b.ID(),
			Reason:    "component is destroyed",
		}
	}
	b.mu.Unlock()

	self := b.self
	node, err := builder.Element(b.tag, b.attrs, func(nested markup.Builder) error {
		return self.RenderContent(nested)
	})
	if err != nil {
		return nil, err
	}
	node.BindOwner(self)

	b.mu.Lock()
	prev := b.unregFin
	b.unregFin = nil
	b.mu.Unlock()
	if prev != nil {
		prev()
	}

	var unreg func()
	if b.fin != nil {
		// The hook must not keep the component reachable, or the
		// element could never be collected while registered.
		wp := weak.Make(b)
		unreg = b.fin.Register(node, func() {
			if base := wp.Value(); base != nil {
				base.Destroy(SourceFinalizer)
			}
		})
	}

	b.mu.Lock()
	b.element = node
	b.unregFin = unreg
	b.mu.Unlock()

	event.Emit(b.events, Rendered, self)
	return node, nil
}

// RequestUpdate schedules a re-render of the component's children for
// the next frame. Requests coalesce: once pending, further calls are
// no-ops until the update runs. Destroyed components ignore it.
func (b *Base) RequestUpdate() {
	b.mu.Lock()
	if b.destroyed || b.pending {
		b.mu.Unlock()
		return
	}
	b.pending = true
	self := b.self
	b.mu.Unlock()

	if b.sched != nil {
		b.sched.enqueue(self)
	}
}

// updateContents re-renders the component's children in place. The
// children declared by the previous pass are being replaced, so they are
// destroyed first; then the existing child nodes are removed back to
// front and RenderContent runs into a builder appending to the same top
// element. An empty render is fine; any other error is returned for the
// scheduler to report.
func (b *Base) updateContents() error {
	b.mu.Lock()
	if b.destroyed {
		b.mu.Unlock()
		return nil
	}
	b.pending = false
	el := b.element
	if el == nil {
		// Never rendered; nothing to update.
		b.mu.Unlock()
		return nil
	}
	kids := b.children
	b.children = nil
	self := b.self
	b.mu.Unlock()

	for _, child := range kids {
		child.base().Destroy(SourceParent)
	}
	for i := el.ChildCount() - 1; i >= 0; i-- {
		el.RemoveChild(i)
	}

	nested := el.Rebuild()
	err := self.RenderContent(nested)
	if err == nil {
		err = nested.Close()
	}
	if err != nil && !stderrors.Is(err, markup.ErrEmptyRender) {
		return err
	}

	event.Emit(b.events, Updated, self)
	return nil
}

// FromNode recovers the component that rendered a node, or nil when the
// node was not produced by RenderTo.
func FromNode(n markup.Node) Component {
	if n == nil {
		return nil
	}
	if c, ok := n.Owner().(Component); ok {
		return c
	}
	return nil
}
