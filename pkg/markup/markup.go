// Package markup defines the contract between components and the host
// document. Components never touch a real DOM API; they emit elements and
// text through a [Builder] supplied by the host, and hold on to the opaque
// [Node] handles the builder returns.
//
// A host binding (a wasm DOM bridge, a server-side renderer, the in-memory
// implementation in pkg/uitest) implements both interfaces. The framework
// core is written purely against this package.
package markup

import "errors"

// ErrEmptyRender is reported by [Builder.Close] when no markup was emitted.
// The component update path tolerates it (a re-render may legitimately
// produce nothing); any other finalization error is a real failure.
var ErrEmptyRender = errors.New("markup: nothing was rendered")

// Attrs is the static attribute set applied when an element is created.
type Attrs map[string]string

// Builder accumulates markup under a single parent position.
//
// Builders are single-use and not safe for concurrent use; a component
// receives one, writes its content, and must not retain it afterwards.
type Builder interface {
	// Element emits a child element with the given tag and attributes.
	// content, if non-nil, populates the element's children through a
	// nested builder before Element returns. The returned Node is the
	// live handle for the created element.
	Element(tag string, attrs Attrs, content func(Builder) error) (Node, error)

	// Text emits a text node at the current position.
	Text(text string) error

	// Close finalizes the builder. It returns ErrEmptyRender when nothing
	// was emitted, and nil otherwise. Hosts may also surface deferred
	// write failures here.
	Close() error
}

// Node is an opaque handle to a live element owned by a component.
type Node interface {
	// Tag reports the element's tag name.
	Tag() string

	// ChildCount reports the number of direct children (elements and
	// text nodes).
	ChildCount() int

	// RemoveChild detaches the direct child at index. The framework
	// removes children back to front so indices stay stable during a
	// teardown walk.
	RemoveChild(index int)

	// Rebuild returns a fresh builder that appends children to this
	// node. Used for in-place content updates after the original
	// builder is gone.
	Rebuild() Builder

	// BindOwner attaches a back-reference from the node to the component
	// that owns it, so the component can be recovered from the node.
	BindOwner(owner any)

	// Owner returns the value set by BindOwner, or nil.
	Owner() any
}
