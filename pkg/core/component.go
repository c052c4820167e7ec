package core

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-weft/weft/pkg/attr"
	"github.com/go-weft/weft/pkg/event"
	"github.com/go-weft/weft/pkg/markup"
	"github.com/go-weft/weft/pkg/scope"
)

// Renderer is the user-implemented half of a component. RenderContent
// populates the component's element: text, static markup, and child
// components all go through the builder it receives.
type Renderer interface {
	RenderContent(b markup.Builder) error
}

// Component is satisfied by any struct that embeds *Base and implements
// RenderContent. The unexported accessor keeps the set closed: every
// component carries a Base.
type Component interface {
	Renderer
	base() *Base
}

// BaseOf exposes a component's Base to packages outside core.
func BaseOf(c Component) *Base {
	if c == nil {
		return nil
	}
	return c.base()
}

var lastID atomic.Uint64

// Base carries a component's identity, tree links, and lifecycle state.
// Embed a *Base and assign the result of New or NewRoot to it.
type Base struct {
	id    uint64
	tag   string
	attrs markup.Attrs

	self   Component
	parent Component
	depth  int

	sched     *Scheduler
	fin       Finalizer
	sc        scope.Scope
	ownsScope bool
	events    *event.Registry

	mu        sync.Mutex
	store     *attr.Store
	destroyed bool
	pending   bool
	element   markup.Node
	children  []Component
	unregFin  func()
}

func (b *Base) base() *Base { return b }

// Option configures component construction.
type Option func(*baseOptions)

type baseOptions struct {
	ownScope bool
	attrs    markup.Attrs
	fin      Finalizer
}

// WithOwnScope gives the component a fresh scope derived from its
// parent's. The component closes that scope when destroyed. Without this
// option the component shares its parent's scope and never closes it.
func WithOwnScope() Option {
	return func(o *baseOptions) { o.ownScope = true }
}

// WithAttrs sets the static attribute map emitted on the component's
// element. It is applied once, at render.
func WithAttrs(a markup.Attrs) Option {
	return func(o *baseOptions) { o.attrs = a }
}

// WithFinalizer overrides the finalizer used for this component's
// element registration. Children inherit the parent's finalizer unless
// they override it themselves.
func WithFinalizer(f Finalizer) Option {
	return func(o *baseOptions) { o.fin = f }
}

// New constructs the Base for a component under parent. The child
// inherits the parent's scheduler, finalizer, and scope, and registers
// itself in the parent's child registry so the parent's destruction
// cascades to it. self must be the component embedding the returned
// Base.
func New(self Component, parent Component, tag string, opts ...Option) *Base {
	if self == nil {
		panic("core: New requires the component itself")
	}
	if parent == nil {
		panic("core: New requires a parent; use NewRoot for the tree root")
	}
	var o baseOptions
	for _, opt := range opts {
		opt(&o)
	}

	pb := parent.base()
	b := &Base{
		id:     lastID.Add(1),
		tag:    tag,
		attrs:  o.attrs,
		self:   self,
		parent: parent,
		depth:  pb.depth + 1,
		sched:  pb.sched,
		fin:    pb.fin,
		events: event.NewRegistry(),
	}
	if o.fin != nil {
		b.fin = o.fin
	}
	if o.ownScope {
		if pb.sc != nil {
			b.sc = pb.sc.Child()
		} else {
			b.sc = scope.NewRoot()
		}
		b.ownsScope = true
	} else {
		b.sc = pb.sc
	}
	pb.addChild(self)
	return b
}

// NewRoot constructs the Base for a tree root. The root has no parent;
// its scope and scheduler come from the caller. As with New, the root
// closes sc only when WithOwnScope derived a scope of its own.
func NewRoot(self Component, tag string, sched *Scheduler, sc scope.Scope, opts ...Option) *Base {
	if self == nil {
		panic("core: NewRoot requires the component itself")
	}
	var o baseOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := &Base{
		id:     lastID.Add(1),
		tag:    tag,
		attrs:  o.attrs,
		self:   self,
		sched:  sched,
		fin:    o.fin,
		events: event.NewRegistry(),
	}
	if b.fin == nil {
		b.fin = GCFinalizer()
	}
	if o.ownScope && sc != nil {
		b.sc = sc.Child()
		b.ownsScope = true
	} else {
		b.sc = sc
	}
	return b
}

// ID identifies the component for logs and error reports: the tag plus a
// process-unique monotonic counter, such as "div#42".
func (b *Base) ID() string {
	return fmt.Sprintf("%s#%d", b.tag, b.id)
}

// Tag returns the element tag the component renders as.
func (b *Base) Tag() string { return b.tag }

// Parent returns the parent component, or nil for a root.
func (b *Base) Parent() Component { return b.parent }

// IsRoot reports whether the component is a tree root.
func (b *Base) IsRoot() bool { return b.parent == nil }

// Depth is the distance from the root. Roots are depth 0.
func (b *Base) Depth() int { return b.depth }

// Scope returns the component's scope: the parent's, or its own when
// constructed with WithOwnScope.
func (b *Base) Scope() scope.Scope { return b.sc }

// Events returns the component's event registry. The Rendered, Updated,
// and Destroyed keys are emitted on it.
func (b *Base) Events() *event.Registry { return b.events }

// Destroyed reports whether the component has been destroyed.
func (b *Base) Destroyed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyed
}

// Element returns the node produced by the last render, or nil before
// the first render and after destruction.
func (b *Base) Element() markup.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.element
}

// Children returns a snapshot of the currently registered children in
// construction order.
func (b *Base) Children() []Component {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.children)
}

// Attributes returns the component's hierarchical attribute store. The
// store is created on first use, chained to the parent's so lookups fall
// through the tree.
func (b *Base) Attributes() *attr.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.store == nil {
		var parentStore *attr.Store
		if b.parent != nil {
			parentStore = b.parent.base().Attributes()
		}
		b.store = attr.NewStore(parentStore)
	}
	return b.store
}

func (b *Base) addChild(c Component) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.destroyed {
		// A destroyed parent never cascades, so there is nothing to
		// register the child with.
		return
	}
	b.children = append(b.children, c)
}

func (b *Base) removeChild(c Component) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, child := range b.children {
		if child == c {
			b.children = slices.Delete(b.children, i, i+1)
			return
		}
	}
}
