// Package weft bootstraps a component tree against a host document.
//
// A platform supplies a Host: a builder the tree renders into plus a way
// to request frames. The App owns the rest: the update scheduler, the
// root scope, and the root component. The host calls RenderFrame on its
// frame tick; components call RequestUpdate and the app asks the host
// for a frame only when something is pending.
//
//	app := weft.New(host)
//	if err := app.Mount(newTodoRoot(app)); err != nil {
//	    ...
//	}
//	// on every host frame tick:
//	app.RenderFrame()
//	// on shutdown:
//	app.Close()
package weft

import (
	"log/slog"
	"sync"

	"github.com/go-weft/weft/pkg/core"
	"github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/logging"
	"github.com/go-weft/weft/pkg/markup"
	"github.com/go-weft/weft/pkg/scope"
)

// Host is the surface a platform provides for the app to live on.
type Host interface {
	// Builder returns a builder appending into the host document.
	Builder() markup.Builder
	// RequestFrame asks the host to schedule a frame. The host is
	// expected to call App.RenderFrame on its next tick.
	RequestFrame()
}

// App ties a host, a scheduler, a root scope, and a root component
// together for the lifetime of the application.
type App struct {
	host  Host
	sched *core.Scheduler
	sc    scope.Scope
	fin   core.Finalizer
	log   *slog.Logger

	mu     sync.Mutex
	root   core.Component
	closed bool
}

// Option configures an App.
type Option func(*App)

// WithScope supplies the app's root scope, typically from a DI
// container. The app still closes it on Close. Without this option the
// app creates its own.
func WithScope(sc scope.Scope) Option {
	return func(a *App) { a.sc = sc }
}

// WithFinalizer overrides the finalizer handed to root components.
// Tests use the recording implementation from pkg/uitest.
func WithFinalizer(f core.Finalizer) Option {
	return func(a *App) { a.fin = f }
}

// New creates an app on host. The scheduler's frame signal is wired to
// host.RequestFrame.
func New(host Host, opts ...Option) *App {
	a := &App{
		host:  host,
		sched: core.NewScheduler(),
		log:   logging.Logger("weft.app"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.sc == nil {
		a.sc = scope.NewRoot()
	}
	a.sched.OnNeedsFrame = host.RequestFrame
	return a
}

// Scheduler returns the app's update scheduler, for root construction.
func (a *App) Scheduler() *core.Scheduler { return a.sched }

// Scope returns the app's root scope, for root construction and DI.
func (a *App) Scope() scope.Scope { return a.sc }

// RootBase constructs the Base for a root component wired to the app's
// scheduler, scope, and finalizer:
//
//	type todoRoot struct{ *core.Base }
//
//	func newTodoRoot(a *weft.App) *todoRoot {
//	    r := &todoRoot{}
//	    r.Base = a.RootBase(r, "main")
//	    return r
//	}
func (a *App) RootBase(self core.Component, tag string, opts ...core.Option) *core.Base {
	if a.fin != nil {
		opts = append([]core.Option{core.WithFinalizer(a.fin)}, opts...)
	}
	return core.NewRoot(self, tag, a.sched, a.sc, opts...)
}

// Mount renders c into the host document as the app's root. Mounting
// again replaces the tree: the previous root is destroyed first.
func (a *App) Mount(c core.Component) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return &errors.MisuseError{Op: "weft.Mount", Reason: "app is closed"}
	}
	prev := a.root
	a.mu.Unlock()

	if prev != nil {
		core.BaseOf(prev).Destroy(core.SourceExplicit)
	}

	node, err := core.BaseOf(c).RenderTo(a.host.Builder())
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.root = c
	a.mu.Unlock()

	a.log.Debug("mounted root", "component", core.BaseOf(c).ID(), "tag", node.Tag())
	return nil
}

// Root returns the mounted root component, or nil.
func (a *App) Root() core.Component {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.root
}

// RenderFrame flushes pending updates. The host calls it once per frame
// tick it granted.
func (a *App) RenderFrame() {
	a.sched.Flush()
}

// Close destroys the root tree and closes the app scope. It is
// idempotent.
func (a *App) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	root := a.root
	a.root = nil
	a.mu.Unlock()

	if root != nil {
		core.BaseOf(root).Destroy(core.SourceExplicit)
	}
	if a.sc != nil {
		a.sc.Close()
	}
	a.log.Debug("app closed")
}
