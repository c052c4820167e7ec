package uitest

import (
	"sync/atomic"
	"testing"

	"github.com/go-weft/weft/pkg/core"
	"github.com/go-weft/weft/pkg/markup"
	"github.com/go-weft/weft/pkg/scope"
)

// Harness bundles the pieces a component tree needs in a test: a
// document to render into, a scheduler it drives by hand, a root scope
// closed on test cleanup, and the recording finalizer.
type Harness struct {
	Doc       *Document
	Scheduler *core.Scheduler
	Scope     scope.Scope
	Fin       *Finalizer

	frameRequests atomic.Int32
}

// NewHarness creates a harness wired together, registering scope cleanup
// with t.
func NewHarness(t *testing.T) *Harness {
	h := &Harness{
		Doc:       NewDocument(),
		Scheduler: core.NewScheduler(),
		Scope:     scope.NewRoot(),
		Fin:       NewFinalizer(),
	}
	h.Scheduler.OnNeedsFrame = func() {
		h.frameRequests.Add(1)
	}
	t.Cleanup(h.Scope.Close)
	return h
}

// RootBase constructs the Base for a test root component, wired to the
// harness scheduler, scope, and finalizer.
func (h *Harness) RootBase(self core.Component, tag string, opts ...core.Option) *core.Base {
	opts = append([]core.Option{core.WithFinalizer(h.Fin)}, opts...)
	return core.NewRoot(self, tag, h.Scheduler, h.Scope, opts...)
}

// Render renders c into the document body.
func (h *Harness) Render(c core.Component) (markup.Node, error) {
	return core.BaseOf(c).RenderTo(h.Doc.Builder())
}

// Pump flushes the updates pending on the scheduler, one frame's worth.
func (h *Harness) Pump() {
	h.Scheduler.Flush()
}

// PumpUntilSettled pumps until no updates are pending, up to max frames.
// It reports the number of frames pumped.
func (h *Harness) PumpUntilSettled(max int) int {
	frames := 0
	for frames < max && h.Scheduler.HasPending() {
		h.Scheduler.Flush()
		frames++
	}
	return frames
}

// FrameRequests returns how many times the scheduler signalled that a
// new frame is wanted.
func (h *Harness) FrameRequests() int {
	return int(h.frameRequests.Load())
}
