package core

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/logging"
)

// Scheduler coalesces component updates into per-frame batches. A host
// drives it: RequestUpdate enqueues components, OnNeedsFrame tells the
// host a frame is wanted, and the host calls Flush on its frame tick.
type Scheduler struct {
	mu    sync.Mutex
	queue []Component
	set   map[*Base]bool
	log   *slog.Logger

	// OnNeedsFrame is called when the first update of a frame is
	// enqueued, signalling the host that a frame should run. Hosts with
	// on-demand frame scheduling pause their tick until requested.
	OnNeedsFrame func()
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		set: make(map[*Base]bool),
		log: logging.Logger("core.scheduler"),
	}
}

func (s *Scheduler) enqueue(c Component) {
	b := c.base()
	first := false
	s.mu.Lock()
	if !s.set[b] {
		s.set[b] = true
		first = len(s.queue) == 0
		s.queue = append(s.queue, c)
	}
	s.mu.Unlock()

	if first && s.OnNeedsFrame != nil {
		s.OnNeedsFrame()
	}
}

// HasPending reports whether updates are waiting for a flush.
func (s *Scheduler) HasPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0
}

// Flush updates the batch that was pending when it was called, parents
// before children. Updates requested during the flush land on the next
// frame. A render error or panic is reported for the component it came
// from and does not stop the rest of the batch.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	clear(s.set)
	s.mu.Unlock()
	if len(batch) == 0 {
		return
	}

	slices.SortStableFunc(batch, func(a, b Component) int {
		return a.base().depth - b.base().depth
	})
	s.log.Debug("flushing frame", "components", len(batch))

	for _, c := range batch {
		s.update(c)
	}
}

func (s *Scheduler) update(c Component) {
	b := c.base()
	if b.Destroyed() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			errors.ReportPanic(&errors.PanicError{
				Op:         "core.Scheduler.Flush",
				Component:  b.ID(),
				Value:      r,
				StackTrace: errors.CaptureStack(),
			})
		}
	}()
	if err := b.updateContents(); err != nil {
		errors.Report(&errors.WeftError{
			Op:        "core.Scheduler.Flush",
			Kind:      errors.KindRender,
			Component: b.ID(),
			Err:       err,
		})
	}
}
