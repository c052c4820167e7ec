package task

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-weft/weft/pkg/errors"
)

type fakeOwner struct {
	mu        sync.Mutex
	destroyed bool
	hooks     []func()
}

func (o *fakeOwner) OnDestroy(fn func()) func() {
	o.mu.Lock()
	if o.destroyed {
		o.mu.Unlock()
		fn()
		return func() {}
	}
	o.hooks = append(o.hooks, fn)
	o.mu.Unlock()
	return func() {}
}

func (o *fakeOwner) destroy() {
	o.mu.Lock()
	o.destroyed = true
	hooks := o.hooks
	o.hooks = nil
	o.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

type capturingHandler struct {
	mu     sync.Mutex
	panics []*errors.PanicError
}

func (h *capturingHandler) HandleError(*errors.WeftError) {}

func (h *capturingHandler) HandlePanic(p *errors.PanicError) {
	h.mu.Lock()
	h.panics = append(h.panics, p)
	h.mu.Unlock()
}

func waitDone(t *testing.T, s *Scope) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for scope tasks")
	}
}

func TestGoReceivesScopeContext(t *testing.T) {
	s := NewScope(context.Background())
	same := make(chan bool, 1)
	s.Go("probe", func(ctx context.Context) {
		same <- ctx == s.Context()
	})
	waitDone(t, s)
	if !<-same {
		t.Error("task did not receive the scope's context")
	}
}

func TestWaitWaitsForAllTasks(t *testing.T) {
	s := NewScope(context.Background())
	var finished atomic.Int32
	for range 5 {
		s.Go("worker", func(context.Context) {
			time.Sleep(time.Millisecond)
			finished.Add(1)
		})
	}
	waitDone(t, s)
	if got := finished.Load(); got != 5 {
		t.Errorf("finished = %d, want 5", got)
	}
}

func TestCancelIsSynchronous(t *testing.T) {
	s := NewScope(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s.Go("blocked", func(context.Context) {
		close(started)
		<-release
		finished.Store(true)
	})
	<-started

	s.Cancel()
	if s.Err() == nil {
		t.Error("Err() should be non-nil after Cancel")
	}
	if finished.Load() {
		t.Error("Cancel must not wait for in-flight work")
	}

	close(release)
	waitDone(t, s)
	if !finished.Load() {
		t.Error("abandoned task should still have run to completion")
	}
}

func TestCancelStopsTasksWatchingContext(t *testing.T) {
	s := NewScope(context.Background())
	s.Go("watcher", func(ctx context.Context) {
		<-ctx.Done()
	})
	s.Cancel()
	waitDone(t, s)
}

func TestCancelIsIdempotent(t *testing.T) {
	s := NewScope(context.Background())
	s.Cancel()
	s.Cancel()
	if s.Err() != context.Canceled {
		t.Errorf("Err() = %v, want context.Canceled", s.Err())
	}
}

func TestPanicIsReportedAndSiblingsContinue(t *testing.T) {
	h := &capturingHandler{}
	prev := errors.DefaultHandler
	errors.SetHandler(h)
	defer errors.SetHandler(prev)

	s := NewScope(context.Background())
	var sibling atomic.Bool
	s.Go("boom", func(context.Context) {
		panic("kaboom")
	})
	s.Go("sibling", func(context.Context) {
		time.Sleep(time.Millisecond)
		sibling.Store(true)
	})
	waitDone(t, s)

	if !sibling.Load() {
		t.Error("sibling task should be unaffected by the panic")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.panics) != 1 {
		t.Fatalf("reported panics = %d, want 1", len(h.panics))
	}
	p := h.panics[0]
	if !strings.Contains(p.Op, "task.Go(boom)") {
		t.Errorf("panic op = %q, want it to name the task", p.Op)
	}
	if p.Value != "kaboom" {
		t.Errorf("panic value = %v, want kaboom", p.Value)
	}
}

func TestBindCancelsScopeOnDestroy(t *testing.T) {
	owner := &fakeOwner{}
	s := Bind(owner)
	if s.Err() != nil {
		t.Fatalf("fresh bound scope should be live, got %v", s.Err())
	}

	owner.destroy()
	if s.Err() != context.Canceled {
		t.Errorf("Err() = %v after owner destroy, want context.Canceled", s.Err())
	}
	select {
	case <-s.Context().Done():
	default:
		t.Error("scope context should be done after owner destroy")
	}
}

func TestBindToDestroyedOwnerIsCanceled(t *testing.T) {
	owner := &fakeOwner{}
	owner.destroy()

	s := Bind(owner)
	if s.Err() == nil {
		t.Error("binding to a destroyed owner must yield a canceled scope")
	}
}

func TestGoOnCanceledScopeStillRuns(t *testing.T) {
	s := NewScope(context.Background())
	s.Cancel()

	ran := make(chan error, 1)
	s.Go("late", func(ctx context.Context) {
		ran <- ctx.Err()
	})
	waitDone(t, s)
	if err := <-ran; err == nil {
		t.Error("late task should see an already-canceled context")
	}
}
