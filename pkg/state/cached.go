// Package state provides the reactive values components subscribe to.
//
// The central type is [Cached]: it funnels an asynchronous data fetch to
// any number of subscribers, replays the most recent results to late
// subscribers, refreshes itself when its validity window lapses, and
// guarantees at most one supplier invocation is in flight at a time.
// [Value] and [Combine] cover plain observable state without a supplier.
package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-weft/weft/pkg/errors"
	"github.com/go-weft/weft/pkg/logging"
)

// replayDepth is how many of the most recent results a new subscriber
// receives before live emissions.
const replayDepth = 2

// subscriberBuffer is the per-subscriber channel capacity. When a slow
// consumer's channel is full the oldest queued result is dropped, so
// emission never blocks and the newest result is always deliverable.
const subscriberBuffer = 8

// Result is one emission from a cached value. A failed refresh is emitted
// as a Result with Err set; failures occupy replay slots exactly like
// values, so consumers can show the previous value next to the error.
type Result[T any] struct {
	Value T
	Err   error
}

// Supplier produces a fresh value for a cached source.
type Supplier[T any] func(ctx context.Context) (T, error)

// Option configures a Cached value.
type Option func(*options)

type options struct {
	clock Clock
	name  string
}

// WithClock replaces the time source used for validity checks.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithName sets a diagnostic name used in log records.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// call is the in-flight refresh handle. At most one exists per Cached;
// every path that needs a refresh either starts the single call or waits
// on an existing one.
type call[T any] struct {
	done chan struct{}
	res  Result[T]
}

// Cached is a caching, self-refreshing source of T.
//
// A Cached created with NewCached is mutable: Set injects values that
// arrived out of band and Clear invalidates the cache. Hand consumers the
// ReadOnly view to keep mutation local.
type Cached[T any] struct {
	supplier Supplier[T]
	validity time.Duration
	clock    Clock
	name     string
	log      *slog.Logger

	mu          sync.Mutex
	buffer      []Result[T] // most recent last, len <= replayDepth
	lastRefresh time.Time   // zero until the first successful refresh
	inflight    *call[T]
	subs        map[int]*Subscription[T]
	nextSubID   int
}

// NewCached returns a cached source over supplier. A buffered value older
// than validity is considered stale and re-fetched on the next
// subscription or read.
func NewCached[T any](supplier Supplier[T], validity time.Duration, opts ...Option) *Cached[T] {
	o := options{clock: realClock{}, name: "cached"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cached[T]{
		supplier: supplier,
		validity: validity,
		clock:    o.clock,
		name:     o.name,
		log:      logging.Logger("state.cached").With(slog.String("value", o.name)),
		subs:     make(map[int]*Subscription[T]),
	}
}

// Subscription delivers results from a Cached value. Receive from C;
// call Cancel when done. The channel is closed on cancellation.
type Subscription[T any] struct {
	c    *Cached[T]
	id   int
	ch   chan Result[T]
	once sync.Once
	stop func() bool
}

// C returns the delivery channel. It replays up to two buffered results
// and then carries every subsequent emission.
func (s *Subscription[T]) C() <-chan Result[T] { return s.ch }

// Cancel detaches the subscription and closes its channel. Idempotent.
func (s *Subscription[T]) Cancel() {
	s.once.Do(func() {
		s.c.mu.Lock()
		stop := s.stop
		delete(s.c.subs, s.id)
		close(s.ch)
		s.c.mu.Unlock()
		if stop != nil {
			stop()
		}
	})
}

// Subscribe registers a consumer. The subscription immediately replays the
// buffered results, then receives all subsequent emissions. Subscribing
// triggers the auto-refresh check as a side effect: an empty, stale, or
// failure-tipped buffer starts one refresh (shared with any concurrent
// trigger). The subscription is released on Cancel or when ctx is done.
func (c *Cached[T]) Subscribe(ctx context.Context) *Subscription[T] {
	c.mu.Lock()
	c.nextSubID++
	sub := &Subscription[T]{
		c:  c,
		id: c.nextSubID,
		ch: make(chan Result[T], subscriberBuffer),
	}
	c.subs[sub.id] = sub
	for _, r := range c.buffer {
		sub.ch <- r
	}
	if ctx != nil && ctx.Done() != nil {
		// Registered under the lock: Cancel reads stop under it too, so
		// an already-done ctx firing immediately cannot race the write.
		sub.stop = context.AfterFunc(ctx, sub.Cancel)
	}
	c.mu.Unlock()

	go c.checkRefresh()
	return sub
}

// Get reads the current value, refreshing first when the buffer is empty,
// stale, or tipped by a failure. A refresh failure is returned as the
// error; the caller decides whether to fall back to Peek.
func (c *Cached[T]) Get(ctx context.Context) (T, error) {
	for {
		c.mu.Lock()
		if f := c.inflight; f != nil {
			c.mu.Unlock()
			select {
			case <-f.done:
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		if !c.staleLocked() {
			res := c.buffer[len(c.buffer)-1]
			c.mu.Unlock()
			return res.Value, res.Err
		}
		c.buffer = nil
		f := &call[T]{done: make(chan struct{})}
		c.inflight = f
		c.mu.Unlock()

		res := c.runRefresh(ctx, f)
		return res.Value, res.Err
	}
}

// Refresh unconditionally fetches a new value. When a refresh is already
// in flight the call joins it instead of starting a second one. Unlike
// the auto-refresh path, Refresh does not clear the buffer up front, so
// already-subscribed consumers keep the previous value until the new one
// is emitted.
func (c *Cached[T]) Refresh(ctx context.Context) (T, error) {
	c.mu.Lock()
	if f := c.inflight; f != nil {
		c.mu.Unlock()
		select {
		case <-f.done:
			return f.res.Value, f.res.Err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	f := &call[T]{done: make(chan struct{})}
	c.inflight = f
	c.mu.Unlock()

	res := c.runRefresh(ctx, f)
	return res.Value, res.Err
}

// Set emits v directly, bypassing the supplier. Used when a value arrives
// as a side effect of another operation (a write that returns the updated
// object). Set does not advance the validity window.
func (c *Cached[T]) Set(v T) {
	c.mu.Lock()
	res := Result[T]{Value: v}
	c.appendLocked(res)
	c.deliverLocked(res)
	c.mu.Unlock()
}

// Clear empties the replay buffer without emitting anything and without
// touching the refresh schedule. The next subscription or read treats the
// value as never fetched.
func (c *Cached[T]) Clear() {
	c.mu.Lock()
	c.buffer = nil
	c.mu.Unlock()
}

// Peek returns the newest buffered result without triggering a refresh.
func (c *Cached[T]) Peek() (Result[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buffer) == 0 {
		return Result[T]{}, false
	}
	return c.buffer[len(c.buffer)-1], true
}

// ReadOnly returns a view of this source without the mutation methods.
func (c *Cached[T]) ReadOnly() View[T] {
	return View[T]{c: c}
}

// View is the read side of a Cached value.
type View[T any] struct {
	c *Cached[T]
}

// Subscribe registers a consumer. See [Cached.Subscribe].
func (v View[T]) Subscribe(ctx context.Context) *Subscription[T] {
	return v.c.Subscribe(ctx)
}

// Get reads the current value. See [Cached.Get].
func (v View[T]) Get(ctx context.Context) (T, error) {
	return v.c.Get(ctx)
}

// Peek returns the newest buffered result without refreshing.
func (v View[T]) Peek() (Result[T], bool) {
	return v.c.Peek()
}

// checkRefresh is the auto-refresh check run on every subscription. If a
// refresh is in flight it waits and re-evaluates; if the buffer is empty,
// stale, or tipped by a failure, it clears the buffer and runs one
// refresh. Clearing at trigger time means subscribers arriving during the
// refresh block on the pending result instead of replaying a stale one.
func (c *Cached[T]) checkRefresh() {
	for {
		c.mu.Lock()
		if f := c.inflight; f != nil {
			c.mu.Unlock()
			<-f.done
			continue
		}
		if !c.staleLocked() {
			c.mu.Unlock()
			return
		}
		c.buffer = nil
		f := &call[T]{done: make(chan struct{})}
		c.inflight = f
		c.mu.Unlock()

		c.runRefresh(context.Background(), f)
		return
	}
}

// staleLocked reports whether the auto-refresh check should trigger.
func (c *Cached[T]) staleLocked() bool {
	if len(c.buffer) == 0 {
		return true
	}
	if c.buffer[len(c.buffer)-1].Err != nil {
		return true
	}
	return c.clock.Now().After(c.lastRefresh.Add(c.validity))
}

// runRefresh executes the supplier for the in-flight call f, applies the
// result to the buffer, releases the handle, and broadcasts.
func (c *Cached[T]) runRefresh(ctx context.Context, f *call[T]) Result[T] {
	v, err := c.runSupplier(ctx)
	res := Result[T]{Value: v, Err: err}

	c.mu.Lock()
	if err == nil {
		c.buffer = []Result[T]{res}
		c.lastRefresh = c.clock.Now()
	} else {
		c.appendLocked(res)
	}
	f.res = res
	c.inflight = nil
	c.deliverLocked(res)
	c.mu.Unlock()
	close(f.done)

	if err != nil {
		c.log.Warn("refresh failed", slog.Any("err", err))
	} else {
		c.log.Debug("refreshed")
	}
	return res
}

func (c *Cached[T]) runSupplier(ctx context.Context) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &errors.PanicError{
				Op:         "state.Cached.refresh",
				Value:      rec,
				StackTrace: errors.CaptureStack(),
			}
		}
	}()
	return c.supplier(ctx)
}

func (c *Cached[T]) appendLocked(res Result[T]) {
	c.buffer = append(c.buffer, res)
	if len(c.buffer) > replayDepth {
		c.buffer = c.buffer[len(c.buffer)-replayDepth:]
	}
}

// deliverLocked sends res to every subscriber. Sends never block: a full
// channel sheds its oldest entry first. Called with c.mu held so delivery
// order matches buffer order.
func (c *Cached[T]) deliverLocked(res Result[T]) {
	for _, sub := range c.subs {
		trySend(sub.ch, res)
	}
}

// trySend performs a non-blocking send, dropping the oldest queued item
// when the channel is full.
func trySend[E any](ch chan E, v E) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
