package event

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
	"golang.org/x/sync/semaphore"
)

// DefaultQueueSize bounds each subscription's pending-event queue: a bounded
// per-subscription delivery queue.
const DefaultQueueSize = 256

// DefaultConcurrency bounds how many delegates may run at once across the
// whole bus,
// realised as a semaphore shared by every subscription's drain goroutine
// rather than a fixed goroutine pool, so per-subscription FIFO order is
// trivially preserved (one drain goroutine per subscription) while total
// concurrency still stays bounded.
const DefaultConcurrency = 32

// Bus is the process-wide event bus (component D). A single shared Bus is
// expected to be owned by the context facade (internal/memctx); erase_*
// classes are dispatched synchronously via [Bus.Dispatch], every other
// class asynchronously via [Bus.Publish].
type Bus struct {
	mu        sync.RWMutex
	subs      map[uint64]*Subscription
	byElement map[store.Addr][]*Subscription

	sem       *semaphore.Weighted
	metrics   *Metrics
	logger    *slog.Logger
	queueSize int
	wg        sync.WaitGroup
	closed    atomic.Bool
}

// Option configures a [Bus] at construction.
type Option func(*Bus)

// WithMetrics overrides the bus's [Metrics] instance (default:
// [DefaultMetrics]).
func WithMetrics(m *Metrics) Option { return func(b *Bus) { b.metrics = m } }

// WithLogger overrides the bus's logger (default: [slog.Default]).
func WithLogger(l *slog.Logger) Option { return func(b *Bus) { b.logger = l } }

// WithConcurrency overrides how many delegates may run concurrently.
func WithConcurrency(n int64) Option {
	return func(b *Bus) { b.sem = semaphore.NewWeighted(n) }
}

// WithQueueSize overrides the per-subscription queue capacity.
func WithQueueSize(n int) Option { return func(b *Bus) { b.queueSize = n } }

// New creates an empty, ready-to-use Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:      make(map[uint64]*Subscription),
		byElement: make(map[store.Addr][]*Subscription),
		sem:       semaphore.NewWeighted(DefaultConcurrency),
		logger:    slog.Default(),
		queueSize: DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a new subscription and starts its drain goroutine.
// delegate may be nil (a waiter arms it later via [Bus.SetDelegate]).
func (b *Bus) Subscribe(class Class, element store.Addr, mask sctype.Type, delegate Delegate) (*Subscription, error) {
	if b.closed.Load() {
		return nil, scerr.New(scerr.InvalidState, "event.Subscribe", nil)
	}
	sub := newSubscription(class, element, mask, delegate, b.queueSize)

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.byElement[element] = append(b.byElement[element], sub)
	b.mu.Unlock()

	b.wg.Add(1)
	go b.drain(sub)
	return sub, nil
}

// SetDelegate arms (or replaces) the delegate of an existing subscription.
func (b *Bus) SetDelegate(id uint64, delegate Delegate) error {
	b.mu.RLock()
	sub, ok := b.subs[id]
	b.mu.RUnlock()
	if !ok {
		return scerr.New(scerr.NotFound, "event.SetDelegate", nil)
	}
	sub.setDelegate(delegate)
	return nil
}

// Unsubscribe removes a subscription and stops its drain goroutine.
// Idempotent.
func (b *Bus) Unsubscribe(id uint64) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, id)
	b.byElement[sub.Element] = removeSub(b.byElement[sub.Element], sub)
	b.mu.Unlock()

	close(sub.done)
}

func removeSub(list []*Subscription, target *Subscription) []*Subscription {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// candidates returns the (deduplicated) snapshot of subscriptions that
// could possibly match ev, keyed by the addr(es) relevant to its class.
func (b *Bus) candidates(ev Event) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	switch ev.Class {
	case EraseElement:
		return append([]*Subscription(nil), b.byElement[ev.Element]...)
	case ChangeLinkContent:
		return append([]*Subscription(nil), b.byElement[ev.Link]...)
	default:
		if ev.Source == ev.Target {
			return append([]*Subscription(nil), b.byElement[ev.Source]...)
		}
		out := append([]*Subscription(nil), b.byElement[ev.Source]...)
		out = append(out, b.byElement[ev.Target]...)
		return out
	}
}

// Publish delivers ev asynchronously: matching subscriptions' queues
// receive it (non-blocking; a full queue drops the event and is counted)
// and drain goroutines invoke delegates concurrently, bounded by the bus's
// semaphore. Used for generate_* and change_link_content classes.
func (b *Bus) Publish(ev Event) {
	for _, sub := range b.candidates(ev) {
		if !sub.matches(ev) {
			continue
		}
		select {
		case sub.queue <- ev:
		default:
			b.metrics.recordDropped(context.Background(), ev.Class.String())
			b.logger.Warn("event bus: subscription queue full, dropping event",
				"subscription_id", sub.ID, "class", ev.Class.String())
		}
	}
}

// Dispatch delivers ev synchronously, invoking matching delegates on the
// calling goroutine before returning. Used for erase_* classes so that
// is_element(x) observably flips from true to false exactly when erase()
// returns, which an async queue cannot guarantee.
func (b *Bus) Dispatch(ev Event) {
	for _, sub := range b.candidates(ev) {
		if !sub.matches(ev) {
			continue
		}
		b.invoke(sub, ev, "sync")
	}
}

func (b *Bus) invoke(sub *Subscription, ev Event, mode string) {
	delegate := sub.Delegate()
	if delegate == nil {
		return
	}
	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				b.logger.Error("event bus: delegate panicked",
					"subscription_id", sub.ID, "class", ev.Class.String(), "panic", r)
			}
		}()
		delegate(ev)
	}()
	b.metrics.recordDelivered(context.Background(), ev.Class.String(), mode)
	b.metrics.recordDispatch(context.Background(), time.Since(start).Seconds())
}

func (b *Bus) drain(sub *Subscription) {
	defer b.wg.Done()
	for {
		select {
		case ev := <-sub.queue:
			if err := b.sem.Acquire(context.Background(), 1); err != nil {
				return
			}
			b.invoke(sub, ev, "async")
			b.sem.Release(1)
		case <-sub.done:
			return
		}
	}
}

// Shutdown stops accepting new subscriptions and cancels every drain
// goroutine once its currently-buffered events are processed or the given
// context is cancelled, whichever first.
func (b *Bus) Shutdown(ctx context.Context) {
	b.closed.Store(true)

	b.mu.Lock()
	ids := make([]uint64, 0, len(b.subs))
	for id := range b.subs {
		ids = append(ids, id)
	}
	b.mu.Unlock()

	for _, id := range ids {
		b.drainPending(ctx, id)
		b.Unsubscribe(id)
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// drainPending synchronously flushes whatever is already buffered in a
// subscription's queue before it is torn down.
func (b *Bus) drainPending(ctx context.Context, id uint64) {
	b.mu.RLock()
	sub, ok := b.subs[id]
	b.mu.RUnlock()
	if !ok {
		return
	}
	for {
		select {
		case ev := <-sub.queue:
			b.invoke(sub, ev, "async")
		case <-ctx.Done():
			return
		default:
			return
		}
	}
}
