package event

import (
	"sync"
	"time"

	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/sctype"
)

// Waiter is a one-shot blocking wait for the first matching event. Construct
// with [NewEventWaiter] or [NewConditionWaiter]; resolve it
// with [Waiter.Wait]. A Waiter not yet resolved can be cancelled (e.g. by a
// destroyed context) via [Waiter.Cancel], which makes a pending [Waiter.Wait]
// return false as if it had timed out.
type Waiter struct {
	bus      *Bus
	sub      *Subscription
	resultCh chan Event
	cancelCh chan struct{}
	closeOne sync.Once

	predicate func(Event) bool
}

// NewEventWaiter arms a waiter for the first event matching (class, element,
// mask). If trigger is non-nil it runs synchronously right after arming, so
// the expected mutation cannot race the subscription coming up.
func NewEventWaiter(bus *Bus, class Class, element store.Addr, mask sctype.Type, trigger func() error) (*Waiter, error) {
	return newWaiter(bus, class, element, mask, nil, trigger)
}

// NewConditionWaiter is like [NewEventWaiter] but only resolves on an event
// for which predicate returns true; other matching events are ignored.
func NewConditionWaiter(bus *Bus, class Class, element store.Addr, mask sctype.Type, predicate func(Event) bool, trigger func() error) (*Waiter, error) {
	return newWaiter(bus, class, element, mask, predicate, trigger)
}

func newWaiter(bus *Bus, class Class, element store.Addr, mask sctype.Type, predicate func(Event) bool, trigger func() error) (*Waiter, error) {
	w := &Waiter{
		resultCh:  make(chan Event, 1),
		cancelCh:  make(chan struct{}),
		predicate: predicate,
		bus:       bus,
	}
	sub, err := bus.Subscribe(class, element, mask, w.deliver)
	if err != nil {
		return nil, err
	}
	w.sub = sub

	if trigger != nil {
		if err := trigger(); err != nil {
			bus.Unsubscribe(sub.ID)
			return nil, err
		}
	}
	return w, nil
}

func (w *Waiter) deliver(ev Event) {
	if w.predicate != nil && !w.predicate(ev) {
		return
	}
	select {
	case w.resultCh <- ev:
	default:
	}
}

// Wait blocks up to timeout for the waiter to resolve. Exactly one of
// onSuccess/onTimeout runs. Returns true if a matching event arrived,
// false on timeout or cancellation.
func (w *Waiter) Wait(timeout time.Duration, onSuccess func(Event), onTimeout func()) bool {
	defer w.Close()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-w.resultCh:
		if onSuccess != nil {
			onSuccess(ev)
		}
		return true
	case <-timer.C:
		if onTimeout != nil {
			onTimeout()
		}
		return false
	case <-w.cancelCh:
		if onTimeout != nil {
			onTimeout()
		}
		return false
	}
}

// Cancel unblocks a pending Wait immediately, resolving it to timeout=false.
// Used when the owning context is destroyed.
func (w *Waiter) Cancel() {
	w.closeOne.Do(func() { close(w.cancelCh) })
}

// Close releases the underlying subscription. Safe to call more than once
// and called automatically once Wait returns.
func (w *Waiter) Close() {
	if w.sub != nil {
		w.bus.Unsubscribe(w.sub.ID)
	}
}
