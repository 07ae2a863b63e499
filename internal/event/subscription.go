package event

import (
	"sync/atomic"

	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/sctype"
)

// Delegate is invoked for each event a subscription matches. It must not
// block on a waiter bound to its own subscription.
type Delegate func(Event)

var nextSubID uint64

// Subscription is a registration of (class, element, type mask, delegate)
// The delegate may be nil: the subscription stays live and
// silently drops events, used by waiters that attach a delegate only once
// armed.
type Subscription struct {
	ID       uint64
	Class    Class
	Element  store.Addr
	Mask     sctype.Type
	delegate atomic.Pointer[Delegate]

	queue chan Event
	done  chan struct{}
}

func newSubscription(class Class, element store.Addr, mask sctype.Type, delegate Delegate, queueSize int) *Subscription {
	s := &Subscription{
		ID:      atomic.AddUint64(&nextSubID, 1),
		Class:   class,
		Element: element,
		Mask:    mask,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	if delegate != nil {
		s.setDelegate(delegate)
	}
	return s
}

func (s *Subscription) setDelegate(d Delegate) {
	s.delegate.Store(&d)
}

// Delegate returns the currently armed delegate, or nil if none has been
// set yet.
func (s *Subscription) Delegate() Delegate {
	p := s.delegate.Load()
	if p == nil {
		return nil
	}
	return *p
}

// matches reports whether ev should be delivered to s: the event's physical
// family (generate vs erase) must match the subscription's family; for
// connector events the subscription's directional class
// (outgoing/incoming/edge/connector-any) constrains which physical connector
// kinds and which endpoint role qualify; and the connector's type must be
// subsumed by the subscription's mask.
func (s *Subscription) matches(ev Event) bool {
	if s.Class == EraseElement {
		return ev.Class == EraseElement && s.Element == ev.Element
	}
	if s.Class == ChangeLinkContent {
		return ev.Class == ChangeLinkContent && s.Element == ev.Link
	}
	if s.Class.IsErase() != ev.Class.IsErase() {
		return false
	}
	if ev.Class == EraseElement || ev.Class == ChangeLinkContent {
		return false
	}

	isArc := sctype.IsArc(ev.ConnectorType)
	isEdge := sctype.IsEdge(ev.ConnectorType)
	if !sctype.Subsumes(ev.ConnectorType, s.Mask) {
		return false
	}

	switch s.Class {
	case GenerateOutgoingArc, EraseOutgoingArc:
		return isArc && s.Element == ev.Source
	case GenerateIncomingArc, EraseIncomingArc:
		return isArc && s.Element == ev.Target
	case GenerateEdge, EraseEdge:
		return isEdge && (s.Element == ev.Source || s.Element == ev.Target)
	case GenerateConnector, EraseConnector:
		return s.Element == ev.Source || s.Element == ev.Target
	default:
		return false
	}
}
