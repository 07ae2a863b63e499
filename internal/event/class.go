// Package event implements the mutation event bus: event-class
// matching, per-subscription dispatch queues, and a bounded worker pool, plus
// the waiter primitives built on top of it (waiter.go).
package event

// Class is the closed set of mutation event classes a subscription can be
// registered for.
type Class int

const (
	_ Class = iota

	// GenerateOutgoingArc fires for a new arc whose source is the
	// subscription element.
	GenerateOutgoingArc
	// GenerateIncomingArc fires for a new arc whose target is the
	// subscription element.
	GenerateIncomingArc
	// GenerateEdge fires for a new common-edge incident on the subscription
	// element.
	GenerateEdge
	// GenerateConnector fires for any new connector kind incident on the
	// subscription element (union of the three above).
	GenerateConnector

	// EraseOutgoingArc mirrors GenerateOutgoingArc, fired before the arc is
	// unlinked.
	EraseOutgoingArc
	// EraseIncomingArc mirrors GenerateIncomingArc.
	EraseIncomingArc
	// EraseEdge mirrors GenerateEdge.
	EraseEdge
	// EraseConnector mirrors GenerateConnector.
	EraseConnector

	// EraseElement fires once for every element in an erase cascade set,
	// before it is unlinked.
	EraseElement

	// ChangeLinkContent fires after a link's content is replaced.
	ChangeLinkContent
)

// String renders the class name used in log fields and metric attributes.
func (c Class) String() string {
	switch c {
	case GenerateOutgoingArc:
		return "generate_outgoing_arc"
	case GenerateIncomingArc:
		return "generate_incoming_arc"
	case GenerateEdge:
		return "generate_edge"
	case GenerateConnector:
		return "generate_connector"
	case EraseOutgoingArc:
		return "erase_outgoing_arc"
	case EraseIncomingArc:
		return "erase_incoming_arc"
	case EraseEdge:
		return "erase_edge"
	case EraseConnector:
		return "erase_connector"
	case EraseElement:
		return "erase_element"
	case ChangeLinkContent:
		return "change_link_content"
	default:
		return "unknown"
	}
}

// IsErase reports whether c is one of the erase_* classes, which this bus
// dispatches synchronously rather than through the async worker pool (see
// DESIGN.md for why).
func (c Class) IsErase() bool {
	switch c {
	case EraseOutgoingArc, EraseIncomingArc, EraseEdge, EraseConnector, EraseElement:
		return true
	default:
		return false
	}
}
