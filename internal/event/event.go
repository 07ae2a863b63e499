package event

import (
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/sctype"
)

// Event is a single mutation notification delivered to a matching
// subscription's delegate.
type Event struct {
	Class Class

	// Element is the subscription element the delegate was registered
	// against (the keynode/node that "owns" this notification).
	Element store.Addr

	// Connector, ConnectorType, Source, Target describe the connector
	// involved for generate_*/erase_* connector classes. Zero for
	// erase_element and change_link_content.
	Connector     store.Addr
	ConnectorType sctype.Type
	Source        store.Addr
	Target        store.Addr

	// ErasedType is the pre-erase type of Element, valid only for
	// EraseElement, captured while the element was still readable.
	ErasedType sctype.Type

	// Link is the link whose content changed, valid only for
	// ChangeLinkContent.
	Link store.Addr
}
