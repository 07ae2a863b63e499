package memctx

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/fsindex"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// Context is the per-caller handle onto a shared [Memory]. Any
// method may be called from any thread. Each context owns a lightweight
// identity used only to scope the events-blocking guard; it does not cache
// anything that would leak mutation visibility between contexts.
type Context struct {
	mem     *Memory
	id      uint64
	blocked atomic.Bool

	waitersMu sync.Mutex
	waiters   []*event.Waiter
}

// ID returns the context's identity, useful for logging.
func (c *Context) ID() uint64 { return c.id }

// CreateNode allocates a new node. No event is emitted.
func (c *Context) CreateNode(typ sctype.Type) (store.Addr, error) {
	return c.mem.st.CreateNode(typ)
}

// CreateLink allocates a new link.
func (c *Context) CreateLink(typ sctype.Type) (store.Addr, error) {
	return c.mem.st.CreateLink(typ)
}

// CreateConnector allocates a new connector and, unless this context is
// currently blocking events, publishes the matching generate_* event.
func (c *Context) CreateConnector(typ sctype.Type, src, tgt store.Addr) (store.Addr, error) {
	a, err := c.mem.st.CreateConnector(typ, src, tgt)
	if err != nil {
		return store.Empty, err
	}
	if !c.blocked.Load() {
		c.mem.bus.Publish(event.Event{
			Class:         event.GenerateConnector,
			Connector:     a,
			ConnectorType: typ,
			Source:        src,
			Target:        tgt,
		})
	}
	return a, nil
}

// Erase removes addr and its cascade set, dispatching
// erase_element (and, for connectors, erase_connector) synchronously for
// every cascaded item before it is unlinked — unless this context is
// currently blocking events. Index entries of erased elements (link
// content, system identifiers) are dropped after the store-level erase
// completes.
func (c *Context) Erase(addr store.Addr) error {
	var erased []store.Addr
	err := c.mem.st.Erase(addr, func(item store.CascadeItem) {
		erased = append(erased, item.Addr)
		if c.blocked.Load() {
			return
		}
		if item.IsConnector {
			c.mem.bus.Dispatch(event.Event{
				Class:         event.EraseConnector,
				Connector:     item.Addr,
				ConnectorType: item.Type,
				Source:        item.Source,
				Target:        item.Target,
			})
		}
		c.mem.bus.Dispatch(event.Event{
			Class:      event.EraseElement,
			Element:    item.Addr,
			ErasedType: item.Type,
		})
	})
	if err != nil {
		return err
	}
	for _, a := range erased {
		if err := c.mem.idx.RemoveElement(a); err != nil {
			return err
		}
	}
	return nil
}

// IsElement reports whether addr is a live element (reads are never
// affected by the events-blocking guard).
func (c *Context) IsElement(addr store.Addr) bool { return c.mem.st.IsElement(addr) }

// GetType returns the type of a live element.
func (c *Context) GetType(addr store.Addr) (sctype.Type, error) { return c.mem.st.GetType(addr) }

// Outgoing enumerates connectors sourced at (or, for common edges,
// incident on) addr, filtered by mask.
func (c *Context) Outgoing(addr store.Addr, mask sctype.Type) ([]store.Addr, error) {
	return c.mem.st.Outgoing(addr, mask)
}

// Incoming enumerates arcs targeting addr, filtered by mask.
func (c *Context) Incoming(addr store.Addr, mask sctype.Type) ([]store.Addr, error) {
	return c.mem.st.Incoming(addr, mask)
}

// GetConnectorEndpoints returns a connector's (source, target).
func (c *Context) GetConnectorEndpoints(addr store.Addr) (src, tgt store.Addr, err error) {
	return c.mem.st.GetConnectorEndpoints(addr)
}

// SetLinkContent replaces a link's content and, unless blocking, publishes
// a change_link_content event.
func (c *Context) SetLinkContent(link store.Addr, content []byte) error {
	typ, err := c.mem.st.GetType(link)
	if err != nil {
		return err
	}
	if !sctype.IsLink(typ) {
		return scerr.New(scerr.InvalidParams, "memctx.SetLinkContent", fmt.Errorf("addr %v is not a link", link))
	}
	if err := c.mem.idx.SetLinkContent(link, content); err != nil {
		return err
	}
	if !c.blocked.Load() {
		c.mem.bus.Publish(event.Event{Class: event.ChangeLinkContent, Link: link})
	}
	return nil
}

// GetLinkContent returns a link's current content.
func (c *Context) GetLinkContent(link store.Addr) ([]byte, error) {
	return c.mem.idx.GetLinkContent(link)
}

// FindLinksByExactContent returns every link whose content equals content.
func (c *Context) FindLinksByExactContent(content []byte) []store.Addr {
	return c.mem.idx.FindLinksByExactContent(content)
}

// FindLinksBySubstring returns every link whose content contains every
// token of text.
func (c *Context) FindLinksBySubstring(text []byte) []store.Addr {
	return c.mem.idx.FindLinksBySubstring(text)
}

// ResolveSystemIdentifier resolves a keynode's system identifier to its
// bound element.
func (c *Context) ResolveSystemIdentifier(text string) (store.Addr, error) {
	return c.mem.idx.ResolveSystemIdentifier(text)
}

// SetSystemIdentifier binds a system identifier to addr.
func (c *Context) SetSystemIdentifier(text string, addr store.Addr) error {
	return c.mem.idx.SetSystemIdentifier(text, addr)
}

// ResolveSystemIdentifierFuzzy ranks every known system identifier by
// similarity to text and returns up to limit candidates, a Jaro-Winkler
// fallback for near-miss identifiers, e.g. a keynode lookup that fails
// exact resolution because of a typo or an alias.
func (c *Context) ResolveSystemIdentifierFuzzy(text string, limit int) []fsindex.FuzzyMatch {
	return c.mem.idx.ResolveSystemIdentifierFuzzy(text, limit)
}

// Subscribe registers a subscription against the shared bus.
func (c *Context) Subscribe(class event.Class, element store.Addr, mask sctype.Type, delegate event.Delegate) (*event.Subscription, error) {
	return c.mem.bus.Subscribe(class, element, mask, delegate)
}

// Unsubscribe removes a subscription.
func (c *Context) Unsubscribe(id uint64) { c.mem.bus.Unsubscribe(id) }

// checkWaitable rejects waiter construction against a dead element or the
// wrong element kind (e.g. waiting for link-content changes on a plain
// node).
func (c *Context) checkWaitable(class event.Class, element store.Addr) error {
	typ, err := c.mem.st.GetType(element)
	if err != nil {
		return scerr.New(scerr.InvalidParams, "memctx.NewWaiter", fmt.Errorf("element %v is not a live element", element))
	}
	if class == event.ChangeLinkContent && !sctype.IsLink(typ) {
		return scerr.New(scerr.InvalidParams, "memctx.NewWaiter", fmt.Errorf("element %v is not a link", element))
	}
	return nil
}

// NewEventWaiter arms an event waiter and tracks it so [Context.Destroy]
// can cancel it if this context is torn down first.
func (c *Context) NewEventWaiter(class event.Class, element store.Addr, mask sctype.Type, trigger func() error) (*event.Waiter, error) {
	if err := c.checkWaitable(class, element); err != nil {
		return nil, err
	}
	w, err := event.NewEventWaiter(c.mem.bus, class, element, mask, trigger)
	if err != nil {
		return nil, err
	}
	c.trackWaiter(w)
	return w, nil
}

// NewConditionWaiter is the predicated variant of [Context.NewEventWaiter].
func (c *Context) NewConditionWaiter(class event.Class, element store.Addr, mask sctype.Type, predicate func(event.Event) bool, trigger func() error) (*event.Waiter, error) {
	if err := c.checkWaitable(class, element); err != nil {
		return nil, err
	}
	w, err := event.NewConditionWaiter(c.mem.bus, class, element, mask, predicate, trigger)
	if err != nil {
		return nil, err
	}
	c.trackWaiter(w)
	return w, nil
}

func (c *Context) trackWaiter(w *event.Waiter) {
	c.waitersMu.Lock()
	c.waiters = append(c.waiters, w)
	c.waitersMu.Unlock()
}

// BeginBlocking suppresses event emission for mutations made through this
// context. Pair with [Context.EndBlocking],
// or prefer [Context.WithBlocking] for scoped use.
func (c *Context) BeginBlocking() { c.blocked.Store(true) }

// EndBlocking resumes event emission for this context.
func (c *Context) EndBlocking() { c.blocked.Store(false) }

// WithBlocking runs fn with events blocked on this context, guaranteeing
// EndBlocking runs on every exit path including a panic.
func (c *Context) WithBlocking(fn func()) {
	c.BeginBlocking()
	defer c.EndBlocking()
	fn()
}

// Destroy cancels every waiter armed through this context, resolving them
// to timeout=false.
func (c *Context) Destroy() {
	c.waitersMu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.waitersMu.Unlock()
	for _, w := range waiters {
		w.Cancel()
	}
}
