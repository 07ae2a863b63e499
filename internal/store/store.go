package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// defaultSegmentSize bounds how many slots live in one segment array.
// Allocation prefers the lowest free slot in existing segments, then appends
// a new segment once all existing segments are full.
const defaultSegmentSize = 4096

// slot is one element record in the segmented array. Connector-only fields
// (source/target/thread pointers) are zero for plain nodes and links.
type slot struct {
	alive      bool
	tombstoned bool // true during the emit-before-unlink window of erase
	generation uint32
	typ        sctype.Type

	source Addr
	target Addr

	// outHead/inHead are list heads of connectors incident on this element.
	// outHead holds connectors sourced here (threaded via srcNext/srcPrev)
	// plus, for common edges, connectors targeting here (threaded via
	// tgtNext/tgtPrev) — see incidence.go.
	outHead Addr
	inHead  Addr

	// Thread pointers used when THIS slot is itself a connector.
	srcNext, srcPrev Addr // membership in source.outHead
	tgtNext, tgtPrev Addr // membership in target.inHead (arcs) or target.outHead (edges)
}

// Store is the process-wide element store. A single RWMutex guards every
// slot and incidence list, in place of per-element locks — chosen here for
// implementation clarity (see DESIGN.md).
type Store struct {
	mu          sync.RWMutex
	segments    [][]slot
	nextOff     int    // next never-used offset in the last segment
	free        []Addr // previously erased addresses available for reuse
	segmentSize int
}

// Option configures a [Store] at construction.
type Option func(*Store)

// WithSegmentSize overrides the number of slots per segment array (default
// [defaultSegmentSize]). Mainly useful for tests that want to exercise
// segment-rollover allocation without allocating thousands of elements.
func WithSegmentSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.segmentSize = n
		}
	}
}

// New returns an empty Store. Segment numbering starts at 1, so the
// reserved invalid address (0,0) is never produced by allocation.
func New(opts ...Option) *Store {
	s := &Store{segmentSize: defaultSegmentSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func segIndex(seg uint16) int { return int(seg) - 1 }

func (s *Store) slotAt(a Addr) *slot {
	idx := segIndex(a.Seg)
	if idx < 0 || idx >= len(s.segments) {
		return nil
	}
	seg := s.segments[idx]
	if int(a.Off) >= len(seg) {
		return nil
	}
	return &seg[a.Off]
}

// alloc returns a fresh Addr with a zeroed, live slot: it prefers the
// lowest-addressed previously-freed slot, then appends to the current
// segment, then opens a new segment once the current one is full.
func (s *Store) alloc() Addr {
	if len(s.free) > 0 {
		sort.Slice(s.free, func(i, j int) bool { return s.free[i].Less(s.free[j]) })
		a := s.free[0]
		s.free = s.free[1:]
		sl := s.slotAt(a)
		gen := sl.generation
		*sl = slot{generation: gen, alive: true}
		return a
	}
	if len(s.segments) == 0 || s.nextOff >= s.segmentSize {
		s.segments = append(s.segments, make([]slot, s.segmentSize))
		s.nextOff = 0
	}
	segNum := len(s.segments)
	off := s.nextOff
	s.nextOff++
	a := Addr{Seg: uint16(segNum), Off: uint16(off)}
	s.segments[segNum-1][off] = slot{alive: true}
	return a
}

func opErr(op string, kind scerr.Kind, err error) error { return scerr.New(kind, op, err) }

// CreateNode allocates a new node element. typ must be a valid node type
// (the link bit must not be set).
func (s *Store) CreateNode(typ sctype.Type) (Addr, error) {
	if !sctype.IsValid(typ) || !sctype.IsNode(typ) || sctype.IsLink(typ) {
		return Empty, opErr("store.CreateNode", scerr.InvalidParams, fmt.Errorf("type %v is not a node type", typ))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.alloc()
	sl := s.slotAt(a)
	sl.typ = typ
	return a, nil
}

// CreateLink allocates a new link element (a node with the link bit set).
func (s *Store) CreateLink(typ sctype.Type) (Addr, error) {
	if !sctype.IsValid(typ) || !sctype.IsLink(typ) {
		return Empty, opErr("store.CreateLink", scerr.InvalidParams, fmt.Errorf("type %v is not a link type", typ))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.alloc()
	sl := s.slotAt(a)
	sl.typ = typ
	return a, nil
}

// CreateConnector allocates a new connector (edge or arc) of typ between
// src and tgt, which must both already be live elements.
func (s *Store) CreateConnector(typ sctype.Type, src, tgt Addr) (Addr, error) {
	if !sctype.IsValid(typ) || !sctype.IsConnector(typ) {
		return Empty, opErr("store.CreateConnector", scerr.InvalidParams, fmt.Errorf("type %v is not a connector type", typ))
	}
	if src.IsEmpty() || tgt.IsEmpty() {
		return Empty, opErr("store.CreateConnector", scerr.InvalidParams, fmt.Errorf("source/target must not be empty"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	srcSlot := s.slotAt(src)
	tgtSlot := s.slotAt(tgt)
	if srcSlot == nil || !srcSlot.alive || tgtSlot == nil || !tgtSlot.alive {
		return Empty, opErr("store.CreateConnector", scerr.NotFound, fmt.Errorf("source or target is not live"))
	}

	a := s.alloc()
	// Re-fetch: alloc() may have appended a new segment, invalidating any
	// slice headers captured before it (not the pointers into already
	// existing segments, but re-fetching is cheap and always correct).
	srcSlot = s.slotAt(src)
	tgtSlot = s.slotAt(tgt)
	connSlot := s.slotAt(a)
	connSlot.typ = typ
	connSlot.source = src
	connSlot.target = tgt

	s.linkIntoOutgoing(srcSlot, src, connSlot, a)
	if sctype.IsArc(typ) {
		s.linkIntoIncoming(tgtSlot, tgt, connSlot, a)
	} else {
		s.linkIntoOutgoingAsTarget(tgtSlot, tgt, connSlot, a)
	}
	return a, nil
}

// IsElement reports whether addr refers to a live (including tombstoned)
// element.
func (s *Store) IsElement(addr Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slotAt(addr)
	return sl != nil && sl.alive
}

// GetType returns the type of a live element.
func (s *Store) GetType(addr Addr) (sctype.Type, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slotAt(addr)
	if sl == nil || !sl.alive {
		return sctype.Unknown, opErr("store.GetType", scerr.NotFound, nil)
	}
	return sl.typ, nil
}

// GetConnectorEndpoints returns the (source, target) of a live connector.
func (s *Store) GetConnectorEndpoints(addr Addr) (src, tgt Addr, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slotAt(addr)
	if sl == nil || !sl.alive || !sctype.IsConnector(sl.typ) {
		return Empty, Empty, opErr("store.GetConnectorEndpoints", scerr.InvalidParams, nil)
	}
	return sl.source, sl.target, nil
}

// Outgoing returns the ids of live connectors sourced at addr (and, for
// common edges, those targeting addr too, since an edge has no fixed
// direction), optionally filtered so that only connectors whose type is
// subsumed by mask are returned. A zero mask matches every connector.
func (s *Store) Outgoing(addr Addr, mask sctype.Type) ([]Addr, error) {
	return s.enumerate(addr, mask, true)
}

// Incoming returns the ids of live arcs targeting addr, optionally filtered
// by mask.
func (s *Store) Incoming(addr Addr, mask sctype.Type) ([]Addr, error) {
	return s.enumerate(addr, mask, false)
}

func (s *Store) enumerate(addr Addr, mask sctype.Type, outgoing bool) ([]Addr, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slotAt(addr)
	if sl == nil || !sl.alive {
		return nil, opErr("store.enumerate", scerr.NotFound, nil)
	}
	var head Addr
	if outgoing {
		head = sl.outHead
	} else {
		head = sl.inHead
	}
	var result []Addr
	for cur := head; !cur.IsEmpty(); {
		connSlot := s.slotAt(cur)
		if connSlot == nil {
			break
		}
		if sctype.Subsumes(connSlot.typ, mask) {
			result = append(result, cur)
		}
		cur = nextInList(connSlot, addr, outgoing)
	}
	return result, nil
}
