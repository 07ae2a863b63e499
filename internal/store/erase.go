package store

import (
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// CascadeItem describes one element visited during a cascade erase,
// captured while it is still fully readable.
type CascadeItem struct {
	Addr        Addr
	Type        sctype.Type
	IsConnector bool
	Source      Addr // valid only if IsConnector
	Target      Addr // valid only if IsConnector
}

// Erase removes addr and its cascade set: addr itself, every
// connector incident on it, and (transitively, via BFS) every connector
// incident on those connectors. onReadable is invoked once per cascade
// item, in BFS discovery order, while the element is still fully
// readable (tombstoned but not yet unlinked) — callers use this hook to
// dispatch erase_* events synchronously before the two-phase unlink
// proceeds (see DESIGN.md for why erase events are dispatched
// synchronously rather than through the async bus queue used by every
// other event class).
//
// onReadable is called with the store's internal lock released, so it
// may safely re-enter the store (e.g. a handler creating new elements).
func (s *Store) Erase(addr Addr, onReadable func(CascadeItem)) error {
	s.mu.Lock()
	root := s.slotAt(addr)
	if root == nil || !root.alive {
		s.mu.Unlock()
		return opErr("store.Erase", scerr.NotFound, nil)
	}

	cascade := s.computeCascade(addr)
	items := make([]CascadeItem, 0, len(cascade))
	for _, a := range cascade {
		sl := s.slotAt(a)
		sl.tombstoned = true
		items = append(items, CascadeItem{
			Addr:        a,
			Type:        sl.typ,
			IsConnector: sctype.IsConnector(sl.typ),
			Source:      sl.source,
			Target:      sl.target,
		})
	}
	s.mu.Unlock()

	if onReadable != nil {
		for _, item := range items {
			onReadable(item)
		}
	}

	s.mu.Lock()
	for _, item := range items {
		sl := s.slotAt(item.Addr)
		if sl == nil || !sl.alive {
			continue
		}
		if item.IsConnector {
			if srcSlot := s.slotAt(item.Source); srcSlot != nil {
				s.unlinkFromList(srcSlot, item.Source, item.Addr, true)
			}
			if sctype.IsArc(item.Type) {
				if tgtSlot := s.slotAt(item.Target); tgtSlot != nil {
					s.unlinkFromList(tgtSlot, item.Target, item.Addr, false)
				}
			} else {
				if tgtSlot := s.slotAt(item.Target); tgtSlot != nil {
					s.unlinkFromList(tgtSlot, item.Target, item.Addr, true)
				}
			}
		}
		sl.alive = false
		sl.tombstoned = false
		sl.generation++
		s.free = append(s.free, item.Addr)
	}
	s.mu.Unlock()
	return nil
}

// computeCascade performs the BFS that discovers addr's cascade set:
// addr itself, then every connector incident on an already-visited
// element, transitively, in discovery order. Must be called with s.mu
// held.
func (s *Store) computeCascade(root Addr) []Addr {
	visited := map[Addr]bool{root: true}
	queue := []Addr{root}
	order := []Addr{root}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		sl := s.slotAt(cur)
		if sl == nil {
			continue
		}
		for _, connAddr := range s.listAddrs(sl.outHead, cur, true) {
			if !visited[connAddr] {
				visited[connAddr] = true
				queue = append(queue, connAddr)
				order = append(order, connAddr)
			}
		}
		for _, connAddr := range s.listAddrs(sl.inHead, cur, false) {
			if !visited[connAddr] {
				visited[connAddr] = true
				queue = append(queue, connAddr)
				order = append(order, connAddr)
			}
		}
	}
	return order
}

// listAddrs walks a full incidence list (no type filter), used by cascade
// computation.
func (s *Store) listAddrs(head Addr, owner Addr, outgoing bool) []Addr {
	var res []Addr
	for cur := head; !cur.IsEmpty(); {
		connSlot := s.slotAt(cur)
		if connSlot == nil {
			break
		}
		res = append(res, cur)
		cur = nextInList(connSlot, owner, outgoing)
	}
	return res
}

// IsTombstoned reports whether addr is in the emit-before-unlink window of
// an in-progress erase. Exposed so higher layers (memctx) can still answer
// IsElement/GetType truthfully from inside a synchronous erase-event
// delegate even though the store lock may be contended.
func (s *Store) IsTombstoned(addr Addr) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl := s.slotAt(addr)
	return sl != nil && sl.tombstoned
}
