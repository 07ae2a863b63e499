package store

// Incidence lists are intrusive doubly-linked lists threaded through each
// connector's own slot. A connector always occupies the
// source's outHead list via (srcNext, srcPrev). Arcs additionally occupy
// the target's inHead list via (tgtNext, tgtPrev); common edges instead
// occupy the target's outHead list via the same (tgtNext, tgtPrev) pair —
// this is the "edges appear in outgoing(a) and outgoing(b)" rule.
//
// Because a node's outHead list can mix connectors using it in the
// "source" role and, for edges, connectors using it in the "target" role,
// walking and unlinking compare the connector's recorded Source against
// the list owner to know which thread pair applies. All helpers below are
// called with s.mu held for writing.

// linkIntoOutgoing inserts connAddr at the head of owner's outgoing list,
// using the source-role thread pair.
func (s *Store) linkIntoOutgoing(owner *slot, ownerAddr Addr, conn *slot, connAddr Addr) {
	oldHead := owner.outHead
	conn.srcNext = oldHead
	conn.srcPrev = Empty
	if !oldHead.IsEmpty() {
		if oldSlot := s.slotAt(oldHead); oldSlot != nil {
			setPrevInList(oldSlot, ownerAddr, true, connAddr)
		}
	}
	owner.outHead = connAddr
}

// linkIntoIncoming inserts connAddr at the head of owner's incoming list
// (arcs only), using the target-role thread pair.
func (s *Store) linkIntoIncoming(owner *slot, ownerAddr Addr, conn *slot, connAddr Addr) {
	oldHead := owner.inHead
	conn.tgtNext = oldHead
	conn.tgtPrev = Empty
	if !oldHead.IsEmpty() {
		if oldSlot := s.slotAt(oldHead); oldSlot != nil {
			setPrevInList(oldSlot, ownerAddr, false, connAddr)
		}
	}
	owner.inHead = connAddr
}

// linkIntoOutgoingAsTarget inserts connAddr (a common edge) at the head of
// owner's outgoing list using the target-role thread pair — this is how a
// common edge ends up in outgoing(target) as well as outgoing(source).
func (s *Store) linkIntoOutgoingAsTarget(owner *slot, ownerAddr Addr, conn *slot, connAddr Addr) {
	oldHead := owner.outHead
	conn.tgtNext = oldHead
	conn.tgtPrev = Empty
	if !oldHead.IsEmpty() {
		if oldSlot := s.slotAt(oldHead); oldSlot != nil {
			setPrevInList(oldSlot, ownerAddr, true, connAddr)
		}
	}
	owner.outHead = connAddr
}

// nextInList returns the next connector address after cur in the
// enumeration of owner's list (outgoing if outgoing==true, else
// incoming), given cur's slot connSlot.
func nextInList(connSlot *slot, owner Addr, outgoing bool) Addr {
	if outgoing {
		if connSlot.source == owner {
			return connSlot.srcNext
		}
		return connSlot.tgtNext
	}
	return connSlot.tgtNext
}

func prevInList(connSlot *slot, owner Addr, outgoing bool) Addr {
	if outgoing {
		if connSlot.source == owner {
			return connSlot.srcPrev
		}
		return connSlot.tgtPrev
	}
	return connSlot.tgtPrev
}

func setNextInList(connSlot *slot, owner Addr, outgoing bool, next Addr) {
	if outgoing && connSlot.source == owner {
		connSlot.srcNext = next
		return
	}
	connSlot.tgtNext = next
}

func setPrevInList(connSlot *slot, owner Addr, outgoing bool, prev Addr) {
	if outgoing && connSlot.source == owner {
		connSlot.srcPrev = prev
		return
	}
	connSlot.tgtPrev = prev
}

// unlinkFromList removes connAddr from owner's list (outgoing if
// outgoing==true, else incoming).
func (s *Store) unlinkFromList(owner *slot, ownerAddr, connAddr Addr, outgoing bool) {
	connSlot := s.slotAt(connAddr)
	if connSlot == nil {
		return
	}
	prev := prevInList(connSlot, ownerAddr, outgoing)
	next := nextInList(connSlot, ownerAddr, outgoing)

	if prev.IsEmpty() {
		if outgoing {
			owner.outHead = next
		} else {
			owner.inHead = next
		}
	} else if prevSlot := s.slotAt(prev); prevSlot != nil {
		setNextInList(prevSlot, ownerAddr, outgoing, next)
	}

	if !next.IsEmpty() {
		if nextSlot := s.slotAt(next); nextSlot != nil {
			setPrevInList(nextSlot, ownerAddr, outgoing, prev)
		}
	}
}
