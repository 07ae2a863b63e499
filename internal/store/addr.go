// Package store implements the graph element store: typed
// node/link/connector allocation, intrusive incidence lists, and the
// two-phase cascade erase. It has no knowledge of events or content
// indexing — those concerns are layered on top by internal/event and
// internal/memctx, keeping the store independently testable.
package store

import "fmt"

// Addr is the opaque element identifier described in a pair of
// 16-bit halves. The zero value (Seg==0 && Off==0) is reserved as
// "empty/invalid" and is never assigned to a live element — segment
// allocation starts at 1 (see [Store]).
type Addr struct {
	Seg uint16
	Off uint16
}

// Empty is the reserved invalid address.
var Empty = Addr{}

// IsEmpty reports whether a is the reserved invalid address.
func (a Addr) IsEmpty() bool { return a == Empty }

// Less gives Addr a canonical total order, used to prefer the lowest free
// slot on allocation.
func (a Addr) Less(b Addr) bool {
	if a.Seg != b.Seg {
		return a.Seg < b.Seg
	}
	return a.Off < b.Off
}

func (a Addr) String() string {
	if a.IsEmpty() {
		return "addr(empty)"
	}
	return fmt.Sprintf("addr(%d:%d)", a.Seg, a.Off)
}
