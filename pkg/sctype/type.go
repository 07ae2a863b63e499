// Package sctype implements the element/connector type algebra: a bitmask
// encoding of the constancy, structural-kind, node-subclass, arc-modality,
// and arc-polarity axes, together with the compatibility predicate used by
// subscriptions, templates, and element construction.
//
// Named composite constants (NodeConstClass, EdgeAccessConstPosPerm, …)
// mirror the constant table in sc_type.cpp so callers never need to OR
// raw bits together by hand.
package sctype

import "fmt"

// Type is a bitmask over the element/connector type axes. It is stored in
// 16 bits so it round-trips through the wire protocol's type:u16 field
// without truncation.
type Type uint16

// Individual axis bits. Node subclass is a packed 3-bit field rather than
// one-hot flags (see subclassShift/subclassMask) since the axis only ever
// holds one of seven values and one-hot encoding would not fit in 16 bits
// alongside the rest of the axes.
const (
	bitConst Type = 1 << iota
	bitVar
	bitNode
	bitLink
	bitEdgeCommon
	bitArcCommon
	bitArcAccess
	_ // subclass field occupies the next 3 bits, handled separately
	_
	_
	bitPermArc
	bitTempArc
	bitPosArc
	bitNegArc
	bitFuzArc
)

const (
	subclassShift = 7
	subclassMask  = Type(0x7) << subclassShift
)

// Node subclass values, packed into the subclass field.
const (
	subclassNone Type = iota
	subclassStructure
	subclassTuple
	subclassRole
	subclassNoRole
	subclassClass
	subclassSuperclass
	subclassMaterial
)

// Named single-axis building blocks.
const (
	Unknown Type = 0

	Const Type = bitConst
	Var   Type = bitVar

	Node = bitNode
	Link = bitNode | bitLink

	EdgeUCommon = bitEdgeCommon
	EdgeDCommon = bitArcCommon
	EdgeAccess  = bitArcAccess

	NodeStructure  = bitNode | (subclassStructure << subclassShift)
	NodeTuple      = bitNode | (subclassTuple << subclassShift)
	NodeRole       = bitNode | (subclassRole << subclassShift)
	NodeNoRole     = bitNode | (subclassNoRole << subclassShift)
	NodeClass      = bitNode | (subclassClass << subclassShift)
	NodeSuperclass = bitNode | (subclassSuperclass << subclassShift)
	NodeMaterial   = bitNode | (subclassMaterial << subclassShift)

	PermArc = bitPermArc
	TempArc = bitTempArc
	PosArc  = bitPosArc
	NegArc  = bitNegArc
	FuzArc  = bitFuzArc
)

// Composite constants matching the sc_type.cpp named-type table,
// expressed as Go constant expressions.
const (
	NodeConst = Node | Const
	NodeVar   = Node | Var

	LinkConst      = Link | Const
	LinkVar        = Link | Var
	LinkClass      = Link | (subclassClass << subclassShift)
	LinkConstClass = Link | Const | (subclassClass << subclassShift)
	LinkVarClass   = Link | Var | (subclassClass << subclassShift)

	NodeConstStruct   = Node | Const | (subclassStructure << subclassShift)
	NodeConstTuple    = Node | Const | (subclassTuple << subclassShift)
	NodeConstRole     = Node | Const | (subclassRole << subclassShift)
	NodeConstNoRole   = Node | Const | (subclassNoRole << subclassShift)
	NodeConstClass    = Node | Const | (subclassClass << subclassShift)
	NodeConstAbstract = Node | Const | (subclassSuperclass << subclassShift)
	NodeConstMaterial = Node | Const | (subclassMaterial << subclassShift)

	NodeVarStruct   = Node | Var | (subclassStructure << subclassShift)
	NodeVarTuple    = Node | Var | (subclassTuple << subclassShift)
	NodeVarRole     = Node | Var | (subclassRole << subclassShift)
	NodeVarNoRole   = Node | Var | (subclassNoRole << subclassShift)
	NodeVarClass    = Node | Var | (subclassClass << subclassShift)
	NodeVarAbstract = Node | Var | (subclassSuperclass << subclassShift)
	NodeVarMaterial = Node | Var | (subclassMaterial << subclassShift)

	EdgeUCommonConst = EdgeUCommon | Const
	EdgeUCommonVar   = EdgeUCommon | Var
	EdgeDCommonConst = EdgeDCommon | Const
	EdgeDCommonVar   = EdgeDCommon | Var

	EdgeAccessConstPosPerm = EdgeAccess | Const | PermArc | PosArc
	EdgeAccessConstNegPerm = EdgeAccess | Const | PermArc | NegArc
	EdgeAccessConstFuzPerm = EdgeAccess | Const | PermArc | FuzArc
	EdgeAccessConstPosTemp = EdgeAccess | Const | TempArc | PosArc
	EdgeAccessConstNegTemp = EdgeAccess | Const | TempArc | NegArc
	EdgeAccessConstFuzTemp = EdgeAccess | Const | TempArc | FuzArc

	EdgeAccessVarPosPerm = EdgeAccess | Var | PermArc | PosArc
	EdgeAccessVarNegPerm = EdgeAccess | Var | PermArc | NegArc
	EdgeAccessVarFuzPerm = EdgeAccess | Var | PermArc | FuzArc
	EdgeAccessVarPosTemp = EdgeAccess | Var | TempArc | PosArc
	EdgeAccessVarNegTemp = EdgeAccess | Var | TempArc | NegArc
	EdgeAccessVarFuzTemp = EdgeAccess | Var | TempArc | FuzArc
)

// axisKind identifies the structural-kind category of a Type, handling the
// Node/Link overlap (Link always carries the Node bit too).
type axisKind int

const (
	kindNone axisKind = iota
	kindNode
	kindLink
	kindEdgeCommon
	kindArcCommon
	kindArcAccess
)

func (t Type) structuralKind() axisKind {
	switch {
	case t&bitLink != 0:
		return kindLink
	case t&bitNode != 0:
		return kindNode
	case t&bitEdgeCommon != 0:
		return kindEdgeCommon
	case t&bitArcCommon != 0:
		return kindArcCommon
	case t&bitArcAccess != 0:
		return kindArcAccess
	default:
		return kindNone
	}
}

func (t Type) constancy() Type { return t & (bitConst | bitVar) }
func (t Type) subclass() Type  { return t & subclassMask }
func (t Type) modality() Type  { return t & (bitPermArc | bitTempArc) }
func (t Type) polarity() Type  { return t & (bitPosArc | bitNegArc | bitFuzArc) }

func popcount(t Type) int {
	n := 0
	for t != 0 {
		n += int(t & 1)
		t >>= 1
	}
	return n
}

// IsValid reports whether t is an internally coherent combination of bits:
// no axis carries two conflicting categories, arc sub-bits only appear on
// membership-arcs, and node sub-class bits only appear on nodes.
func IsValid(t Type) bool {
	if popcount(t.constancy()) > 1 {
		return false
	}
	if t&bitLink != 0 && t&bitNode == 0 {
		return false
	}
	kindBits := 0
	if t&bitNode != 0 && t&bitLink == 0 {
		kindBits++
	}
	if t&bitLink != 0 {
		kindBits++
	}
	if t&bitEdgeCommon != 0 {
		kindBits++
	}
	if t&bitArcCommon != 0 {
		kindBits++
	}
	if t&bitArcAccess != 0 {
		kindBits++
	}
	if kindBits > 1 {
		return false
	}
	if t.subclass() != 0 && t&bitNode == 0 {
		return false
	}
	isArcAccess := t&bitArcAccess != 0
	if (t.modality() != 0 || t.polarity() != 0) && !isArcAccess {
		return false
	}
	if popcount(t.modality()) > 1 {
		return false
	}
	if popcount(t.polarity()) > 1 {
		return false
	}
	return true
}

// Subsumes reports whether an element of type t matches a subscription or
// template of type super ("t ⊑ super"): every axis super specifies must
// equal the corresponding axis of t; an axis super leaves unspecified
// (Unknown) matches any value of t's axis.
func Subsumes(t, super Type) bool {
	if c := super.constancy(); c != 0 && c != t.constancy() {
		return false
	}
	if k := super.structuralKind(); k != kindNone && k != t.structuralKind() {
		return false
	}
	if s := super.subclass(); s != 0 && s != t.subclass() {
		return false
	}
	if m := super.modality(); m != 0 && m != t.modality() {
		return false
	}
	if p := super.polarity(); p != 0 && p != t.polarity() {
		return false
	}
	return true
}

// IsNode reports whether t's structural kind is Node or Link (a link is a
// node).
func IsNode(t Type) bool { return t&bitNode != 0 }

// IsLink reports whether t carries the link bit.
func IsLink(t Type) bool { return t&bitLink != 0 }

// IsConnector reports whether t is any kind with endpoints: an edge or arc.
func IsConnector(t Type) bool {
	return t&(bitEdgeCommon|bitArcCommon|bitArcAccess) != 0
}

// IsArc reports whether t is directed: a common-arc or membership-arc.
func IsArc(t Type) bool { return t&(bitArcCommon|bitArcAccess) != 0 }

// IsEdge reports whether t is an undirected common-edge.
func IsEdge(t Type) bool { return t&bitEdgeCommon != 0 }

// IsConst reports whether t's constancy axis is Const.
func IsConst(t Type) bool { return t&bitConst != 0 }

// IsVar reports whether t's constancy axis is Var.
func IsVar(t Type) bool { return t&bitVar != 0 }

// String renders t as a compact "|"-joined list of axis names, e.g.
// "node|const|class". Unknown (0) renders as "unknown".
func (t Type) String() string {
	if t == Unknown {
		return "unknown"
	}
	var parts []string
	add := func(cond bool, name string) {
		if cond {
			parts = append(parts, name)
		}
	}
	add(t&bitConst != 0, "const")
	add(t&bitVar != 0, "var")
	add(t&bitLink != 0, "link")
	add(t&bitNode != 0 && t&bitLink == 0, "node")
	add(t&bitEdgeCommon != 0, "edge_common")
	add(t&bitArcCommon != 0, "arc_common")
	add(t&bitArcAccess != 0, "arc_access")
	switch t.subclass() >> subclassShift {
	case subclassStructure:
		parts = append(parts, "structure")
	case subclassTuple:
		parts = append(parts, "tuple")
	case subclassRole:
		parts = append(parts, "role")
	case subclassNoRole:
		parts = append(parts, "norole")
	case subclassClass:
		parts = append(parts, "class")
	case subclassSuperclass:
		parts = append(parts, "superclass")
	case subclassMaterial:
		parts = append(parts, "material")
	}
	add(t&bitPermArc != 0, "perm")
	add(t&bitTempArc != 0, "temp")
	add(t&bitPosArc != 0, "pos")
	add(t&bitNegArc != 0, "neg")
	add(t&bitFuzArc != 0, "fuz")
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "|"
		}
		out += p
	}
	return out
}

// GoString supports %#v formatting with the same rendering as String.
func (t Type) GoString() string { return fmt.Sprintf("sctype.Type(%s)", t.String()) }
