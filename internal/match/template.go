package match

import (
	"strconv"

	"github.com/scmem/scmem/pkg/sctype"
)

// Triple is a single "(A, connector-type, B)" clause: a
// connector of type ConnType must exist from A to B. ConnVar optionally
// binds the connector's own address to a variable, for templates that need
// to reference the connector itself (e.g. to attach a membership arc to it
// in a [Quintuple]).
type Triple struct {
	A        Term
	ConnType sctype.Type
	B        Term
	ConnVar  string
}

// Quintuple is a "(A, connector-type, B, membership-arc-type, C)" clause
//: in addition to the [Triple]'s A-connector-B relation, a
// membership arc of type MemberArcType must run from C to that connector.
// This is the standard sc-machine idiom for attaching roles/relations to an
// edge rather than to its endpoints.
type Quintuple struct {
	Triple
	MemberArcType sctype.Type
	C             Term
	MemberArcVar  string
}

// Template is a set of triples and quintuples over a shared pool of
// variables.
type Template struct {
	Triples    []Triple
	Quintuples []Quintuple
}

// link is the normalized clause shape both search and generate operate on:
// a quintuple is just two links sharing a variable bound to the connector.
type link struct {
	a        Term
	connType sctype.Type
	b        Term
	connVar  string // empty if the connector's own address is not referenced elsewhere
}

// normalize flattens tmpl's triples and quintuples into a single ordered
// list of links, synthesizing a connector variable for any quintuple whose
// ConnVar was left blank so its membership-arc link has something to bind
// against.
func normalize(tmpl Template) []link {
	links := make([]link, 0, len(tmpl.Triples)+2*len(tmpl.Quintuples))
	for _, t := range tmpl.Triples {
		links = append(links, link{a: t.A, connType: t.ConnType, b: t.B, connVar: t.ConnVar})
	}
	for i, q := range tmpl.Quintuples {
		connVar := q.ConnVar
		if connVar == "" {
			connVar = syntheticConnVar(i)
		}
		links = append(links,
			link{a: q.A, connType: q.ConnType, b: q.B, connVar: connVar},
			link{a: q.C, connType: q.MemberArcType, b: V(connVar), connVar: q.MemberArcVar},
		)
	}
	return links
}

func syntheticConnVar(i int) string {
	return "__conn" + strconv.Itoa(i)
}
