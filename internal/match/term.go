// Package match implements the pattern matcher: a template of triples and
// quintuples over variables, searched against the
// live graph via [Search] or completed by materializing missing elements
// via [Generate]. It reaches internal/store only through internal/memctx:
// [Search] only reads the graph, while [Generate] creates the nodes and
// connectors it needs.
package match

import "github.com/scmem/scmem/internal/store"

// Term is one position in a triple/quintuple: either a bound constant
// address or an unbound variable name.
type Term struct {
	variable string
	addr     store.Addr
}

// V returns a variable term named name. By convention names begin with an
// underscore, matching the SCs "_name" syntax, but this is not enforced.
func V(name string) Term { return Term{variable: name} }

// C returns a constant term bound to addr.
func C(addr store.Addr) Term { return Term{addr: addr} }

// IsVar reports whether t is an unbound variable rather than a constant.
func (t Term) IsVar() bool { return t.variable != "" }

// Name returns the variable name; empty for constant terms.
func (t Term) Name() string { return t.variable }

// resolve looks up t's address given the current binding: constants return
// their own address; variables are looked up in binding. ok is false for an
// as-yet-unbound variable.
func (t Term) resolve(b Binding) (store.Addr, bool) {
	if !t.IsVar() {
		return t.addr, true
	}
	a, ok := b[t.variable]
	return a, ok
}

// Binding maps variable names to the addresses a [Search] or [Generate]
// call assigned them.
type Binding map[string]store.Addr

// clone returns a shallow copy, used so backtracking can mutate a branch's
// binding without corrupting the caller's.
func (b Binding) clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
