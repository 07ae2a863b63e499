package match

import (
	"fmt"

	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// Generate materializes whatever elements and connectors tmpl's clauses are
// missing, reusing partial's bindings as a starting point, and returns the
// completed [Binding]. Each link's connector type must be a concrete,
// unambiguous type (constancy, structural kind, and — for membership
// arcs — modality/polarity all set): Generate has no basis to choose among
// several possible connector shapes on the caller's behalf.
func Generate(ctx *memctx.Context, tmpl Template, partial Binding) (Binding, error) {
	if partial == nil {
		partial = make(Binding)
	} else {
		partial = partial.clone()
	}

	for _, l := range normalize(tmpl) {
		if err := generateLink(ctx, l, partial); err != nil {
			return nil, err
		}
	}
	return partial, nil
}

func generateLink(ctx *memctx.Context, l link, binding Binding) error {
	if !isConcreteConnectorType(l.connType) {
		return scerr.New(scerr.InvalidParams, "match.Generate",
			fmt.Errorf("connector type %v is not concrete enough to generate", l.connType))
	}

	a, err := resolveOrCreateNode(ctx, l.a, binding)
	if err != nil {
		return err
	}
	b, err := resolveOrCreateNode(ctx, l.b, binding)
	if err != nil {
		return err
	}

	conn, err := findExistingConnector(ctx, a, b, l.connType)
	if err != nil {
		return err
	}
	if conn.IsEmpty() {
		conn, err = ctx.CreateConnector(l.connType, a, b)
		if err != nil {
			return err
		}
	}
	if l.connVar != "" && !bindVar(binding, l.connVar, conn) {
		return scerr.New(scerr.Conflict, "match.Generate",
			fmt.Errorf("connector variable %q already bound to a different address", l.connVar))
	}
	return nil
}

// resolveOrCreateNode resolves t against binding, creating a fresh constant
// node and binding it if t is a variable with no existing binding.
// Constants must already be live elements.
func resolveOrCreateNode(ctx *memctx.Context, t Term, binding Binding) (store.Addr, error) {
	if !t.IsVar() {
		if !ctx.IsElement(t.addr) {
			return store.Addr{}, scerr.New(scerr.NotFound, "match.Generate",
				fmt.Errorf("constant term %v is not a live element", t.addr))
		}
		return t.addr, nil
	}
	if addr, ok := binding[t.variable]; ok {
		return addr, nil
	}
	addr, err := ctx.CreateNode(sctype.NodeConst)
	if err != nil {
		return store.Addr{}, err
	}
	binding[t.variable] = addr
	return addr, nil
}

// findExistingConnector returns a live connector of exactly connType from a
// to b if one already exists, so Generate never creates a redundant
// duplicate when the template is already partially satisfied.
func findExistingConnector(ctx *memctx.Context, a, b store.Addr, connType sctype.Type) (store.Addr, error) {
	out, err := ctx.Outgoing(a, connType)
	if err != nil {
		return store.Addr{}, err
	}
	for _, conn := range out {
		_, tgt, err := ctx.GetConnectorEndpoints(conn)
		if err != nil {
			continue
		}
		if tgt == b {
			return conn, nil
		}
	}
	return store.Addr{}, nil
}

// isConcreteConnectorType reports whether t fully pins constancy and
// structural kind (and, for membership arcs, modality and polarity) so
// [ctx.CreateConnector] can construct it unambiguously.
func isConcreteConnectorType(t sctype.Type) bool {
	if !sctype.IsValid(t) || !sctype.IsConnector(t) {
		return false
	}
	if !sctype.IsConst(t) && !sctype.IsVar(t) {
		return false
	}
	if sctype.IsArc(t) && t&sctype.EdgeAccess == sctype.EdgeAccess {
		hasModality := t&(sctype.PermArc|sctype.TempArc) != 0
		hasPolarity := t&(sctype.PosArc|sctype.NegArc|sctype.FuzArc) != 0
		if !hasModality || !hasPolarity {
			return false
		}
	}
	return true
}
