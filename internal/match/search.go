package match

import (
	"fmt"

	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// Search enumerates every binding of tmpl's variables that realises every
// triple and quintuple with live, type-matching elements.
// Clauses are ordered by selectivity: only a clause with at least one
// grounded (bound or constant) endpoint can be expanded next, and among
// those the one whose pivot endpoint (the source if grounded, else the
// target) has the fewest matching live connectors wins; on equal counts the
// earlier clause wins.
func Search(ctx *memctx.Context, tmpl Template) ([]Binding, error) {
	links := normalize(tmpl)
	var results []Binding
	if err := searchRec(ctx, links, make(Binding), &results); err != nil {
		return nil, err
	}
	return results, nil
}

func searchRec(ctx *memctx.Context, remaining []link, binding Binding, results *[]Binding) error {
	if len(remaining) == 0 {
		*results = append(*results, binding.clone())
		return nil
	}

	idx, pivotIsA, pivotAddr, err := pickPivot(ctx, remaining, binding)
	if err != nil {
		return err
	}
	chosen := remaining[idx]
	rest := dropAt(remaining, idx)

	candidates, err := connectorCandidates(ctx, pivotAddr, chosen.connType, pivotIsA)
	if err != nil {
		return err
	}

	for _, conn := range candidates {
		src, tgt, err := ctx.GetConnectorEndpoints(conn)
		if err != nil {
			continue // raced with an erase; skip this candidate
		}

		next := binding.clone()
		if !bindTerm(next, chosen.a, src) || !bindTerm(next, chosen.b, tgt) {
			continue
		}
		if chosen.connVar != "" && !bindVar(next, chosen.connVar, conn) {
			continue
		}
		if err := searchRec(ctx, rest, next, results); err != nil {
			return err
		}
	}
	return nil
}

// pickPivot chooses the next link to expand: the first link (by index) with
// at least one grounded endpoint, preferring whichever of the two
// candidates (when more than one link qualifies) has the smaller incidence
// list at its grounded endpoint.
func pickPivot(ctx *memctx.Context, links []link, binding Binding) (idx int, pivotIsA bool, pivotAddr store.Addr, err error) {
	bestSize := -1
	found := false
	for i, l := range links {
		aAddr, aOK := l.a.resolve(binding)
		bAddr, bOK := l.b.resolve(binding)
		if !aOK && !bOK {
			continue
		}
		useA := aOK
		addr := aAddr
		if !useA {
			addr = bAddr
		}
		size, serr := incidenceSize(ctx, addr, l.connType, useA)
		if serr != nil {
			return 0, false, store.Addr{}, serr
		}
		if !found || size < bestSize {
			idx, pivotIsA, pivotAddr, bestSize, found = i, useA, addr, size, true
		}
	}
	if !found {
		return 0, false, store.Addr{}, scerr.New(scerr.InvalidParams, "match.Search",
			fmt.Errorf("template has no grounded clause to pivot on; at least one constant or already-bound variable is required"))
	}
	return idx, pivotIsA, pivotAddr, nil
}

func incidenceSize(ctx *memctx.Context, addr store.Addr, connType sctype.Type, fromA bool) (int, error) {
	addrs, err := connectorCandidates(ctx, addr, connType, fromA)
	if err != nil {
		return 0, err
	}
	return len(addrs), nil
}

// connectorCandidates returns every live connector matching connType that
// touches pivot in the role implied by pivotIsA: common edges are always
// reachable via Outgoing (the store threads edges into both endpoints'
// outgoing lists); arcs are reachable via Outgoing when pivot is the source
// and Incoming when pivot is the target.
func connectorCandidates(ctx *memctx.Context, pivot store.Addr, connType sctype.Type, pivotIsSource bool) ([]store.Addr, error) {
	if sctype.IsEdge(connType) || pivotIsSource {
		return ctx.Outgoing(pivot, connType)
	}
	return ctx.Incoming(pivot, connType)
}

func bindTerm(b Binding, t Term, addr store.Addr) bool {
	if !t.IsVar() {
		return t.addr == addr
	}
	return bindVar(b, t.Name(), addr)
}

func bindVar(b Binding, name string, addr store.Addr) bool {
	if existing, ok := b[name]; ok {
		return existing == addr
	}
	b[name] = addr
	return true
}

func dropAt(links []link, idx int) []link {
	out := make([]link, 0, len(links)-1)
	out = append(out, links[:idx]...)
	out = append(out, links[idx+1:]...)
	return out
}
