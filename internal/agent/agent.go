package agent

import (
	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
)

// Result mirrors the sc_result outcome codes an agent reports for the
// action it just ran.
type Result int

const (
	// ResultOK marks the action as finished successfully.
	ResultOK Result = iota
	// ResultUnsuccess marks the action as finished, but unsuccessfully.
	ResultUnsuccess
	// ResultError marks the action as finished with an error.
	ResultError
)

func (r Result) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultUnsuccess:
		return "unsuccess"
	case ResultError:
		return "error"
	default:
		return "unknown"
	}
}

// Handler is a plain agent's reaction to a matching event. Unlike an action
// handler it reports nothing back to the graph; any mutation it wants
// reflected is its own responsibility.
type Handler func(ctx *memctx.Context, ev event.Event)

// Registration is the handle returned by [Runtime.Register] /
// [RegisterAction]. Unregister via [Runtime.Unregister] using
// Registration.Type.
type Registration struct {
	Type string

	// ActionSet is the structure element collecting every action this
	// registration has processed. Empty for plain (non-action) agents.
	ActionSet store.Addr

	subIDs   []uint64
	keynodes []store.Addr
}
