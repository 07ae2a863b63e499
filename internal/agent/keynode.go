// Package agent implements the agent runtime: a higher-level wrapper over
// the context facade's subscriptions that binds event classes to
// long-lived handlers keyed by keynode, plus the specialized action-agent
// lifecycle (OnSuccess/OnUnsuccess/OnError).
package agent

import (
	"errors"
	"log/slog"

	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// fuzzyCandidateCount bounds how many near-miss identifiers are logged when
// an exact keynode lookup misses (see resolveOrCreate).
const fuzzyCandidateCount = 3

// Well-known system identifiers the system holds a fixed set of, after
// the keynode table in sc_keynodes.hpp.
const (
	IdtfQuestionFinishedSuccessfully   = "question_finished_successfully"
	IdtfQuestionFinishedUnsuccessfully = "question_finished_unsuccessfully"
	IdtfQuestionFinishedWithError      = "question_finished_with_error"
	IdtfEventChangeLinkContent         = "sc_event_change_link_content"
	IdtfEventEraseElement              = "sc_event_erase_element"
	IdtfEventGenerateIncomingArc       = "sc_event_generate_incoming_arc"
)

var wellKnownIdentifiers = []string{
	IdtfQuestionFinishedSuccessfully,
	IdtfQuestionFinishedUnsuccessfully,
	IdtfQuestionFinishedWithError,
	IdtfEventChangeLinkContent,
	IdtfEventEraseElement,
	IdtfEventGenerateIncomingArc,
}

// Keynodes holds the resolved addresses of the well-known system
// identifiers used by the action-agent lifecycle.
type Keynodes struct {
	QuestionFinishedSuccessfully  store.Addr
	QuestionFinishedUnsuccessfully store.Addr
	QuestionFinishedWithError      store.Addr
	EventChangeLinkContent         store.Addr
	EventEraseElement              store.Addr
	EventGenerateIncomingArc       store.Addr
}

// ResolveKeynodes resolves (creating on first run) every well-known keynode
// against ctx. Safe to call repeatedly — resolution is idempotent because
// [memctx.Context.SetSystemIdentifier] is only invoked when the identifier
// does not already resolve.
func ResolveKeynodes(ctx *memctx.Context) (*Keynodes, error) {
	addrs := make(map[string]store.Addr, len(wellKnownIdentifiers))
	for _, idtf := range wellKnownIdentifiers {
		addr, err := resolveOrCreate(ctx, idtf)
		if err != nil {
			return nil, err
		}
		addrs[idtf] = addr
	}
	return &Keynodes{
		QuestionFinishedSuccessfully:   addrs[IdtfQuestionFinishedSuccessfully],
		QuestionFinishedUnsuccessfully: addrs[IdtfQuestionFinishedUnsuccessfully],
		QuestionFinishedWithError:      addrs[IdtfQuestionFinishedWithError],
		EventChangeLinkContent:         addrs[IdtfEventChangeLinkContent],
		EventEraseElement:              addrs[IdtfEventEraseElement],
		EventGenerateIncomingArc:       addrs[IdtfEventGenerateIncomingArc],
	}, nil
}

func resolveOrCreate(ctx *memctx.Context, idtf string) (store.Addr, error) {
	addr, err := ctx.ResolveSystemIdentifier(idtf)
	if err == nil {
		return addr, nil
	}
	if !errors.Is(err, scerr.NotFoundErr) {
		return store.Addr{}, err
	}
	if matches := ctx.ResolveSystemIdentifierFuzzy(idtf, fuzzyCandidateCount); len(matches) > 0 {
		slog.Default().Warn("keynode: exact identifier miss, near-miss candidates found",
			"identifier", idtf, "candidates", matches)
	}
	addr, err = ctx.CreateNode(sctype.NodeConstClass)
	if err != nil {
		return store.Addr{}, err
	}
	if err := ctx.SetSystemIdentifier(idtf, addr); err != nil {
		return store.Addr{}, err
	}
	return addr, nil
}
