package agent

import (
	"context"
	"fmt"

	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/observe"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/sctype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ActionHandler runs an action triggered by an incoming arc to one of an
// action-agent's bound keynodes, reporting the outcome back as a [Result].
type ActionHandler func(ctx *memctx.Context, action store.Addr) Result

// RegisterAction binds an action-agent to class [event.GenerateIncomingArc]
// on every keynode in keynodes. The action instance is the arc's source (the
// element that pointed an arc into the action-class keynode, the
// sc-machine convention for "this is an instance of that action class"); h
// runs under a tracing span and its [Result] is recorded against the action
// element via a permanent arc (positive for ok/unsuccess, fuzzy for error)
// from the matching
// question_finished_* keynode in kn. Each processed action also joins the
// agent's set structure (Registration.ActionSet) via a membership arc, so
// the graph itself records which agent handled which action.
func RegisterAction(r *Runtime, agentType string, keynodes []store.Addr, mask sctype.Type, kn *Keynodes, h ActionHandler) (*Registration, error) {
	actionSet, err := r.ctx.CreateNode(sctype.NodeConstStruct)
	if err != nil {
		return nil, err
	}
	wrapped := func(ctx *memctx.Context, ev event.Event) {
		action := ev.Source
		if action.IsEmpty() {
			action = ev.Element
		}

		_, span := observe.StartSpan(context.Background(), "agent.action",
			trace.WithAttributes(
				attribute.String("agent_type", agentType),
				attribute.String("action", action.String()),
			),
		)
		defer span.End()

		result := runHandler(h, ctx, action)
		span.SetAttributes(attribute.String("result", result.String()))
		if result == ResultError {
			span.SetStatus(codes.Error, "action finished with error")
		}

		if err := markResult(ctx, kn, action, result); err != nil {
			span.RecordError(err)
		}
		if _, err := ctx.CreateConnector(sctype.EdgeAccessConstPosPerm, actionSet, action); err != nil {
			span.RecordError(err)
		}
	}
	reg, err := r.Register(agentType, keynodes, event.GenerateIncomingArc, mask, wrapped)
	if err != nil {
		r.ctx.Erase(actionSet)
		return nil, err
	}
	if !reg.ActionSet.IsEmpty() {
		// agentType was already registered; keep its existing set.
		r.ctx.Erase(actionSet)
		return reg, nil
	}
	reg.ActionSet = actionSet
	return reg, nil
}

// runHandler recovers from a panicking handler and reports it as ResultError,
// matching the delegate-panic containment the event bus already applies to
// plain handlers (internal/event/bus.go's invoke).
func runHandler(h ActionHandler, ctx *memctx.Context, action store.Addr) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = ResultError
		}
	}()
	return h(ctx, action)
}

// markResult creates the permanent arc from the keynode matching result to
// action, completing the action's finish-marking protocol.
func markResult(ctx *memctx.Context, kn *Keynodes, action store.Addr, result Result) error {
	var (
		keynode store.Addr
		arcType sctype.Type
	)
	switch result {
	case ResultOK:
		keynode, arcType = kn.QuestionFinishedSuccessfully, sctype.EdgeAccessConstPosPerm
	case ResultUnsuccess:
		keynode, arcType = kn.QuestionFinishedUnsuccessfully, sctype.EdgeAccessConstPosPerm
	case ResultError:
		keynode, arcType = kn.QuestionFinishedWithError, sctype.EdgeAccessConstFuzPerm
	default:
		return fmt.Errorf("agent: markResult: unknown result %v", result)
	}
	_, err := ctx.CreateConnector(arcType, keynode, action)
	return err
}
