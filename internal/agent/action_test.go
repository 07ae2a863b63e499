package agent_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/scmem/scmem/internal/agent"
	"github.com/scmem/scmem/internal/fsindex"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/sctype"
)

func newTestContext(t *testing.T) *memctx.Context {
	t.Helper()
	mem, err := memctx.Initialize(fsindex.DefaultConfig(t.TempDir()), nil, slog.Default())
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return mem.NewContext()
}

func markedResult(t *testing.T, ctx *memctx.Context, kn *agent.Keynodes, action store.Addr) agent.Result {
	t.Helper()
	for _, k := range []struct {
		addr   store.Addr
		result agent.Result
	}{
		{kn.QuestionFinishedSuccessfully, agent.ResultOK},
		{kn.QuestionFinishedUnsuccessfully, agent.ResultUnsuccess},
		{kn.QuestionFinishedWithError, agent.ResultError},
	} {
		arcs, err := ctx.Outgoing(k.addr, sctype.EdgeAccess)
		if err != nil {
			t.Fatalf("Outgoing: %v", err)
		}
		for _, arc := range arcs {
			_, tgt, err := ctx.GetConnectorEndpoints(arc)
			if err != nil {
				t.Fatalf("GetConnectorEndpoints: %v", err)
			}
			if tgt == action {
				return k.result
			}
		}
	}
	return -1
}

func TestRegisterAction_Success(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	kn, err := agent.ResolveKeynodes(ctx)
	if err != nil {
		t.Fatalf("ResolveKeynodes: %v", err)
	}

	actionClass, err := ctx.CreateNode(sctype.NodeConstClass)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	instance, err := ctx.CreateNode(sctype.NodeConst)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	rt := agent.NewRuntime(ctx)
	done := make(chan struct{}, 1)
	_, err = agent.RegisterAction(rt, "test-success-action", []store.Addr{actionClass}, sctype.Unknown, kn,
		func(ctx *memctx.Context, action store.Addr) agent.Result {
			defer func() { done <- struct{}{} }()
			if action != instance {
				t.Errorf("action = %v, want %v", action, instance)
			}
			return agent.ResultOK
		})
	if err != nil {
		t.Fatalf("RegisterAction: %v", err)
	}

	if _, err := ctx.CreateConnector(sctype.EdgeAccessConstPosPerm, instance, actionClass); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action handler was not invoked")
	}
	// Allow the async delegate to finish marking the result.
	time.Sleep(50 * time.Millisecond)

	if got := markedResult(t, ctx, kn, instance); got != agent.ResultOK {
		t.Errorf("marked result = %v, want ResultOK", got)
	}
}

func TestRegisterAction_RecordsActionInAgentSet(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	kn, err := agent.ResolveKeynodes(ctx)
	if err != nil {
		t.Fatalf("ResolveKeynodes: %v", err)
	}

	actionClass, _ := ctx.CreateNode(sctype.NodeConstClass)
	instance, _ := ctx.CreateNode(sctype.NodeConst)

	rt := agent.NewRuntime(ctx)
	done := make(chan struct{}, 1)
	reg, err := agent.RegisterAction(rt, "test-set-action", []store.Addr{actionClass}, sctype.Unknown, kn,
		func(ctx *memctx.Context, action store.Addr) agent.Result {
			defer func() { done <- struct{}{} }()
			return agent.ResultOK
		})
	if err != nil {
		t.Fatalf("RegisterAction: %v", err)
	}
	if reg.ActionSet.IsEmpty() {
		t.Fatal("expected the registration to own an action set")
	}

	if _, err := ctx.CreateConnector(sctype.EdgeAccessConstPosPerm, instance, actionClass); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action handler was not invoked")
	}
	time.Sleep(50 * time.Millisecond)

	members, err := ctx.Outgoing(reg.ActionSet, sctype.EdgeAccess)
	if err != nil {
		t.Fatalf("Outgoing: %v", err)
	}
	found := false
	for _, arc := range members {
		_, tgt, err := ctx.GetConnectorEndpoints(arc)
		if err != nil {
			t.Fatalf("GetConnectorEndpoints: %v", err)
		}
		if tgt == instance {
			found = true
		}
	}
	if !found {
		t.Fatal("expected the processed action to be a member of the agent's action set")
	}
}

func TestRegisterAction_Unsuccess(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	kn, err := agent.ResolveKeynodes(ctx)
	if err != nil {
		t.Fatalf("ResolveKeynodes: %v", err)
	}

	actionClass, _ := ctx.CreateNode(sctype.NodeConstClass)
	instance, _ := ctx.CreateNode(sctype.NodeConst)

	rt := agent.NewRuntime(ctx)
	done := make(chan struct{}, 1)
	_, err = agent.RegisterAction(rt, "test-unsuccess-action", []store.Addr{actionClass}, sctype.Unknown, kn,
		func(ctx *memctx.Context, action store.Addr) agent.Result {
			defer func() { done <- struct{}{} }()
			return agent.ResultUnsuccess
		})
	if err != nil {
		t.Fatalf("RegisterAction: %v", err)
	}

	if _, err := ctx.CreateConnector(sctype.EdgeAccessConstPosPerm, instance, actionClass); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action handler was not invoked")
	}
	time.Sleep(50 * time.Millisecond)

	if got := markedResult(t, ctx, kn, instance); got != agent.ResultUnsuccess {
		t.Errorf("marked result = %v, want ResultUnsuccess", got)
	}
}

func TestRegisterAction_PanicMarksError(t *testing.T) {
	t.Parallel()
	ctx := newTestContext(t)
	kn, err := agent.ResolveKeynodes(ctx)
	if err != nil {
		t.Fatalf("ResolveKeynodes: %v", err)
	}

	actionClass, _ := ctx.CreateNode(sctype.NodeConstClass)
	instance, _ := ctx.CreateNode(sctype.NodeConst)

	rt := agent.NewRuntime(ctx)
	done := make(chan struct{}, 1)
	_, err = agent.RegisterAction(rt, "test-panic-action", []store.Addr{actionClass}, sctype.Unknown, kn,
		func(ctx *memctx.Context, action store.Addr) agent.Result {
			defer func() { done <- struct{}{} }()
			panic("boom")
		})
	if err != nil {
		t.Fatalf("RegisterAction: %v", err)
	}

	if _, err := ctx.CreateConnector(sctype.EdgeAccessConstPosPerm, instance, actionClass); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("action handler was not invoked")
	}
	time.Sleep(50 * time.Millisecond)

	if got := markedResult(t, ctx, kn, instance); got != agent.ResultError {
		t.Errorf("marked result = %v, want ResultError", got)
	}
}
