package memctx_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/fsindex"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/pkg/sctype"
)

func newMemory(t *testing.T) *memctx.Memory {
	t.Helper()
	m, err := memctx.Initialize(fsindex.DefaultConfig(t.TempDir()), nil, nil)
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	t.Cleanup(func() { m.Shutdown(context.Background()) })
	return m
}

func TestIncomingArcSubscriptionObservesArc(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	n, err := c.CreateNode(sctype.NodeConst)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	k, err := c.CreateNode(sctype.NodeConstClass)
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}

	observed := make(chan event.Event, 1)
	_, err = c.Subscribe(event.GenerateIncomingArc, k, sctype.EdgeAccessConstPosPerm, func(ev event.Event) {
		observed <- ev
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if _, err := c.CreateConnector(sctype.EdgeAccessConstPosPerm, n, k); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	select {
	case ev := <-observed:
		if ev.Source != n || ev.Target != k {
			t.Fatalf("unexpected event payload: %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("agent did not observe the arc within 5s")
	}
}

func TestEraseHandlerSeesElementBeforeUnlink(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	a, _ := c.CreateNode(sctype.NodeConst)
	b, _ := c.CreateNode(sctype.NodeConst)
	conn, err := c.CreateConnector(sctype.EdgeAccessConstPosPerm, a, b)
	if err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}

	var stillElementDuringHandler bool
	invoked := 0
	_, err = c.Subscribe(event.EraseOutgoingArc, a, sctype.EdgeAccess, func(ev event.Event) {
		invoked++
		stillElementDuringHandler = c.IsElement(conn)
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := c.Erase(conn); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if invoked != 1 {
		t.Fatalf("expected handler invoked exactly once, got %d", invoked)
	}
	if !stillElementDuringHandler {
		t.Fatalf("expected is_element(c) == true during the erase handler")
	}
	if c.IsElement(conn) {
		t.Fatalf("expected is_element(c) == false after erase returns")
	}
}

func TestEventsBlockingGuardSuppressesEmission(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()
	n, _ := c.CreateNode(sctype.NodeConst)
	other, _ := c.CreateNode(sctype.NodeConst)

	var mu sync.Mutex
	count := 0
	_, err := c.Subscribe(event.GenerateOutgoingArc, n, sctype.Unknown, func(ev event.Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	c.WithBlocking(func() {
		if _, err := c.CreateConnector(sctype.EdgeAccessConstPosPerm, n, other); err != nil {
			t.Fatalf("CreateConnector: %v", err)
		}
	})
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	blockedCount := count
	mu.Unlock()
	if blockedCount != 0 {
		t.Fatalf("expected no events while blocking, got %d", blockedCount)
	}

	if _, err := c.CreateConnector(sctype.EdgeAccessConstPosPerm, n, other); err != nil {
		t.Fatalf("CreateConnector: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected exactly one delivery after exiting the guard, got %d", count)
	}
}

func TestSetLinkContentRejectsNonLink(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()
	n, _ := c.CreateNode(sctype.NodeConst)
	if err := c.SetLinkContent(n, []byte("x")); err == nil {
		t.Fatalf("expected error setting content on a non-link element")
	}
}

func TestContentOverwriteMovesExactMatch(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()
	l, err := c.CreateLink(sctype.LinkConst)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}

	changeCount := 0
	var mu sync.Mutex
	done := make(chan struct{}, 2)
	_, err = c.Subscribe(event.ChangeLinkContent, l, sctype.Unknown, func(ev event.Event) {
		mu.Lock()
		changeCount++
		mu.Unlock()
		done <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := c.SetLinkContent(l, []byte("old content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	<-done
	if err := c.SetLinkContent(l, []byte("new content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	<-done

	mu.Lock()
	got := changeCount
	mu.Unlock()
	if got != 2 {
		t.Fatalf("expected change_link_content to fire once per set, got %d", got)
	}

	if found := c.FindLinksByExactContent([]byte("new content")); len(found) != 1 || found[0] != l {
		t.Fatalf("expected [l] for new content, got %v", found)
	}
	if found := c.FindLinksByExactContent([]byte("old content")); len(found) != 0 {
		t.Fatalf("expected no matches for overwritten content, got %v", found)
	}
}

// A handler that itself mutates the graph produces further events; every
// registered handler must eventually observe a matching arc without the bus
// hanging or dropping the whole cascade on the floor.
func TestHandlerMutationsCascadeToOtherHandlers(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	n1, _ := c.CreateNode(sctype.NodeConst)
	n2, _ := c.CreateNode(sctype.NodeConst)
	n3, _ := c.CreateNode(sctype.NodeConst)

	sawN1 := make(chan struct{}, 256)
	sawN2 := make(chan struct{}, 2048)
	handlerCtx := m.NewContext()

	_, err := c.Subscribe(event.GenerateOutgoingArc, n1, sctype.EdgeAccess, func(ev event.Event) {
		sawN1 <- struct{}{}
		for i := 0; i < 10; i++ {
			if _, err := handlerCtx.CreateConnector(sctype.EdgeAccessConstPosPerm, n2, n1); err != nil {
				t.Errorf("CreateConnector in handler: %v", err)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	_, err = c.Subscribe(event.GenerateOutgoingArc, n2, sctype.EdgeAccess, func(ev event.Event) {
		sawN2 <- struct{}{}
		for i := 0; i < 10; i++ {
			if _, err := handlerCtx.CreateConnector(sctype.EdgeAccessConstPosPerm, n3, n2); err != nil {
				t.Errorf("CreateConnector in handler: %v", err)
				return
			}
		}
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := c.CreateConnector(sctype.EdgeAccessConstPosPerm, n1, n2); err != nil {
			t.Fatalf("CreateConnector: %v", err)
		}
	}

	deadline := time.After(5 * time.Second)
	for _, ch := range []chan struct{}{sawN1, sawN2} {
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("a handler never observed a matching arc")
		}
	}
}

func TestEraseRemovesLinkFromContentIndex(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	l, err := c.CreateLink(sctype.LinkConst)
	if err != nil {
		t.Fatalf("CreateLink: %v", err)
	}
	if err := c.SetLinkContent(l, []byte("ephemeral content")); err != nil {
		t.Fatalf("SetLinkContent: %v", err)
	}
	if err := c.Erase(l); err != nil {
		t.Fatalf("Erase: %v", err)
	}

	if found := c.FindLinksByExactContent([]byte("ephemeral content")); len(found) != 0 {
		t.Fatalf("expected erased link gone from the exact index, got %v", found)
	}
	if found := c.FindLinksBySubstring([]byte("ephemeral")); len(found) != 0 {
		t.Fatalf("expected erased link gone from the term index, got %v", found)
	}
	if _, err := c.GetLinkContent(l); err == nil {
		t.Fatalf("expected GetLinkContent on an erased link to fail")
	}
}

func TestEraseDropsSystemIdentifierBinding(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	n, _ := c.CreateNode(sctype.NodeConstClass)
	if err := c.SetSystemIdentifier("soon_gone", n); err != nil {
		t.Fatalf("SetSystemIdentifier: %v", err)
	}
	if err := c.Erase(n); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := c.ResolveSystemIdentifier("soon_gone"); err == nil {
		t.Fatalf("expected identifier of an erased element to stop resolving")
	}
}

func TestWaiterConstructionRejectsDeadElement(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	n, _ := c.CreateNode(sctype.NodeConst)
	if err := c.Erase(n); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := c.NewEventWaiter(event.GenerateOutgoingArc, n, sctype.Unknown, nil); err == nil {
		t.Fatalf("expected waiter construction against an erased element to fail")
	}
}

func TestWaiterConstructionRejectsContentWaitOnNode(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()

	n, _ := c.CreateNode(sctype.NodeConst)
	if _, err := c.NewConditionWaiter(event.ChangeLinkContent, n, sctype.Unknown, nil, nil); err == nil {
		t.Fatalf("expected a link-content waiter on a plain node to fail construction")
	}
}

func TestDestroyCancelsWaiters(t *testing.T) {
	m := newMemory(t)
	c := m.NewContext()
	n, _ := c.CreateNode(sctype.NodeConst)

	w, err := c.NewEventWaiter(event.GenerateOutgoingArc, n, sctype.Unknown, nil)
	if err != nil {
		t.Fatalf("NewEventWaiter: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		c.Destroy()
	}()

	ok := w.Wait(time.Second, nil, nil)
	if ok {
		t.Fatalf("expected destroyed context to cancel the waiter as a timeout")
	}
}
