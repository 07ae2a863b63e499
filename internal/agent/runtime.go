package agent

import (
	"fmt"
	"sync"

	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/pkg/scerr"
	"github.com/scmem/scmem/pkg/sctype"
)

// Runtime owns the agent registry for one [memctx.Context].
// Register/Unregister are idempotent: registering the same agent type twice
// is a no-op that returns the existing registration.
type Runtime struct {
	ctx *memctx.Context

	mu            sync.Mutex
	registrations map[string]*Registration
}

// NewRuntime creates a runtime that registers/unregisters agents through ctx.
func NewRuntime(ctx *memctx.Context) *Runtime {
	return &Runtime{ctx: ctx, registrations: make(map[string]*Registration)}
}

// Register binds a long-lived handler to class on every keynode in
// keynodes — a union subscription ("an agent may be bound to
// multiple keynodes in one call"). agentType identifies the registration for
// later [Runtime.Unregister] and must be unique per logical agent.
func (r *Runtime) Register(agentType string, keynodes []store.Addr, class event.Class, mask sctype.Type, h Handler) (*Registration, error) {
	if len(keynodes) == 0 {
		return nil, scerr.New(scerr.InvalidParams, "agent.Register", fmt.Errorf("agent %q: at least one keynode is required", agentType))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.registrations[agentType]; ok {
		return existing, nil
	}

	reg := &Registration{Type: agentType, keynodes: append([]store.Addr(nil), keynodes...)}
	delegate := event.Delegate(func(ev event.Event) { h(r.ctx, ev) })
	for _, k := range keynodes {
		sub, err := r.ctx.Subscribe(class, k, mask, delegate)
		if err != nil {
			r.unsubscribeAll(reg)
			return nil, err
		}
		reg.subIDs = append(reg.subIDs, sub.ID)
	}
	r.registrations[agentType] = reg
	return reg, nil
}

// Unregister removes a registration. Idempotent: unregistering an unknown or
// already-unregistered agent type is a no-op.
func (r *Runtime) Unregister(agentType string) {
	r.mu.Lock()
	reg, ok := r.registrations[agentType]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.registrations, agentType)
	r.mu.Unlock()

	r.unsubscribeAll(reg)
}

func (r *Runtime) unsubscribeAll(reg *Registration) {
	for _, id := range reg.subIDs {
		r.ctx.Unsubscribe(id)
	}
}

// Registered reports whether agentType currently has a live registration.
func (r *Runtime) Registered(agentType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.registrations[agentType]
	return ok
}
