// Package memctx implements the context facade: the sole entry point for
// mutating/reading the graph, translating store
// mutations into event-bus publications and enforcing the per-context
// events-blocking guard.
package memctx

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/fsindex"
	"github.com/scmem/scmem/internal/store"
)

// Memory is the process-wide shared state: one element store, one event
// bus, one content index. It is exposed only through contexts created with
// [Memory.NewContext].
type Memory struct {
	st  *store.Store
	bus *event.Bus
	idx *fsindex.Index
	log *slog.Logger

	nextCtxID atomic.Uint64
}

// Initialize builds a ready-to-use [Memory]: a fresh element store
// (configured with storeOpts), an event bus configured with busOpts, and a
// content index rooted at indexCfg.RepoPath.
func Initialize(indexCfg fsindex.Config, storeOpts []store.Option, logger *slog.Logger, busOpts ...event.Option) (*Memory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := fsindex.Open(indexCfg, logger)
	if err != nil {
		return nil, err
	}
	opts := append([]event.Option{event.WithLogger(logger)}, busOpts...)
	return &Memory{
		st:  store.New(storeOpts...),
		bus: event.New(opts...),
		idx: idx,
		log: logger,
	}, nil
}

// Shutdown drains pending events, terminates the bus's worker goroutines,
// and flushes/closes the content index.
func (m *Memory) Shutdown(ctx context.Context) error {
	m.bus.Shutdown(ctx)
	return m.idx.Close()
}

// CheckIndexWritable probes that the content index's active channel still
// accepts writes. Suitable as a [health.Checker] function.
func (m *Memory) CheckIndexWritable(_ context.Context) error {
	return m.idx.CheckWritable()
}

// NewContext creates a lightweight per-caller handle. Distinct
// contexts share the same store/bus/index, so a mutation through one is
// immediately visible through another.
func (m *Memory) NewContext() *Context {
	return &Context{
		mem: m,
		id:  m.nextCtxID.Add(1),
	}
}
