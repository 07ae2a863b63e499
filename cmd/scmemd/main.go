// Command scmemd is the standalone entry point for the scmem wire-protocol
// server: it loads a YAML config, initializes the shared graph memory,
// resolves the well-known keynodes, and serves the binary wire protocol
// plus an HTTP health/metrics surface until signalled to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/scmem/scmem/internal/agent"
	"github.com/scmem/scmem/internal/config"
	"github.com/scmem/scmem/internal/event"
	"github.com/scmem/scmem/internal/health"
	"github.com/scmem/scmem/internal/memctx"
	"github.com/scmem/scmem/internal/observe"
	"github.com/scmem/scmem/internal/store"
	"github.com/scmem/scmem/internal/wire"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────
	configPath := flag.String("config", "scmemd.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ──────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "scmemd: config file %q not found — point --config at a repo_path-bearing YAML file\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "scmemd: %v\n", err)
		}
		return 1
	}

	// ── Logger ───────────────────────────────────────────────────────────────
	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	slog.SetDefault(logger)

	// Hot-reload: only the log level is applied without a restart; event-bus
	// sizing and index/store changes are logged and take effect on the next
	// start (config.Diff.RestartRequired flags the index/store ones).
	watcher, err := config.NewWatcher(*configPath, func(old, updated *config.Config) {
		d := config.DiffConfigs(old, updated)
		if !d.Changed() {
			return
		}
		if d.LogLevelChanged {
			levelVar.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level hot-reloaded", "new_level", d.NewLogLevel)
		}
		if d.EventsChanged {
			slog.Info("events config changed in file; restart scmemd to apply", "new_events", d.NewEvents)
		}
		if d.RestartRequired {
			slog.Warn("index/store config changed on disk; this requires a restart to take effect")
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	slog.Info("scmemd starting",
		"config", *configPath,
		"repo_path", cfg.Index.RepoPath,
		"listen_addr", cfg.Server.ListenAddr,
		"metrics_addr", cfg.Server.MetricsAddr,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── OpenTelemetry providers ────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "scmemd",
		RepoPath:    cfg.Index.RepoPath,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry providers", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── Shared graph memory ───────────────────────────────────────────────
	mem, err := memctx.Initialize(
		cfg.Index,
		[]store.Option{store.WithSegmentSize(cfg.Store.SegmentSize)},
		logger,
		event.WithMetrics(event.DefaultMetrics()),
		event.WithQueueSize(cfg.Events.QueueSize),
		event.WithConcurrency(cfg.Events.Concurrency),
	)
	if err != nil {
		slog.Error("failed to initialise memory", "err", err)
		return 1
	}
	defer func() {
		shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := mem.Shutdown(shCtx); err != nil {
			slog.Error("memory shutdown error", "err", err)
		}
	}()

	bootCtx := mem.NewContext()
	keynodes, err := agent.ResolveKeynodes(bootCtx)
	if err != nil {
		slog.Error("failed to resolve keynodes", "err", err)
		return 1
	}
	slog.Info("keynodes resolved",
		"question_finished_successfully", keynodes.QuestionFinishedSuccessfully,
		"question_finished_with_error", keynodes.QuestionFinishedWithError,
	)

	// ── Server group ──────────────────────────────────────────────────────
	// Both surfaces run under one errgroup: a failure on either, a SHUTDOWN
	// wire command, or the signal context tears the whole group down.
	runCtx, stopServing := context.WithCancel(ctx)
	defer stopServing()
	g, gctx := errgroup.WithContext(runCtx)

	if cfg.Server.MetricsAddr != "" {
		mux := http.NewServeMux()
		health.New(health.Checker{Name: "index_channel", Check: mem.CheckIndexWritable}).Register(mux)
		mux.Handle("/metrics", promhttp.Handler())
		httpServer := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: observe.Middleware(metrics)(mux)}
		g.Go(func() error {
			slog.Info("http surface listening", "addr", cfg.Server.MetricsAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http surface: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shCtx); err != nil {
				slog.Warn("http surface shutdown error", "err", err)
			}
			return nil
		})
	}

	if cfg.Server.ListenAddr != "" {
		wireCtx := mem.NewContext()
		srv, err := wire.NewServer(cfg.Server.ListenAddr, wireCtx,
			wire.WithLogger(logger),
			wire.WithMetrics(metrics),
			wire.WithReadTimeout(cfg.Server.ReadTimeout),
		)
		if err != nil {
			slog.Error("failed to start wire server", "err", err)
			return 1
		}
		slog.Info("wire protocol server listening", "addr", srv.Addr())
		g.Go(func() error {
			// Serve returns nil on a SHUTDOWN command; stopServing then winds
			// down the rest of the group.
			defer stopServing()
			return srv.Serve(gctx)
		})
	}

	// Keep the group alive until the signal context fires even when neither
	// surface is configured.
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	slog.Info("scmemd ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server stopped unexpectedly", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// slogLevel maps a [config.LogLevel] to its [slog.Level] equivalent.
func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
