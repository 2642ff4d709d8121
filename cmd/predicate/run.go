package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/predicate/pkg/config"
	"mercator-hq/predicate/pkg/engine"
	"mercator-hq/predicate/pkg/telemetry/metrics"
	"mercator-hq/predicate/pkg/trace"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine standalone",
	Long: `Load the configuration and rule set, build the expression graph, and
keep it resident: the rule set file is watched and hot-reloaded when it
changes, metrics are exposed over HTTP, and trace retention pruning runs
on its schedule. The process exits on SIGINT or SIGTERM.`,
	RunE: runEngine,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runEngine(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		opts.Metrics = metrics.NewEngineMetrics(&cfg.Metrics, nil)
	}

	if cfg.Trace.Enabled {
		store, err := trace.Open(cfg.Trace.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Traces = store

		scheduler := trace.NewScheduler(store, cfg.Trace, logger)
		if err := scheduler.Start(ctx); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	rs, err := config.LoadRuleSet(cfg.Rules.Path)
	if err != nil {
		return err
	}
	e, err := engine.New(rs, opts)
	if err != nil {
		return err
	}
	logger.Info("engine started",
		"rules", len(e.Graph().Rules()),
		"nodes", e.Graph().NumNodes(),
	)

	if cfg.Rules.Watch {
		watcher, err := engine.NewFileWatcher(cfg.Rules.Path, cfg.Rules.WatchDebounce, logger)
		if err != nil {
			return err
		}
		go func() {
			if err := watcher.Watch(ctx, func() error {
				return e.ReloadFromFile(cfg.Rules.Path)
			}); err != nil {
				logger.Error("rule set watcher exited", "error", err)
			}
		}()
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", opts.Metrics.Handler())
		metricsSrv = &http.Server{
			Addr:              cfg.Metrics.ListenAddress,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics endpoint started", "address", cfg.Metrics.ListenAddress)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics endpoint failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics endpoint shutdown: %w", err)
		}
	}
	return nil
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return slog.New(handler), nil
}
