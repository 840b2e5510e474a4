package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"spyglass/internal/analysis"
	"spyglass/internal/collector"
	"spyglass/internal/config"
	"spyglass/internal/dispatch"
	"spyglass/internal/httpapi"
	"spyglass/internal/logging"
	"spyglass/internal/notifications"
	"spyglass/internal/platform"
	"spyglass/internal/services/llm"
	"spyglass/internal/taskstore"
)

const pidFileName = "spyglassd.pid"

// Options adjust daemon startup from the command line.
type Options struct {
	// LogLevel overrides the configured log level when non-empty.
	LogLevel string

	// Development runs the daemon self-contained: in-memory task store
	// and the local queue substrate, so no Redis or database is needed.
	Development bool
}

// Run wires the daemon components from cfg, starts them, and blocks
// until the process receives SIGINT or SIGTERM or ctx is cancelled.
// All components are torn down before Run returns.
func Run(ctx context.Context, cfg *config.Config, opts Options) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Development {
		cfg.Store.Driver = "memory"
		cfg.Queue.Substrate = "local"
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	logger.Info("configuration loaded",
		logging.String("store_driver", cfg.Store.Driver),
		logging.String("queue_substrate", cfg.Queue.Substrate),
		logging.String("api_bind", cfg.Daemon.APIBind),
		logging.Int("platforms", len(cfg.Platforms)),
		logging.Bool("analysis_key_present", cfg.Analysis.APIKey != ""),
		logging.Bool("notifications_enabled", cfg.Notifications.NtfyTopic != ""))

	pidPath := filepath.Join(cfg.Daemon.StateDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return err
	}
	defer os.Remove(pidPath)

	store, err := taskstore.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open task store: %w", err)
	}

	registry, err := platform.NewRegistry(cfg)
	if err != nil {
		store.Close()
		return fmt.Errorf("build platform registry: %w", err)
	}

	notifier := notifications.NewService(cfg)
	client := llm.NewClient(llm.Config{
		APIKey:         cfg.Analysis.APIKey,
		BaseURL:        cfg.Analysis.BaseURL,
		Model:          cfg.Analysis.Model,
		Referer:        cfg.Analysis.Referer,
		Title:          cfg.Analysis.Title,
		TimeoutSeconds: cfg.Analysis.TimeoutSeconds,
	})
	engine := analysis.New(client, cfg, logger)
	coll := collector.New(registry, cfg, logger)
	runner := dispatch.NewRunner(store, coll, engine, notifier, cfg, logger)

	dispatcher, err := dispatch.New(store, runner, cfg, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("build dispatcher: %w", err)
	}

	api, err := httpapi.New(cfg, store, dispatcher, registry, Version, logger)
	if err != nil {
		store.Close()
		return fmt.Errorf("build api server: %w", err)
	}

	d, err := New(cfg, store, dispatcher, api, registry, notifier, logger)
	if err != nil {
		store.Close()
		return err
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}

func writePIDFile(path string) error {
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}
