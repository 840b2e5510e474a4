package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"spyglass/internal/config"
	"spyglass/internal/dispatch"
	"spyglass/internal/httpapi"
	"spyglass/internal/logging"
	"spyglass/internal/notifications"
	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
)

// Version is the daemon version reported by the API and the CLI.
const Version = "0.1.0"

const lockFileName = "spyglassd.lock"

// Daemon coordinates the lifecycle of the spyglass background process.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	store      taskstore.Store
	registry   *platform.Registry
	dispatcher dispatch.Dispatcher
	api        *httpapi.Server
	notifier   notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// New assembles a daemon from already-constructed components. The caller
// keeps ownership of the store; Close releases it.
func New(
	cfg *config.Config,
	store taskstore.Store,
	dispatcher dispatch.Dispatcher,
	api *httpapi.Server,
	registry *platform.Registry,
	notifier notifications.Service,
	logger *slog.Logger,
) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if store == nil {
		return nil, errors.New("daemon requires a task store")
	}
	if dispatcher == nil {
		return nil, errors.New("daemon requires a dispatcher")
	}
	if api == nil {
		return nil, errors.New("daemon requires an API server")
	}
	if registry == nil {
		return nil, errors.New("daemon requires a platform registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Daemon.StateDir, lockFileName)
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		store:      store,
		registry:   registry,
		dispatcher: dispatcher,
		api:        api,
		notifier:   notifier,
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and brings up the dispatcher and the
// HTTP API. It returns once both are serving; task processing continues
// in the background until Stop is called or ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := os.MkdirAll(d.cfg.Daemon.StateDir, 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	locked, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another spyglass daemon already holds %s", d.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.dispatcher.Start(runCtx); err != nil {
		cancel()
		d.releaseLock()
		return fmt.Errorf("start dispatcher: %w", err)
	}

	if err := d.api.Start(runCtx); err != nil {
		d.dispatcher.Stop()
		cancel()
		d.releaseLock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt = time.Now()
	d.running.Store(true)

	d.logger.Info("spyglass daemon started",
		logging.String("version", Version),
		logging.String("api_bind", d.api.Addr()),
		logging.String("queue_substrate", d.dispatcher.Mode()),
		logging.String("store_driver", d.cfg.Store.Driver),
		logging.String("lock", d.lockPath))
	d.notify(runCtx, notifications.EventDaemonStarted, notifications.Payload{
		"bind": d.api.Addr(),
	})
	return nil
}

// Stop shuts the daemon down in reverse start order: the API stops
// accepting requests first, then the dispatcher drains its workers.
// Stop is safe to call more than once.
func (d *Daemon) Stop() {
	if !d.running.Swap(false) {
		return
	}

	uptime := time.Since(d.startedAt)
	d.notify(context.Background(), notifications.EventDaemonStopped, notifications.Payload{
		"uptime": uptime,
	})

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.Stop()
	d.dispatcher.Stop()
	d.releaseLock()

	d.logger.Info("spyglass daemon stopped", logging.Duration("uptime", uptime))
}

// Close stops the daemon and releases the task store.
func (d *Daemon) Close() error {
	d.Stop()
	if err := d.store.Close(); err != nil {
		return fmt.Errorf("close task store: %w", err)
	}
	return nil
}

// Running reports whether Start has completed and Stop has not yet run.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// APIAddr returns the bound API listen address, empty before Start.
func (d *Daemon) APIAddr() string {
	return d.api.Addr()
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock",
			logging.String("lock", d.lockPath),
			logging.Error(err))
	}
}

func (d *Daemon) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Publish(ctx, event, payload); err != nil {
		d.logger.Debug("notification delivery failed",
			logging.String("event", string(event)),
			logging.Error(err))
	}
}
