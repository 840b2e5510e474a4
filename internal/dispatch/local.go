package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/services"
	"spyglass/internal/taskstore"
)

// LocalDispatcher runs tasks on an in-process worker pool. Workers poll the
// store for pending tasks; Submit nudges them so latency is not bound to the
// poll interval.
type LocalDispatcher struct {
	store  taskstore.Store
	runner *Runner
	cfg    *config.Config
	logger *slog.Logger

	nudge chan struct{}

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLocalDispatcher builds the default in-process dispatcher.
func NewLocalDispatcher(store taskstore.Store, runner *Runner, cfg *config.Config, logger *slog.Logger) *LocalDispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LocalDispatcher{
		store:  store,
		runner: runner,
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "dispatch-local"),
		nudge:  make(chan struct{}, 1),
	}
}

// Mode reports the substrate name.
func (d *LocalDispatcher) Mode() string { return ModeLocal }

// Start requeues stale claims and brings up the worker pool.
func (d *LocalDispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("local dispatcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true
	workers := d.workerCount()
	d.wg.Add(workers)
	d.mu.Unlock()

	d.requeueStale(ctx)
	for i := 0; i < workers; i++ {
		go d.runWorker(runCtx, i)
	}
	d.nudgeWorkers()

	d.logger.Info("local dispatcher started", logging.Int("workers", workers))
	return nil
}

// Submit wakes a worker. The task row is already pending, so a missed nudge
// only delays pickup until the next poll tick.
func (d *LocalDispatcher) Submit(ctx context.Context, taskID int64) error {
	d.mu.Lock()
	running := d.running
	d.mu.Unlock()
	if !running {
		return services.Wrap(services.ErrUnavailable, "dispatch", "submit", "dispatcher not running", nil)
	}
	d.nudgeWorkers()
	return nil
}

// Stop cancels the worker context and waits for in-flight runs to finish.
func (d *LocalDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	d.logger.Info("local dispatcher stopped")
}

func (d *LocalDispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	logger := d.logger.With(logging.Int("worker", id))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if d.runNextPending(ctx, logger) {
			continue
		}
		d.waitForWork(ctx)
	}
}

// runNextPending claims and runs the oldest claimable pending task. It
// reports whether a task was processed so the worker can immediately look
// for more work instead of sleeping.
func (d *LocalDispatcher) runNextPending(ctx context.Context, logger *slog.Logger) bool {
	ids, err := d.store.PendingIDs(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("fetch pending tasks failed", logging.Error(err))
		}
		return false
	}
	for _, id := range ids {
		if ctx.Err() != nil {
			return false
		}
		claimed, err := d.runner.Run(ctx, id)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return false
			}
			logger.Error("task run failed",
				logging.Int64(logging.FieldTaskID, id),
				logging.Error(err))
			// Back off through the poll wait rather than hammering the store.
			return false
		}
		if claimed {
			return true
		}
		// Another worker won this one; try the next pending row.
	}
	return false
}

func (d *LocalDispatcher) waitForWork(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-d.nudge:
	case <-time.After(d.pollInterval()):
	}
}

func (d *LocalDispatcher) nudgeWorkers() {
	select {
	case d.nudge <- struct{}{}:
	default:
	}
}

func (d *LocalDispatcher) requeueStale(ctx context.Context) {
	cutoff := time.Now().Add(-d.heartbeatTimeout())
	moved, err := d.store.RequeueStale(ctx, cutoff)
	if err != nil {
		d.logger.Warn("stale claim sweep failed", logging.Error(err))
		return
	}
	if moved > 0 {
		d.logger.Info("requeued stale claims", logging.Int64("count", moved))
	}
}

func (d *LocalDispatcher) workerCount() int {
	if d.cfg != nil && d.cfg.Queue.Concurrency > 0 {
		return d.cfg.Queue.Concurrency
	}
	return 2
}

func (d *LocalDispatcher) pollInterval() time.Duration {
	if d.cfg != nil && d.cfg.Queue.PollInterval > 0 {
		return time.Duration(d.cfg.Queue.PollInterval) * time.Second
	}
	return 5 * time.Second
}

func (d *LocalDispatcher) heartbeatTimeout() time.Duration {
	if d.cfg != nil && d.cfg.Queue.HeartbeatTimeout > 0 {
		return time.Duration(d.cfg.Queue.HeartbeatTimeout) * time.Second
	}
	return 2 * time.Minute
}
