package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"spyglass/internal/analysis"
	"spyglass/internal/collector"
	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/notifications"
	"spyglass/internal/platform"
	"spyglass/internal/services"
	"spyglass/internal/taskstore"
)

// Progress checkpoints reported while a task moves through the pipeline.
const (
	progressCollecting = 10
	progressAnalyzing  = 60
	progressPersisting = 90
)

// cancelPollInterval is how often a run checks whether its task was
// cancelled out from under it.
const cancelPollInterval = 2 * time.Second

// Runner drives one claimed task through collect, analyze, and persist.
// Both dispatch substrates share it; the claim CAS in the store makes
// duplicate deliveries harmless.
type Runner struct {
	store     taskstore.Store
	collector *collector.Collector
	engine    *analysis.Engine
	notifier  notifications.Service
	cfg       *config.Config
	logger    *slog.Logger
}

// NewRunner wires the pipeline stages together.
func NewRunner(store taskstore.Store, coll *collector.Collector, engine *analysis.Engine, notifier notifications.Service, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Runner{
		store:     store,
		collector: coll,
		engine:    engine,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "dispatch"),
	}
}

// Run claims the task and executes the pipeline. The first return reports
// whether this runner won the claim; a lost claim is not an error, it means
// another worker owns the task or it was cancelled away.
func (r *Runner) Run(ctx context.Context, taskID int64) (bool, error) {
	task, err := r.store.Claim(ctx, taskID)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotClaimable) || errors.Is(err, taskstore.ErrNotFound) {
			r.logger.Debug("task not claimable, skipping",
				logging.Int64(logging.FieldTaskID, taskID),
				logging.Error(err))
			return false, nil
		}
		return false, fmt.Errorf("claim task %d: %w", taskID, err)
	}

	logger := r.logger.With(
		logging.Int64(logging.FieldTaskID, task.ID),
		logging.String(logging.FieldPlatform, task.Platform),
		logging.String(logging.FieldIdentifier, task.Identifier))
	logger.Info("task claimed", logging.String("depth", string(task.Depth)))

	runCtx, cancelRun := context.WithCancel(ctx)
	var watchers sync.WaitGroup
	watchers.Add(2)
	go r.heartbeatLoop(runCtx, &watchers, task.ID, logger)
	go r.watchCancellation(runCtx, &watchers, cancelRun, task.ID, logger)
	defer watchers.Wait()
	defer cancelRun()

	r.progress(ctx, task.ID, progressCollecting, "Collecting profile data", logger)

	collectCtx, cancelCollect := context.WithTimeout(runCtx, r.collectionBudget(task.Depth))
	data, err := r.collector.Collect(collectCtx, task.Platform, task.Identifier, task.Depth)
	cancelCollect()
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("collection interrupted by shutdown, claim left for requeue")
			return true, ctx.Err()
		}
		return true, r.failTask(ctx, task, classifyCollectionError(err), logger)
	}

	r.progress(ctx, task.ID, progressAnalyzing, "Analyzing collected data", logger)

	result, err := r.engine.Analyze(runCtx, data)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("analysis interrupted by shutdown, claim left for requeue")
			return true, ctx.Err()
		}
		detail := fmt.Sprintf("analysis failed: %v", err)
		if errors.Is(err, services.ErrValidation) {
			detail = "no usable profile data collected"
		}
		return true, r.failTask(ctx, task, detail, logger)
	}

	r.progress(ctx, task.ID, progressPersisting, "Saving analysis result", logger)

	payload, err := json.Marshal(result)
	if err != nil {
		return true, r.failTask(ctx, task, fmt.Sprintf("encode analysis result: %v", err), logger)
	}
	completed, err := r.store.Complete(ctx, task.ID, string(payload))
	if err != nil {
		if errors.Is(err, taskstore.ErrNotProcessing) {
			logger.Info("discarding result for task that left processing")
			return true, nil
		}
		return true, fmt.Errorf("complete task %d: %w", task.ID, err)
	}

	logger.Info("task completed",
		logging.String("source", result.Source),
		logging.String("result_ref", completed.ResultRef),
		logging.Int("sources_failed", len(result.Sources.Failed)))
	r.notify(ctx, notifications.EventTaskCompleted, notifications.Payload{
		"platform":   task.Platform,
		"identifier": task.Identifier,
		"depth":      string(task.Depth),
		"source":     result.Source,
	}, logger)
	return true, nil
}

// failTask records a classified failure. A task that already left processing
// keeps its state; the late failure is dropped.
func (r *Runner) failTask(ctx context.Context, task *taskstore.Task, detail string, logger *slog.Logger) error {
	if _, err := r.store.Fail(ctx, task.ID, detail); err != nil {
		if errors.Is(err, taskstore.ErrNotProcessing) {
			logger.Info("dropping failure for task that left processing",
				logging.String("detail", detail))
			return nil
		}
		return fmt.Errorf("mark task %d failed: %w", task.ID, err)
	}
	logger.Warn("task failed", logging.String("detail", detail))
	r.notify(ctx, notifications.EventTaskFailed, notifications.Payload{
		"platform":   task.Platform,
		"identifier": task.Identifier,
		"detail":     detail,
	}, logger)
	return nil
}

func (r *Runner) progress(ctx context.Context, taskID int64, percent int, message string, logger *slog.Logger) {
	if err := r.store.UpdateProgress(ctx, taskID, percent, message); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn("progress update failed", logging.Int("percent", percent), logging.Error(err))
	}
}

func (r *Runner) notify(ctx context.Context, event notifications.Event, payload notifications.Payload, logger *slog.Logger) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Publish(ctx, event, payload); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		logger.Debug("notification failed", logging.String("event", string(event)), logging.Error(err))
	}
}

// heartbeatLoop refreshes the claim timestamp until the run ends.
func (r *Runner) heartbeatLoop(ctx context.Context, wg *sync.WaitGroup, taskID int64, logger *slog.Logger) {
	defer wg.Done()
	ticker := time.NewTicker(r.heartbeatInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.store.Heartbeat(ctx, taskID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("heartbeat update failed", logging.Error(err))
			}
		}
	}
}

// watchCancellation polls the task row and cancels the run context once the
// task leaves processing, so in-flight fetches stop cooperatively.
func (r *Runner) watchCancellation(ctx context.Context, wg *sync.WaitGroup, cancelRun context.CancelFunc, taskID int64, logger *slog.Logger) {
	defer wg.Done()
	ticker := time.NewTicker(cancelPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			task, err := r.store.Get(ctx, taskID)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				logger.Warn("cancellation check failed", logging.Error(err))
				continue
			}
			if task == nil || task.Status != taskstore.StatusProcessing {
				logger.Info("task left processing, cancelling run",
					logging.String(logging.FieldStatus, statusLabel(task)))
				cancelRun()
				return
			}
		}
	}
}

func statusLabel(task *taskstore.Task) string {
	if task == nil {
		return "missing"
	}
	return string(task.Status)
}

func (r *Runner) collectionBudget(depth taskstore.Depth) time.Duration {
	if depth == taskstore.DepthDeep {
		if r.cfg != nil && r.cfg.Collection.DeepTimeout > 0 {
			return time.Duration(r.cfg.Collection.DeepTimeout) * time.Second
		}
		return 180 * time.Second
	}
	if r.cfg != nil && r.cfg.Collection.QuickTimeout > 0 {
		return time.Duration(r.cfg.Collection.QuickTimeout) * time.Second
	}
	return 30 * time.Second
}

func (r *Runner) heartbeatInterval() time.Duration {
	if r.cfg != nil && r.cfg.Queue.HeartbeatInterval > 0 {
		return time.Duration(r.cfg.Queue.HeartbeatInterval) * time.Second
	}
	return 5 * time.Second
}

// classifyCollectionError turns a collection failure into the user-facing
// detail stored on the task.
func classifyCollectionError(err error) string {
	if adapterErr, ok := platform.AsAdapterError(err); ok {
		switch adapterErr.Kind {
		case platform.KindNotFound:
			return fmt.Sprintf("profile not found on %s", adapterErr.Platform)
		case platform.KindRateLimited:
			return fmt.Sprintf("%s rate limited collection, try again later", adapterErr.Platform)
		case platform.KindTimeout:
			return fmt.Sprintf("%s data source timed out", adapterErr.Platform)
		case platform.KindUnauthorized:
			return fmt.Sprintf("%s denied access to the profile", adapterErr.Platform)
		default:
			return adapterErr.Error()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "collection exceeded its time budget"
	}
	return err.Error()
}
