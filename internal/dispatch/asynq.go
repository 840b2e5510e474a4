package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/services"
	"spyglass/internal/taskstore"
)

// TaskTypeAnalyze is the single asynq task type this system enqueues.
const TaskTypeAnalyze = "profile:analyze"

type analyzePayload struct {
	TaskID int64 `json:"task_id"`
}

// AsynqDispatcher distributes tasks over Redis via asynq. Retries stay a
// user-facing operation: every enqueue carries MaxRetry(0) and the handler
// never reports failure to the broker, because the claim CAS already makes
// duplicate or stale deliveries harmless.
type AsynqDispatcher struct {
	cfg    *config.Config
	store  taskstore.Store
	runner *Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	client  *asynq.Client
	server  *asynq.Server
}

// NewAsynqDispatcher builds the Redis-backed dispatcher.
func NewAsynqDispatcher(store taskstore.Store, runner *Runner, cfg *config.Config, logger *slog.Logger) *AsynqDispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &AsynqDispatcher{
		cfg:    cfg,
		store:  store,
		runner: runner,
		logger: logging.NewComponentLogger(logger, "dispatch-asynq"),
	}
}

// Mode reports the substrate name.
func (d *AsynqDispatcher) Mode() string { return ModeAsynq }

// Start brings up the asynq server, requeues stale claims, and re-enqueues
// rows that were still pending when the previous daemon stopped.
func (d *AsynqDispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return errors.New("asynq dispatcher already running")
	}

	redisOpt := d.redisOpt()
	client := asynq.NewClient(redisOpt)
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: d.concurrency(),
		Logger:      newAsynqLogger(d.logger),
		LogLevel:    asynqLogLevel(d.cfg),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypeAnalyze, d.handleAnalyze)
	if err := server.Start(mux); err != nil {
		d.mu.Unlock()
		_ = client.Close()
		return fmt.Errorf("start asynq server: %w", err)
	}
	d.client = client
	d.server = server
	d.running = true
	d.mu.Unlock()

	d.requeueStale(ctx)
	d.resubmitPending(ctx)

	d.logger.Info("asynq dispatcher started",
		logging.String("redis_addr", d.cfg.Queue.RedisAddr),
		logging.Int("concurrency", d.concurrency()))
	return nil
}

// Submit enqueues the task for any worker in the fleet.
func (d *AsynqDispatcher) Submit(ctx context.Context, taskID int64) error {
	d.mu.Lock()
	client := d.client
	running := d.running
	d.mu.Unlock()
	if !running || client == nil {
		return services.Wrap(services.ErrUnavailable, "dispatch", "submit", "dispatcher not running", nil)
	}
	return d.enqueue(ctx, client, taskID)
}

// Stop shuts the server down, waiting for in-flight handlers.
func (d *AsynqDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	server := d.server
	client := d.client
	d.running = false
	d.server = nil
	d.client = nil
	d.mu.Unlock()

	server.Shutdown()
	if err := client.Close(); err != nil {
		d.logger.Warn("close asynq client failed", logging.Error(err))
	}
	d.logger.Info("asynq dispatcher stopped")
}

func (d *AsynqDispatcher) handleAnalyze(ctx context.Context, task *asynq.Task) error {
	var payload analyzePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		d.logger.Error("malformed analyze payload", logging.Error(err))
		return nil
	}
	if _, err := d.runner.Run(ctx, payload.TaskID); err != nil {
		if !errors.Is(err, context.Canceled) {
			d.logger.Error("task run failed",
				logging.Int64(logging.FieldTaskID, payload.TaskID),
				logging.Error(err))
		}
	}
	// Never surface errors to the broker; a retry is an explicit user action.
	return nil
}

func (d *AsynqDispatcher) enqueue(ctx context.Context, client *asynq.Client, taskID int64) error {
	payload, err := json.Marshal(analyzePayload{TaskID: taskID})
	if err != nil {
		return fmt.Errorf("encode analyze payload: %w", err)
	}
	_, err = client.EnqueueContext(ctx, asynq.NewTask(TaskTypeAnalyze, payload),
		asynq.MaxRetry(0),
		asynq.Timeout(d.runBudget()))
	if err != nil {
		return services.Wrap(services.ErrUnavailable, "dispatch", "submit", fmt.Sprintf("enqueue task %d", taskID), err)
	}
	return nil
}

func (d *AsynqDispatcher) requeueStale(ctx context.Context) {
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

// resubmitPending enqueues every pending row. Double-enqueue against rows
// already in the broker is benign: the second delivery loses the claim.
func (d *AsynqDispatcher) resubmitPending(ctx context.Context) {
	ids, err := d.store.PendingIDs(ctx)
	if err != nil {
		d.logger.Warn("pending sweep failed", logging.Error(err))
		return
	}
	d.mu.Lock()
	client := d.client
	d.mu.Unlock()
	if client == nil {
		return
	}
	for _, id := range ids {
		if err := d.enqueue(ctx, client, id); err != nil {
			d.logger.Warn("re-enqueue pending task failed",
				logging.Int64(logging.FieldTaskID, id),
				logging.Error(err))
		}
	}
	if len(ids) > 0 {
		d.logger.Info("re-enqueued pending tasks", logging.Int("count", len(ids)))
	}
}

func (d *AsynqDispatcher) redisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     d.cfg.Queue.RedisAddr,
		Password: d.cfg.Queue.RedisPassword,
		DB:       d.cfg.Queue.RedisDB,
	}
}

func (d *AsynqDispatcher) concurrency() int {
	if d.cfg != nil && d.cfg.Queue.Concurrency > 0 {
		return d.cfg.Queue.Concurrency
	}
	return 2
}

func (d *AsynqDispatcher) heartbeatTimeout() time.Duration {
	if d.cfg != nil && d.cfg.Queue.HeartbeatTimeout > 0 {
		return time.Duration(d.cfg.Queue.HeartbeatTimeout) * time.Second
	}
	return 2 * time.Minute
}

// runBudget covers the deep-collection budget plus analysis headroom so the
// broker does not time a legitimate run out.
func (d *AsynqDispatcher) runBudget() time.Duration {
	deep := 180 * time.Second
	if d.cfg != nil && d.cfg.Collection.DeepTimeout > 0 {
		deep = time.Duration(d.cfg.Collection.DeepTimeout) * time.Second
	}
	return deep + 60*time.Second
}

// asynqLogger adapts asynq's logging interface onto slog.
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) *asynqLogger {
	return &asynqLogger{logger: logger}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }

func asynqLogLevel(cfg *config.Config) asynq.LogLevel {
	if cfg == nil {
		return asynq.InfoLevel
	}
	switch cfg.Logging.Level {
	case "debug":
		return asynq.DebugLevel
	case "warn", "warning":
		return asynq.WarnLevel
	case "error":
		return asynq.ErrorLevel
	default:
		return asynq.InfoLevel
	}
}
