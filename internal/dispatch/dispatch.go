package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"spyglass/internal/config"
	"spyglass/internal/taskstore"
)

// Substrate names reported by Mode.
const (
	ModeLocal = "local"
	ModeAsynq = "asynq"
)

// Dispatcher feeds persisted tasks to workers. A Submit failure is an
// infrastructure problem, never recorded on the task row: the row stays
// pending and the startup sweeps self-heal it.
type Dispatcher interface {
	Start(ctx context.Context) error
	Submit(ctx context.Context, taskID int64) error
	Stop()
	Mode() string
}

// New builds the dispatcher selected by cfg.Queue.Substrate.
func New(store taskstore.Store, runner *Runner, cfg *config.Config, logger *slog.Logger) (Dispatcher, error) {
	switch cfg.Queue.Substrate {
	case "", ModeLocal:
		return NewLocalDispatcher(store, runner, cfg, logger), nil
	case ModeAsynq:
		return NewAsynqDispatcher(store, runner, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown queue substrate %q", cfg.Queue.Substrate)
	}
}
