package taskstore

import (
	"context"
	"fmt"
	"time"

	"spyglass/internal/config"
)

// Store manages task persistence and enforces lifecycle transitions.
//
// Transition methods return the typed errors from errors.go so callers can
// distinguish lost races from missing rows. Get and Result return nil without
// an error when the row does not exist.
type Store interface {
	// Create inserts a pending task and returns the stored row.
	Create(ctx context.Context, platform, identifier string, depth Depth, requestID string) (*Task, error)

	// Get fetches a task by identifier. Returns nil, nil when missing.
	Get(ctx context.Context, id int64) (*Task, error)

	// List returns tasks matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*Task, error)

	// PendingIDs returns identifiers of pending tasks ordered oldest first.
	// Dispatchers use this to resume queued work after a restart.
	PendingIDs(ctx context.Context) ([]int64, error)

	// Claim atomically moves a pending task to processing. Exactly one of the
	// workers racing for a task wins; the rest receive ErrNotClaimable.
	Claim(ctx context.Context, id int64) (*Task, error)

	// Heartbeat refreshes the claim timestamp for an in-flight task.
	// A heartbeat against a task that lost its claim is silently dropped.
	Heartbeat(ctx context.Context, id int64) error

	// UpdateProgress advances progress for a processing task. Progress never
	// moves backwards and updates after the claim ended are silently dropped.
	UpdateProgress(ctx context.Context, id int64, percent int, message string) error

	// Complete stores the analysis payload and marks the task completed in a
	// single transaction. Returns ErrNotProcessing when the claim was lost.
	Complete(ctx context.Context, id int64, payload string) (*Task, error)

	// Fail marks a processing task failed with the given detail.
	// Returns ErrNotProcessing when the claim was lost.
	Fail(ctx context.Context, id int64, detail string) (*Task, error)

	// Cancel stops a pending or processing task. Cancelling an already
	// cancelled task succeeds; cancelling a completed or failed task returns
	// ErrInvalidTransition.
	Cancel(ctx context.Context, id int64) (*Task, error)

	// Retry moves a failed task back to pending, clearing terminal state and
	// any orphaned result row. Returns ErrNotRetryable otherwise.
	Retry(ctx context.Context, id int64) (*Task, error)

	// Result fetches the analysis document for a task. Returns nil, nil when
	// no result exists.
	Result(ctx context.Context, taskID int64) (*ResultRecord, error)

	// RequeueStale returns processing tasks with expired heartbeats to pending
	// and reports how many rows moved.
	RequeueStale(ctx context.Context, cutoff time.Time) (int64, error)

	// Stats returns a count of tasks grouped by status.
	Stats(ctx context.Context) (map[Status]int, error)

	// Health aggregates task counts for diagnostic output.
	Health(ctx context.Context) (HealthSummary, error)

	// Close releases the underlying connection.
	Close() error
}

// Open constructs the store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return OpenSQLite(ctx, cfg)
	case "postgres":
		return OpenPostgres(ctx, cfg)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
