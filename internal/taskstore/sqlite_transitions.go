package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Claim atomically moves a pending task to processing.
func (s *SQLiteStore) Claim(ctx context.Context, id int64) (*Task, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, started_at = ?, last_heartbeat = ?, updated_at = ?,
             progress = 0, progress_message = ?, error_detail = NULL
         WHERE id = ? AND status = ?`,
		StatusProcessing,
		now,
		now,
		now,
		"Claimed for analysis",
		id,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("claim rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotClaimable)
	}
	return s.Get(ctx, id)
}

// Heartbeat refreshes the claim timestamp for an in-flight task.
func (s *SQLiteStore) Heartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// UpdateProgress advances progress for a processing task. Progress never moves
// backwards; updates against tasks that lost their claim are dropped.
func (s *SQLiteStore) UpdateProgress(ctx context.Context, id int64, percent int, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tasks
         SET progress = MAX(progress, ?), progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		percent,
		nullableString(message),
		now,
		id,
		StatusProcessing,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Complete stores the analysis payload and marks the task completed in a
// single transaction so the result row and the result_ref stamp never diverge.
func (s *SQLiteStore) Complete(ctx context.Context, id int64, payload string) (*Task, error) {
	ctx = ensureContext(ctx)
	if payload == "" {
		return nil, fmt.Errorf("complete task %d: payload is empty", id)
	}

	ref := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin complete tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(
			ctx,
			`UPDATE tasks
             SET status = ?, result_ref = ?, progress = 100, progress_message = ?,
                 error_detail = NULL, completed_at = ?, updated_at = ?, last_heartbeat = NULL
             WHERE id = ? AND status = ?`,
			StatusCompleted,
			ref,
			"Analysis complete",
			now,
			now,
			id,
			StatusProcessing,
		)
		if err != nil {
			return fmt.Errorf("complete task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("complete rows affected: %w", err)
		}
		if affected == 0 {
			return errTransitionConflict
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO analysis_results (ref, task_id, payload, created_at) VALUES (?, ?, ?, ?)`,
			ref,
			id,
			payload,
			now,
		); err != nil {
			return fmt.Errorf("insert result: %w", err)
		}

		return tx.Commit()
	})
	if errors.Is(err, errTransitionConflict) {
		return nil, s.transitionConflict(ctx, id, ErrNotProcessing)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Fail marks a processing task failed with the given detail.
func (s *SQLiteStore) Fail(ctx context.Context, id int64, detail string) (*Task, error) {
	if detail == "" {
		detail = "analysis failed"
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, error_detail = ?, result_ref = NULL, progress_message = ?,
             completed_at = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status = ?`,
		StatusFailed,
		detail,
		detail,
		now,
		now,
		id,
		StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("fail task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("fail rows affected: %w", err)
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotProcessing)
	}
	return s.Get(ctx, id)
}

// Cancel stops a pending or processing task. Cancelling twice is a no-op.
func (s *SQLiteStore) Cancel(ctx context.Context, id int64) (*Task, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, progress_message = ?, completed_at = ?, updated_at = ?, last_heartbeat = NULL
         WHERE id = ? AND status IN (?, ?)`,
		StatusCancelled,
		CancelledByUserMessage,
		now,
		now,
		id,
		StatusPending,
		StatusProcessing,
	)
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("cancel rows affected: %w", err)
	}
	if affected > 0 {
		return s.Get(ctx, id)
	}

	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("cancel task %d: %w", id, ErrNotFound)
	}
	if task.Status == StatusCancelled {
		return task, nil
	}
	return nil, fmt.Errorf("cancel task %d in status %s: %w", id, task.Status, ErrInvalidTransition)
}

// Retry moves a failed task back to pending and clears terminal state.
// Any orphaned result row is removed in the same transaction.
func (s *SQLiteStore) Retry(ctx context.Context, id int64) (*Task, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin retry tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(
			ctx,
			`UPDATE tasks
             SET status = ?, progress = 0, progress_message = ?, error_detail = NULL,
                 result_ref = NULL, started_at = NULL, completed_at = NULL,
                 last_heartbeat = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusPending,
			"Retry requested",
			now,
			id,
			StatusFailed,
		)
		if err != nil {
			return fmt.Errorf("retry task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("retry rows affected: %w", err)
		}
		if affected == 0 {
			return errTransitionConflict
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_results WHERE task_id = ?`, id); err != nil {
			return fmt.Errorf("clear stale result: %w", err)
		}

		return tx.Commit()
	})
	if errors.Is(err, errTransitionConflict) {
		return nil, s.transitionConflict(ctx, id, ErrNotRetryable)
	}
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// RequeueStale returns processing tasks with expired heartbeats to pending.
func (s *SQLiteStore) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE tasks
         SET status = ?, progress = 0, progress_message = ?,
             started_at = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND last_heartbeat IS NOT NULL AND last_heartbeat < ?`,
		StatusPending,
		RequeuedMessage,
		now.Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale tasks: %w", err)
	}
	return res.RowsAffected()
}

// errTransitionConflict is an internal marker distinguishing a zero-row update
// from real database errors inside transaction closures.
var errTransitionConflict = errors.New("transition conflict")

// transitionConflict resolves a zero-row transition into the right typed error.
func (s *SQLiteStore) transitionConflict(ctx context.Context, id int64, conflict error) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task %d in status %s: %w", id, task.Status, conflict)
}
