package taskstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"spyglass/internal/config"
)

// PostgresStore manages task persistence backed by PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS tasks (
    id BIGSERIAL PRIMARY KEY,
    platform TEXT NOT NULL,
    identifier TEXT NOT NULL,
    depth TEXT NOT NULL DEFAULT 'quick',
    status TEXT NOT NULL DEFAULT 'pending',
    progress INTEGER NOT NULL DEFAULT 0,
    progress_message TEXT,
    error_detail TEXT,
    result_ref TEXT,
    request_id TEXT,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    started_at TIMESTAMPTZ,
    completed_at TIMESTAMPTZ,
    last_heartbeat TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_platform_identifier ON tasks(platform, identifier);

CREATE TABLE IF NOT EXISTS analysis_results (
    ref TEXT PRIMARY KEY,
    task_id BIGINT NOT NULL UNIQUE REFERENCES tasks(id) ON DELETE CASCADE,
    payload TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
`

// OpenPostgres connects to the configured PostgreSQL database and ensures the
// schema exists.
func OpenPostgres(ctx context.Context, cfg *config.Config) (*PostgresStore, error) {
	ctx = ensureContext(ctx)
	if cfg.Store.DSN == "" {
		return nil, errors.New("postgres store requires store.dsn")
	}

	pool, err := pgxpool.New(ctx, cfg.Store.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure postgres schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

const pgTaskColumns = "id, platform, identifier, depth, status, progress, progress_message, error_detail, result_ref, request_id, created_at, updated_at, started_at, completed_at, last_heartbeat"

func scanPgTask(row pgx.Row) (*Task, error) {
	var (
		task            Task
		depth           string
		status          string
		progressMessage *string
		errorDetail     *string
		resultRef       *string
		requestID       *string
	)
	if err := row.Scan(
		&task.ID,
		&task.Platform,
		&task.Identifier,
		&depth,
		&status,
		&task.Progress,
		&progressMessage,
		&errorDetail,
		&resultRef,
		&requestID,
		&task.CreatedAt,
		&task.UpdatedAt,
		&task.StartedAt,
		&task.CompletedAt,
		&task.LastHeartbeat,
	); err != nil {
		return nil, err
	}
	task.Depth = Depth(depth)
	task.Status = Status(status)
	if progressMessage != nil {
		task.ProgressMessage = *progressMessage
	}
	if errorDetail != nil {
		task.ErrorDetail = *errorDetail
	}
	if resultRef != nil {
		task.ResultRef = *resultRef
	}
	if requestID != nil {
		task.RequestID = *requestID
	}
	return &task, nil
}

// Create inserts a pending task and returns the stored row.
func (s *PostgresStore) Create(ctx context.Context, platform, identifier string, depth Depth, requestID string) (*Task, error) {
	if platform == "" {
		return nil, errors.New("platform is required")
	}
	if identifier == "" {
		return nil, errors.New("identifier is required")
	}
	if depth == "" {
		depth = DepthQuick
	}

	now := time.Now().UTC()
	var id int64
	err := s.pool.QueryRow(
		ctx,
		`INSERT INTO tasks (
            platform, identifier, depth, status, progress, progress_message,
            request_id, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		platform,
		identifier,
		string(depth),
		string(StatusPending),
		0,
		"Queued for analysis",
		nullablePgString(requestID),
		now,
		now,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.Get(ctx, id)
}

// Get fetches a task by identifier.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id)
	task, err := scanPgTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// List returns tasks matching the filter, newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*Task, error) {
	query := `SELECT ` + pgTaskColumns + ` FROM tasks`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf(`status = ANY($%d)`, len(args)))
	}
	if filter.Platform != "" {
		args = append(args, filter.Platform)
		clauses = append(clauses, fmt.Sprintf(`platform = $%d`, len(args)))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanPgTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// PendingIDs returns identifiers of pending tasks ordered oldest first.
func (s *PostgresStore) PendingIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT id FROM tasks WHERE status = $1 ORDER BY id`, string(StatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Claim atomically moves a pending task to processing.
func (s *PostgresStore) Claim(ctx context.Context, id int64) (*Task, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, started_at = $2, last_heartbeat = $2, updated_at = $2,
             progress = 0, progress_message = $3, error_detail = NULL
         WHERE id = $4 AND status = $5`,
		string(StatusProcessing),
		now,
		"Claimed for analysis",
		id,
		string(StatusPending),
	)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotClaimable)
	}
	return s.Get(ctx, id)
}

// Heartbeat refreshes the claim timestamp for an in-flight task.
func (s *PostgresStore) Heartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.pool.Exec(
		ctx,
		`UPDATE tasks SET last_heartbeat = $1, updated_at = $1 WHERE id = $2 AND status = $3`,
		now,
		id,
		string(StatusProcessing),
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// UpdateProgress advances progress for a processing task.
func (s *PostgresStore) UpdateProgress(ctx context.Context, id int64, percent int, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	now := time.Now().UTC()
	if _, err := s.pool.Exec(
		ctx,
		`UPDATE tasks
         SET progress = GREATEST(progress, $1), progress_message = $2, updated_at = $3
         WHERE id = $4 AND status = $5`,
		percent,
		nullablePgString(message),
		now,
		id,
		string(StatusProcessing),
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// Complete stores the analysis payload and marks the task completed in a
// single transaction.
func (s *PostgresStore) Complete(ctx context.Context, id int64, payload string) (*Task, error) {
	ctx = ensureContext(ctx)
	if payload == "" {
		return nil, fmt.Errorf("complete task %d: payload is empty", id)
	}

	ref := uuid.NewString()
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin complete tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, result_ref = $2, progress = 100, progress_message = $3,
             error_detail = NULL, completed_at = $4, updated_at = $4, last_heartbeat = NULL
         WHERE id = $5 AND status = $6`,
		string(StatusCompleted),
		ref,
		"Analysis complete",
		now,
		id,
		string(StatusProcessing),
	)
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotProcessing)
	}

	if _, err := tx.Exec(
		ctx,
		`INSERT INTO analysis_results (ref, task_id, payload, created_at) VALUES ($1, $2, $3, $4)`,
		ref,
		id,
		payload,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit complete tx: %w", err)
	}
	return s.Get(ctx, id)
}

// Fail marks a processing task failed with the given detail.
func (s *PostgresStore) Fail(ctx context.Context, id int64, detail string) (*Task, error) {
	if detail == "" {
		detail = "analysis failed"
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, error_detail = $2, result_ref = NULL, progress_message = $2,
             completed_at = $3, updated_at = $3, last_heartbeat = NULL
         WHERE id = $4 AND status = $5`,
		string(StatusFailed),
		detail,
		now,
		id,
		string(StatusProcessing),
	)
	if err != nil {
		return nil, fmt.Errorf("fail task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotProcessing)
	}
	return s.Get(ctx, id)
}

// Cancel stops a pending or processing task. Cancelling twice is a no-op.
func (s *PostgresStore) Cancel(ctx context.Context, id int64) (*Task, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, progress_message = $2, completed_at = $3, updated_at = $3, last_heartbeat = NULL
         WHERE id = $4 AND status = ANY($5)`,
		string(StatusCancelled),
		CancelledByUserMessage,
		now,
		id,
		[]string{string(StatusPending), string(StatusProcessing)},
	)
	if err != nil {
		return nil, fmt.Errorf("cancel task: %w", err)
	}
	if tag.RowsAffected() > 0 {
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
func (s *PostgresStore) Retry(ctx context.Context, id int64) (*Task, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin retry tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, progress = 0, progress_message = $2, error_detail = NULL,
             result_ref = NULL, started_at = NULL, completed_at = NULL,
             last_heartbeat = NULL, updated_at = $3
         WHERE id = $4 AND status = $5`,
		string(StatusPending),
		"Retry requested",
		now,
		id,
		string(StatusFailed),
	)
	if err != nil {
		return nil, fmt.Errorf("retry task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, s.transitionConflict(ctx, id, ErrNotRetryable)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM analysis_results WHERE task_id = $1`, id); err != nil {
		return nil, fmt.Errorf("clear stale result: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit retry tx: %w", err)
	}
	return s.Get(ctx, id)
}

// Result fetches the analysis document for a task.
func (s *PostgresStore) Result(ctx context.Context, taskID int64) (*ResultRecord, error) {
	row := s.pool.QueryRow(
		ctx,
		`SELECT ref, task_id, payload, created_at FROM analysis_results WHERE task_id = $1`,
		taskID,
	)

	var record ResultRecord
	err := row.Scan(&record.Ref, &record.TaskID, &record.Payload, &record.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return &record, nil
}

// RequeueStale returns processing tasks with expired heartbeats to pending.
func (s *PostgresStore) RequeueStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(
		ctx,
		`UPDATE tasks
         SET status = $1, progress = 0, progress_message = $2,
             started_at = NULL, last_heartbeat = NULL, updated_at = $3
         WHERE status = $4 AND last_heartbeat IS NOT NULL AND last_heartbeat < $5`,
		string(StatusPending),
		RequeuedMessage,
		now,
		string(StatusProcessing),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("requeue stale tasks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats returns a count of tasks grouped by status.
func (s *PostgresStore) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

// Health aggregates task counts for diagnostic output.
func (s *PostgresStore) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	return summarizeStats(stats), nil
}

func (s *PostgresStore) transitionConflict(ctx context.Context, id int64, conflict error) error {
	task, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return fmt.Errorf("task %d in status %s: %w", id, task.Status, conflict)
}

func nullablePgString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
