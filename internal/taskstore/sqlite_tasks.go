package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Create inserts a pending task and returns the stored row.
func (s *SQLiteStore) Create(ctx context.Context, platform, identifier string, depth Depth, requestID string) (*Task, error) {
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
	timestamp := now.Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO tasks (
            platform, identifier, depth, status, progress, progress_message,
            request_id, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		platform,
		identifier,
		string(depth),
		StatusPending,
		0,
		"Queued for analysis",
		nullableString(requestID),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.Get(ctx, id)
}

// Get fetches a task by identifier.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// List returns tasks matching the filter, newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		placeholders := makePlaceholders(len(filter.Statuses))
		clauses = append(clauses, `status IN (`+placeholders+`)`)
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if filter.Platform != "" {
		clauses = append(clauses, `platform = ?`)
		args = append(args, filter.Platform)
	}
	for i, clause := range clauses {
		if i == 0 {
			query += ` WHERE ` + clause
		} else {
			query += ` AND ` + clause
		}
	}
	query += ` ORDER BY id DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ?`
		args = append(args, limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// PendingIDs returns identifiers of pending tasks ordered oldest first.
// Dispatchers use this to resume work after a restart.
func (s *SQLiteStore) PendingIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tasks WHERE status = ? ORDER BY id`, StatusPending)
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

// Result fetches the analysis document for a task.
func (s *SQLiteStore) Result(ctx context.Context, taskID int64) (*ResultRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT ref, task_id, payload, created_at FROM analysis_results WHERE task_id = ?`,
		taskID,
	)

	var (
		record     ResultRecord
		createdRaw string
	)
	err := row.Scan(&record.Ref, &record.TaskID, &record.Payload, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if created, parseErr := parseTimeString(createdRaw); parseErr == nil {
		record.CreatedAt = created
	}
	return &record, nil
}
