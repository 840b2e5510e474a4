package taskstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps tasks in process memory. It backs tests and the
// memory store driver; semantics mirror the SQLite implementation.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	tasks   map[int64]*Task
	results map[int64]*ResultRecord
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[int64]*Task),
		results: make(map[int64]*ResultRecord),
	}
}

func cloneTask(task *Task) *Task {
	if task == nil {
		return nil
	}
	cp := *task
	if task.StartedAt != nil {
		started := *task.StartedAt
		cp.StartedAt = &started
	}
	if task.CompletedAt != nil {
		completed := *task.CompletedAt
		cp.CompletedAt = &completed
	}
	if task.LastHeartbeat != nil {
		heartbeat := *task.LastHeartbeat
		cp.LastHeartbeat = &heartbeat
	}
	return &cp
}

// Create inserts a pending task and returns the stored row.
func (s *MemoryStore) Create(_ context.Context, platform, identifier string, depth Depth, requestID string) (*Task, error) {
	if platform == "" {
		return nil, errors.New("platform is required")
	}
	if identifier == "" {
		return nil, errors.New("identifier is required")
	}
	if depth == "" {
		depth = DepthQuick
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	task := &Task{
		ID:              s.nextID,
		Platform:        platform,
		Identifier:      identifier,
		Depth:           depth,
		Status:          StatusPending,
		ProgressMessage: "Queued for analysis",
		RequestID:       requestID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.tasks[task.ID] = task
	return cloneTask(task), nil
}

// Get fetches a task by identifier.
func (s *MemoryStore) Get(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTask(s.tasks[id]), nil
}

// List returns tasks matching the filter, newest first.
func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*Task, error) {
	statusSet := make(map[Status]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statusSet[status] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []*Task
	for _, task := range s.tasks {
		if len(statusSet) > 0 {
			if _, ok := statusSet[task.Status]; !ok {
				continue
			}
		}
		if filter.Platform != "" && task.Platform != filter.Platform {
			continue
		}
		tasks = append(tasks, cloneTask(task))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID > tasks[j].ID })
	if filter.Offset > 0 {
		if filter.Offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[filter.Offset:]
	}
	if filter.Limit > 0 && len(tasks) > filter.Limit {
		tasks = tasks[:filter.Limit]
	}
	return tasks, nil
}

// PendingIDs returns identifiers of pending tasks ordered oldest first.
func (s *MemoryStore) PendingIDs(_ context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int64
	for id, task := range s.tasks {
		if task.Status == StatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Claim atomically moves a pending task to processing.
func (s *MemoryStore) Claim(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if task.Status != StatusPending {
		return nil, fmt.Errorf("task %d in status %s: %w", id, task.Status, ErrNotClaimable)
	}
	now := time.Now().UTC()
	task.Status = StatusProcessing
	task.StartedAt = &now
	task.LastHeartbeat = &now
	task.UpdatedAt = now
	task.Progress = 0
	task.ProgressMessage = "Claimed for analysis"
	task.ErrorDetail = ""
	return cloneTask(task), nil
}

// Heartbeat refreshes the claim timestamp for an in-flight task.
func (s *MemoryStore) Heartbeat(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != StatusProcessing {
		return nil
	}
	now := time.Now().UTC()
	task.LastHeartbeat = &now
	task.UpdatedAt = now
	return nil
}

// UpdateProgress advances progress for a processing task.
func (s *MemoryStore) UpdateProgress(_ context.Context, id int64, percent int, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok || task.Status != StatusProcessing {
		return nil
	}
	if percent > task.Progress {
		task.Progress = percent
	}
	task.ProgressMessage = message
	task.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete stores the analysis payload and marks the task completed.
func (s *MemoryStore) Complete(_ context.Context, id int64, payload string) (*Task, error) {
	if payload == "" {
		return nil, fmt.Errorf("complete task %d: payload is empty", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if task.Status != StatusProcessing {
		return nil, fmt.Errorf("task %d in status %s: %w", id, task.Status, ErrNotProcessing)
	}

	now := time.Now().UTC()
	ref := uuid.NewString()
	s.results[id] = &ResultRecord{
		Ref:       ref,
		TaskID:    id,
		Payload:   payload,
		CreatedAt: now,
	}
	task.Status = StatusCompleted
	task.ResultRef = ref
	task.Progress = 100
	task.ProgressMessage = "Analysis complete"
	task.ErrorDetail = ""
	task.CompletedAt = &now
	task.UpdatedAt = now
	task.LastHeartbeat = nil
	return cloneTask(task), nil
}

// Fail marks a processing task failed with the given detail.
func (s *MemoryStore) Fail(_ context.Context, id int64, detail string) (*Task, error) {
	if detail == "" {
		detail = "analysis failed"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if task.Status != StatusProcessing {
		return nil, fmt.Errorf("task %d in status %s: %w", id, task.Status, ErrNotProcessing)
	}

	now := time.Now().UTC()
	task.Status = StatusFailed
	task.ErrorDetail = detail
	task.ResultRef = ""
	task.ProgressMessage = detail
	task.CompletedAt = &now
	task.UpdatedAt = now
	task.LastHeartbeat = nil
	return cloneTask(task), nil
}

// Cancel stops a pending or processing task. Cancelling twice is a no-op.
func (s *MemoryStore) Cancel(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("cancel task %d: %w", id, ErrNotFound)
	}
	switch task.Status {
	case StatusPending, StatusProcessing:
		now := time.Now().UTC()
		task.Status = StatusCancelled
		task.ProgressMessage = CancelledByUserMessage
		task.CompletedAt = &now
		task.UpdatedAt = now
		task.LastHeartbeat = nil
		return cloneTask(task), nil
	case StatusCancelled:
		return cloneTask(task), nil
	default:
		return nil, fmt.Errorf("cancel task %d in status %s: %w", id, task.Status, ErrInvalidTransition)
	}
}

// Retry moves a failed task back to pending and clears terminal state.
func (s *MemoryStore) Retry(_ context.Context, id int64) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if task.Status != StatusFailed {
		return nil, fmt.Errorf("task %d in status %s: %w", id, task.Status, ErrNotRetryable)
	}

	delete(s.results, id)
	task.Status = StatusPending
	task.Progress = 0
	task.ProgressMessage = "Retry requested"
	task.ErrorDetail = ""
	task.ResultRef = ""
	task.StartedAt = nil
	task.CompletedAt = nil
	task.LastHeartbeat = nil
	task.UpdatedAt = time.Now().UTC()
	return cloneTask(task), nil
}

// Result fetches the analysis document for a task.
func (s *MemoryStore) Result(_ context.Context, taskID int64) (*ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.results[taskID]
	if !ok {
		return nil, nil
	}
	cp := *record
	return &cp, nil
}

// RequeueStale returns processing tasks with expired heartbeats to pending.
func (s *MemoryStore) RequeueStale(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var moved int64
	now := time.Now().UTC()
	for _, task := range s.tasks {
		if task.Status != StatusProcessing || task.LastHeartbeat == nil {
			continue
		}
		if !task.LastHeartbeat.Before(cutoff) {
			continue
		}
		task.Status = StatusPending
		task.Progress = 0
		task.ProgressMessage = RequeuedMessage
		task.StartedAt = nil
		task.LastHeartbeat = nil
		task.UpdatedAt = now
		moved++
	}
	return moved, nil
}

// Stats returns a count of tasks grouped by status.
func (s *MemoryStore) Stats(_ context.Context) (map[Status]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[Status]int)
	for _, task := range s.tasks {
		stats[task.Status]++
	}
	return stats, nil
}

// Health aggregates task counts for diagnostic output.
func (s *MemoryStore) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	return summarizeStats(stats), nil
}

// Close releases nothing; the memory store holds no external resources.
func (s *MemoryStore) Close() error {
	return nil
}
