package api

import (
	"time"

	"spyglass/internal/taskstore"
)

// FromTask converts a stored task to its API representation.
func FromTask(task *taskstore.Task) Task {
	if task == nil {
		return Task{}
	}
	dto := Task{
		ID:              task.ID,
		Platform:        task.Platform,
		Identifier:      task.Identifier,
		Depth:           string(task.Depth),
		Status:          string(task.Status),
		Progress:        task.Progress,
		ProgressMessage: task.ProgressMessage,
		ErrorDetail:     task.ErrorDetail,
		ResultRef:       task.ResultRef,
		RequestID:       task.RequestID,
	}
	dto.CreatedAt = FormatTime(task.CreatedAt)
	dto.UpdatedAt = FormatTime(task.UpdatedAt)
	if task.StartedAt != nil {
		dto.StartedAt = FormatTime(*task.StartedAt)
	}
	if task.CompletedAt != nil {
		dto.CompletedAt = FormatTime(*task.CompletedAt)
	}
	return dto
}

// FromTasks converts a slice of stored tasks into API DTOs.
func FromTasks(tasks []*taskstore.Task) []Task {
	if len(tasks) == 0 {
		return nil
	}
	out := make([]Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, FromTask(task))
	}
	return out
}

// FormatTime renders a timestamp in the API payload format, empty for
// zero times.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
