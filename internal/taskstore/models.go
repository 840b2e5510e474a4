package taskstore

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an analysis task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// CancelledByUserMessage is the progress message recorded when a user cancels a task.
const CancelledByUserMessage = "Cancelled by user"

// RequeuedMessage is the progress message recorded when a stale claim is requeued.
const RequeuedMessage = "Requeued after stale heartbeat"

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Depth selects how much profile material collection gathers.
type Depth string

const (
	DepthQuick Depth = "quick"
	DepthDeep  Depth = "deep"
)

// ParseDepth converts a string into a known Depth. Empty input maps to quick.
func ParseDepth(value string) (Depth, bool) {
	normalized := Depth(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case "":
		return DepthQuick, true
	case DepthQuick, DepthDeep:
		return normalized, true
	default:
		return "", false
	}
}

// Task represents a persisted analysis request.
type Task struct {
	ID              int64
	Platform        string
	Identifier      string
	Depth           Depth
	Status          Status
	Progress        int
	ProgressMessage string
	ErrorDetail     string
	ResultRef       string
	RequestID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
	LastHeartbeat   *time.Time
}

// ResultRecord is the durable analysis document for a completed task.
// Payload holds the serialized analysis result as produced by the engine.
type ResultRecord struct {
	Ref       string
	TaskID    int64
	Payload   string
	CreatedAt time.Time
}

// Filter narrows List output. Zero values match everything.
type Filter struct {
	Statuses []Status
	Platform string
	Limit    int
	Offset   int
}

// HealthSummary describes aggregated task counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
}

// DatabaseHealth captures diagnostic information about the task database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	ColumnsPresent   []string
	MissingColumns   []string
	IntegrityCheck   bool
	TotalTasks       int
	Error            string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status admits no further transitions besides retry.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// IsProcessing reports whether the task holds an active claim.
func (t Task) IsProcessing() bool {
	return t.Status == StatusProcessing
}

// IsTerminal reports whether the task reached a terminal status.
func (t Task) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// HasResult reports whether a durable analysis document exists for the task.
func (t Task) HasResult() bool {
	return t.Status == StatusCompleted && t.ResultRef != ""
}
