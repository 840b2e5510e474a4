package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes a task row in a transport-friendly format.
type Task struct {
	ID              int64  `json:"id"`
	Platform        string `json:"platform"`
	Identifier      string `json:"identifier"`
	Depth           string `json:"depth"`
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	ProgressMessage string `json:"progressMessage,omitempty"`
	ErrorDetail     string `json:"errorDetail,omitempty"`
	ResultRef       string `json:"resultRef,omitempty"`
	RequestID       string `json:"requestId,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
	StartedAt       string `json:"startedAt,omitempty"`
	CompletedAt     string `json:"completedAt,omitempty"`
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task Task `json:"task"`
}

// CancelResponse reports whether this call performed the cancellation.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
	Task      Task `json:"task"`
}

// TaskListResponse wraps a filtered task listing.
type TaskListResponse struct {
	Tasks  []Task `json:"tasks"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// PlatformsResponse lists the platforms the daemon accepts tasks for.
type PlatformsResponse struct {
	Platforms []string `json:"platforms"`
}

// StoreStatus reports task store reachability for the status endpoint.
type StoreStatus struct {
	Driver     string `json:"driver"`
	Reachable  bool   `json:"reachable"`
	TotalTasks int    `json:"totalTasks"`
	Error      string `json:"error,omitempty"`
}

// StatusResponse aggregates daemon runtime information for API consumers.
type StatusResponse struct {
	Version       string         `json:"version"`
	Mode          string         `json:"mode"`
	StartedAt     string         `json:"startedAt"`
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Queue         map[string]int `json:"queue"`
	Platforms     []string       `json:"platforms"`
	Store         StoreStatus    `json:"store"`
}

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// ErrorBody carries a stable machine-readable code alongside the
// human-readable message. Status is set on not_ready and invalid_state
// responses so clients see the task state that blocked the call.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

// ErrorResponse is the JSON envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}
