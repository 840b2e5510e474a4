package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"spyglass/internal/api"
	"spyglass/internal/logging"
	"spyglass/internal/taskstore"
)

// maxIdentifierLength bounds the submitted profile identifier. Real platform
// handles are far shorter; anything beyond this is a malformed request.
const maxIdentifierLength = 256

const defaultListLimit = 50

// CreateTaskRequest is the body for POST /api/v1/tasks.
type CreateTaskRequest struct {
	Platform   string `json:"platform"`
	Identifier string `json:"identifier"`
	Depth      string `json:"depth"`
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")
		return
	}

	platformName := strings.ToLower(strings.TrimSpace(req.Platform))
	if platformName == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidPlatform, "platform is required")
		return
	}
	if !s.registry.Supported(platformName) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidPlatform,
			fmt.Sprintf("unknown platform %q, configured: %s", platformName, strings.Join(s.registry.Names(), ", ")))
		return
	}

	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidIdentifier, "identifier is required")
		return
	}
	if len(identifier) > maxIdentifierLength {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidIdentifier,
			fmt.Sprintf("identifier exceeds %d characters", maxIdentifierLength))
		return
	}

	depth, ok := taskstore.ParseDepth(req.Depth)
	if !ok {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidDepth,
			fmt.Sprintf("unknown depth %q, expected quick or deep", req.Depth))
		return
	}

	ctx := c.Request.Context()
	task, err := s.store.Create(ctx, platformName, identifier, depth, c.GetString(requestIDKey))
	if err != nil {
		s.logger.Error("task create failed", logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not create task")
		return
	}

	if err := s.dispatcher.Submit(ctx, task.ID); err != nil {
		// The row stays pending; the client retries the request itself.
		s.logger.Warn("task submit failed",
			logging.Int64(logging.FieldTaskID, task.ID),
			logging.Error(err))
		respondError(c, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "task queue unavailable, retry the request")
		return
	}

	c.JSON(http.StatusAccepted, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	task, err := s.store.Get(c.Request.Context(), id)
	if err != nil {
		s.logger.Error("task lookup failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not load task")
		return
	}
	if task == nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	c.JSON(http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *Server) handleTaskResult(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	task, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("task lookup failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not load task")
		return
	}
	if task == nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	if task.Status != taskstore.StatusCompleted {
		respondTaskStateError(c, http.StatusConflict, ErrCodeNotReady,
			resultUnavailableMessage(task), string(task.Status))
		return
	}

	record, err := s.store.Result(ctx, id)
	if err != nil {
		s.logger.Error("result lookup failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not load result")
		return
	}
	if record == nil {
		s.logger.Error("completed task has no result row", logging.Int64(logging.FieldTaskID, id))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "result missing for completed task")
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(record.Payload))
}

func resultUnavailableMessage(task *taskstore.Task) string {
	switch task.Status {
	case taskstore.StatusFailed:
		detail := task.ErrorDetail
		if detail == "" {
			detail = "unknown error"
		}
		return "task failed: " + detail
	case taskstore.StatusCancelled:
		return "task was cancelled"
	default:
		return fmt.Sprintf("task is %s", task.Status)
	}
}

func (s *Server) handleCancelTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	current, err := s.store.Get(ctx, id)
	if err != nil {
		s.logger.Error("task lookup failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not load task")
		return
	}
	if current == nil {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("task %d not found", id))
		return
	}
	if current.Status == taskstore.StatusCancelled {
		c.JSON(http.StatusOK, api.CancelResponse{Cancelled: false, Task: api.FromTask(current)})
		return
	}

	task, err := s.store.Cancel(ctx, id)
	switch {
	case errors.Is(err, taskstore.ErrInvalidTransition):
		respondTaskStateError(c, http.StatusConflict, ErrCodeInvalidState,
			fmt.Sprintf("cannot cancel a %s task", current.Status), string(current.Status))
		return
	case errors.Is(err, taskstore.ErrNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("task %d not found", id))
		return
	case err != nil:
		s.logger.Error("task cancel failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not cancel task")
		return
	}
	c.JSON(http.StatusOK, api.CancelResponse{Cancelled: true, Task: api.FromTask(task)})
}

func (s *Server) handleRetryTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	task, err := s.store.Retry(ctx, id)
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		respondError(c, http.StatusNotFound, ErrCodeNotFound, fmt.Sprintf("task %d not found", id))
		return
	case errors.Is(err, taskstore.ErrNotRetryable):
		respondError(c, http.StatusConflict, ErrCodeInvalidState, "only failed tasks can be retried")
		return
	case err != nil:
		s.logger.Error("task retry failed", logging.Int64(logging.FieldTaskID, id), logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not retry task")
		return
	}

	if err := s.dispatcher.Submit(ctx, task.ID); err != nil {
		s.logger.Warn("retry submit failed",
			logging.Int64(logging.FieldTaskID, task.ID),
			logging.Error(err))
		respondError(c, http.StatusServiceUnavailable, ErrCodeQueueUnavailable, "task queue unavailable, task stays pending")
		return
	}
	c.JSON(http.StatusOK, api.TaskResponse{Task: api.FromTask(task)})
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := taskstore.Filter{Limit: defaultListLimit}

	for _, raw := range c.QueryArray("status") {
		for _, value := range strings.Split(raw, ",") {
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			status, ok := taskstore.ParseStatus(value)
			if !ok {
				respondError(c, http.StatusBadRequest, ErrCodeInvalidStatus, fmt.Sprintf("unknown status %q", value))
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	filter.Platform = strings.ToLower(strings.TrimSpace(c.Query("platform")))
	if value, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit))); err == nil && value > 0 {
		filter.Limit = value
	}
	if value, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && value > 0 {
		filter.Offset = value
	}

	tasks, err := s.store.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("task list failed", logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not list tasks")
		return
	}
	c.JSON(http.StatusOK, api.TaskListResponse{
		Tasks:  api.FromTasks(tasks),
		Count:  len(tasks),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// taskID parses the :id path parameter, writing the 400 itself on failure.
func taskID(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidTaskID, fmt.Sprintf("invalid task id %q", raw))
		return 0, false
	}
	return id, true
}
