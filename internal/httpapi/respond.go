package httpapi

import (
	"github.com/gin-gonic/gin"

	"spyglass/internal/api"
)

// Error codes returned in the error envelope.
const (
	ErrCodeInvalidRequest    = "invalid_request"
	ErrCodeInvalidPlatform   = "invalid_platform"
	ErrCodeInvalidIdentifier = "invalid_identifier"
	ErrCodeInvalidDepth      = "invalid_depth"
	ErrCodeInvalidTaskID     = "invalid_task_id"
	ErrCodeInvalidStatus     = "invalid_status"
	ErrCodeNotFound          = "not_found"
	ErrCodeNotReady          = "not_ready"
	ErrCodeInvalidState      = "invalid_state"
	ErrCodeQueueUnavailable  = "queue_unavailable"
	ErrCodeInternal          = "internal_error"
)

func respondError(c *gin.Context, httpStatus int, code, message string) {
	c.AbortWithStatusJSON(httpStatus, api.ErrorResponse{Error: api.ErrorBody{Code: code, Message: message}})
}

func respondTaskStateError(c *gin.Context, httpStatus int, code, message, taskStatus string) {
	c.AbortWithStatusJSON(httpStatus, api.ErrorResponse{Error: api.ErrorBody{Code: code, Message: message, Status: taskStatus}})
}
