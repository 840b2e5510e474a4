package logging

import (
	"context"
	"log/slog"

	"spyglass/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldTaskID is the standardized structured logging key for task identifiers.
	FieldTaskID = "task_id"
	// FieldPlatform is the standardized structured logging key for platform names.
	FieldPlatform = "platform"
	// FieldRequestID is the standardized structured logging key for API request identifiers.
	FieldRequestID = "request_id"
	// FieldIdentifier is the standardized structured logging key for profile identifiers.
	FieldIdentifier = "identifier"
	// FieldStatus is the standardized structured logging key for task status values.
	FieldStatus = "status"
)

// ContextFields extracts the known carriers from ctx as logging attrs.
func ContextFields(ctx context.Context) []Attr {
	if ctx == nil {
		return nil
	}
	attrs := make([]Attr, 0, 3)
	if taskID, ok := services.TaskIDFromContext(ctx); ok {
		attrs = append(attrs, Int64(FieldTaskID, taskID))
	}
	if platform, ok := services.PlatformFromContext(ctx); ok && platform != "" {
		attrs = append(attrs, String(FieldPlatform, platform))
	}
	if requestID, ok := services.RequestIDFromContext(ctx); ok && requestID != "" {
		attrs = append(attrs, String(FieldRequestID, requestID))
	}
	if len(attrs) == 0 {
		return nil
	}
	return attrs
}

// WithContext returns a logger annotated with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return nil
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
