package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"spyglass/internal/logging"
)

const requestIDKey = "request_id"

// requestID tags every request with a correlation identifier. A caller
// supplied X-Request-ID is honored so clients can trace their own calls.
func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			logging.String("method", c.Request.Method),
			logging.String("path", path),
			logging.Int("status", status),
			logging.Duration("duration", time.Since(start)),
			logging.String("client", c.ClientIP()),
			logging.String(logging.FieldRequestID, c.GetString(requestIDKey)),
		}
		if query != "" {
			attrs = append(attrs, logging.String("query", query))
		}
		switch {
		case status >= http.StatusInternalServerError:
			s.logger.Error("request failed", attrs...)
		case status >= http.StatusBadRequest:
			s.logger.Warn("request rejected", attrs...)
		default:
			s.logger.Info("request handled", attrs...)
		}
	}
}

// recovery converts handler panics into a JSON 500 instead of a dropped
// connection.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("handler panic",
			logging.Any("panic", recovered),
			logging.String("path", c.Request.URL.Path),
			logging.String(logging.FieldRequestID, c.GetString(requestIDKey)))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	})
}
