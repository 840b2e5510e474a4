package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"spyglass/internal/api"
	"spyglass/internal/config"
	"spyglass/internal/dispatch"
	"spyglass/internal/logging"
	"spyglass/internal/platform"
	"spyglass/internal/taskstore"
)

const shutdownGrace = 5 * time.Second

// Server wires the gin engine to the task store and dispatcher.
type Server struct {
	bind       string
	version    string
	cfg        *config.Config
	store      taskstore.Store
	dispatcher dispatch.Dispatcher
	registry   *platform.Registry
	logger     *slog.Logger

	engine    *gin.Engine
	server    *http.Server
	startedAt time.Time

	mu       sync.Mutex
	listener net.Listener
}

// New builds the API server. The listener is not opened until Start.
func New(cfg *config.Config, store taskstore.Store, dispatcher dispatch.Dispatcher, registry *platform.Registry, version string, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("httpapi requires configuration")
	}
	if store == nil {
		return nil, errors.New("httpapi requires a task store")
	}
	if dispatcher == nil {
		return nil, errors.New("httpapi requires a dispatcher")
	}
	if registry == nil {
		return nil, errors.New("httpapi requires a platform registry")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil, errors.New("httpapi requires an api bind address")
	}

	s := &Server{
		bind:       bind,
		version:    version,
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		registry:   registry,
		logger:     logging.NewComponentLogger(logger, "httpapi"),
	}
	s.engine = s.buildRouter()
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(s.requestID(), s.requestLogger(), s.recovery())

	engine.GET("/healthz", s.handleHealthz)

	v1 := engine.Group("/api/v1")
	{
		v1.POST("/tasks", s.handleCreateTask)
		v1.GET("/tasks", s.handleListTasks)
		v1.GET("/tasks/:id", s.handleGetTask)
		v1.GET("/tasks/:id/result", s.handleTaskResult)
		v1.POST("/tasks/:id/cancel", s.handleCancelTask)
		v1.POST("/tasks/:id/retry", s.handleRetryTask)
		v1.GET("/platforms", s.handlePlatforms)
		v1.GET("/status", s.handleStatus)
	}
	return engine
}

// Handler exposes the routed engine, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start opens the listener and serves until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.startedAt = time.Now()
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Stop drains in-flight requests within the shutdown grace window.
func (s *Server) Stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
	s.mu.Unlock()
}

// Addr reports the bound listen address, empty before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startedAt.IsZero() {
		return 0
	}
	return time.Since(s.startedAt)
}

func (s *Server) startedAtStamp() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.FormatTime(s.startedAt)
}
