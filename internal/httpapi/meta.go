package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"spyglass/internal/api"
	"spyglass/internal/logging"
	"spyglass/internal/taskstore"
)

// databaseChecker is satisfied by store backends that expose deep schema and
// integrity diagnostics beyond the basic health summary.
type databaseChecker interface {
	CheckHealth(ctx context.Context) (taskstore.DatabaseHealth, error)
}

func (s *Server) handlePlatforms(c *gin.Context) {
	c.JSON(http.StatusOK, api.PlatformsResponse{Platforms: s.registry.Names()})
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx := c.Request.Context()

	stats, err := s.store.Stats(ctx)
	if err != nil {
		s.logger.Error("store stats failed", logging.Error(err))
		respondError(c, http.StatusInternalServerError, ErrCodeInternal, "could not read queue stats")
		return
	}
	queue := make(map[string]int, len(stats))
	for status, count := range stats {
		queue[string(status)] = count
	}

	storeStatus := api.StoreStatus{Driver: s.cfg.Store.Driver, Reachable: true}
	if health, healthErr := s.store.Health(ctx); healthErr != nil {
		storeStatus.Reachable = false
		storeStatus.Error = healthErr.Error()
	} else {
		storeStatus.TotalTasks = health.Total
	}
	if checker, ok := s.store.(databaseChecker); ok && storeStatus.Reachable {
		if diag, diagErr := checker.CheckHealth(ctx); diagErr != nil {
			storeStatus.Error = diagErr.Error()
		} else if problem := databaseProblem(diag); problem != "" {
			storeStatus.Error = problem
		}
	}

	c.JSON(http.StatusOK, api.StatusResponse{
		Version:       s.version,
		Mode:          s.dispatcher.Mode(),
		StartedAt:     s.startedAtStamp(),
		UptimeSeconds: int64(s.uptime().Seconds()),
		Queue:         queue,
		Platforms:     s.registry.Names(),
		Store:         storeStatus,
	})
}

// databaseProblem flattens deep diagnostics into a single operator-facing
// message. Empty means the database looks sound.
func databaseProblem(diag taskstore.DatabaseHealth) string {
	switch {
	case !diag.DatabaseExists:
		return "task database file missing"
	case len(diag.MissingColumns) > 0:
		return "task table missing columns: " + strings.Join(diag.MissingColumns, ", ")
	case !diag.IntegrityCheck:
		return "task database failed integrity check"
	default:
		return ""
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	if _, err := s.store.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, api.HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, api.HealthResponse{Status: "ok"})
}
