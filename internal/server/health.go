package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Health check
// @Description  Liveness plus a database ping
// @Tags         health
// @Produce      json
// @Router       /api/v1/health [get]
func (s *Server) GetHealth(c *gin.Context) {
	status := "healthy"
	database := "connected"
	if err := s.pingDatabase(c.Request.Context()); err != nil {
		status = "degraded"
		database = "unavailable"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": database,
		"version":  s.cfg.Version,
		"time":     s.clock.Now().UTC(),
	})
}

func (s *Server) pingDatabase(ctx context.Context) error {
	if s.db == nil {
		return errors.New("database handle not configured")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetServiceInfo answers the root path with service metadata.
func (s *Server) GetServiceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": s.cfg.ServiceName,
		"version": s.cfg.Version,
		"status":  "operational",
		"endpoints": gin.H{
			"status": "/api/v1/status?patent={number}",
			"health": "/api/v1/health",
			"stats":  "/api/v1/stats/overview",
		},
	})
}
