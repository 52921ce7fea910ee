package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/smartpick/config"
	"github.com/use-agent/smartpick/models"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports "degraded" while more than maxActiveJobs background searches run.
func Health(cfg *config.Config, jobs *JobStore, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		active := jobs.Active()

		status := "healthy"
		if active > maxActiveJobs {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:     status,
			Uptime:     time.Since(startTime).Round(time.Second).String(),
			Version:    config.Version,
			Source:     cfg.Source.BaseURL,
			FetchMode:  cfg.Fetch.Mode,
			ActiveJobs: active,
		})
	}
}
