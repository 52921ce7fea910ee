package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/use-agent/smartpick/api/handler"
	"github.com/use-agent/smartpick/api/middleware"
	"github.com/use-agent/smartpick/config"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/webhook"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger → Metrics
//	API:     Auth (if enabled) → RateLimit
//
// Health and metrics stay outside auth so probes and scrapers always work.
// hook may be nil.
func NewRouter(pl *pipeline.Pipeline, cfg *config.Config, hook *webhook.Sender, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())
	r.Use(middleware.Metrics())

	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	jobs := handler.NewJobStore(time.Hour)

	v1 := r.Group("/api/v1")
	v1.GET("/health", handler.Health(cfg, jobs, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/search", handler.Search(pl, hook))
	protected.POST("/search/async", handler.PostSearchAsync(pl, jobs, hook))
	protected.GET("/search/:id", handler.GetSearch(jobs))
	protected.POST("/device", handler.Device(pl))

	return r
}
