package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/smartpick/extractor"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/pipeline"
	"github.com/use-agent/smartpick/webhook"
)

// Search returns a handler for POST /api/v1/search.
//
// The run is bound to the request context; a client that goes away cancels
// the remaining fetches. hook may be nil.
func Search(pl *pipeline.Pipeline, hook *webhook.Sender) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}

		res, err := pl.Run(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}

		notify(hook, res)
		c.JSON(http.StatusOK, models.SearchResponse{
			Success: true,
			Result:  res,
		})
	}
}

// Device returns a handler for POST /api/v1/device.
func Device(pl *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DeviceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidInput(c, err)
			return
		}

		dev, err := pl.Device(c.Request.Context(), req.URL, req.FetchMode)
		if err != nil {
			slog.Warn("device fetch failed", "url", req.URL, "error", err)
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, models.DeviceResponse{
			Success: true,
			Device:  dev,
			Missing: extractor.Missing(*dev),
		})
	}
}

func notify(hook *webhook.Sender, res *models.SearchResult) {
	if hook == nil {
		return
	}
	hook.DeliverAsync(webhook.NewEvent(webhook.EventSearchCompleted, res.ID, res))
}
