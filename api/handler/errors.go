package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/smartpick/engine"
	"github.com/use-agent/smartpick/models"
)

// respondError maps an error to the matching HTTP status and writes a
// structured JSON error body.
func respondError(c *gin.Context, err error) {
	detail := toDetail(err)
	c.JSON(statusOf(detail.Code), models.SearchResponse{
		Success: false,
		Error:   detail,
	})
}

func toDetail(err error) *models.ErrorDetail {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		err = engine.Categorize(err, "request deadline exceeded")
	}
	var se *models.ScrapeError
	if !errors.As(err, &se) {
		se = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	return se.ToDetail()
}

// statusOf translates error codes to HTTP status codes.
func statusOf(code string) int {
	switch code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNetwork, models.ErrCodeBlocked, models.ErrCodeBrowserCrash:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}

func invalidInput(c *gin.Context, err error) {
	respondError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
}
