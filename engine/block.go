package engine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/use-agent/smartpick/models"
)

// blockMarkers match the interstitials the site serves instead of content
// when it throttles or challenges a client.
var blockMarkers = regexp.MustCompile(`(?i)too many requests|captcha|cf-challenge|access denied|are you a robot`)

// blockMarkerWindow bounds how much of the body is scanned for markers.
// Block pages are short.
const blockMarkerWindow = 4096

// CheckResponse classifies an HTTP status and body. It returns nil for a
// usable page, a BLOCKED ScrapeError when the site refused the client, and
// a NETWORK_FAILURE ScrapeError for any other non-2xx status.
func CheckResponse(statusCode int, body string) error {
	switch statusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return models.NewScrapeError(models.ErrCodeBlocked,
			fmt.Sprintf("site refused the request with status %d", statusCode), nil)
	}
	if statusCode != 0 && (statusCode < 200 || statusCode >= 300) {
		return models.NewScrapeError(models.ErrCodeNetwork,
			fmt.Sprintf("unexpected status %d", statusCode), nil)
	}
	head := body
	if len(head) > blockMarkerWindow {
		head = head[:blockMarkerWindow]
	}
	if m := blockMarkers.FindString(head); m != "" {
		return models.NewScrapeError(models.ErrCodeBlocked,
			fmt.Sprintf("block page detected (%q)", m), nil)
	}
	return nil
}

// Categorize wraps raw transport errors into typed ScrapeErrors. Errors that
// already carry a code are returned unchanged.
func Categorize(err error, msg string) error {
	if err == nil {
		return nil
	}
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNetwork, msg, err)
	}
}
