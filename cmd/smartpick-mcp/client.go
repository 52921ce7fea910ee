package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/use-agent/smartpick/models"
)

// apiClient talks to a running smartpick API.
type apiClient struct {
	http         *resty.Client
	pollInterval time.Duration
}

func newAPIClient(baseURL, apiKey string, pollInterval time.Duration) *apiClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Minute).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == http.StatusServiceUnavailable
		})
	if apiKey != "" {
		c.SetHeader("X-API-Key", apiKey)
	}
	return &apiClient{http: c, pollInterval: pollInterval}
}

func apiError(status int, detail *models.ErrorDetail) error {
	if detail != nil {
		return fmt.Errorf("[%s] %s", detail.Code, detail.Message)
	}
	return fmt.Errorf("API returned status %d", status)
}

// search starts a background search and polls until it finishes.
func (c *apiClient) search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	var (
		job  models.JobResponse
		fail models.SearchResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&job).
		SetError(&fail).
		Post("/api/v1/search/async")
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiError(resp.StatusCode(), fail.Error)
	}
	if job.ID == "" {
		return nil, fmt.Errorf("search job creation failed")
	}
	return c.poll(ctx, job.ID)
}

// poll waits until the job leaves the processing state or ctx ends.
func (c *apiClient) poll(ctx context.Context, id string) (*models.SearchResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			var status models.JobStatusResponse
			resp, err := c.http.R().
				SetContext(ctx).
				SetResult(&status).
				Get("/api/v1/search/" + id)
			if err != nil {
				return nil, fmt.Errorf("poll request failed: %w", err)
			}
			if resp.IsError() {
				return nil, fmt.Errorf("poll job %s: API returned status %d", id, resp.StatusCode())
			}

			switch status.Status {
			case models.JobCompleted:
				return status.Result, nil
			case models.JobFailed:
				return nil, apiError(resp.StatusCode(), status.Error)
			}
		}
	}
}

// device fetches one detail page through the API.
func (c *apiClient) device(ctx context.Context, pageURL, mode string) (*models.DeviceResponse, error) {
	var out models.DeviceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(models.DeviceRequest{URL: pageURL, FetchMode: mode}).
		SetResult(&out).
		SetError(&out).
		Post("/api/v1/device")
	if err != nil {
		return nil, fmt.Errorf("device request failed: %w", err)
	}
	if resp.IsError() || !out.Success {
		return nil, apiError(resp.StatusCode(), out.Error)
	}
	return &out, nil
}
