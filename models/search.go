package models

import (
	"fmt"
	"strings"
	"time"
)

// Fetch modes accepted by SearchRequest.FetchMode.
const (
	FetchModeHTTP    = "http"
	FetchModeBrowser = "browser"
	FetchModeAuto    = "auto"
)

// Failure kinds reported in SearchResult.Failures.
const (
	FailureNetwork = "NETWORK_FAILURE"
	FailureParse   = "PARSE_FAILURE"
)

// ConditionNoConnectivity marks a run in which every fetch failed.
const ConditionNoConnectivity = "NO_CONNECTIVITY"

// SearchRequest is the payload for POST /api/v1/search and the input of a
// pipeline run.
type SearchRequest struct {
	// MinPrice and MaxPrice bound the budget. Either may be nil.
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`

	// Category is a brand slug such as "samsung", optionally carrying the
	// site's maker id ("samsung-9").
	Category string `json:"category,omitempty"`

	// Query is a free-text device name search.
	Query string `json:"query,omitempty"`

	// MaxPages bounds the listing pages walked. Default from config.
	MaxPages int `json:"max_pages,omitempty" binding:"omitempty,min=1,max=50"`

	// MaxDevices bounds the detail pages fetched. Default from config.
	MaxDevices int `json:"max_devices,omitempty" binding:"omitempty,min=1,max=500"`

	// FetchMode is "http", "browser" or "auto". Default from config.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`

	// IncludeUnpriced keeps records without a parseable price when a
	// budget is given.
	IncludeUnpriced bool `json:"include_unpriced,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *SearchRequest) Defaults(maxPages, maxDevices int, fetchMode string) {
	if r.MaxPages == 0 {
		r.MaxPages = maxPages
	}
	if r.MaxDevices == 0 {
		r.MaxDevices = maxDevices
	}
	if r.FetchMode == "" {
		r.FetchMode = fetchMode
	}
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.Query = strings.TrimSpace(r.Query)
}

// HasBudget reports whether either budget bound is set.
func (r *SearchRequest) HasBudget() bool {
	return r.MinPrice != nil || r.MaxPrice != nil
}

// Validate rejects requests the pipeline cannot run.
func (r *SearchRequest) Validate() error {
	if r.MinPrice != nil && *r.MinPrice < 0 {
		return NewScrapeError(ErrCodeInvalidInput, "min_price must not be negative", nil)
	}
	if r.MaxPrice != nil && *r.MaxPrice < 0 {
		return NewScrapeError(ErrCodeInvalidInput, "max_price must not be negative", nil)
	}
	if r.MinPrice != nil && r.MaxPrice != nil && *r.MinPrice > *r.MaxPrice {
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("min_price %.2f is greater than max_price %.2f", *r.MinPrice, *r.MaxPrice), nil)
	}
	if !r.HasBudget() && r.Category == "" && r.Query == "" {
		return NewScrapeError(ErrCodeInvalidInput, "one of a budget, a category or a query is required", nil)
	}
	switch r.FetchMode {
	case "", FetchModeHTTP, FetchModeBrowser, FetchModeAuto:
	default:
		return NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("unknown fetch_mode %q", r.FetchMode), nil)
	}
	return nil
}

// InBudget reports whether price lies in the request's [MinPrice, MaxPrice].
func (r *SearchRequest) InBudget(price float64) bool {
	if r.MinPrice != nil && price < *r.MinPrice {
		return false
	}
	if r.MaxPrice != nil && price > *r.MaxPrice {
		return false
	}
	return true
}

// Failure is one skipped page or item.
type Failure struct {
	URL     string `json:"url"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SearchResult is the outcome of one pipeline run.
type SearchResult struct {
	// ID identifies the run in logs and webhook deliveries.
	ID string `json:"id"`

	// Devices are the matching records in listing order.
	Devices []Device `json:"devices"`

	// Failures are the pages and items skipped during the run.
	Failures []Failure `json:"failures"`

	PagesFetched   int `json:"pages_fetched"`
	DetailsFetched int `json:"details_fetched"`

	// Condition is empty or ConditionNoConnectivity.
	Condition string `json:"condition,omitempty"`

	Timing TimingInfo `json:"timing"`
}

// TimingInfo provides duration breakdowns in milliseconds.
type TimingInfo struct {
	TotalMs   int64     `json:"total_ms"`
	ListingMs int64     `json:"listing_ms"`
	DetailMs  int64     `json:"detail_ms"`
	ExtractMs int64     `json:"extract_ms"`
	StartedAt time.Time `json:"started_at"`
}

// SearchResponse is the response for POST /api/v1/search.
type SearchResponse struct {
	Success bool          `json:"success"`
	Result  *SearchResult `json:"result,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
}

// DeviceRequest is the payload for POST /api/v1/device.
type DeviceRequest struct {
	// URL is the detail page to fetch. Required.
	URL string `json:"url" binding:"required,url"`

	// FetchMode is "http", "browser" or "auto". Default from config.
	FetchMode string `json:"fetch_mode,omitempty" binding:"omitempty,oneof=auto browser http"`
}

// DeviceResponse is the response for POST /api/v1/device.
type DeviceResponse struct {
	Success bool         `json:"success"`
	Device  *Device      `json:"device,omitempty"`
	Missing []string     `json:"missing,omitempty"`
	Error   *ErrorDetail `json:"error,omitempty"`
}
