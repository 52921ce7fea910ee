// Package pipeline runs one search: it walks the listing, fetches and
// extracts each detail page, and filters the records by budget.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/smartpick/config"
	"github.com/use-agent/smartpick/extractor"
	"github.com/use-agent/smartpick/fetcher"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/observability"
)

// Fetcher is the part of *fetcher.Fetcher a run uses.
type Fetcher interface {
	DetailURLs(ctx context.Context, req *models.SearchRequest) iter.Seq2[string, error]
	Page(ctx context.Context, pageURL string) (string, error)
	Stats() fetcher.Stats
	Close()
}

// FetcherFactory builds the fetcher for one run.
type FetcherFactory func(mode string) (Fetcher, error)

// Pipeline holds what runs share: configuration and the extractor. Each
// run builds and closes its own fetcher.
type Pipeline struct {
	cfg        *config.Config
	extractor  *extractor.Extractor
	newFetcher FetcherFactory
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFetcherFactory replaces the fetcher construction.
func WithFetcherFactory(fn FetcherFactory) Option {
	return func(p *Pipeline) { p.newFetcher = fn }
}

// WithExtractor replaces the default GSMArena extractor.
func WithExtractor(e *extractor.Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// New creates a Pipeline.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		extractor: extractor.Default(),
		newFetcher: func(mode string) (Fetcher, error) {
			return fetcher.New(cfg, mode)
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Prepare applies the configured defaults to req and validates it.
func (p *Pipeline) Prepare(req *models.SearchRequest) error {
	req.Defaults(p.cfg.Source.MaxPages, p.cfg.Source.MaxDevices, p.cfg.Fetch.Mode)
	return req.Validate()
}

// Run executes one search. It fails only on an invalid request, an unknown
// brand or a cancelled context; page failures are reported in the result.
func (p *Pipeline) Run(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	if err := p.Prepare(&req); err != nil {
		return nil, err
	}

	f, err := p.newFetcher(req.FetchMode)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	start := time.Now()
	result := &models.SearchResult{
		ID:       uuid.NewString(),
		Devices:  []models.Device{},
		Failures: []models.Failure{},
	}
	result.Timing.StartedAt = start
	log := slog.With("run", result.ID)
	log.Info("search started",
		"category", req.Category, "query", req.Query,
		"budget", budgetString(&req), "mode", req.FetchMode)

	var (
		candidates []models.Device
		detailDur  time.Duration
		extractDur time.Duration
		details    int
	)
	for detailURL, err := range f.DetailURLs(ctx, &req) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			var pe *fetcher.PageError
			if !errors.As(err, &pe) {
				return nil, err
			}
			result.Failures = append(result.Failures, failureOf(pe))
			continue
		}
		details++

		t0 := time.Now()
		html, err := f.Page(ctx, detailURL)
		detailDur += time.Since(t0)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Failures = append(result.Failures, failureOf(err))
		} else {
			t1 := time.Now()
			dev := p.extractor.Extract(html, detailURL)
			extractDur += time.Since(t1)
			for _, field := range extractor.Missing(dev) {
				observability.MissingFields.WithLabelValues(field).Inc()
				log.Debug("field missing", "kind", models.FailureParse, "url", detailURL, "field", field)
			}
			candidates = append(candidates, dev)
		}

		if details >= req.MaxDevices {
			log.Info("device bound reached", "max_devices", req.MaxDevices)
			break
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	stats := f.Stats()
	result.PagesFetched = stats.PagesFetched
	result.DetailsFetched = stats.DetailsFetched
	if stats.Attempts > 0 && stats.Failures == stats.Attempts {
		result.Condition = models.ConditionNoConnectivity
	} else {
		result.Devices = Filter(candidates, &req)
	}

	for _, fl := range result.Failures {
		observability.Failures.WithLabelValues(fl.Kind).Inc()
	}
	observability.DevicesReturned.Add(float64(len(result.Devices)))
	condition := result.Condition
	if condition == "" {
		condition = "ok"
	}
	observability.Runs.WithLabelValues(condition).Inc()

	total := time.Since(start)
	result.Timing.TotalMs = total.Milliseconds()
	result.Timing.DetailMs = detailDur.Milliseconds()
	result.Timing.ExtractMs = extractDur.Milliseconds()
	result.Timing.ListingMs = max(total-detailDur-extractDur, 0).Milliseconds()

	log.Info("search finished",
		"devices", len(result.Devices), "candidates", len(candidates),
		"failures", len(result.Failures), "pages", result.PagesFetched,
		"condition", result.Condition, "total_ms", result.Timing.TotalMs)
	return result, nil
}

// Device fetches and extracts a single detail page.
func (p *Pipeline) Device(ctx context.Context, pageURL, mode string) (*models.Device, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid device URL %q", pageURL), err)
	}
	if mode == "" {
		mode = p.cfg.Fetch.Mode
	}

	f, err := p.newFetcher(mode)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	html, err := f.Page(ctx, pageURL)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var se *models.ScrapeError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, models.NewScrapeError(models.ErrCodeNetwork, "fetch device page", err)
	}
	dev := p.extractor.Extract(html, pageURL)
	return &dev, nil
}

// Filter keeps the records matching req's budget and category, in order.
// With a budget, a record passes when its parsed price lies in
// [MinPrice, MaxPrice]; records without a parseable price pass only with
// IncludeUnpriced. With a category, records whose known brand differs from
// the category's brand are dropped.
func Filter(devices []models.Device, req *models.SearchRequest) []models.Device {
	brand := ""
	if cat, ok := fetcher.ParseCategory(req.Category); ok {
		brand, _, _ = strings.Cut(cat.Brand, "_")
	}

	out := make([]models.Device, 0, len(devices))
	for _, d := range devices {
		if req.HasBudget() {
			if d.PriceValue == nil {
				if !req.IncludeUnpriced {
					continue
				}
			} else if !req.InBudget(*d.PriceValue) {
				continue
			}
		}
		if brand != "" && d.Brand != "" && !strings.EqualFold(d.Brand, brand) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// failureOf converts a fetch error into a reported failure.
func failureOf(err error) models.Failure {
	fl := models.Failure{Kind: models.FailureNetwork, Message: err.Error()}
	var pe *fetcher.PageError
	if errors.As(err, &pe) {
		fl.URL = pe.URL
		fl.Message = pe.Err.Error()
	}
	return fl
}

// budgetString renders the budget bounds for logs, e.g. "100..300" or "..300".
func budgetString(req *models.SearchRequest) string {
	if !req.HasBudget() {
		return ""
	}
	var lo, hi string
	if req.MinPrice != nil {
		lo = strconv.FormatFloat(*req.MinPrice, 'f', -1, 64)
	}
	if req.MaxPrice != nil {
		hi = strconv.FormatFloat(*req.MaxPrice, 'f', -1, 64)
	}
	return lo + ".." + hi
}
