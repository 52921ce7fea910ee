// Package fetcher walks the source site's listing pages and retrieves
// device detail pages, one request at a time.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/cascadia"
	"golang.org/x/time/rate"

	"github.com/use-agent/smartpick/config"
	"github.com/use-agent/smartpick/engine"
	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/observability"
	"github.com/use-agent/smartpick/scraper"
)

// PageError reports a page that could not be fetched. The run skips it.
type PageError struct {
	URL string
	Err error
}

func (e *PageError) Error() string { return fmt.Sprintf("fetch %s: %v", e.URL, e.Err) }

func (e *PageError) Unwrap() error { return e.Err }

// Stats counts the requests of one Fetcher.
type Stats struct {
	Attempts       int
	Failures       int
	PagesFetched   int
	DetailsFetched int
}

// Fetcher is scoped to one run. It is not safe for concurrent use beyond
// what its internal lock serialises: requests are issued one at a time.
type Fetcher struct {
	src        config.SourceConfig
	timeout    time.Duration
	userAgent  string
	base       *url.URL
	dispatcher *engine.Dispatcher
	session    *scraper.Session
	limiter    *rate.Limiter
	linkSel    cascadia.Selector
	nextSels   []cascadia.Selector
	pageSel    cascadia.Selector

	mu    sync.Mutex
	stats Stats
}

// New builds a Fetcher for mode ("http", "browser" or "auto"; empty means
// the configured default). The browser is not launched until a browser
// fetch happens. Call Close when the run ends.
func New(cfg *config.Config, mode string) (*Fetcher, error) {
	if mode == "" {
		mode = cfg.Fetch.Mode
	}

	var (
		engines []engine.Engine
		session *scraper.Session
	)
	if mode == models.FetchModeHTTP || mode == models.FetchModeAuto {
		httpEng, err := engine.NewHTTPEngine(cfg.Fetch.UserAgent, cfg.Fetch.Proxy)
		if err != nil {
			return nil, err
		}
		engines = append(engines, httpEng)
	}
	if mode == models.FetchModeBrowser || mode == models.FetchModeAuto {
		session = scraper.NewSession(cfg.Browser, cfg.Fetch.Proxy)
		engines = append(engines, engine.NewRodEngine(session.Fetch))
	}
	if len(engines) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("unknown fetch mode %q", mode), nil)
	}

	f, err := NewWithEngines(cfg.Source, cfg.Fetch, engines...)
	if err != nil {
		if session != nil {
			session.Close()
		}
		return nil, err
	}
	f.session = session
	return f, nil
}

// NewWithEngines builds a Fetcher over the given engines in escalation
// order.
func NewWithEngines(src config.SourceConfig, fc config.FetchConfig, engines ...engine.Engine) (*Fetcher, error) {
	base, err := url.Parse(src.BaseURL)
	if err != nil || base.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid source URL %q", src.BaseURL), err)
	}
	base.Path = strings.TrimRight(base.Path, "/") + "/"
	base.RawQuery, base.Fragment = "", ""
	linkSel, err := cascadia.Compile(src.ListingLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("fetcher: listing selector: %w", err)
	}
	nextSels := make([]cascadia.Selector, 0, len(src.NextPageSelectors))
	for _, s := range src.NextPageSelectors {
		c, err := cascadia.Compile(s)
		if err != nil {
			return nil, fmt.Errorf("fetcher: next-page selector %q: %w", s, err)
		}
		nextSels = append(nextSels, c)
	}
	var pageSel cascadia.Selector
	if src.PageLinkSelector != "" {
		if pageSel, err = cascadia.Compile(src.PageLinkSelector); err != nil {
			return nil, fmt.Errorf("fetcher: page-link selector: %w", err)
		}
	}

	limit := rate.Inf
	if fc.Delay > 0 {
		limit = rate.Every(fc.Delay)
	}

	return &Fetcher{
		src:        src,
		timeout:    fc.Timeout,
		userAgent:  fc.UserAgent,
		base:       base,
		dispatcher: engine.NewDispatcher(engines, engine.NewDomainMemory()),
		limiter:    rate.NewLimiter(limit, 1),
		linkSel:    linkSel,
		nextSels:   nextSels,
		pageSel:    pageSel,
	}, nil
}

// Page returns the raw HTML of a detail page.
func (f *Fetcher) Page(ctx context.Context, pageURL string) (string, error) {
	res, err := f.get(ctx, pageURL, observability.KindDetail)
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

// Stats returns the request counters so far.
func (f *Fetcher) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// Close releases the browser session, if one was started.
func (f *Fetcher) Close() {
	if f.session != nil {
		f.session.Close()
	}
}

// get waits for the politeness limiter, then fetches pageURL through the
// dispatcher. Failures come back as *PageError.
func (f *Fetcher) get(ctx context.Context, pageURL, kind string) (*engine.FetchResult, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &PageError{URL: pageURL, Err: err}
	}

	f.mu.Lock()
	f.stats.Attempts++
	f.mu.Unlock()

	start := time.Now()
	res, err := f.dispatcher.Dispatch(ctx, &engine.FetchRequest{
		URL:       pageURL,
		UserAgent: f.userAgent,
		Timeout:   f.timeout,
	})
	observability.FetchDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.stats.Failures++
		observability.PagesFetched.WithLabelValues(kind, "none", "failed").Inc()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		slog.Warn("page fetch failed", "kind", kind, "url", pageURL, "error", err)
		return nil, &PageError{URL: pageURL, Err: err}
	}
	if kind == observability.KindListing {
		f.stats.PagesFetched++
	} else {
		f.stats.DetailsFetched++
	}
	observability.PagesFetched.WithLabelValues(kind, res.EngineName, "ok").Inc()
	slog.Debug("page fetched", "kind", kind, "url", pageURL, "engine", res.EngineName)
	return res, nil
}
