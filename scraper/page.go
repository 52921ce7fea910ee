package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/use-agent/smartpick/engine"
)

// Fetch navigates the session's tab to req.URL and returns the rendered
// HTML. It matches engine.BrowserFetchFunc.
//
// Extra headers and the hijack router must be in place before Navigate:
// they only apply to navigations that start after them.
func (s *Session) Fetch(ctx context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	page, err := s.ensurePage()
	if err != nil {
		return nil, err
	}

	// Uses the page without the request context so it runs after a timeout.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
	}()

	headers := make(map[string]string, len(req.Headers)+2)
	if u, parseErr := url.Parse(req.URL); parseErr == nil {
		headers["Referer"] = u.Scheme + "://" + u.Host + "/"
	}
	for k, v := range req.Headers {
		headers[k] = v
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(page)
	if req.UserAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{UserAgent: req.UserAgent}.Call(page)
	}

	router := setupHijack(page, s.cfg.BlockedResourceTypes)
	if router != nil {
		defer func() { _ = router.Stop() }()
	}

	p := page.Context(ctx)

	if err := p.Navigate(req.URL); err != nil {
		return nil, engine.Categorize(err, "navigation to target URL failed")
	}

	waitForContent(p, s.cfg.WaitSelector)

	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch(e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}

	rawHTML, err := p.HTML()
	if err != nil {
		return nil, engine.Categorize(err, "failed to extract page HTML")
	}
	if err := engine.CheckResponse(statusCode, rawHTML); err != nil {
		return nil, err
	}

	finalURL := evalStringOrEmpty(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = req.URL
	}

	return &engine.FetchResult{
		HTML:       rawHTML,
		Title:      evalStringOrEmpty(p, `() => document.title`),
		StatusCode: statusCode,
		FinalURL:   finalURL,
	}, nil
}

// waitForContent waits for selector when set, then for the DOM to settle.
// Both waits are best-effort: a page that never matches is still returned
// and the extractor leaves its fields empty.
func waitForContent(p *rod.Page, selector string) {
	if selector != "" {
		wp := p.Timeout(10 * time.Second)
		if _, err := wp.Element(selector); err != nil {
			slog.Debug("wait selector not found, proceeding", "selector", selector, "error", err)
		}
		wp.CancelTimeout()
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors.
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
