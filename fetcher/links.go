package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// listingPage is a parsed listing page.
type listingPage struct {
	doc  *goquery.Document
	base *url.URL
}

func (f *Fetcher) parseListing(rawHTML, pageURL string) (*listingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil || base.Host == "" {
		base = f.base
	}
	return &listingPage{doc: doc, base: base}, nil
}

// deviceLinks returns the page's device links resolved against the page
// URL, restricted to http(s) links on the source host and de-duplicated
// in document order.
func (f *Fetcher) deviceLinks(p *listingPage) []string {
	var links []string
	seen := make(map[string]struct{})
	p.doc.FindMatcher(f.linkSel).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists || strings.TrimSpace(href) == "" {
			return
		}
		resolved, err := p.base.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.EqualFold(resolved.Host, f.base.Host) {
			return
		}
		resolved.Fragment = ""
		abs := resolved.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}

// pageLinks returns the listing's numbered page links in document order,
// resolved against the page URL.
func (f *Fetcher) pageLinks(p *listingPage) []string {
	if f.pageSel == nil {
		return nil
	}
	var links []string
	p.doc.FindMatcher(f.pageSel).Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := p.base.Parse(href)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			return
		}
		if !strings.EqualFold(resolved.Host, f.base.Host) {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})
	return links
}

// nextPage returns the absolute URL of the next listing page, or "" when
// the page has none.
func (f *Fetcher) nextPage(p *listingPage) string {
	for _, sel := range f.nextSels {
		href := strings.TrimSpace(p.doc.FindMatcher(sel).First().AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		resolved, err := p.base.Parse(href)
		if err != nil || (resolved.Scheme != "http" && resolved.Scheme != "https") {
			continue
		}
		resolved.Fragment = ""
		if abs := resolved.String(); abs != p.base.String() {
			return abs
		}
	}
	return ""
}

// firstUnvisited returns the first of links not in visited, or "".
func firstUnvisited(links []string, visited map[string]struct{}) string {
	for _, l := range links {
		if _, ok := visited[l]; !ok {
			return l
		}
	}
	return ""
}
