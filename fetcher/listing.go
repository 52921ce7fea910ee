package fetcher

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/use-agent/smartpick/models"
	"github.com/use-agent/smartpick/observability"
	"github.com/use-agent/smartpick/simhash"
)

// categoryRe splits a category such as "samsung-9" into brand and maker id.
var categoryRe = regexp.MustCompile(`^([a-z0-9&_.]+?)(?:-(\d+))?$`)

// Category is a parsed brand slug.
type Category struct {
	Brand string
	ID    string
}

// ParseCategory parses "samsung" or "samsung-9". It returns false for an
// empty or malformed category.
func ParseCategory(s string) (Category, bool) {
	m := categoryRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return Category{}, false
	}
	return Category{Brand: m[1], ID: m[2]}, true
}

// ListingURL returns the first listing page for req, or "" when the
// category has no maker id and must be resolved from the makers page.
func (f *Fetcher) ListingURL(req *models.SearchRequest) (string, error) {
	cat, hasCat := ParseCategory(req.Category)
	if req.Category != "" && !hasCat {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("invalid category %q", req.Category), nil)
	}

	if req.HasBudget() || req.Query != "" {
		q := url.Values{}
		if req.MinPrice != nil {
			q.Set("nPriceMin", formatPrice(*req.MinPrice))
		}
		if req.MaxPrice != nil {
			q.Set("nPriceMax", formatPrice(*req.MaxPrice))
		}
		if req.Query != "" {
			q.Set("sQuickSearch", "yes")
			q.Set("sName", req.Query)
		}
		if hasCat && cat.ID != "" {
			q.Set("sMakers", cat.ID)
		}
		return f.resolve("results.php3?" + q.Encode()), nil
	}

	if cat.ID != "" {
		return f.resolve(fmt.Sprintf("%s-phones-%s.php", cat.Brand, cat.ID)), nil
	}
	return "", nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (f *Fetcher) resolve(ref string) string {
	u, err := f.base.Parse(ref)
	if err != nil {
		return f.base.String() + ref
	}
	return u.String()
}

// resolveCategory finds a brand's listing page on the makers page.
func (f *Fetcher) resolveCategory(ctx context.Context, brand string) (string, error) {
	makersURL := f.resolve("makers.php3")
	res, err := f.get(ctx, makersURL, observability.KindListing)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return "", &PageError{URL: makersURL, Err: err}
	}

	want := regexp.MustCompile(`(?:^|/)` + regexp.QuoteMeta(brand) + `-phones-\d+\.php$`)
	var found string
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		if want.MatchString(href) {
			found = href
			return false
		}
		return true
	})
	if found == "" {
		return "", models.NewScrapeError(models.ErrCodeInvalidInput, fmt.Sprintf("no listing for brand %q", brand), nil)
	}
	page, _ := url.Parse(res.FinalURL)
	if page == nil {
		page = f.base
	}
	u, err := page.Parse(found)
	if err != nil {
		return "", &PageError{URL: makersURL, Err: err}
	}
	return u.String(), nil
}

// DetailURLs lazily yields absolute, de-duplicated detail page URLs in
// listing order. A yielded non-nil error reports a skipped page; iteration
// goes on when the caller keeps ranging. A listing page that fails counts
// as empty and the walk resumes at the first unvisited numbered page link
// seen so far. Pagination ends when there is no next page, after
// req.MaxPages pages (at least one), after the configured number of
// consecutive pages without new links, or when a page repeats the previous
// page's links.
func (f *Fetcher) DetailURLs(ctx context.Context, req *models.SearchRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		next, err := f.ListingURL(req)
		if err != nil {
			yield("", err)
			return
		}
		if next == "" {
			cat, _ := ParseCategory(req.Category)
			if next, err = f.resolveCategory(ctx, cat.Brand); err != nil {
				yield("", err)
				return
			}
		}

		maxPages := req.MaxPages
		if maxPages <= 0 {
			maxPages = f.src.MaxPages
		}
		maxPages = max(maxPages, 1)
		maxEmpty := max(f.src.MaxEmptyPages, 1)

		seen := make(map[string]struct{})
		visited := make(map[string]struct{})
		var (
			prevFP   uint64
			havePrev bool
			numbered []string
		)
		empty := 0

		for page := 1; ; page++ {
			if page > maxPages {
				slog.Info("pagination stopped: page bound reached", "pages", maxPages)
				return
			}
			if _, dup := visited[next]; dup {
				slog.Info("pagination stopped: next page already visited", "url", next)
				return
			}
			visited[next] = struct{}{}

			lp, err := f.fetchListing(ctx, next)
			if err != nil {
				if !yield("", err) || ctx.Err() != nil {
					return
				}
				havePrev = false
				empty++
				if empty >= maxEmpty {
					slog.Info("pagination stopped: no new devices", "empty_pages", empty)
					return
				}
				failed := next
				if next = firstUnvisited(numbered, visited); next == "" {
					slog.Info("pagination stopped: no way past failed listing page", "url", failed)
					return
				}
				slog.Info("skipping failed listing page", "url", failed, "next", next)
				continue
			}
			if links := f.pageLinks(lp); len(links) > 0 {
				numbered = links
			}

			links := f.deviceLinks(lp)
			fp := simhash.Fingerprint(links)
			if len(links) > 0 && havePrev && simhash.Similar(fp, prevFP, f.src.RepeatThreshold) {
				slog.Info("pagination stopped: listing page repeats the previous one", "url", next)
				return
			}
			prevFP, havePrev = fp, len(links) > 0

			fresh := 0
			for _, link := range links {
				if _, dup := seen[link]; dup {
					continue
				}
				seen[link] = struct{}{}
				fresh++
				if !yield(link, nil) {
					return
				}
			}
			if fresh == 0 {
				empty++
				if empty >= maxEmpty {
					slog.Info("pagination stopped: no new devices", "empty_pages", empty)
					return
				}
			} else {
				empty = 0
			}

			next = f.nextPage(lp)
			if next == "" {
				slog.Info("pagination exhausted", "pages", page, "devices", len(seen))
				return
			}
		}
	}
}

func (f *Fetcher) fetchListing(ctx context.Context, pageURL string) (*listingPage, error) {
	res, err := f.get(ctx, pageURL, observability.KindListing)
	if err != nil {
		return nil, err
	}
	lp, err := f.parseListing(res.HTML, res.FinalURL)
	if err != nil {
		return nil, &PageError{URL: pageURL, Err: err}
	}
	return lp, nil
}
