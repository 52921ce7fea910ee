package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/use-agent/smartpick/config"
	"github.com/use-agent/smartpick/engine"
	"github.com/use-agent/smartpick/fetcher"
	"github.com/use-agent/smartpick/models"
)

func fptr(v float64) *float64 { return &v }

func detailHTML(name, price string) string {
	return fmt.Sprintf(`<html><body><h1 class="specs-phone-name-title">%s</h1>
<div id="specs-list"><table>
<tr><th>Misc</th><td class="ttl">Price</td><td class="nfo" data-spec="price">%s</td></tr>
</table></div></body></html>`, name, price)
}

type fakeFetcher struct {
	listing    []string
	listingErr error
	pages      map[string]string
	stats      fetcher.Stats
	closed     bool
}

func (f *fakeFetcher) DetailURLs(_ context.Context, _ *models.SearchRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f.stats.Attempts++
		if f.listingErr != nil {
			f.stats.Failures++
			yield("", &fetcher.PageError{URL: "https://site.test/list.php", Err: f.listingErr})
			return
		}
		f.stats.PagesFetched++
		for _, u := range f.listing {
			if !yield(u, nil) {
				return
			}
		}
	}
}

func (f *fakeFetcher) Page(_ context.Context, pageURL string) (string, error) {
	f.stats.Attempts++
	html, ok := f.pages[pageURL]
	if !ok {
		f.stats.Failures++
		return "", &fetcher.PageError{URL: pageURL, Err: errors.New("connection reset by peer")}
	}
	f.stats.DetailsFetched++
	return html, nil
}

func (f *fakeFetcher) Stats() fetcher.Stats { return f.stats }

func (f *fakeFetcher) Close() { f.closed = true }

func testConfig() *config.Config {
	return &config.Config{
		Source: config.SourceConfig{MaxPages: 5, MaxEmptyPages: 2, MaxDevices: 40},
		Fetch:  config.FetchConfig{Mode: models.FetchModeHTTP},
	}
}

func newWithFake(f *fakeFetcher) *Pipeline {
	return New(testConfig(), WithFetcherFactory(func(string) (Fetcher, error) { return f, nil }))
}

func pricedSite() *fakeFetcher {
	return &fakeFetcher{
		listing: []string{"https://site.test/a.php", "https://site.test/b.php", "https://site.test/c.php", "https://site.test/d.php"},
		pages: map[string]string{
			"https://site.test/a.php": detailHTML("Samsung Galaxy A15", "About 150 EUR"),
			"https://site.test/b.php": detailHTML("Xiaomi Redmi Note 13", "$ 249.99 / € 230.00"),
			"https://site.test/c.php": detailHTML("Apple iPhone 16", "About 950 EUR"),
			"https://site.test/d.php": detailHTML("Nothing Phone (3a)", "Coming soon"),
		},
	}
}

func names(devs []models.Device) []string {
	out := make([]string, len(devs))
	for i, d := range devs {
		out[i] = d.Name
	}
	return out
}

func TestRun_BudgetFilter(t *testing.T) {
	f := pricedSite()
	res, err := newWithFake(f).Run(context.Background(), models.SearchRequest{MinPrice: fptr(100), MaxPrice: fptr(300)})

	require.NoError(t, err)
	require.Equal(t, []string{"Samsung Galaxy A15", "Xiaomi Redmi Note 13"}, names(res.Devices))
	for _, d := range res.Devices {
		require.NotNil(t, d.PriceValue)
		require.GreaterOrEqual(t, *d.PriceValue, 100.0)
		require.LessOrEqual(t, *d.PriceValue, 300.0)
	}
	require.Empty(t, res.Failures)
	require.Empty(t, res.Condition)
	require.Equal(t, 4, res.DetailsFetched)
	require.NotEmpty(t, res.ID)
	require.True(t, f.closed)
}

func TestRun_IncludeUnpriced(t *testing.T) {
	res, err := newWithFake(pricedSite()).Run(context.Background(), models.SearchRequest{
		MaxPrice: fptr(300), IncludeUnpriced: true,
	})

	require.NoError(t, err)
	require.Equal(t, []string{"Samsung Galaxy A15", "Xiaomi Redmi Note 13", "Nothing Phone (3a)"}, names(res.Devices))
}

func TestRun_UnfilteredReturnsEverything(t *testing.T) {
	res, err := newWithFake(pricedSite()).Run(context.Background(), models.SearchRequest{Query: "phone"})

	require.NoError(t, err)
	require.Len(t, res.Devices, 4)
}

func TestRun_SkipsFailedItems(t *testing.T) {
	f := pricedSite()
	f.listing = []string{
		"https://site.test/a.php",
		"https://site.test/gone.php",
		"https://site.test/b.php",
		"https://site.test/c.php",
		"https://site.test/d.php",
	}

	res, err := newWithFake(f).Run(context.Background(), models.SearchRequest{Query: "phone"})

	require.NoError(t, err)
	require.Len(t, res.Devices, 4)
	require.Equal(t, []models.Failure{{
		URL:     "https://site.test/gone.php",
		Kind:    models.FailureNetwork,
		Message: "connection reset by peer",
	}}, res.Failures)
	require.Empty(t, res.Condition)
}

func TestRun_NoConnectivity(t *testing.T) {
	f := &fakeFetcher{listingErr: errors.New("dial tcp: no route to host")}

	res, err := newWithFake(f).Run(context.Background(), models.SearchRequest{MaxPrice: fptr(300)})

	require.NoError(t, err)
	require.Equal(t, models.ConditionNoConnectivity, res.Condition)
	require.Empty(t, res.Devices)
	require.Len(t, res.Failures, 1)
	require.True(t, f.closed)
}

func TestRun_AllDetailsFailed(t *testing.T) {
	f := &fakeFetcher{listing: []string{"https://site.test/x.php"}, pages: map[string]string{}}

	res, err := newWithFake(f).Run(context.Background(), models.SearchRequest{Query: "x"})

	require.NoError(t, err)
	// The listing page answered, so connectivity is not lost.
	require.Empty(t, res.Condition)
	require.Empty(t, res.Devices)
	require.Len(t, res.Failures, 1)
}

func TestRun_MaxDevices(t *testing.T) {
	f := pricedSite()
	res, err := newWithFake(f).Run(context.Background(), models.SearchRequest{Query: "phone", MaxDevices: 2})

	require.NoError(t, err)
	require.Len(t, res.Devices, 2)
	require.Equal(t, 2, f.stats.DetailsFetched)
}

func TestRun_InvalidRequest(t *testing.T) {
	f := pricedSite()
	_, err := newWithFake(f).Run(context.Background(), models.SearchRequest{MinPrice: fptr(500), MaxPrice: fptr(100)})

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	require.Equal(t, models.ErrCodeInvalidInput, se.Code)
	require.Zero(t, f.stats.Attempts)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := pricedSite()
	_, err := newWithFake(f).Run(ctx, models.SearchRequest{Query: "phone"})
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, f.closed)
}

func TestFilter(t *testing.T) {
	devs := []models.Device{
		{Name: "Samsung Galaxy A55", Brand: "Samsung", PriceValue: fptr(420)},
		{Name: "Samsung Galaxy A15", Brand: "Samsung", PriceValue: fptr(150)},
		{Name: "Xiaomi Poco X6", Brand: "Xiaomi", PriceValue: fptr(250)},
		{Name: "Galaxy", PriceValue: fptr(200)},
		{Name: "Samsung Galaxy Z", Brand: "Samsung"},
	}

	got := Filter(devs, &models.SearchRequest{Category: "samsung-9"})
	require.Equal(t, []string{"Samsung Galaxy A55", "Samsung Galaxy A15", "Galaxy", "Samsung Galaxy Z"}, names(got))

	got = Filter(devs, &models.SearchRequest{Category: "samsung", MaxPrice: fptr(300)})
	require.Equal(t, []string{"Samsung Galaxy A15", "Galaxy"}, names(got))

	got = Filter(devs, &models.SearchRequest{MinPrice: fptr(420), MaxPrice: fptr(420)})
	require.Equal(t, []string{"Samsung Galaxy A55"}, names(got))

	require.Len(t, Filter(devs, &models.SearchRequest{Query: "x"}), len(devs))
}

func TestDevice_InvalidURL(t *testing.T) {
	_, err := newWithFake(pricedSite()).Device(context.Background(), "ftp://site.test/a", "")
	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	require.Equal(t, models.ErrCodeInvalidInput, se.Code)
}

func TestDevice(t *testing.T) {
	dev, err := newWithFake(pricedSite()).Device(context.Background(), "https://site.test/a.php", "")
	require.NoError(t, err)
	require.Equal(t, "Samsung Galaxy A15", dev.Name)
	require.Equal(t, "https://site.test/a.php", dev.URL)

	_, err = newWithFake(pricedSite()).Device(context.Background(), "https://site.test/missing.php", "")
	require.Error(t, err)
}

func TestRun_EndToEnd(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/results.php3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<div class="makers"><ul>
			<li><a href="cheap-1.php">Cheap</a></li>
			<li><a href="pricey-2.php">Pricey</a></li>
			<li><a href="down-3.php">Down</a></li>
		</ul></div>`))
	})
	mux.HandleFunc("/cheap-1.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailHTML("Motorola Moto G54", "About 180 EUR")))
	})
	mux.HandleFunc("/pricey-2.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailHTML("Google Pixel 9 Pro", "About 1100 EUR")))
	})
	mux.HandleFunc("/down-3.php", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newHTTPPipeline(srv.URL, 5*time.Second)

	res, err := p.Run(context.Background(), models.SearchRequest{MinPrice: fptr(100), MaxPrice: fptr(300)})
	require.NoError(t, err)
	require.Equal(t, []string{"Motorola Moto G54"}, names(res.Devices))
	require.Len(t, res.Failures, 1)
	require.Equal(t, srv.URL+"/down-3.php", res.Failures[0].URL)
	require.Equal(t, models.FailureNetwork, res.Failures[0].Kind)
	require.Equal(t, 1, res.PagesFetched)
	require.Equal(t, 2, res.DetailsFetched)
}

// newHTTPPipeline runs against baseURL with a real HTTP fetcher.
func newHTTPPipeline(baseURL string, timeout time.Duration) *Pipeline {
	cfg := testConfig()
	cfg.Source.BaseURL = baseURL
	cfg.Source.ListingLinkSelector = ".makers ul li a[href]"
	cfg.Fetch.Timeout = timeout

	return New(cfg, WithFetcherFactory(func(string) (Fetcher, error) {
		httpEng, err := engine.NewHTTPEngine("smartpick-test", "")
		if err != nil {
			return nil, err
		}
		return fetcher.NewWithEngines(cfg.Source, cfg.Fetch, httpEng)
	}))
}

func TestRun_SlowDetailPageTimesOut(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/results.php3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<div class="makers"><ul>
			<li><a href="first-1.php">First</a></li>
			<li><a href="slow-2.php">Slow</a></li>
			<li><a href="last-3.php">Last</a></li>
		</ul></div>`))
	})
	mux.HandleFunc("/first-1.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailHTML("Motorola Moto G54", "About 180 EUR")))
	})
	mux.HandleFunc("/slow-2.php", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(300 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailHTML("Sony Xperia 10 VI", "About 200 EUR")))
	})
	mux.HandleFunc("/last-3.php", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(detailHTML("Nokia G42", "About 150 EUR")))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := newHTTPPipeline(srv.URL, 50*time.Millisecond).Run(context.Background(),
		models.SearchRequest{MaxPrice: fptr(300)})

	require.NoError(t, err)
	require.Equal(t, []string{"Motorola Moto G54", "Nokia G42"}, names(res.Devices))
	require.Len(t, res.Failures, 1)
	require.Equal(t, srv.URL+"/slow-2.php", res.Failures[0].URL)
	require.Equal(t, models.FailureNetwork, res.Failures[0].Kind)
	require.Contains(t, res.Failures[0].Message, models.ErrCodeTimeout)
	require.Empty(t, res.Condition)
}

func TestRun_UnknownBrand(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/makers.php3", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<table><tr><td><a href="acer-phones-59.php">Acer</a></td></tr></table>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newHTTPPipeline(srv.URL, 5*time.Second).Run(context.Background(),
		models.SearchRequest{Category: "nokia"})

	var se *models.ScrapeError
	require.True(t, errors.As(err, &se))
	require.Equal(t, models.ErrCodeInvalidInput, se.Code)
	var pe *fetcher.PageError
	require.False(t, errors.As(err, &pe))
}
