// Package observability holds the Prometheus collectors shared by the
// fetcher, the pipeline and the API.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Page kinds used as the "kind" label.
const (
	KindListing = "listing"
	KindDetail  = "detail"
)

var (
	// PagesFetched counts page requests by kind, engine and outcome.
	PagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "pages_fetched_total",
		Help:      "Listing and detail page requests by outcome.",
	}, []string{"kind", "engine", "outcome"})

	// FetchDuration observes page request latency by kind.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartpick",
		Name:      "fetch_duration_seconds",
		Help:      "Page request latency.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 9),
	}, []string{"kind"})

	// Failures counts skipped pages and items by failure kind.
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "failures_total",
		Help:      "Skipped pages and items by failure kind.",
	}, []string{"kind"})

	// MissingFields counts detail pages lacking a field.
	MissingFields = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "missing_fields_total",
		Help:      "Detail pages on which a field could not be located.",
	}, []string{"field"})

	// DevicesReturned counts records returned after filtering.
	DevicesReturned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "devices_returned_total",
		Help:      "Device records returned to callers.",
	})

	// Runs counts pipeline runs by condition ("ok" or the reported condition).
	Runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "runs_total",
		Help:      "Pipeline runs by condition.",
	}, []string{"condition"})

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartpick",
		Name:      "http_requests_total",
		Help:      "API requests by route and status.",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes API request latency by route.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartpick",
		Name:      "http_request_duration_seconds",
		Help:      "API request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)
