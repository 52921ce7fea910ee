package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Source    SourceConfig
	Fetch     FetchConfig
	Browser   BrowserConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Webhook   WebhookConfig
	Metrics   MetricsConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// SourceConfig describes the device-database site and the markup cues used
// to walk its listing pages.
type SourceConfig struct {
	// BaseURL is the site root. default: "https://www.gsmarena.com"
	BaseURL string

	// ListingLinkSelector matches device links on a listing page.
	ListingLinkSelector string // default: ".makers ul li a[href]"

	// NextPageSelectors are tried in order to find the next listing page.
	NextPageSelectors []string

	// PageLinkSelector matches the numbered page links of a listing. They
	// are the way past a listing page that failed to load. Empty disables
	// the skip.
	PageLinkSelector string // default: ".nav-pages a[href]"

	// MaxPages bounds the number of listing pages per run.
	MaxPages int // default: 5

	// MaxEmptyPages stops pagination after this many consecutive pages
	// without new device links.
	MaxEmptyPages int // default: 2

	// MaxDevices bounds the number of detail pages per run.
	MaxDevices int // default: 40

	// RepeatThreshold is the simhash distance at or below which two
	// consecutive listing pages count as the same page.
	RepeatThreshold int // default: 0
}

// FetchConfig controls how pages are requested.
type FetchConfig struct {
	// Mode is "http", "browser" or "auto" (http first, browser fallback).
	Mode string // default: "http"

	// Timeout is the per-request deadline.
	Timeout time.Duration // default: 30s

	// Delay is the wait between two consecutive requests of a run.
	Delay time.Duration // default: 1s

	// UserAgent is sent with every plain HTTP request.
	UserAgent string

	// Proxy is an optional proxy URL for both engines.
	Proxy string
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Stealth injects the stealth evasions before navigation.
	Stealth bool // default: true

	// WaitSelector is awaited after navigation when set.
	WaitSelector string // default: "#specs-list, .makers"

	// BlockedResourceTypes lists resource types to block.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: false
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting of the API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 1
	Burst             int     // default: 3
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// WebhookConfig is the optional run-completed delivery target.
type WebhookConfig struct {
	URL     string
	Secret  string
	Retries int // default: 3
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   // default: true
	Path    string // default: "/metrics"
}

// Load reads an optional .env file, then configuration from environment
// variables with sane defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env file", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("SMARTPICK_HOST", "0.0.0.0"),
			Port: envIntOr("SMARTPICK_PORT", 8080),
			Mode: envOr("SMARTPICK_MODE", "release"),
		},
		Source: SourceConfig{
			BaseURL:             strings.TrimRight(envOr("SMARTPICK_SOURCE_URL", "https://www.gsmarena.com"), "/"),
			ListingLinkSelector: envOr("SMARTPICK_LISTING_SELECTOR", ".makers ul li a[href]"),
			NextPageSelectors: envSliceOr("SMARTPICK_NEXT_PAGE_SELECTORS", []string{
				`.nav-pages a.prevnextbutton[title="Next page"]`,
				`a[rel=next]`,
			}),
			PageLinkSelector: envOr("SMARTPICK_PAGE_LINK_SELECTOR", ".nav-pages a[href]"),
			MaxPages:         envIntOr("SMARTPICK_MAX_PAGES", 5),
			MaxEmptyPages:    envIntOr("SMARTPICK_MAX_EMPTY_PAGES", 2),
			MaxDevices:       envIntOr("SMARTPICK_MAX_DEVICES", 40),
			RepeatThreshold:  envIntOr("SMARTPICK_REPEAT_THRESHOLD", 0),
		},
		Fetch: FetchConfig{
			Mode:      envOr("SMARTPICK_FETCH_MODE", "http"),
			Timeout:   envDurationOr("SMARTPICK_FETCH_TIMEOUT", 30*time.Second),
			Delay:     envDurationOr("SMARTPICK_FETCH_DELAY", time.Second),
			UserAgent: envOr("SMARTPICK_USER_AGENT", DefaultUserAgent),
			Proxy:     os.Getenv("SMARTPICK_PROXY"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("SMARTPICK_HEADLESS", true),
			NoSandbox:    envBoolOr("SMARTPICK_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("SMARTPICK_BROWSER_BIN"),
			Stealth:      envBoolOr("SMARTPICK_STEALTH", true),
			WaitSelector: envOr("SMARTPICK_WAIT_SELECTOR", "#specs-list, .makers"),
			BlockedResourceTypes: envSliceOr("SMARTPICK_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SMARTPICK_AUTH_ENABLED", false),
			APIKeys: envSliceOr("SMARTPICK_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SMARTPICK_RATE_RPS", 1.0),
			Burst:             envIntOr("SMARTPICK_RATE_BURST", 3),
		},
		Log: LogConfig{
			Level:  envOr("SMARTPICK_LOG_LEVEL", "info"),
			Format: envOr("SMARTPICK_LOG_FORMAT", "json"),
		},
		Webhook: WebhookConfig{
			URL:     os.Getenv("SMARTPICK_WEBHOOK_URL"),
			Secret:  os.Getenv("SMARTPICK_WEBHOOK_SECRET"),
			Retries: envIntOr("SMARTPICK_WEBHOOK_RETRIES", 3),
		},
		Metrics: MetricsConfig{
			Enabled: envBoolOr("SMARTPICK_METRICS_ENABLED", true),
			Path:    envOr("SMARTPICK_METRICS_PATH", "/metrics"),
		},
	}
}

// Version is reported by the CLI and the health endpoint.
const Version = "0.1.0"

// DefaultUserAgent is a current desktop Chrome user agent.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
