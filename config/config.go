package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all crawler configuration.
type Config struct {
	Browser Browser
	Fetch   Fetch
	Crawl   Crawl
	Sink    Sink
	Log     Log
}

// Browser controls the Rod browser instance used for rendered fetches.
type Browser struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// Bin overrides the Chromium binary path.
	Bin string

	// Proxy is an optional proxy URL for all requests.
	Proxy string
}

// Fetch controls per-page fetching behavior.
type Fetch struct {
	// Timeout is the deadline for one fetch attempt, including the wait
	// for the listing table to render.
	Timeout time.Duration // default: 30s

	// RetryCeiling is the max fetch attempts per page before giving up.
	RetryCeiling int // default: 3

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration // default: 2s

	// HTTPTimeout is the deadline for the fast HTTP engine alone.
	HTTPTimeout time.Duration // default: 10s
}

// Crawl controls pagination traversal.
type Crawl struct {
	// InterRequestDelay is the pause between page fetches, jittered.
	InterRequestDelay time.Duration // default: 1s

	// JitterFraction adds up to this fraction of InterRequestDelay as
	// random extra delay (0 disables jitter).
	JitterFraction float64 // default: 0.25

	// MaxPagesPerSubsidiary is a sanity-check ceiling against infinite
	// pagination caused by a portal bug.
	MaxPagesPerSubsidiary int // default: 500

	// MaxConsecutiveFailures is how many times one page index is retried
	// before the subsidiary is treated as exhausted at that point.
	MaxConsecutiveFailures int // default: 3

	// MalformedRowThreshold is the malformed-row ratio above which a page
	// counts as a structural-parse failure instead of a partial page.
	MalformedRowThreshold float64 // default: 0.5
}

// Sink controls the output dataset.
type Sink struct {
	// OutputPath is the CSV file the crawl appends to.
	OutputPath string // default: "data/contracts.csv"

	// BatchSize is how many newly deduplicated records accumulate before
	// a flush.
	BatchSize int // default: 1000

	// FlushRetries is how often a failed flush is retried before the run
	// halts with everything previously flushed left intact.
	FlushRetries int // default: 3

	// FlushRetryDelay is the pause between flush retry attempts.
	FlushRetryDelay time.Duration // default: 1s

	// Incremental seeds the dedup set from an existing output file so a
	// re-invocation skips records that are already persisted.
	Incremental bool // default: true
}

// Log controls structured logging.
type Log struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "text"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Browser: Browser{
			Headless:  envBoolOr("SCRAPER_HEADLESS", true),
			NoSandbox: envBoolOr("SCRAPER_NO_SANDBOX", false),
			Bin:       os.Getenv("SCRAPER_BROWSER_BIN"),
			Proxy:     os.Getenv("SCRAPER_PROXY"),
		},
		Fetch: Fetch{
			Timeout:      envDurationOr("SCRAPER_FETCH_TIMEOUT", 30*time.Second),
			RetryCeiling: envIntOr("SCRAPER_RETRY_CEILING", 3),
			BackoffBase:  envDurationOr("SCRAPER_BACKOFF_BASE", 2*time.Second),
			HTTPTimeout:  envDurationOr("SCRAPER_HTTP_TIMEOUT", 10*time.Second),
		},
		Crawl: Crawl{
			InterRequestDelay:      envDurationOr("SCRAPER_PAGE_DELAY", 1*time.Second),
			JitterFraction:         envFloatOr("SCRAPER_PAGE_JITTER", 0.25),
			MaxPagesPerSubsidiary:  envIntOr("SCRAPER_MAX_PAGES", 500),
			MaxConsecutiveFailures: envIntOr("SCRAPER_MAX_PAGE_FAILURES", 3),
			MalformedRowThreshold:  envFloatOr("SCRAPER_MALFORMED_THRESHOLD", 0.5),
		},
		Sink: Sink{
			OutputPath:      envOr("SCRAPER_OUTPUT", "data/contracts.csv"),
			BatchSize:       envIntOr("SCRAPER_BATCH_SIZE", 1000),
			FlushRetries:    envIntOr("SCRAPER_FLUSH_RETRIES", 3),
			FlushRetryDelay: envDurationOr("SCRAPER_FLUSH_RETRY_DELAY", 1*time.Second),
			Incremental:     envBoolOr("SCRAPER_INCREMENTAL", true),
		},
		Log: Log{
			Level:  envOr("SCRAPER_LOG_LEVEL", "info"),
			Format: envOr("SCRAPER_LOG_FORMAT", "text"),
		},
	}
}

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
