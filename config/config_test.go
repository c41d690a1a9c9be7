package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if !cfg.Browser.Headless {
		t.Error("headless default = false, want true")
	}
	if cfg.Fetch.RetryCeiling != 3 {
		t.Errorf("retry ceiling = %d, want 3", cfg.Fetch.RetryCeiling)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("fetch timeout = %v, want 30s", cfg.Fetch.Timeout)
	}
	if cfg.Crawl.MaxPagesPerSubsidiary != 500 {
		t.Errorf("max pages = %d, want 500", cfg.Crawl.MaxPagesPerSubsidiary)
	}
	if cfg.Crawl.MalformedRowThreshold != 0.5 {
		t.Errorf("malformed threshold = %v, want 0.5", cfg.Crawl.MalformedRowThreshold)
	}
	if cfg.Sink.OutputPath != "data/contracts.csv" {
		t.Errorf("output path = %q, want data/contracts.csv", cfg.Sink.OutputPath)
	}
	if cfg.Sink.BatchSize != 1000 {
		t.Errorf("batch size = %d, want 1000", cfg.Sink.BatchSize)
	}
	if !cfg.Sink.Incremental {
		t.Error("incremental default = false, want true")
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %s/%s, want info/text", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SCRAPER_HEADLESS", "false")
	t.Setenv("SCRAPER_RETRY_CEILING", "5")
	t.Setenv("SCRAPER_FETCH_TIMEOUT", "45s")
	t.Setenv("SCRAPER_PAGE_JITTER", "0.1")
	t.Setenv("SCRAPER_OUTPUT", "/tmp/out.csv")
	t.Setenv("SCRAPER_INCREMENTAL", "false")

	cfg := Load()

	if cfg.Browser.Headless {
		t.Error("headless override not applied")
	}
	if cfg.Fetch.RetryCeiling != 5 {
		t.Errorf("retry ceiling = %d, want 5", cfg.Fetch.RetryCeiling)
	}
	if cfg.Fetch.Timeout != 45*time.Second {
		t.Errorf("fetch timeout = %v, want 45s", cfg.Fetch.Timeout)
	}
	if cfg.Crawl.JitterFraction != 0.1 {
		t.Errorf("jitter = %v, want 0.1", cfg.Crawl.JitterFraction)
	}
	if cfg.Sink.OutputPath != "/tmp/out.csv" {
		t.Errorf("output path = %q, want /tmp/out.csv", cfg.Sink.OutputPath)
	}
	if cfg.Sink.Incremental {
		t.Error("incremental override not applied")
	}
}

func TestLoadIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("SCRAPER_RETRY_CEILING", "many")
	t.Setenv("SCRAPER_FETCH_TIMEOUT", "soon")
	t.Setenv("SCRAPER_HEADLESS", "maybe")

	cfg := Load()

	if cfg.Fetch.RetryCeiling != 3 {
		t.Errorf("retry ceiling = %d, want default 3", cfg.Fetch.RetryCeiling)
	}
	if cfg.Fetch.Timeout != 30*time.Second {
		t.Errorf("fetch timeout = %v, want default 30s", cfg.Fetch.Timeout)
	}
	if !cfg.Browser.Headless {
		t.Error("headless = false, want default true")
	}
}
