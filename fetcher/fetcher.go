// Package fetcher retrieves single listing pages from the portal. It owns
// retry/backoff and the escalation from the fast HTTP engine to the
// headless browser when the listing is not server-rendered.
package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/engine"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
	"github.com/noahcordero1/multi-subsidiary-scraper/portal"
)

// Fetcher retrieves one listing page per call. It never writes to the
// dataset; its only side effect is the network request.
type Fetcher struct {
	http    engine.Engine
	browser engine.Engine
	cfg     config.Fetch

	// preferBrowser sticks once the HTTP engine proves insufficient, so
	// later pages skip the doomed fast path. The crawl is sequential, so
	// no locking is needed.
	preferBrowser bool
}

// New creates a Fetcher escalating from httpEng to browserEng.
func New(httpEng, browserEng engine.Engine, cfg config.Fetch) *Fetcher {
	return &Fetcher{http: httpEng, browser: browserEng, cfg: cfg}
}

// FetchPage retrieves the given 1-based listing page of a subsidiary.
// Transient failures are retried with exponential backoff up to the
// configured retry ceiling; exhausting the ceiling yields a
// TRANSIENT_FETCH error and the caller decides whether to advance or
// abort the subsidiary.
func (f *Fetcher) FetchPage(ctx context.Context, sub portal.Subsidiary, pageIndex int) (*models.RawPage, error) {
	url := sub.PageURL(pageIndex)

	var lastErr error
	for attempt := 1; attempt <= f.cfg.RetryCeiling; attempt++ {
		if attempt > 1 {
			backoff := f.cfg.BackoffBase << (attempt - 2)
			slog.Debug("retrying page fetch",
				"subsidiary", sub.Key, "page", pageIndex,
				"attempt", attempt, "backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, models.NewCrawlError(models.ErrCodeFetchTimeout, "fetch canceled during backoff", ctx.Err())
			case <-time.After(backoff):
			}
		}

		res, err := f.fetchOnce(ctx, url)
		if err == nil {
			return &models.RawPage{
				SubsidiaryID: sub.Key,
				PageIndex:    pageIndex,
				HTML:         res.HTML,
				EngineUsed:   res.EngineName,
			}, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, models.NewCrawlError(models.ErrCodeFetchTimeout, "fetch canceled", ctx.Err())
		}
		slog.Warn("page fetch attempt failed",
			"subsidiary", sub.Key, "page", pageIndex,
			"attempt", attempt, "error", err,
		)
	}

	return nil, models.NewCrawlError(
		models.ErrCodeTransientFetch,
		fmt.Sprintf("page %d of %s failed after %d attempts", pageIndex, sub.Key, f.cfg.RetryCeiling),
		lastErr,
	)
}

// fetchOnce performs a single attempt: HTTP first, browser when the static
// markup lacks the rendered listing.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (*engine.Result, error) {
	if !f.preferBrowser {
		httpCtx, cancel := context.WithTimeout(ctx, f.cfg.HTTPTimeout)
		res, err := f.http.Fetch(httpCtx, url)
		cancel()
		if err == nil && listingRendered(res.HTML) {
			return res, nil
		}
		if err != nil {
			slog.Debug("http engine failed, escalating to browser", "url", url, "error", err)
		} else {
			slog.Debug("listing not rendered in static markup, escalating to browser", "url", url)
		}
		f.preferBrowser = true
	}

	browserCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()
	return f.browser.Fetch(browserCtx, url)
}
