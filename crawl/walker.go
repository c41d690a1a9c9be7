// Package crawl drives the fetch/extract pipeline: the Walker exhausts one
// subsidiary's paginated listing, the Orchestrator sequences subsidiaries,
// deduplicates records, and flushes them in bounded batches.
package crawl

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/extract"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
	"github.com/noahcordero1/multi-subsidiary-scraper/portal"
)

// PageFetcher retrieves one listing page. Implemented by fetcher.Fetcher.
type PageFetcher interface {
	FetchPage(ctx context.Context, sub portal.Subsidiary, pageIndex int) (*models.RawPage, error)
}

// PageExtractor parses one fetched page. Implemented by extract.Extractor.
type PageExtractor interface {
	Page(raw *models.RawPage) (*extract.PageResult, error)
}

// emitFunc receives each extracted page in traversal order. A non-nil
// return aborts the walk; the walker itself never touches the dataset.
type emitFunc func(pr *extract.PageResult) error

// Walker exhausts one subsidiary's listing, page by page, in strictly
// increasing page order.
type Walker struct {
	fetcher   PageFetcher
	extractor PageExtractor
	cfg       config.Crawl
	limiter   *rate.Limiter
}

// NewWalker creates a Walker. The inter-request delay becomes a token
// bucket so consecutive page fetches are spaced out even across
// subsidiary boundaries.
func NewWalker(f PageFetcher, e PageExtractor, cfg config.Crawl) *Walker {
	limit := rate.Inf
	if cfg.InterRequestDelay > 0 {
		limit = rate.Every(cfg.InterRequestDelay)
	}
	return &Walker{
		fetcher:   f,
		extractor: e,
		cfg:       cfg,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Walk traverses the subsidiary's listing from page 1 until end-of-listing
// (no-results marker or a page yielding zero records), the consecutive-
// failure bound, or the pagination sanity ceiling. Each successful page is
// handed to emit in order. The returned result summarises the walk; the
// error is non-nil only when the walk was aborted from outside (context
// cancellation or a fatal emit error).
func (w *Walker) Walk(ctx context.Context, sub portal.Subsidiary, emit emitFunc) (*models.SubsidiaryResult, error) {
	res := &models.SubsidiaryResult{SubsidiaryID: sub.Key}

	page := 1
	consecutiveFailures := 0

	for page <= w.cfg.MaxPagesPerSubsidiary {
		// Cooperative cancellation point and rate discipline: pages are
		// only ever requested after the limiter releases a slot.
		if err := w.pace(ctx, page); err != nil {
			w.finishStatus(res)
			return res, err
		}

		pr, err := w.fetchAndExtract(ctx, sub, page)
		if err != nil {
			if ctx.Err() != nil {
				w.finishStatus(res)
				return res, err
			}

			consecutiveFailures++
			res.Err = err
			slog.Warn("page failed",
				"subsidiary", sub.Key, "page", page,
				"consecutiveFailures", consecutiveFailures, "error", err,
			)
			if consecutiveFailures >= w.cfg.MaxConsecutiveFailures {
				res.Err = models.NewCrawlError(
					models.ErrCodeSubsidiaryExhausted,
					"too many consecutive page failures",
					err,
				)
				slog.Error("subsidiary walk gave up",
					"subsidiary", sub.Key, "lastGoodPage", res.LastGoodPage, "error", err,
				)
				w.finishStatus(res)
				return res, nil
			}
			// A structural failure may be page-specific (e.g. an
			// interstitial); skip that page. Transient failures retry
			// the same index.
			if models.HasCode(err, models.ErrCodeStructuralParse) {
				page++
			}
			continue
		}

		consecutiveFailures = 0
		res.Err = nil
		res.PagesFetched++
		res.MalformedRows += pr.MalformedRows

		if pr.NoResults || len(pr.Records) == 0 {
			slog.Info("end of listing",
				"subsidiary", sub.Key, "page", page, "records", res.Records,
			)
			res.Status = models.StatusCompleted
			res.Err = nil
			return res, nil
		}

		res.LastGoodPage = page
		res.Records += len(pr.Records)
		if err := emit(pr); err != nil {
			w.finishStatus(res)
			return res, err
		}

		page++
	}

	slog.Warn("pagination sanity ceiling reached",
		"subsidiary", sub.Key, "maxPages", w.cfg.MaxPagesPerSubsidiary,
	)
	w.finishStatus(res)
	return res, nil
}

func (w *Walker) fetchAndExtract(ctx context.Context, sub portal.Subsidiary, page int) (*extract.PageResult, error) {
	raw, err := w.fetcher.FetchPage(ctx, sub, page)
	if err != nil {
		return nil, err
	}
	return w.extractor.Page(raw)
}

// pace blocks until the next page fetch is allowed, adding jitter so the
// traffic pattern is less regular. Returns early on cancellation.
func (w *Walker) pace(ctx context.Context, page int) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return models.NewCrawlError(models.ErrCodeFetchTimeout, "crawl canceled", err)
	}
	if page == 1 || w.cfg.JitterFraction <= 0 || w.cfg.InterRequestDelay <= 0 {
		return nil
	}
	maxJitter := time.Duration(w.cfg.JitterFraction * float64(w.cfg.InterRequestDelay))
	if maxJitter <= 0 {
		return nil
	}
	jitter := time.Duration(rand.Int63n(int64(maxJitter)))
	select {
	case <-ctx.Done():
		return models.NewCrawlError(models.ErrCodeFetchTimeout, "crawl canceled", ctx.Err())
	case <-time.After(jitter):
		return nil
	}
}

// finishStatus classifies an interrupted or given-up walk.
func (w *Walker) finishStatus(res *models.SubsidiaryResult) {
	if res.Records > 0 {
		res.Status = models.StatusPartial
	} else {
		res.Status = models.StatusFailed
	}
}
