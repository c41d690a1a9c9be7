// Command crawl runs the full multi-subsidiary extraction: every configured
// subsidiary is walked to exhaustion (or its failure point) and all novel
// records are appended to the output dataset.
//
// Exit code 0 means the run completed, even with partial per-subsidiary
// failures; non-zero means a configuration error, a persistence failure,
// or a run in which no subsidiary was processed successfully.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/crawl"
	"github.com/noahcordero1/multi-subsidiary-scraper/engine"
	"github.com/noahcordero1/multi-subsidiary-scraper/extract"
	"github.com/noahcordero1/multi-subsidiary-scraper/fetcher"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
	"github.com/noahcordero1/multi-subsidiary-scraper/portal"
	"github.com/noahcordero1/multi-subsidiary-scraper/sink"
)

func main() {
	cfg := config.Load()
	initLogger(cfg.Log)

	slog.Info("multi-subsidiary crawl starting",
		"subsidiaries", len(portal.Subsidiaries),
		"output", cfg.Sink.OutputPath,
		"batchSize", cfg.Sink.BatchSize,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, portal.Subsidiaries))
}

// run wires the pipeline and executes one crawl. Split from main so the
// deferred cleanups fire before os.Exit.
func run(ctx context.Context, cfg *config.Config, subs []portal.Subsidiary) int {
	browserEng := engine.NewBrowserEngine(cfg.Browser, cfg.Fetch.Timeout)
	defer browserEng.Close()

	httpEng := engine.NewHTTPEngine(cfg.Browser.Proxy)
	pageFetcher := fetcher.New(httpEng, browserEng, cfg.Fetch)
	extractor := extract.New(cfg.Crawl.MalformedRowThreshold)
	walker := crawl.NewWalker(pageFetcher, extractor, cfg.Crawl)

	var seedKeys map[string]struct{}
	if cfg.Sink.Incremental {
		keys, err := sink.LoadKeys(cfg.Sink.OutputPath)
		if err != nil {
			slog.Error("failed to load existing dataset for incremental run", "error", err)
			return 1
		}
		seedKeys = keys
		if len(keys) > 0 {
			slog.Info("incremental run", "existingRecords", len(keys))
		}
	}

	writer, err := sink.OpenCSV(cfg.Sink.OutputPath)
	if err != nil {
		slog.Error("failed to open output dataset", "error", err)
		return 1
	}
	defer writer.Close()

	orch := crawl.NewOrchestrator(walker, writer, cfg.Sink, seedKeys)
	summary, runErr := orch.Run(ctx, subs)
	logSummary(summary)

	switch {
	case runErr != nil && models.HasCode(runErr, models.ErrCodePersistence):
		slog.Error("run halted: could not persist progress", "error", runErr)
		return 1
	case runErr != nil && errors.Is(runErr, context.Canceled):
		slog.Warn("run canceled; flushed data remains valid", "error", runErr)
		return 1
	case runErr != nil:
		slog.Error("run aborted", "error", runErr)
		return 1
	case len(summary.Subsidiaries) > 0 && summary.Failed() == len(summary.Subsidiaries):
		slog.Error("total failure: no subsidiary was processed successfully")
		return 1
	}
	return 0
}

func logSummary(s *models.RunSummary) {
	for _, sub := range s.Subsidiaries {
		attrs := []any{
			"subsidiary", sub.SubsidiaryID,
			"status", sub.Status,
			"pages", sub.PagesFetched,
			"records", sub.Records,
			"duplicates", sub.Duplicates,
			"malformed", sub.MalformedRows,
		}
		if sub.Err != nil {
			attrs = append(attrs, "lastGoodPage", sub.LastGoodPage, "error", sub.Err)
		}
		slog.Info("subsidiary summary", attrs...)
	}
	slog.Info("run summary",
		"uniqueRecords", s.UniqueRecords,
		"duplicatesSkipped", s.DuplicatesSkipped,
		"malformedRows", s.MalformedRows,
		"completed", s.Completed(),
		"partial", s.Partial(),
		"failed", s.Failed(),
	)
}

// initLogger configures slog based on the Log config.
func initLogger(cfg config.Log) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
