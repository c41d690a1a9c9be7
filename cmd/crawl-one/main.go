// Command crawl-one runs the proof-of-concept extraction for a single
// subsidiary. The subsidiary key is the only argument (default:
// obb_business); pass -list to see the known keys.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
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
	list := flag.Bool("list", false, "list known subsidiary keys and exit")
	flag.Parse()

	if *list {
		for _, s := range portal.Subsidiaries {
			fmt.Printf("%-32s %s\n", s.Key, s.Name)
		}
		return
	}

	key := "obb_business"
	if flag.NArg() > 0 {
		key = flag.Arg(0)
	}
	sub, ok := portal.ByKey(key)
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown subsidiary %q (use -list to see known keys)\n", key)
		os.Exit(1)
	}

	cfg := config.Load()
	initLogger(cfg.Log)

	slog.Info("single-subsidiary crawl starting",
		"subsidiary", sub.Key, "name", sub.Name,
		"output", cfg.Sink.OutputPath,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg, sub))
}

func run(ctx context.Context, cfg *config.Config, sub portal.Subsidiary) int {
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
	}

	writer, err := sink.OpenCSV(cfg.Sink.OutputPath)
	if err != nil {
		slog.Error("failed to open output dataset", "error", err)
		return 1
	}
	defer writer.Close()

	orch := crawl.NewOrchestrator(walker, writer, cfg.Sink, seedKeys)
	summary, runErr := orch.Run(ctx, []portal.Subsidiary{sub})

	for _, res := range summary.Subsidiaries {
		slog.Info("subsidiary summary",
			"subsidiary", res.SubsidiaryID, "status", res.Status,
			"pages", res.PagesFetched, "records", res.Records,
			"duplicates", res.Duplicates, "malformed", res.MalformedRows,
		)
	}
	slog.Info("run summary",
		"uniqueRecords", summary.UniqueRecords,
		"duplicatesSkipped", summary.DuplicatesSkipped,
	)

	switch {
	case runErr != nil && models.HasCode(runErr, models.ErrCodePersistence):
		slog.Error("run halted: could not persist progress", "error", runErr)
		return 1
	case runErr != nil && errors.Is(runErr, context.Canceled):
		slog.Warn("run canceled; flushed data remains valid")
		return 1
	case runErr != nil:
		slog.Error("run aborted", "error", runErr)
		return 1
	case summary.Failed() == len(summary.Subsidiaries):
		slog.Error("subsidiary yielded no data")
		return 1
	}
	return 0
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
