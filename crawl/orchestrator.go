package crawl

import (
	"context"
	"log/slog"
	"time"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/extract"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
	"github.com/noahcordero1/multi-subsidiary-scraper/portal"
)

// BatchSink persists one batch of deduplicated records. Implemented by
// sink.CSVWriter.
type BatchSink interface {
	Flush(records []models.ContractRecord) error
}

// Orchestrator runs the whole crawl: subsidiaries in configured order,
// cross-subsidiary dedup, bounded batch flushes.
type Orchestrator struct {
	walker *Walker
	sink   BatchSink
	cfg    config.Sink

	// seedKeys are dedup keys of records already persisted from earlier
	// runs (incremental mode). Copied into each run's state, so Run stays
	// re-entrant.
	seedKeys map[string]struct{}
}

// crawlState is the per-run mutable state. It lives exactly as long as one
// Run invocation and is mutated only between page completions.
type crawlState struct {
	seen  map[string]struct{}
	batch []models.ContractRecord

	unique     int
	duplicates int
}

// NewOrchestrator creates an Orchestrator. seedKeys may be nil.
func NewOrchestrator(walker *Walker, sink BatchSink, cfg config.Sink, seedKeys map[string]struct{}) *Orchestrator {
	return &Orchestrator{walker: walker, sink: sink, cfg: cfg, seedKeys: seedKeys}
}

// Run walks every subsidiary in order and returns the end-of-run summary.
// A subsidiary that fails entirely is logged and skipped; the run only
// aborts on cancellation or on a persistence failure that survived its
// retries (everything already flushed stays intact either way).
func (o *Orchestrator) Run(ctx context.Context, subs []portal.Subsidiary) (*models.RunSummary, error) {
	state := &crawlState{seen: make(map[string]struct{}, len(o.seedKeys))}
	for k := range o.seedKeys {
		state.seen[k] = struct{}{}
	}

	summary := &models.RunSummary{}

	for i, sub := range subs {
		slog.Info("subsidiary starting",
			"subsidiary", sub.Key, "name", sub.Name,
			"position", i+1, "total", len(subs),
		)

		dupsBefore := state.duplicates
		uniqueBefore := state.unique

		res, walkErr := o.walker.Walk(ctx, sub, func(pr *extract.PageResult) error {
			return o.ingest(state, pr)
		})
		res.Duplicates = state.duplicates - dupsBefore
		summary.Subsidiaries = append(summary.Subsidiaries, *res)
		summary.MalformedRows += res.MalformedRows

		if walkErr != nil {
			// Cancellation or a fatal persistence error: stop the run,
			// but flush whatever the batch still holds if we can.
			if !models.HasCode(walkErr, models.ErrCodePersistence) {
				if err := o.flushRemainder(state); err != nil {
					slog.Error("final flush failed during abort", "error", err)
				}
			}
			o.fillSummary(summary, state)
			return summary, walkErr
		}

		slog.Info("subsidiary done",
			"subsidiary", sub.Key, "status", res.Status,
			"pages", res.PagesFetched, "records", res.Records,
			"unique", state.unique-uniqueBefore, "duplicates", res.Duplicates,
		)
	}

	if err := o.flushRemainder(state); err != nil {
		o.fillSummary(summary, state)
		return summary, err
	}

	o.fillSummary(summary, state)
	slog.Info("crawl complete",
		"unique", summary.UniqueRecords,
		"duplicates", summary.DuplicatesSkipped,
		"malformed", summary.MalformedRows,
		"completed", summary.Completed(),
		"partial", summary.Partial(),
		"failed", summary.Failed(),
	)
	return summary, nil
}

// ingest deduplicates one page's records against everything seen so far
// this run (and, in incremental mode, everything already persisted), and
// flushes whenever a full batch accumulates.
func (o *Orchestrator) ingest(state *crawlState, pr *extract.PageResult) error {
	for i := range pr.Records {
		rec := pr.Records[i]
		key := rec.DedupKey()
		if _, dup := state.seen[key]; dup {
			state.duplicates++
			continue
		}
		state.seen[key] = struct{}{}
		state.unique++
		state.batch = append(state.batch, rec)

		if len(state.batch) >= o.cfg.BatchSize {
			if err := o.flushBatch(state); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushBatch persists the accumulated batch, retrying before giving up.
// The in-memory batch is cleared only after a successful flush; on final
// failure it stays in memory and the run halts with prior flushes intact.
func (o *Orchestrator) flushBatch(state *crawlState) error {
	var lastErr error
	for attempt := 1; attempt <= o.cfg.FlushRetries; attempt++ {
		if attempt > 1 && o.cfg.FlushRetryDelay > 0 {
			time.Sleep(o.cfg.FlushRetryDelay)
		}
		if err := o.sink.Flush(state.batch); err != nil {
			lastErr = err
			slog.Warn("batch flush failed", "attempt", attempt, "records", len(state.batch), "error", err)
			continue
		}
		slog.Info("batch flushed", "records", len(state.batch))
		state.batch = state.batch[:0]
		return nil
	}
	return models.NewCrawlError(
		models.ErrCodePersistence,
		"batch flush failed after retries, halting run",
		lastErr,
	)
}

func (o *Orchestrator) flushRemainder(state *crawlState) error {
	if len(state.batch) == 0 {
		return nil
	}
	return o.flushBatch(state)
}

func (o *Orchestrator) fillSummary(summary *models.RunSummary, state *crawlState) {
	summary.UniqueRecords = state.unique
	summary.DuplicatesSkipped = state.duplicates
}
