package crawl

import (
	"context"
	"errors"
	"testing"

	"github.com/noahcordero1/multi-subsidiary-scraper/config"
	"github.com/noahcordero1/multi-subsidiary-scraper/extract"
	"github.com/noahcordero1/multi-subsidiary-scraper/models"
	"github.com/noahcordero1/multi-subsidiary-scraper/portal"
)

// memorySink records flushes in memory and can be scripted to fail.
type memorySink struct {
	flushes   [][]models.ContractRecord
	failAfter int // successful flushes allowed before failing; -1 = never fail
}

func newMemorySink() *memorySink { return &memorySink{failAfter: -1} }

func (s *memorySink) Flush(records []models.ContractRecord) error {
	if s.failAfter >= 0 && len(s.flushes) >= s.failAfter {
		return errors.New("disk full")
	}
	batch := make([]models.ContractRecord, len(records))
	copy(batch, records)
	s.flushes = append(s.flushes, batch)
	return nil
}

func (s *memorySink) total() int {
	n := 0
	for _, f := range s.flushes {
		n += len(f)
	}
	return n
}

func (s *memorySink) keys() map[string]struct{} {
	keys := make(map[string]struct{})
	for _, f := range s.flushes {
		for i := range f {
			keys[f[i].DedupKey()] = struct{}{}
		}
	}
	return keys
}

func testSinkConfig(batchSize int) config.Sink {
	return config.Sink{BatchSize: batchSize, FlushRetries: 1}
}

func newTestOrchestrator(f *fakeFetcher, s BatchSink, sinkCfg config.Sink, seed map[string]struct{}) *Orchestrator {
	w := NewWalker(f, extract.New(0.5), testCrawlConfig())
	return NewOrchestrator(w, s, sinkCfg, seed)
}

func fixturePages() map[int]string {
	return map[int]string{
		1: listingHTML(1, 3),
		2: listingHTML(2, 3),
	}
}

func TestRun_DedupIdempotence(t *testing.T) {
	sink1 := newMemorySink()
	orch1 := newTestOrchestrator(&fakeFetcher{pages: fixturePages()}, sink1, testSinkConfig(100), nil)
	sum1, err := orch1.Run(context.Background(), []portal.Subsidiary{testSub})
	if err != nil {
		t.Fatalf("first run error: %v", err)
	}
	if sum1.UniqueRecords != 6 {
		t.Fatalf("first run unique = %d, want 6", sum1.UniqueRecords)
	}

	// Second run over the same fixtures, seeded with what is persisted.
	sink2 := newMemorySink()
	orch2 := newTestOrchestrator(&fakeFetcher{pages: fixturePages()}, sink2, testSinkConfig(100), sink1.keys())
	sum2, err := orch2.Run(context.Background(), []portal.Subsidiary{testSub})
	if err != nil {
		t.Fatalf("second run error: %v", err)
	}

	if sum2.UniqueRecords != 0 {
		t.Errorf("re-ingest added %d records, want 0", sum2.UniqueRecords)
	}
	if sum2.DuplicatesSkipped != 6 {
		t.Errorf("duplicates skipped = %d, want 6", sum2.DuplicatesSkipped)
	}
	if sink2.total() != 0 {
		t.Errorf("second run flushed %d records, want 0", sink2.total())
	}
}

func TestRun_DuplicatesAcrossPagesCollapse(t *testing.T) {
	// Pages 1 and 2 carry the identical listing (pagination overlap).
	pages := map[int]string{
		1: listingHTML(7, 3),
		2: listingHTML(7, 3),
	}
	s := newMemorySink()
	orch := newTestOrchestrator(&fakeFetcher{pages: pages}, s, testSinkConfig(100), nil)

	sum, err := orch.Run(context.Background(), []portal.Subsidiary{testSub})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.UniqueRecords != 3 {
		t.Errorf("unique = %d, want 3", sum.UniqueRecords)
	}
	if sum.DuplicatesSkipped != 3 {
		t.Errorf("duplicates = %d, want 3", sum.DuplicatesSkipped)
	}
}

func TestRun_SubsidiaryIsolation(t *testing.T) {
	failing := portal.Subsidiary{Key: "failing_sub", Name: "Down", BuyerID: "2"}

	// One fetcher serves both subsidiaries: the failing one never succeeds.
	f := &perSubFetcher{
		good:   &fakeFetcher{pages: fixturePages()},
		bad:    &fakeFetcher{alwaysFail: true},
		badKey: failing.Key,
	}
	s := newMemorySink()
	w := NewWalker(f, extract.New(0.5), testCrawlConfig())
	orch := NewOrchestrator(w, s, testSinkConfig(100), nil)

	sum, err := orch.Run(context.Background(), []portal.Subsidiary{failing, testSub})
	if err != nil {
		t.Fatalf("one failing subsidiary must not abort the run: %v", err)
	}

	if sum.Failed() != 1 || sum.Completed() != 1 {
		t.Errorf("failed=%d completed=%d, want 1 and 1", sum.Failed(), sum.Completed())
	}
	if sum.UniqueRecords != 6 {
		t.Errorf("unique = %d, want 6 from the healthy subsidiary", sum.UniqueRecords)
	}
}

// perSubFetcher routes fetches to a healthy or failing fake per subsidiary.
type perSubFetcher struct {
	good   *fakeFetcher
	bad    *fakeFetcher
	badKey string
}

func (f *perSubFetcher) FetchPage(ctx context.Context, sub portal.Subsidiary, page int) (*models.RawPage, error) {
	if sub.Key == f.badKey {
		return f.bad.FetchPage(ctx, sub, page)
	}
	return f.good.FetchPage(ctx, sub, page)
}

func TestRun_BatchFlushBoundaries(t *testing.T) {
	// 3 pages x 40 records = 120 unique records, batch size 50:
	// two full flushes during the walk and a 20-record remainder at run end.
	pages := map[int]string{
		1: listingHTML(1, 40),
		2: listingHTML(2, 40),
		3: listingHTML(3, 40),
	}
	s := newMemorySink()
	orch := newTestOrchestrator(&fakeFetcher{pages: pages}, s, testSinkConfig(50), nil)

	sum, err := orch.Run(context.Background(), []portal.Subsidiary{testSub})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if sum.UniqueRecords != 120 {
		t.Fatalf("unique = %d, want 120", sum.UniqueRecords)
	}

	wantSizes := []int{50, 50, 20}
	if len(s.flushes) != len(wantSizes) {
		t.Fatalf("flush count = %d, want %d", len(s.flushes), len(wantSizes))
	}
	for i, want := range wantSizes {
		if len(s.flushes[i]) != want {
			t.Errorf("flush[%d] = %d records, want %d", i, len(s.flushes[i]), want)
		}
	}
}

func TestRun_PersistenceFailureHaltsAfterFirstFlush(t *testing.T) {
	pages := map[int]string{
		1: listingHTML(1, 40),
		2: listingHTML(2, 40),
		3: listingHTML(3, 40),
	}
	s := newMemorySink()
	s.failAfter = 1 // first flush lands, everything after fails
	orch := newTestOrchestrator(&fakeFetcher{pages: pages}, s, testSinkConfig(50), nil)

	_, err := orch.Run(context.Background(), []portal.Subsidiary{testSub})
	if err == nil {
		t.Fatal("expected persistence failure to halt the run")
	}
	if !models.HasCode(err, models.ErrCodePersistence) {
		t.Errorf("error lacks PERSISTENCE_FAILED code: %v", err)
	}

	// Exactly the first batch is durable.
	if s.total() != 50 {
		t.Errorf("durable records = %d, want 50", s.total())
	}
}

func TestRun_FlushRetrySucceeds(t *testing.T) {
	pages := map[int]string{1: listingHTML(1, 5)}
	s := &flakySink{failFirst: 1}
	w := NewWalker(&fakeFetcher{pages: pages}, extract.New(0.5), testCrawlConfig())
	orch := NewOrchestrator(w, s, config.Sink{BatchSize: 100, FlushRetries: 2}, nil)

	sum, err := orch.Run(context.Background(), []portal.Subsidiary{testSub})
	if err != nil {
		t.Fatalf("Run error after retryable flush failure: %v", err)
	}
	if sum.UniqueRecords != 5 {
		t.Errorf("unique = %d, want 5", sum.UniqueRecords)
	}
	if s.flushed != 5 {
		t.Errorf("flushed = %d, want 5", s.flushed)
	}
}

// flakySink fails its first failFirst flush attempts, then succeeds.
type flakySink struct {
	failFirst int
	attempts  int
	flushed   int
}

func (s *flakySink) Flush(records []models.ContractRecord) error {
	s.attempts++
	if s.attempts <= s.failFirst {
		return errors.New("transient disk error")
	}
	s.flushed += len(records)
	return nil
}
