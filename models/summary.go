package models

// SubsidiaryStatus classifies how far a subsidiary's walk got.
type SubsidiaryStatus string

const (
	// StatusCompleted means the listing was walked to its natural end.
	StatusCompleted SubsidiaryStatus = "completed"

	// StatusPartial means some pages were extracted before the walk gave
	// up (too many consecutive page failures or the sanity-check maximum).
	StatusPartial SubsidiaryStatus = "partial"

	// StatusFailed means no page of the subsidiary yielded records.
	StatusFailed SubsidiaryStatus = "failed"
)

// SubsidiaryResult summarises one subsidiary's walk.
type SubsidiaryResult struct {
	SubsidiaryID  string
	Status        SubsidiaryStatus
	PagesFetched  int
	LastGoodPage  int
	Records       int
	Duplicates    int
	MalformedRows int
	Err           error // non-nil for partial/failed walks
}

// RunSummary is the end-of-run report for one crawl invocation.
type RunSummary struct {
	Subsidiaries []SubsidiaryResult

	UniqueRecords     int
	DuplicatesSkipped int
	MalformedRows     int
}

// Completed counts subsidiaries walked to exhaustion.
func (s *RunSummary) Completed() int { return s.countStatus(StatusCompleted) }

// Partial counts subsidiaries with partial results.
func (s *RunSummary) Partial() int { return s.countStatus(StatusPartial) }

// Failed counts subsidiaries that yielded nothing.
func (s *RunSummary) Failed() int { return s.countStatus(StatusFailed) }

func (s *RunSummary) countStatus(status SubsidiaryStatus) int {
	n := 0
	for _, sub := range s.Subsidiaries {
		if sub.Status == status {
			n++
		}
	}
	return n
}
