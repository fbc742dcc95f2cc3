package audit

import (
	"context"
	"time"
)

// Fetcher retrieves one URL's content plus response metadata. Failures
// never surface as Go errors; they are classified into FetchResult.Err.
type Fetcher interface {
	Fetch(ctx context.Context, url string) FetchResult
}

// Discoverer returns an ordered list of same-site page URLs to analyze,
// at most maxPages long.
type Discoverer interface {
	Discover(ctx context.Context, rootURL string, maxPages int) ([]string, error)
}

// PageAnalyzer runs the rule battery over one fetched page.
type PageAnalyzer interface {
	Analyze(ctx context.Context, pageURL string, fetched FetchResult) (map[Category][]Issue, error)
}

// JobStore persists audit job metadata.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string, counters Counters) error
	GetJob(ctx context.Context, jobID string) (Job, error)
}

// ReportStore persists completed audit reports.
type ReportStore interface {
	SaveReport(ctx context.Context, jobID string, report Report) error
	GetReport(ctx context.Context, jobID string) (Report, error)
}

// Queue provides enqueue/dequeue semantics for audit jobs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces audit job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
