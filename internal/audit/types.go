// Package audit defines core types shared across subsystems.
package audit

import (
	"net/http"
	"time"
)

// Severity grades a finding.
type Severity string

// Severity values attached to issues.
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Category names one of the five fixed check groups.
type Category string

// The fixed check categories. Every PageAnalysis carries all five,
// empty or not.
const (
	CategoryMetaTags    Category = "meta_tags"
	CategoryLinks       Category = "links"
	CategoryHeadings    Category = "headings"
	CategoryImages      Category = "images"
	CategoryPerformance Category = "performance"
)

// Categories returns the fixed category set in report order.
func Categories() []Category {
	return []Category{
		CategoryMetaTags,
		CategoryLinks,
		CategoryHeadings,
		CategoryImages,
		CategoryPerformance,
	}
}

// Issue is a single finding reported by a checker. Issues are immutable
// once produced; order within a category is the checker's scan order.
type Issue struct {
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Selector string   `json:"selector,omitempty"`
	Example  string   `json:"example,omitempty"`
}

// FetchErrorKind classifies why a fetch failed.
type FetchErrorKind string

// Fetch failure classes. Every failure mode maps to exactly one.
const (
	FetchBlocked    FetchErrorKind = "blocked"
	FetchTimeout    FetchErrorKind = "timeout"
	FetchTransport  FetchErrorKind = "transport"
	FetchUnexpected FetchErrorKind = "unexpected"
)

// FetchError carries a classified fetch failure. It is data, not a Go
// error: nothing past the fetch boundary throws.
type FetchError struct {
	Kind    FetchErrorKind `json:"kind"`
	Message string         `json:"message"`
}

func (e *FetchError) String() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// FetchResult is one fetched page's raw materials. After a fetch attempt
// exactly one of {HTML populated, Err populated} holds.
type FetchResult struct {
	URL           string
	HTML          []byte
	Headers       http.Header
	StatusCode    int
	LoadTimeMs    int64
	ContentLength int64
	Err           *FetchError
}

// OK reports whether the fetch produced content.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// PageAnalysis is the per-page outcome: issues by category, or a
// fetch-level error, never both.
type PageAnalysis struct {
	URL           string               `json:"url"`
	Issues        map[Category][]Issue `json:"issues,omitempty"`
	LoadTimeMs    int64                `json:"load_time_ms,omitempty"`
	ContentLength int64                `json:"content_length,omitempty"`
	Error         string               `json:"error,omitempty"`
}

// IssueCount sums the page's findings across categories.
func (p PageAnalysis) IssueCount() int {
	n := 0
	for _, issues := range p.Issues {
		n += len(issues)
	}
	return n
}

// FailedPage records a page whose analysis could not complete.
type FailedPage struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

// Report is the site-level audit result.
type Report struct {
	URL              string           `json:"url"`
	PagesAnalyzed    int              `json:"pages_analyzed"`
	FailedPages      []FailedPage     `json:"failed_pages"`
	TotalIssues      int              `json:"total_issues"`
	IssuesByCategory map[Category]int `json:"issues_by_category"`
	Results          []PageAnalysis   `json:"results"`
	Error            string           `json:"error,omitempty"`
}

// Parameters are the audit knobs accepted from the API.
type Parameters struct {
	URL            string `json:"url"`
	MaxPages       int    `json:"max_pages"`
	MaxConcurrency int    `json:"max_concurrency"`
}

// Limits clamp Parameters to a sane operating range.
type Limits struct {
	DefaultMaxPages       int
	MaxPagesCap           int
	DefaultMaxConcurrency int
	MaxConcurrencyCap     int
}

// DefaultLimits mirrors the API contract: max_pages ≤ 100 default 25,
// max_concurrency in [1, 50] default 10.
func DefaultLimits() Limits {
	return Limits{
		DefaultMaxPages:       25,
		MaxPagesCap:           100,
		DefaultMaxConcurrency: 10,
		MaxConcurrencyCap:     50,
	}
}

// Normalize applies defaults and clamps to the given limits.
func (p Parameters) Normalize(l Limits) Parameters {
	if p.MaxPages <= 0 {
		p.MaxPages = l.DefaultMaxPages
	}
	if p.MaxPages > l.MaxPagesCap {
		p.MaxPages = l.MaxPagesCap
	}
	if p.MaxConcurrency <= 0 {
		p.MaxConcurrency = l.DefaultMaxConcurrency
	}
	if p.MaxConcurrency < 1 {
		p.MaxConcurrency = 1
	}
	if p.MaxConcurrency > l.MaxConcurrencyCap {
		p.MaxConcurrency = l.MaxConcurrencyCap
	}
	return p
}

// JobStatus represents the lifecycle state of an audit job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Job is the metadata persisted for each submitted audit request.
type Job struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	Submitted  time.Time  `json:"submitted_at"`
	Started    *time.Time `json:"started_at,omitempty"`
	Finished   *time.Time `json:"finished_at,omitempty"`
	ErrorText  string     `json:"error_text,omitempty"`
	Parameters Parameters `json:"parameters"`
	Counters   Counters   `json:"counters"`
}

// Counters tracks per-job progress stats.
type Counters struct {
	PagesAnalyzed int `json:"pages_analyzed"`
	PagesFailed   int `json:"pages_failed"`
	IssuesFound   int `json:"issues_found"`
}

// QueueItem wraps a job ready to run.
type QueueItem struct {
	JobID     string
	Params    Parameters
	Submitted int64
}
