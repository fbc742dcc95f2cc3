package auditor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

type fakeDiscoverer struct {
	pages []string
	err   error
	calls atomic.Int64
}

func (f *fakeDiscoverer) Discover(_ context.Context, _ string, maxPages int) ([]string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.pages) > maxPages {
		return f.pages[:maxPages], nil
	}
	return f.pages, nil
}

type fakeFetcher struct {
	results map[string]audit.FetchResult
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) audit.FetchResult {
	if result, ok := f.results[url]; ok {
		return result
	}
	return audit.FetchResult{
		URL:           url,
		HTML:          []byte("<html><body></body></html>"),
		StatusCode:    200,
		LoadTimeMs:    10,
		ContentLength: 26,
	}
}

type fakeAnalyzer struct {
	issuesFor func(url string) map[audit.Category][]audit.Issue
	err       error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, url string, _ audit.FetchResult) (map[audit.Category][]audit.Issue, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.issuesFor != nil {
		return f.issuesFor(url), nil
	}
	return emptyIssues(), nil
}

func emptyIssues() map[audit.Category][]audit.Issue {
	issues := map[audit.Category][]audit.Issue{}
	for _, category := range audit.Categories() {
		issues[category] = []audit.Issue{}
	}
	return issues
}

func fastRetries() Option {
	return WithRetries(
		audit.RetrySpec{MaxRetries: 0, InitialBackoff: time.Millisecond, Scaling: 1},
		audit.RetrySpec{MaxRetries: 1, InitialBackoff: time.Millisecond, Scaling: 1},
	)
}

func TestRunAggregatesIssues(t *testing.T) {
	t.Parallel()

	pages := []string{"https://site.test/", "https://site.test/about"}
	analyzer := &fakeAnalyzer{issuesFor: func(url string) map[audit.Category][]audit.Issue {
		issues := emptyIssues()
		issues[audit.CategoryMetaTags] = []audit.Issue{
			{Severity: audit.SeverityError, Message: "Missing page title"},
		}
		if url == "https://site.test/about" {
			issues[audit.CategoryImages] = []audit.Issue{
				{Severity: audit.SeverityError, Message: "1 image(s) missing alt attribute"},
				{Severity: audit.SeverityInfo, Message: "1 image(s) with empty alt (verify if decorative)"},
			}
		}
		return issues
	}}

	a := New(&fakeDiscoverer{pages: pages}, &fakeFetcher{}, analyzer, zap.NewNop(), fastRetries())
	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/"})
	require.NoError(t, err)

	require.Equal(t, 2, report.PagesAnalyzed)
	require.Empty(t, report.FailedPages)
	require.Equal(t, 4, report.TotalIssues)
	require.Equal(t, 2, report.IssuesByCategory[audit.CategoryMetaTags])
	require.Equal(t, 2, report.IssuesByCategory[audit.CategoryImages])
	require.Equal(t, 0, report.IssuesByCategory[audit.CategoryLinks])

	// Grand total equals the category sum.
	sum := 0
	for _, n := range report.IssuesByCategory {
		sum += n
	}
	require.Equal(t, report.TotalIssues, sum)
	require.Len(t, report.Results, 2)
	require.Empty(t, report.Error)
}

func TestRunFailedFetchBecomesFailedPage(t *testing.T) {
	t.Parallel()

	pages := []string{"https://site.test/", "https://site.test/slow"}
	fetcher := &fakeFetcher{results: map[string]audit.FetchResult{
		"https://site.test/slow": {
			URL: "https://site.test/slow",
			Err: &audit.FetchError{Kind: audit.FetchTimeout, Message: "Timeout: context deadline exceeded"},
		},
	}}

	a := New(&fakeDiscoverer{pages: pages}, fetcher, &fakeAnalyzer{}, zap.NewNop(), fastRetries())
	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/"})
	require.NoError(t, err)

	require.Equal(t, 1, report.PagesAnalyzed)
	require.Len(t, report.FailedPages, 1)
	require.Equal(t, "https://site.test/slow", report.FailedPages[0].URL)
	require.Contains(t, report.FailedPages[0].Error, "Timeout")

	// Invariant: analyzed + failed covers every submitted page.
	require.Equal(t, len(pages), report.PagesAnalyzed+len(report.FailedPages))

	// Results holds successful analyses only; the failure lives in
	// FailedPages, not as an error-bearing result.
	require.Len(t, report.Results, 1)
	require.Equal(t, "https://site.test/", report.Results[0].URL)
	for _, analysis := range report.Results {
		require.Empty(t, analysis.Error)
	}
}

func TestRunZeroPagesShortCircuits(t *testing.T) {
	t.Parallel()

	a := New(&fakeDiscoverer{}, &fakeFetcher{}, &fakeAnalyzer{}, zap.NewNop(), fastRetries())
	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://empty.test/"})
	require.NoError(t, err)

	require.Equal(t, 0, report.PagesAnalyzed)
	require.Equal(t, "No pages found to analyze", report.Error)
	require.Empty(t, report.Results)
	require.Empty(t, report.FailedPages)
	require.Len(t, report.IssuesByCategory, len(audit.Categories()))
	for _, category := range audit.Categories() {
		require.Equal(t, 0, report.IssuesByCategory[category])
	}
}

func TestRunRetriesPageFetch(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int64
	fetcher := fetcherFunc(func(_ context.Context, url string) audit.FetchResult {
		if attempts.Add(1) == 1 {
			return audit.FetchResult{URL: url, Err: &audit.FetchError{
				Kind: audit.FetchTransport, Message: "Request error: connection reset",
			}}
		}
		return audit.FetchResult{URL: url, HTML: []byte("<html></html>"), StatusCode: 200}
	})

	a := New(&fakeDiscoverer{pages: []string{"https://site.test/"}}, fetcher, &fakeAnalyzer{}, zap.NewNop(), fastRetries())
	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/"})
	require.NoError(t, err)

	require.EqualValues(t, 2, attempts.Load())
	require.Equal(t, 1, report.PagesAnalyzed)
	require.Empty(t, report.FailedPages)
}

func TestRunRetriesDiscovery(t *testing.T) {
	t.Parallel()

	d := &flakyDiscoverer{failures: 1, pages: []string{"https://site.test/"}}
	a := New(d, &fakeFetcher{}, &fakeAnalyzer{}, zap.NewNop(), WithRetries(
		audit.RetrySpec{MaxRetries: 2, InitialBackoff: time.Millisecond, Scaling: 1},
		audit.RetrySpec{MaxRetries: 0, InitialBackoff: time.Millisecond, Scaling: 1},
	))

	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/"})
	require.NoError(t, err)
	require.Equal(t, 1, report.PagesAnalyzed)
	require.EqualValues(t, 2, d.calls.Load())
}

func TestRunDiscoveryExhaustionIsAnError(t *testing.T) {
	t.Parallel()

	d := &fakeDiscoverer{err: errors.New("dns failure")}
	a := New(d, &fakeFetcher{}, &fakeAnalyzer{}, zap.NewNop(), fastRetries())

	_, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "dns failure")
}

func TestRunHonorsMaxPages(t *testing.T) {
	t.Parallel()

	pages := make([]string, 60)
	for i := range pages {
		pages[i] = fmt.Sprintf("https://site.test/p%d", i)
	}
	a := New(&fakeDiscoverer{pages: pages}, &fakeFetcher{}, &fakeAnalyzer{}, zap.NewNop(), fastRetries())

	report, err := a.Run(context.Background(), audit.Parameters{URL: "https://site.test/", MaxPages: 30})
	require.NoError(t, err)
	require.Equal(t, 30, report.PagesAnalyzed)
}

type fetcherFunc func(ctx context.Context, url string) audit.FetchResult

func (f fetcherFunc) Fetch(ctx context.Context, url string) audit.FetchResult {
	return f(ctx, url)
}

type flakyDiscoverer struct {
	failures int
	pages    []string
	calls    atomic.Int64
}

func (f *flakyDiscoverer) Discover(_ context.Context, _ string, _ int) ([]string, error) {
	if f.calls.Add(1) <= int64(f.failures) {
		return nil, errors.New("transient discovery failure")
	}
	return f.pages, nil
}
