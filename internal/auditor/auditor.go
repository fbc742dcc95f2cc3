// Package auditor orchestrates a full site audit: discover pages, fan
// out fetch+analysis with bounded concurrency, fold the outcomes into a
// site report.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/batch"
	"github.com/auditkit/siteaudit/internal/metrics"
)

// noPagesMessage is reported in Report.Error for the zero-pages
// outcome, which is a valid audit result, never a Run error.
const noPagesMessage = "No pages found to analyze"

// Auditor wires the discoverer, fetcher, and rule engine into the
// audit entry point. All collaborators are injected; Run keeps no state
// between calls.
type Auditor struct {
	discoverer audit.Discoverer
	fetcher    audit.Fetcher
	analyzer   audit.PageAnalyzer
	limits     audit.Limits

	discoveryRetry audit.RetrySpec
	pageRetry      audit.RetrySpec

	logger *zap.Logger
}

// Option adjusts an Auditor at construction time.
type Option func(*Auditor)

// WithLimits overrides the parameter clamps.
func WithLimits(l audit.Limits) Option {
	return func(a *Auditor) { a.limits = l }
}

// WithRetries overrides the discovery and per-page retry policies.
func WithRetries(discovery, page audit.RetrySpec) Option {
	return func(a *Auditor) {
		a.discoveryRetry = discovery
		a.pageRetry = page
	}
}

// New builds an Auditor with default limits and retry policies.
func New(d audit.Discoverer, f audit.Fetcher, analyzer audit.PageAnalyzer, logger *zap.Logger, opts ...Option) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Auditor{
		discoverer:     d,
		fetcher:        f,
		analyzer:       analyzer,
		limits:         audit.DefaultLimits(),
		discoveryRetry: audit.DiscoveryRetry(),
		pageRetry:      audit.PageRetry(),
		logger:         logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one complete audit. Page-level failures land in the
// report; only a canceled context or an unusable root URL return an
// error.
func (a *Auditor) Run(ctx context.Context, params audit.Parameters) (audit.Report, error) {
	params = params.Normalize(a.limits)

	var pages []string
	err := a.discoveryRetry.Do(ctx, func(ctx context.Context) error {
		var derr error
		pages, derr = a.discoverer.Discover(ctx, params.URL, params.MaxPages)
		return derr
	})
	if err != nil {
		return audit.Report{}, fmt.Errorf("discover pages for %s: %w", params.URL, err)
	}

	if len(pages) == 0 {
		a.logger.Info("audit found no pages", zap.String("url", params.URL))
		return emptyReport(params.URL), nil
	}

	a.logger.Info("audit starting",
		zap.String("url", params.URL),
		zap.Int("pages", len(pages)),
		zap.Int("concurrency", params.MaxConcurrency),
	)

	outcomes := batch.Run(ctx, pages, params.MaxConcurrency, a.analyzePage)
	report := aggregate(params.URL, pages, outcomes)

	for _, result := range report.Results {
		outcome := "analyzed"
		if result.Error != "" {
			outcome = "failed"
		}
		metrics.ObservePage(params.URL, outcome)
		for category, issues := range result.Issues {
			for _, issue := range issues {
				metrics.ObserveIssues(string(category), string(issue.Severity), 1)
			}
		}
	}

	a.logger.Info("audit complete",
		zap.String("url", params.URL),
		zap.Int("pages_analyzed", report.PagesAnalyzed),
		zap.Int("pages_failed", len(report.FailedPages)),
		zap.Int("total_issues", report.TotalIssues),
	)
	return report, nil
}

// analyzePage is the per-page unit of work: fetch with retry, then run
// the rule battery. A page that never fetches cleanly returns an error
// the batch layer captures.
func (a *Auditor) analyzePage(ctx context.Context, pageURL string) (audit.PageAnalysis, error) {
	var fetched audit.FetchResult
	err := a.pageRetry.Do(ctx, func(ctx context.Context) error {
		fetched = a.fetcher.Fetch(ctx, pageURL)
		if fetched.Err != nil {
			return errors.New(fetched.Err.Message)
		}
		return nil
	})
	if err != nil {
		return audit.PageAnalysis{}, err
	}
	metrics.ObserveFetch(pageURL, time.Duration(fetched.LoadTimeMs)*time.Millisecond)

	issues, err := a.analyzer.Analyze(ctx, pageURL, fetched)
	if err != nil {
		return audit.PageAnalysis{}, err
	}
	return audit.PageAnalysis{
		URL:           pageURL,
		Issues:        issues,
		LoadTimeMs:    fetched.LoadTimeMs,
		ContentLength: fetched.ContentLength,
	}, nil
}
