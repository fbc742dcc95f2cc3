package auditor

import (
	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/batch"
)

// emptyReport is the zero-pages short-circuit: a complete, valid report
// with an explanatory message and no results.
func emptyReport(rootURL string) audit.Report {
	byCategory := map[audit.Category]int{}
	for _, category := range audit.Categories() {
		byCategory[category] = 0
	}
	return audit.Report{
		URL:              rootURL,
		PagesAnalyzed:    0,
		FailedPages:      []audit.FailedPage{},
		TotalIssues:      0,
		IssuesByCategory: byCategory,
		Results:          []audit.PageAnalysis{},
		Error:            noPagesMessage,
	}
}

// aggregate folds the batch outcomes into the site report: successful
// analyses feed Results and the category totals, failures become
// failed-page records carrying the page's URL and its captured error.
// Results holds successes only.
func aggregate(rootURL string, pages []string, outcomes []batch.Outcome[audit.PageAnalysis]) audit.Report {
	byCategory := map[audit.Category]int{}
	for _, category := range audit.Categories() {
		byCategory[category] = 0
	}

	report := audit.Report{
		URL:              rootURL,
		FailedPages:      []audit.FailedPage{},
		IssuesByCategory: byCategory,
		Results:          []audit.PageAnalysis{},
	}

	for i, outcome := range outcomes {
		if outcome.Err != nil {
			report.FailedPages = append(report.FailedPages, audit.FailedPage{
				URL:   pages[i],
				Error: outcome.Err.Error(),
			})
			continue
		}

		analysis := outcome.Value
		report.PagesAnalyzed++
		for category, issues := range analysis.Issues {
			report.IssuesByCategory[category] += len(issues)
			report.TotalIssues += len(issues)
		}
		report.Results = append(report.Results, analysis)
	}
	return report
}
