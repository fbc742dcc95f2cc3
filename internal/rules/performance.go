package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/auditkit/siteaudit/internal/audit"
)

// Performance thresholds, fixed per the audit rule set.
const (
	pageSizeWarnKB       = 500
	loadTimeErrorMs      = 3000
	loadTimeWarnMs       = 1500
	externalScriptsWarn  = 15
	externalStylesWarn   = 5
	compressionFloorKB   = 10
	scriptExampleCap     = 5
	stylesheetExampleCap = 3
)

// CheckPerformance audits size, load time, external resource counts,
// and response compression, using the fetch metadata captured alongside
// the page body.
func CheckPerformance(page *Page, fetched audit.FetchResult) []audit.Issue {
	var issues []audit.Issue

	sizeKB := float64(fetched.ContentLength) / 1024
	if sizeKB > pageSizeWarnKB {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Large page size (%.1f KB, recommended < 500 KB)", sizeKB),
			Example:  fmt.Sprintf("HTML response body: %.1f KB (consider code splitting or lazy loading)", sizeKB),
		})
	}

	switch {
	case fetched.LoadTimeMs > loadTimeErrorMs:
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityError,
			Message:  fmt.Sprintf("Slow load time (%dms, recommended < 3000ms)", fetched.LoadTimeMs),
			Example:  fmt.Sprintf("Time to first byte + download: %dms", fetched.LoadTimeMs),
		})
	case fetched.LoadTimeMs > loadTimeWarnMs:
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Moderate load time (%dms, recommended < 1500ms)", fetched.LoadTimeMs),
			Example:  fmt.Sprintf("Time to first byte + download: %dms", fetched.LoadTimeMs),
		})
	}

	issues = append(issues, resourceCountIssues(page)...)

	encoding := ""
	if fetched.Headers != nil {
		encoding = strings.ToLower(fetched.Headers.Get("Content-Encoding"))
	}
	if !strings.Contains(encoding, "gzip") && !strings.Contains(encoding, "br") && sizeKB > compressionFloorKB {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityInfo,
			Message:  "No compression detected (gzip/brotli recommended)",
			Example:  fmt.Sprintf("Content-Encoding header is missing. Enable compression on your server to reduce %.1f KB payload.", sizeKB),
		})
	}

	return issues
}

func resourceCountIssues(page *Page) []audit.Issue {
	var issues []audit.Issue

	var scriptSrcs []string
	page.Doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		scriptSrcs = append(scriptSrcs, truncate(src, 50))
	})
	if len(scriptSrcs) > externalScriptsWarn {
		example := strings.Join(scriptSrcs[:scriptExampleCap], " | ")
		if remaining := len(scriptSrcs) - scriptExampleCap; remaining > 0 {
			example += fmt.Sprintf(" (+%d more)", remaining)
		}
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Many external scripts (%d, consider bundling)", len(scriptSrcs)),
			Selector: "script[src]",
			Example:  example,
		})
	}

	var styleHrefs []string
	page.Doc.Find(`link[rel="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		styleHrefs = append(styleHrefs, truncate(href, 50))
	})
	if len(styleHrefs) > externalStylesWarn {
		example := strings.Join(styleHrefs[:stylesheetExampleCap], " | ")
		if remaining := len(styleHrefs) - stylesheetExampleCap; remaining > 0 {
			example += fmt.Sprintf(" (+%d more)", remaining)
		}
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Many external stylesheets (%d, consider bundling)", len(styleHrefs)),
			Selector: `link[rel="stylesheet"]`,
			Example:  example,
		})
	}

	return issues
}
