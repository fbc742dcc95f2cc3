package rules

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/auditkit/siteaudit/internal/audit"
)

// Link scan bounds: dedupe to the first 20 unique targets found while
// scanning at most the first 30 raw anchor tags.
const (
	maxRawLinks    = 30
	maxUniqueLinks = 20
)

// brokenStatuses are the codes reported as true broken links: Not
// Found, Gone, and hard server errors.
var brokenStatuses = map[int]bool{
	404: true,
	410: true,
	500: true,
	502: true,
	504: true,
}

var skippedSchemes = []string{"#", "javascript:", "mailto:", "tel:"}

type pageLink struct {
	resolved string
	href     string
	text     string
}

// CheckLinks collects a page's outgoing hyperlinks and probes each one
// concurrently. Probes are bounded implicitly by the 20-link ceiling;
// a failed probe degrades to a finding, never an error.
func CheckLinks(ctx context.Context, page *Page, prober Prober) []audit.Issue {
	links := collectLinks(page)
	if len(links) == 0 {
		return nil
	}

	results := make([]ProbeResult, len(links))
	var wg sync.WaitGroup
	for i, link := range links {
		wg.Add(1)
		go func(i int, target string) {
			defer wg.Done()
			results[i] = prober.Probe(ctx, target)
		}(i, link.resolved)
	}
	wg.Wait()

	var issues []audit.Issue
	for i, link := range links {
		result := results[i]
		switch {
		case result.Err != nil:
			issues = append(issues, audit.Issue{
				Severity: audit.SeverityError,
				Message:  fmt.Sprintf("Link unreachable: %s", result.Err.Kind),
				Selector: linkSelector(link.href),
				Example:  fmt.Sprintf("<a href=%q>%s</a>", truncate(link.href, 60), truncate(link.text, 40)),
			})
		case brokenStatuses[result.StatusCode]:
			issues = append(issues, audit.Issue{
				Severity: audit.SeverityError,
				Message:  fmt.Sprintf("Broken link (HTTP %d)", result.StatusCode),
				Selector: linkSelector(link.href),
				Example: fmt.Sprintf("<a href=%q>%s</a> -> %s",
					truncate(link.href, 60), truncate(link.text, 40), link.resolved),
			})
		}
	}
	return issues
}

func collectLinks(page *Page) []pageLink {
	seen := map[string]bool{}
	var links []pageLink

	page.Doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= maxRawLinks || len(links) >= maxUniqueLinks {
			return false
		}
		href, _ := s.Attr("href")
		for _, prefix := range skippedSchemes {
			if strings.HasPrefix(href, prefix) {
				return true
			}
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := page.URL.ResolveReference(ref).String()
		if seen[resolved] {
			return true
		}
		seen[resolved] = true

		text := strings.TrimSpace(s.Text())
		if text == "" {
			text = "[no text]"
		}
		links = append(links, pageLink{resolved: resolved, href: href, text: text})
		return true
	})
	return links
}

func linkSelector(href string) string {
	if len(href) <= 50 {
		return fmt.Sprintf("a[href=%q]", href)
	}
	return fmt.Sprintf("a[href^=%q]", href[:30])
}
