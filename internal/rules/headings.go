package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/auditkit/siteaudit/internal/audit"
)

type heading struct {
	level int
	text  string
}

// CheckHeadings audits the document's heading structure: H1 presence and
// uniqueness, the opening heading level, and skipped levels between the
// levels actually used.
func CheckHeadings(page *Page) []audit.Issue {
	var issues []audit.Issue

	var headings []heading
	page.Doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if len(s.Nodes) == 0 {
			return
		}
		level := int(s.Nodes[0].Data[1] - '0')
		headings = append(headings, heading{
			level: level,
			text:  strings.TrimSpace(s.Text()),
		})
	})

	var h1Texts []string
	for _, h := range headings {
		if h.level == 1 {
			h1Texts = append(h1Texts, h.text)
		}
	}

	switch {
	case len(h1Texts) == 0:
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityError,
			Message:  "Missing H1 heading",
			Selector: "h1",
			Example:  "Add an <h1> tag with your main page title",
		})
	case len(h1Texts) > 1:
		examples := make([]string, 0, 3)
		for _, text := range h1Texts[:min(3, len(h1Texts))] {
			examples = append(examples, fmt.Sprintf("<h1>%s</h1>", truncate(text, 40)))
		}
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Multiple H1 headings (%d found, should be 1)", len(h1Texts)),
			Selector: "h1",
			Example:  strings.Join(examples, " | "),
		})
	}

	if len(headings) == 0 {
		return issues
	}

	if first := headings[0]; first.level != 1 {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("First heading is H%d, should start with H1", first.level),
			Selector: fmt.Sprintf("h%d", first.level),
			Example:  fmt.Sprintf("<h%d>%s</h%d>", first.level, truncate(first.text, 50), first.level),
		})
	}

	issues = append(issues, skippedLevelIssues(headings)...)
	return issues
}

// skippedLevelIssues reports one warning per gap between adjacent used
// levels, e.g. a document using only H1 and H4 skips H2/H3.
func skippedLevelIssues(headings []heading) []audit.Issue {
	seen := map[int]bool{}
	var levels []int
	for _, h := range headings {
		if !seen[h.level] {
			seen[h.level] = true
			levels = append(levels, h.level)
		}
	}
	sort.Ints(levels)

	var issues []audit.Issue
	for i := 0; i+1 < len(levels); i++ {
		from, to := levels[i], levels[i+1]
		if to-from <= 1 {
			continue
		}
		example := fmt.Sprintf("Missing <h%d> between H%d and H%d", from+1, from, to)
		if snippet, ok := firstSkipSnippet(headings, from, to); ok {
			example = snippet
		}
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Skipped heading level: H%d to H%d", from, to),
			Selector: fmt.Sprintf("h%d", to),
			Example:  example,
		})
	}
	return issues
}

// firstSkipSnippet locates the first heading of the higher level that
// follows a heading of the lower level in document order.
func firstSkipSnippet(headings []heading, from, to int) (string, bool) {
	foundFrom := false
	for _, h := range headings {
		switch {
		case h.level == from:
			foundFrom = true
		case foundFrom && h.level == to:
			return fmt.Sprintf("<h%d>%s</h%d>", to, truncate(h.text, 40), to), true
		}
	}
	return "", false
}
