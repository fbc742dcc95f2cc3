package rules

import (
	"fmt"
	"strings"

	"github.com/auditkit/siteaudit/internal/audit"
)

// Title/description length windows. The message text keeps the
// recommended ranges users actually see in SEO tooling.
const (
	titleMinLen = 30
	titleMaxLen = 60
	descMinLen  = 120
	descMaxLen  = 160
)

// CheckMetaTags audits title, meta description, Open Graph tags, and
// the canonical link.
func CheckMetaTags(page *Page) []audit.Issue {
	var issues []audit.Issue

	issues = append(issues, checkTitle(page)...)
	issues = append(issues, checkDescription(page)...)

	var missingOG []string
	for _, prop := range []string{"og:title", "og:description", "og:image"} {
		sel := fmt.Sprintf(`meta[property=%q]`, prop)
		if page.Doc.Find(sel).Length() == 0 {
			missingOG = append(missingOG, prop)
		}
	}
	if len(missingOG) > 0 {
		examples := make([]string, len(missingOG))
		for i, prop := range missingOG {
			examples[i] = fmt.Sprintf(`<meta property=%q content="...">`, prop)
		}
		example := strings.Join(examples[:min(2, len(examples))], " ")
		if len(examples) > 2 {
			example += "..."
		}
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  "Missing Open Graph tags: " + strings.Join(missingOG, ", "),
			Selector: "head",
			Example:  example,
		})
	}

	if page.Doc.Find(`link[rel="canonical"]`).Length() == 0 {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityInfo,
			Message:  "No canonical URL specified",
			Selector: `link[rel="canonical"]`,
			Example:  fmt.Sprintf(`Add <link rel="canonical" href=%q>`, page.URL.String()),
		})
	}

	return issues
}

func checkTitle(page *Page) []audit.Issue {
	title := strings.TrimSpace(page.Doc.Find("title").First().Text())
	if title == "" {
		return []audit.Issue{{
			Severity: audit.SeverityError,
			Message:  "Missing page title",
			Selector: "head > title",
			Example:  "Add <title>Your Page Title</title> in <head>",
		}}
	}
	length := len([]rune(title))
	switch {
	case length < titleMinLen:
		return []audit.Issue{{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Title too short (%d chars, recommended 50-60)", length),
			Selector: "head > title",
			Example:  fmt.Sprintf("<title>%s</title>", truncate(title, 100)),
		}}
	case length > titleMaxLen:
		return []audit.Issue{{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Title too long (%d chars, recommended 50-60)", length),
			Selector: "head > title",
			Example:  fmt.Sprintf("<title>%s</title>", truncate(title, 70)),
		}}
	}
	return nil
}

func checkDescription(page *Page) []audit.Issue {
	desc, ok := page.Doc.Find(`meta[name="description"]`).First().Attr("content")
	desc = strings.TrimSpace(desc)
	if !ok || desc == "" {
		return []audit.Issue{{
			Severity: audit.SeverityError,
			Message:  "Missing meta description",
			Selector: `meta[name="description"]`,
			Example:  `Add <meta name="description" content="..."> in <head>`,
		}}
	}
	length := len([]rune(desc))
	switch {
	case length < descMinLen:
		return []audit.Issue{{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Meta description too short (%d chars, recommended 150-160)", length),
			Selector: `meta[name="description"]`,
			Example:  fmt.Sprintf("content=%q", truncate(desc, 100)),
		}}
	case length > descMaxLen:
		return []audit.Issue{{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("Meta description too long (%d chars, recommended 150-160)", length),
			Selector: `meta[name="description"]`,
			Example:  fmt.Sprintf("content=%q", truncate(desc, 100)),
		}}
	}
	return nil
}
