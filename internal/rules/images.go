package rules

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/auditkit/siteaudit/internal/audit"
)

const imageExampleCap = 3

// CheckImages audits <img> accessibility. Each image lands in at most
// one bucket, in priority order: missing alt attribute, empty alt
// (possibly decorative), missing dimensions (layout-shift risk).
func CheckImages(page *Page) []audit.Issue {
	var missingAlt, emptyAlt, missingDims []string

	page.Doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, ok := s.Attr("src")
		if !ok || src == "" {
			src = "unknown"
		}
		display := truncate(src, 60)

		alt, hasAlt := s.Attr("alt")
		switch {
		case !hasAlt:
			missingAlt = append(missingAlt, display)
		case strings.TrimSpace(alt) == "":
			emptyAlt = append(emptyAlt, display)
		case imageLacksDimensions(s):
			missingDims = append(missingDims, display)
		}
	})

	var issues []audit.Issue
	if len(missingAlt) > 0 {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityError,
			Message:  fmt.Sprintf("%d image(s) missing alt attribute", len(missingAlt)),
			Selector: "img:not([alt])",
			Example:  exampleList(missingAlt),
		})
	}
	if len(emptyAlt) > 0 {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityInfo,
			Message:  fmt.Sprintf("%d image(s) with empty alt (verify if decorative)", len(emptyAlt)),
			Selector: `img[alt=""]`,
			Example:  exampleList(emptyAlt),
		})
	}
	if len(missingDims) > 0 {
		issues = append(issues, audit.Issue{
			Severity: audit.SeverityWarning,
			Message:  fmt.Sprintf("%d image(s) missing width/height (may cause layout shift)", len(missingDims)),
			Selector: "img:not([width]):not([height])",
			Example:  exampleList(missingDims),
		})
	}
	return issues
}

func imageLacksDimensions(s *goquery.Selection) bool {
	if _, ok := s.Attr("width"); ok {
		return false
	}
	if _, ok := s.Attr("height"); ok {
		return false
	}
	style, _ := s.Attr("style")
	style = strings.ToLower(style)
	return !strings.Contains(style, "width") && !strings.Contains(style, "height")
}

func exampleList(srcs []string) string {
	shown := srcs[:min(imageExampleCap, len(srcs))]
	example := strings.Join(shown, " | ")
	if remaining := len(srcs) - imageExampleCap; remaining > 0 {
		example += fmt.Sprintf(" (+%d more)", remaining)
	}
	return example
}
