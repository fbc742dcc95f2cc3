package rules

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

func mustPage(t *testing.T, pageURL, html string) *Page {
	t.Helper()
	page, err := ParsePage(pageURL, []byte(html))
	require.NoError(t, err)
	return page
}

func messagesOf(issues []audit.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.Message
	}
	return out
}

func TestMetaTagsGoodTitleMissingDescription(t *testing.T) {
	t.Parallel()

	// 45-char title: inside the window, so no length finding.
	title := strings.Repeat("t", 45)
	page := mustPage(t, "https://example.com/", `<html><head><title>`+title+`</title>
		<meta property="og:title" content="x">
		<meta property="og:description" content="x">
		<meta property="og:image" content="x">
		<link rel="canonical" href="https://example.com/">
		</head><body></body></html>`)

	issues := CheckMetaTags(page)
	require.Len(t, issues, 1)
	require.Equal(t, audit.SeverityError, issues[0].Severity)
	require.Equal(t, "Missing meta description", issues[0].Message)
}

func TestMetaTagsMissingTitle(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/", `<html><head></head><body></body></html>`)
	issues := CheckMetaTags(page)

	require.Contains(t, messagesOf(issues), "Missing page title")
	for _, issue := range issues {
		if issue.Message == "Missing page title" {
			require.Equal(t, audit.SeverityError, issue.Severity)
			require.Equal(t, "head > title", issue.Selector)
		}
	}
}

func TestMetaTagsTitleLengthBounds(t *testing.T) {
	t.Parallel()

	short := mustPage(t, "https://example.com/", `<html><head><title>Tiny</title></head></html>`)
	issues := CheckMetaTags(short)
	require.Contains(t, messagesOf(issues), "Title too short (4 chars, recommended 50-60)")

	long := mustPage(t, "https://example.com/",
		`<html><head><title>`+strings.Repeat("x", 61)+`</title></head></html>`)
	issues = CheckMetaTags(long)
	require.Contains(t, messagesOf(issues), "Title too long (61 chars, recommended 50-60)")
}

func TestMetaTagsDescriptionLengthBounds(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><head><meta name="description" content="short description"></head></html>`)
	issues := CheckMetaTags(page)
	require.Contains(t, messagesOf(issues), "Meta description too short (17 chars, recommended 150-160)")

	page = mustPage(t, "https://example.com/",
		`<html><head><meta name="description" content="`+strings.Repeat("d", 161)+`"></head></html>`)
	issues = CheckMetaTags(page)
	require.Contains(t, messagesOf(issues), "Meta description too long (161 chars, recommended 150-160)")
}

func TestMetaTagsOpenGraphCombinedWarning(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><head><meta property="og:title" content="x"></head></html>`)
	issues := CheckMetaTags(page)

	var ogIssues []audit.Issue
	for _, issue := range issues {
		if strings.HasPrefix(issue.Message, "Missing Open Graph tags:") {
			ogIssues = append(ogIssues, issue)
		}
	}
	require.Len(t, ogIssues, 1, "missing OG tags collapse into one finding")
	require.Equal(t, "Missing Open Graph tags: og:description, og:image", ogIssues[0].Message)
	require.Equal(t, audit.SeverityWarning, ogIssues[0].Severity)
	require.Equal(t, "head", ogIssues[0].Selector)
}

func TestMetaTagsCanonicalSuggestion(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/about", `<html><head></head></html>`)
	issues := CheckMetaTags(page)

	found := false
	for _, issue := range issues {
		if issue.Message == "No canonical URL specified" {
			found = true
			require.Equal(t, audit.SeverityInfo, issue.Severity)
			require.Contains(t, issue.Example, "https://example.com/about")
		}
	}
	require.True(t, found)
}
