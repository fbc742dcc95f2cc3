package rules

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/auditkit/siteaudit/internal/audit"
)

func TestImagesEmptyAltWithDimensions(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><body><img src="/spacer.gif" alt="" width="100" height="50"></body></html>`)
	issues := CheckImages(page)

	require.Len(t, issues, 1)
	require.Equal(t, audit.SeverityInfo, issues[0].Severity)
	require.Equal(t, "1 image(s) with empty alt (verify if decorative)", issues[0].Message)
}

func TestImagesOneBucketPerImage(t *testing.T) {
	t.Parallel()

	// No alt and no dimensions: only the missing-alt finding fires.
	page := mustPage(t, "https://example.com/",
		`<html><body><img src="/hero.jpg"></body></html>`)
	issues := CheckImages(page)

	require.Len(t, issues, 1)
	require.Equal(t, audit.SeverityError, issues[0].Severity)
	require.Equal(t, "1 image(s) missing alt attribute", issues[0].Message)
	require.Equal(t, "img:not([alt])", issues[0].Selector)
}

func TestImagesMissingDimensions(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><body>
			<img src="/a.jpg" alt="a">
			<img src="/b.jpg" alt="b" width="10">
			<img src="/c.jpg" alt="c" style="width: 50%">
		</body></html>`)
	issues := CheckImages(page)

	require.Len(t, issues, 1)
	require.Equal(t, audit.SeverityWarning, issues[0].Severity)
	require.Equal(t, "1 image(s) missing width/height (may cause layout shift)", issues[0].Message)
	require.Equal(t, "/a.jpg", issues[0].Example)
}

func TestImagesAggregationAndExampleCap(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><body>
			<img src="/1.png"><img src="/2.png"><img src="/3.png">
			<img src="/4.png"><img src="/5.png">
		</body></html>`)
	issues := CheckImages(page)

	require.Len(t, issues, 1)
	require.Equal(t, "5 image(s) missing alt attribute", issues[0].Message)
	require.Equal(t, "/1.png | /2.png | /3.png (+2 more)", issues[0].Example)
}

func TestImagesCleanMarkup(t *testing.T) {
	t.Parallel()

	page := mustPage(t, "https://example.com/",
		`<html><body><img src="/ok.jpg" alt="ok" width="640" height="480"></body></html>`)
	require.Empty(t, CheckImages(page))
}
