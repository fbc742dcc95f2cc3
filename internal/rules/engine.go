package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/audit"
)

// Engine runs the full rule battery over one fetched page. It
// implements audit.PageAnalyzer. Checkers are independent and
// order-insensitive; each owns a single structural scan of the page.
type Engine struct {
	prober Prober
	logger *zap.Logger
}

// NewEngine builds an Engine using the given link prober.
func NewEngine(prober Prober, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{prober: prober, logger: logger}
}

// Analyze parses the page and runs all five checkers. The returned map
// always contains every category, empty or not.
func (e *Engine) Analyze(ctx context.Context, pageURL string, fetched audit.FetchResult) (map[audit.Category][]audit.Issue, error) {
	page, err := ParsePage(pageURL, fetched.HTML)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", pageURL, err)
	}

	issues := map[audit.Category][]audit.Issue{
		audit.CategoryMetaTags:    CheckMetaTags(page),
		audit.CategoryLinks:       CheckLinks(ctx, page, e.prober),
		audit.CategoryHeadings:    CheckHeadings(page),
		audit.CategoryImages:      CheckImages(page),
		audit.CategoryPerformance: CheckPerformance(page, fetched),
	}
	for _, category := range audit.Categories() {
		if issues[category] == nil {
			issues[category] = []audit.Issue{}
		}
	}

	total := 0
	for _, list := range issues {
		total += len(list)
	}
	e.logger.Debug("page analyzed",
		zap.String("url", pageURL),
		zap.Int("issues", total),
	)
	return issues, nil
}
