// Package discover finds the set of pages to audit under a root URL.
// It prefers the site's sitemap and falls back to a polite breadth-first
// crawl when no sitemap yields usable URLs.
package discover

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/fetcher/collyfetch"
	"github.com/auditkit/siteaudit/internal/ratelimit"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultCrawlDelay = 500 * time.Millisecond

	// Sitemaps and crawled pages are read fully into memory; cap the
	// read the same way the page fetcher caps bodies.
	maxBodyBytes = 10 << 20
)

// Config tunes discovery. Zero values take sensible defaults.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	CrawlDelay    time.Duration
	RespectRobots bool
}

// Discoverer implements sitemap-first page discovery with crawl
// fallback. It is safe for concurrent use; each Discover call owns its
// own frontier and visited set, while crawl pacing is shared per host
// so concurrent audits of one site stay within the configured delay.
type Discoverer struct {
	client    *http.Client
	userAgent string
	limiter   *ratelimit.Limiter
	robots    bool
	logger    *zap.Logger
}

// New builds a Discoverer on an SSRF-guarded HTTP client.
func New(cfg Config, logger *zap.Logger) *Discoverer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CrawlDelay <= 0 {
		cfg.CrawlDelay = defaultCrawlDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Discoverer{
		client:    collyfetch.NewGuardedClient(cfg.Timeout, cfg.Timeout),
		userAgent: cfg.UserAgent,
		limiter:   ratelimit.New(ratelimit.Config{Interval: cfg.CrawlDelay}),
		robots:    cfg.RespectRobots,
		logger:    logger,
	}
}

func newWithClient(client *http.Client, crawlDelay time.Duration, respectRobots bool) *Discoverer {
	return &Discoverer{
		client:  client,
		limiter: ratelimit.New(ratelimit.Config{Interval: crawlDelay}),
		robots:  respectRobots,
		logger:  zap.NewNop(),
	}
}

// Discover returns up to maxPages same-origin page URLs for rootURL.
// Sitemap results win when present; otherwise a sequential BFS crawl
// from the root fills the list. An unreachable or empty site returns an
// empty slice, not an error.
func (d *Discoverer) Discover(ctx context.Context, rootURL string, maxPages int) ([]string, error) {
	if maxPages <= 0 {
		return nil, nil
	}
	root, err := url.Parse(rootURL)
	if err != nil {
		return nil, fmt.Errorf("parse root url: %w", err)
	}
	if root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("root url %q has no scheme or host", rootURL)
	}

	if pages := d.fromSitemap(ctx, root, maxPages); len(pages) > 0 {
		d.logger.Debug("discovery via sitemap",
			zap.String("root", rootURL),
			zap.Int("pages", len(pages)),
		)
		return pages, nil
	}

	pages := d.crawl(ctx, root, maxPages)
	d.logger.Debug("discovery via crawl",
		zap.String("root", rootURL),
		zap.Int("pages", len(pages)),
	)
	return pages, nil
}

// get fetches one URL, returning the response body and content type.
// Every failure collapses to an error the callers swallow.
func (d *Discoverer) get(ctx context.Context, target string) ([]byte, string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", 0, err
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, "", 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, "", resp.StatusCode, err
	}
	return body, resp.Header.Get("Content-Type"), resp.StatusCode, nil
}
