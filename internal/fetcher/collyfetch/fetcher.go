// Package collyfetch implements audit.Fetcher using gocolly.
package collyfetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/auditkit/siteaudit/internal/audit"
)

const defaultMaxBodySize = 10 << 20 // 10 MB cap against runaway responses

// Config controls collector behavior.
type Config struct {
	UserAgent      string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	MaxBodySize    int
}

// Fetcher implements audit.Fetcher using the Colly collector over an
// SSRF-guarded transport.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

// New builds a Fetcher whose transport refuses private/reserved targets.
func New(cfg Config) *Fetcher {
	return newWithTransport(cfg, newGuardedTransport(cfg.ConnectTimeout))
}

func newWithTransport(cfg Config, transport http.RoundTripper) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaultMaxBodySize
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(transport)
	c.MaxBodySize = cfg.MaxBodySize
	// Robots policy is owned by the discovery crawl; a single page fetch
	// must not issue an extra robots.txt request per URL.
	c.IgnoreRobotsTxt = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single HTTP GET. Failures never propagate as errors;
// they are classified into the result's Err field. Non-2xx responses
// still count as fetched content so their pages get audited.
func (f *Fetcher) Fetch(ctx context.Context, url string) audit.FetchResult {
	result := audit.FetchResult{URL: url}
	var fetchErr error

	start := time.Now()
	collector := f.baseCollector.Clone()

	collector.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.Headers = r.Headers.Clone()
		result.HTML = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		// Colly routes HTTP error statuses here with the response
		// attached; those are still content for the audit.
		if r != nil && r.StatusCode > 0 {
			result.StatusCode = r.StatusCode
			if r.Headers != nil {
				result.Headers = r.Headers.Clone()
			}
			result.HTML = append([]byte(nil), r.Body...)
			return
		}
		fetchErr = err
	})

	visitErr := f.runCollector(ctx, collector, url)
	result.LoadTimeMs = time.Since(start).Milliseconds()

	if fetchErr == nil && result.StatusCode == 0 {
		fetchErr = visitErr
	}
	if fetchErr != nil {
		result.HTML = nil
		result.Err = Classify(fetchErr)
		return result
	}
	result.ContentLength = int64(len(result.HTML))
	return result
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		return err
	}
}

// Classify maps a transport-level failure to the fixed fetch-error
// taxonomy: blocked, timeout, transport, unexpected.
func Classify(err error) *audit.FetchError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrBlockedAddress):
		return &audit.FetchError{Kind: audit.FetchBlocked, Message: fmt.Sprintf("URL blocked: %v", err)}
	case errors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return &audit.FetchError{Kind: audit.FetchTimeout, Message: fmt.Sprintf("Timeout: %v", err)}
	case isTransport(err):
		return &audit.FetchError{Kind: audit.FetchTransport, Message: fmt.Sprintf("Request error: %v", err)}
	default:
		return &audit.FetchError{Kind: audit.FetchUnexpected, Message: fmt.Sprintf("Unexpected error: %v", err)}
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTransport(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// newGuardedTransport builds the pooled transport shared by collectors.
func newGuardedTransport(connectTimeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           safeDialer(connectTimeout).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}

// NewGuardedClient returns an http.Client on the SSRF-guarded transport,
// for callers that probe links outside the page-fetch path.
func NewGuardedClient(timeout, connectTimeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newGuardedTransport(connectTimeout),
	}
}
