package rules

import (
	"context"
	"net/http"
	"time"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/fetcher/collyfetch"
	"github.com/auditkit/siteaudit/internal/metrics"
)

// ProbeResult carries either a status code or a classified failure;
// the link checker consumes it without any error handling of its own.
type ProbeResult struct {
	StatusCode int
	Err        *audit.FetchError
}

// Prober answers lightweight "does this link exist" checks.
type Prober interface {
	Probe(ctx context.Context, url string) ProbeResult
}

// HTTPProber probes with HEAD, falling back to GET when HEAD fails
// (plenty of servers reject or mishandle HEAD).
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber builds a prober on an SSRF-guarded client with its own
// per-probe timeout.
func NewHTTPProber(timeout time.Duration, userAgent string) *HTTPProber {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProber{
		client:    collyfetch.NewGuardedClient(timeout, timeout),
		userAgent: userAgent,
	}
}

func newHTTPProberWithClient(client *http.Client, userAgent string) *HTTPProber {
	return &HTTPProber{client: client, userAgent: userAgent}
}

// Probe checks a single link and returns its status code or a
// classified failure.
func (p *HTTPProber) Probe(ctx context.Context, url string) ProbeResult {
	status, err := p.request(ctx, http.MethodHead, url)
	if err == nil {
		metrics.ObserveLinkProbe("head")
		return ProbeResult{StatusCode: status}
	}
	status, err = p.request(ctx, http.MethodGet, url)
	if err == nil {
		metrics.ObserveLinkProbe("get")
		return ProbeResult{StatusCode: status}
	}
	metrics.ObserveLinkProbe("error")
	return ProbeResult{Err: collyfetch.Classify(err)}
}

func (p *HTTPProber) request(ctx context.Context, method, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}
