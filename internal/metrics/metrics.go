// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditJobsTotal             *prometheus.CounterVec
	auditPagesTotal            *prometheus.CounterVec
	auditIssuesTotal           *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	linkProbesTotal            *prometheus.CounterVec
	crawlDelaySeconds          *prometheus.HistogramVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_jobs_total",
				Help: "Total number of audit jobs processed, labeled by final status.",
			},
			[]string{"status"},
		)

		auditPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_pages_total",
				Help: "Total number of pages processed, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		auditIssuesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_issues_total",
				Help: "Total number of findings reported, labeled by category and severity.",
			},
			[]string{"category", "severity"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by site.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"site"},
		)

		linkProbesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_link_probes_total",
				Help: "Total number of link probes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_crawl_delay_seconds",
				Help:    "Histogram of time spent waiting on per-host crawl pacing, labeled by site.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_active_workers",
				Help: "Number of workers currently processing an audit job.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job counter for the given final status.
func ObserveJob(status string) {
	auditJobsTotal.WithLabelValues(status).Inc()
}

// ObservePage records one processed page and its outcome
// ("analyzed" or "failed").
func ObservePage(site, outcome string) {
	auditPagesTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveIssues adds n findings for a category/severity pair.
func ObserveIssues(category, severity string, n int) {
	if n <= 0 {
		return
	}
	auditIssuesTotal.WithLabelValues(category, severity).Add(float64(n))
}

// ObserveFetch records one page fetch latency.
func ObserveFetch(site string, duration time.Duration) {
	fetchDurationSeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// ObserveLinkProbe increments the probe counter for the given outcome
// ("ok", "broken", "unreachable").
func ObserveLinkProbe(outcome string) {
	linkProbesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCrawlDelay records time a crawl spent blocked on host pacing.
func ObserveCrawlDelay(site string, duration time.Duration) {
	crawlDelaySeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
