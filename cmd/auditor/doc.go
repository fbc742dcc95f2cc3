// Package main hosts the site audit service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, and audit management endpoints. Requests are validated,
//     normalized into audit.Parameters, and persisted via the JobStore before being enqueued for work.
//   - Dispatcher & queue: audits flow through a bounded in-memory queue sized by config.Audit.QueueDepth and are
//     fanned out to a fixed worker pool sized by config.Audit.Workers. Context cancellation stops workers cleanly
//     on shutdown.
//   - Discovery: internal/discover reads /sitemap.xml first (following at most one nested sitemap from an index)
//     and falls back to a same-origin breadth-first crawl, honoring robots.txt and a per-host crawl delay.
//   - Analysis pipeline: discovered pages are fetched through the Colly-based fetcher and run through the rules
//     engine (meta tags, headings, images, links, performance). Pages are processed in bounded concurrent chunks
//     with per-page panic isolation, so one bad page never sinks an audit.
//   - Persistence: job lifecycle lives in the JobStore; finished reports go to the ReportStore (in-memory by
//     default, Postgres JSONB rows when database.dsn is set).
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are exported via the metrics middleware and /metrics handler.
//
// Operational notes:
//   - Concurrency model: bounded queue + fixed worker pool; each audit additionally fans out page analysis up to
//     its max_concurrency parameter. Shutdown is coordinated via context cancellation propagated from main through
//     the dispatcher to workers.
//   - Rate limiting/backoff: the crawl fallback paces same-origin requests by audit.crawl_delay_ms; discovery and
//     page fetches retry with exponential backoff. Link probes share a short timeout so broken-link checks cannot
//     stall an audit.
//   - Observability: zap logs carry audit IDs and URLs at key transitions; Prometheus counters/histograms track API
//     and audit activity. Tracing is not yet wired in.
//
// Quick checklist:
//   - Configure env vars: AUDITOR_SERVER_PORT, AUDITOR_AUDIT_WORKERS, AUDITOR_HTTP_TIMEOUT_SECONDS,
//     AUDITOR_AUDIT_RESPECT_ROBOTS, AUDITOR_AUTH_ENABLED/AUDITOR_AUTH_API_KEY, and AUDITOR_DATABASE_DSN when
//     reports should outlive the process.
//   - Run locally: go run ./cmd/auditor -config config.yaml (or rely solely on env overrides).
package main
