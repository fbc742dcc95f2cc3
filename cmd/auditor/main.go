// Package main wires together the site audit service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/api"
	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/auditor"
	"github.com/auditkit/siteaudit/internal/clock/system"
	"github.com/auditkit/siteaudit/internal/config"
	"github.com/auditkit/siteaudit/internal/discover"
	"github.com/auditkit/siteaudit/internal/dispatcher"
	"github.com/auditkit/siteaudit/internal/fetcher/collyfetch"
	"github.com/auditkit/siteaudit/internal/id/uuid"
	"github.com/auditkit/siteaudit/internal/logging"
	"github.com/auditkit/siteaudit/internal/metrics"
	queuememory "github.com/auditkit/siteaudit/internal/queue/memory"
	"github.com/auditkit/siteaudit/internal/rules"
	storagelocal "github.com/auditkit/siteaudit/internal/storage/local"
	storagememory "github.com/auditkit/siteaudit/internal/storage/memory"
	"github.com/auditkit/siteaudit/internal/storage/postgres"
	"github.com/auditkit/siteaudit/internal/worker"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logging.Flush(logger)
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore := storagememory.NewJobStore()
	reportStore, closeReports, err := newReportStore(ctx, cfg)
	if err != nil {
		logger.Fatal("report store init failed", zap.Error(err))
	}
	defer closeReports()

	queue := queuememory.NewQueue(cfg.Audit.QueueDepth)
	clock := system.New()
	idGen := uuid.New()

	fetcher := collyfetch.New(collyfetch.Config{
		UserAgent:      cfg.Audit.UserAgent,
		Timeout:        cfg.FetchTimeout(),
		ConnectTimeout: cfg.ConnectTimeout(),
		MaxBodySize:    cfg.HTTP.MaxBodyBytes,
	})
	discoverer := discover.New(discover.Config{
		UserAgent:     cfg.Audit.UserAgent,
		Timeout:       cfg.FetchTimeout(),
		CrawlDelay:    cfg.CrawlDelay(),
		RespectRobots: cfg.Audit.RespectRobots,
	}, logger.Named("discover"))
	prober := rules.NewHTTPProber(cfg.ProbeTimeout(), cfg.Audit.UserAgent)
	engine := rules.NewEngine(prober, logger.Named("rules"))

	runner := auditor.New(
		discoverer,
		fetcher,
		engine,
		logger.Named("auditor"),
		auditor.WithLimits(limitsFrom(cfg)),
		auditor.WithRetries(retrySpec(cfg.Retry.Discovery), retrySpec(cfg.Retry.Page)),
	)

	workerCfg := worker.Config{JobTimeout: cfg.JobTimeout()}
	var workers []*worker.Worker
	for i := 0; i < cfg.Audit.Workers; i++ {
		workers = append(workers, worker.New(
			queue,
			jobStore,
			reportStore,
			runner,
			clock,
			workerCfg,
			logger.Named("worker").With(zap.Int("index", i)),
		))
	}
	dispatch := dispatcher.New(queue, workers)

	apiServer := api.NewServer(jobStore, reportStore, dispatch, idGen, clock, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("dispatcher started", zap.Int("workers", cfg.Audit.Workers))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	logger.Info("shutdown complete")
}

// newReportStore picks Postgres when a DSN is configured, the local
// filesystem when a reports directory is configured, memory otherwise.
func newReportStore(ctx context.Context, cfg config.Config) (audit.ReportStore, func(), error) {
	if cfg.Database.DSN != "" {
		store, err := postgres.NewReportStore(ctx, postgres.ReportStoreConfig{
			DSN:      cfg.Database.DSN,
			MaxConns: int32(cfg.Database.MaxOpenConns),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	}
	if cfg.Storage.ReportsDir != "" {
		store, err := storagelocal.New(storagelocal.Config{BaseDir: cfg.Storage.ReportsDir})
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
	return storagememory.NewReportStore(), func() {}, nil
}

func limitsFrom(cfg config.Config) audit.Limits {
	l := audit.DefaultLimits()
	if cfg.Audit.DefaultMaxPages > 0 {
		l.DefaultMaxPages = cfg.Audit.DefaultMaxPages
	}
	if cfg.Audit.MaxPagesCap > 0 {
		l.MaxPagesCap = cfg.Audit.MaxPagesCap
	}
	if cfg.Audit.DefaultMaxConcurrency > 0 {
		l.DefaultMaxConcurrency = cfg.Audit.DefaultMaxConcurrency
	}
	if cfg.Audit.MaxConcurrencyCap > 0 {
		l.MaxConcurrencyCap = cfg.Audit.MaxConcurrencyCap
	}
	return l
}

func retrySpec(p config.RetryPolicy) audit.RetrySpec {
	return audit.RetrySpec{
		MaxRetries:     p.MaxRetries,
		InitialBackoff: time.Duration(p.BackoffInitialMs) * time.Millisecond,
		Scaling:        p.BackoffScaling,
	}
}
