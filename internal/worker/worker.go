// Package worker implements the audit job execution loop.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/auditkit/siteaudit/internal/audit"
	"github.com/auditkit/siteaudit/internal/metrics"
)

// Runner executes one complete audit.
type Runner interface {
	Run(ctx context.Context, params audit.Parameters) (audit.Report, error)
}

// Config controls Worker behavior.
type Config struct {
	// JobTimeout bounds one audit run end to end. Zero disables the bound.
	JobTimeout time.Duration
}

// Worker consumes queue items and executes the audit pipeline.
type Worker struct {
	queue       audit.Queue
	jobStore    audit.JobStore
	reportStore audit.ReportStore
	runner      Runner
	clock       audit.Clock
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Worker.
func New(
	queue audit.Queue,
	jobStore audit.JobStore,
	reportStore audit.ReportStore,
	runner Runner,
	clock audit.Clock,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:       queue,
		jobStore:    jobStore,
		reportStore: reportStore,
		runner:      runner,
		clock:       clock,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			return
		}
		w.logger.Debug("dequeued job", zap.String("job_id", item.JobID))
		w.processJob(ctx, item)
	}
}

func (w *Worker) processJob(ctx context.Context, item audit.QueueItem) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	if err := w.jobStore.UpdateJobStatus(ctx, item.JobID, audit.JobStatusRunning, "", audit.Counters{}); err != nil {
		w.logger.Error("job status update failed",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
		return
	}

	runCtx := ctx
	if w.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, w.cfg.JobTimeout)
		defer cancel()
	}

	started := w.clock.Now()
	report, err := w.runner.Run(runCtx, item.Params)
	elapsed := w.clock.Now().Sub(started)

	if err != nil {
		w.finishJob(ctx, item.JobID, audit.JobStatusFailed, err.Error(), audit.Counters{})
		w.logger.Warn("audit job failed",
			zap.String("job_id", item.JobID),
			zap.String("url", item.Params.URL),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return
	}

	if err := w.reportStore.SaveReport(ctx, item.JobID, report); err != nil {
		w.finishJob(ctx, item.JobID, audit.JobStatusFailed, "save report: "+err.Error(), countersFor(report))
		w.logger.Error("report save failed",
			zap.String("job_id", item.JobID),
			zap.Error(err),
		)
		return
	}

	w.finishJob(ctx, item.JobID, audit.JobStatusSucceeded, "", countersFor(report))
	w.logger.Info("audit job finished",
		zap.String("job_id", item.JobID),
		zap.String("url", item.Params.URL),
		zap.Int("pages_analyzed", report.PagesAnalyzed),
		zap.Int("total_issues", report.TotalIssues),
		zap.Duration("elapsed", elapsed),
	)
}

func (w *Worker) finishJob(ctx context.Context, jobID string, status audit.JobStatus, errText string, counters audit.Counters) {
	metrics.ObserveJob(string(status))
	if err := w.jobStore.UpdateJobStatus(ctx, jobID, status, errText, counters); err != nil {
		w.logger.Error("final job status update failed",
			zap.String("job_id", jobID),
			zap.Error(err),
		)
	}
}

func countersFor(report audit.Report) audit.Counters {
	return audit.Counters{
		PagesAnalyzed: report.PagesAnalyzed,
		PagesFailed:   len(report.FailedPages),
		IssuesFound:   report.TotalIssues,
	}
}
