package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/auditkit/siteaudit/internal/audit"
)

// ErrReportNotFound is returned when no report exists for a job yet.
var ErrReportNotFound = errors.New("report not found")

// ReportStore keeps completed audit reports in memory.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]audit.Report
}

// NewReportStore constructs a ReportStore.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]audit.Report),
	}
}

// SaveReport stores the report for a job, replacing any previous one.
func (s *ReportStore) SaveReport(_ context.Context, jobID string, report audit.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[jobID] = report
	return nil
}

// GetReport fetches the report for a job.
func (s *ReportStore) GetReport(_ context.Context, jobID string) (audit.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[jobID]
	if !ok {
		return audit.Report{}, ErrReportNotFound
	}
	return report, nil
}
