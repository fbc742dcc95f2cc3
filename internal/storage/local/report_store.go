// Package local implements a local filesystem report store.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/auditkit/siteaudit/internal/audit"
)

// ErrReportNotFound is returned when no report file exists for an audit ID.
var ErrReportNotFound = errors.New("report not found")

// Config captures the parameters for the local filesystem report store.
type Config struct {
	// BaseDir is the root directory where reports will be stored.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// ReportStore writes finished audit reports as JSON files, one per
// audit ID. Useful for single-node deployments that want reports to
// outlive the process without a database.
type ReportStore struct {
	baseDir string
}

// New creates a new local filesystem-backed report store.
func New(cfg Config) (*ReportStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("failed to stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	// Check for write permissions.
	testFile := filepath.Join(cfg.BaseDir, ".writable_test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	if err := os.Remove(testFile); err != nil {
		return nil, fmt.Errorf("failed to clean up test file: %w", err)
	}

	return &ReportStore{
		baseDir: cfg.BaseDir,
	}, nil
}

// SaveReport writes the report for an audit ID, replacing any previous file.
func (s *ReportStore) SaveReport(_ context.Context, auditID string, report audit.Report) error {
	path, err := s.reportPath(auditID)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	// Write then rename so readers never see a partial report.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// GetReport loads the report for an audit ID.
func (s *ReportStore) GetReport(_ context.Context, auditID string) (audit.Report, error) {
	path, err := s.reportPath(auditID)
	if err != nil {
		return audit.Report{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return audit.Report{}, fmt.Errorf("%w: %s", ErrReportNotFound, auditID)
		}
		return audit.Report{}, fmt.Errorf("read report: %w", err)
	}
	var report audit.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return audit.Report{}, fmt.Errorf("unmarshal report: %w", err)
	}
	return report, nil
}

// reportPath maps an audit ID to a file path, rejecting IDs that would
// escape the base directory.
func (s *ReportStore) reportPath(auditID string) (string, error) {
	if strings.TrimSpace(auditID) == "" {
		return "", fmt.Errorf("audit id is required")
	}
	fullPath := filepath.Join(s.baseDir, auditID+".json")
	cleanBaseDir := filepath.Clean(s.baseDir)
	cleanFullPath := filepath.Clean(fullPath)
	if !strings.HasPrefix(cleanFullPath, cleanBaseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	return fullPath, nil
}
