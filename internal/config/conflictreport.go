package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nickcecere/convsync/pkg/syncengine"
	"github.com/nickcecere/convsync/pkg/syncerr"
)

// ConflictReport is the persisted record of the conflicts a pull detected
// and how each was resolved, so a user can inspect what happened after the
// fact without re-running with verbose output.
type ConflictReport struct {
	GeneratedAt string                   `json:"generated_at"`
	Conflicts   []syncengine.Conflict    `json:"conflicts"`
}

// ConflictReportPath returns the conventional location of the conflict
// report file.
func ConflictReportPath(configDir string) string {
	return filepath.Join(configDir, "last-conflicts.json")
}

// SaveConflictReport writes report atomically to path.
func SaveConflictReport(path string, report ConflictReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "conflict_report.save", fmt.Errorf("marshal: %w", err))
	}
	return atomicWrite(path, data)
}

// LoadConflictReport reads the conflict report at path, if any.
func LoadConflictReport(path string) (*ConflictReport, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "conflict_report.load", fmt.Errorf("read %s: %w", path, err))
	}
	var report ConflictReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "conflict_report.load", fmt.Errorf("parse %s: %w", path, err))
	}
	return &report, nil
}
