package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFilterConfigDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFilterConfig(FilterPath(dir))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SyncSubdirectory != defaultSyncSubdirectory {
		t.Errorf("sync subdirectory = %q, want %q", cfg.SyncSubdirectory, defaultSyncSubdirectory)
	}
	if cfg.TempBranchRetentionHours != defaultTempBranchRetentionHours {
		t.Errorf("retention hours = %d, want %d", cfg.TempBranchRetentionHours, defaultTempBranchRetentionHours)
	}
}

func TestLoadFilterConfigParsesExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := FilterPath(dir)
	content := `
include:
  - "*.jsonl"
exclude:
  - "*draft*"
max_file_size_bytes: 1048576
max_age_days: 30
exclude_attachments: true
sync_subdirectory: convos
temp_branch_retention_hours: 24
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadFilterConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Include) != 1 || cfg.Include[0] != "*.jsonl" {
		t.Errorf("include = %v", cfg.Include)
	}
	if cfg.MaxFileSizeBytes != 1048576 {
		t.Errorf("max file size = %d", cfg.MaxFileSizeBytes)
	}
	if cfg.SyncSubdirectory != "convos" {
		t.Errorf("sync subdirectory = %q, want convos", cfg.SyncSubdirectory)
	}
	if cfg.TempBranchRetentionHours != 24 {
		t.Errorf("retention hours = %d, want 24", cfg.TempBranchRetentionHours)
	}

	convoFilter := cfg.ToConvoFilter()
	if convoFilter.MaxAge <= 0 {
		t.Error("expected ToConvoFilter to translate max_age_days into a positive duration")
	}
}

func TestLoadFilterConfigRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filter.yaml")
	if err := os.WriteFile(path, []byte("not_a_real_field: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := LoadFilterConfig(path)
	if err == nil {
		t.Fatal("expected schema validation to reject an unknown field")
	}
}
