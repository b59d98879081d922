package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/nickcecere/convsync/pkg/convo"
	"github.com/nickcecere/convsync/pkg/syncerr"
)

// defaultSyncSubdirectory is where session files live inside the sync
// repository, mirroring the local store's own project layout.
const defaultSyncSubdirectory = "projects"

// defaultTempBranchRetentionHours bounds how long a safety branch created
// during Pull survives before cleanup considers it stale.
const defaultTempBranchRetentionHours = 72

// FilterConfig is the on-disk filter configuration: which session files
// Discover should consider, plus the pull-workflow knobs that aren't
// really about filtering files but share this file for convenience
// (sync_subdirectory, temp_branch_retention_hours, local_store_path).
type FilterConfig struct {
	Include                  []string `yaml:"include"`
	Exclude                  []string `yaml:"exclude"`
	MaxFileSizeBytes         int64    `yaml:"max_file_size_bytes"`
	MaxAgeDays               int      `yaml:"max_age_days"`
	ExcludeAttachments       bool     `yaml:"exclude_attachments"`
	SyncSubdirectory         string   `yaml:"sync_subdirectory"`
	TempBranchRetentionHours int      `yaml:"temp_branch_retention_hours"`
	// LocalStorePath overrides <claude-root>, the local store's base
	// directory (containing projects/ and history.jsonl). Empty means
	// "use the default per-user location".
	LocalStorePath string `yaml:"local_store_path"`
}

// ToConvoFilter projects the on-disk config down to the subset pkg/convo's
// Discover actually needs.
func (f FilterConfig) ToConvoFilter() convo.Filter {
	var maxAge time.Duration
	if f.MaxAgeDays > 0 {
		maxAge = time.Duration(f.MaxAgeDays) * 24 * time.Hour
	}
	return convo.Filter{
		Include:            f.Include,
		Exclude:            f.Exclude,
		MaxFileSizeBytes:   f.MaxFileSizeBytes,
		MaxAge:             maxAge,
		ExcludeAttachments: f.ExcludeAttachments,
	}
}

// FilterPath returns the conventional location of the filter config file.
func FilterPath(configDir string) string {
	return filepath.Join(configDir, "filter.yaml")
}

// LoadFilterConfig reads filter.yaml at path, or returns defaults if the
// file doesn't exist — a missing filter config is not an error, since every
// field has a sensible default.
func LoadFilterConfig(path string) (FilterConfig, error) {
	cfg := FilterConfig{
		SyncSubdirectory:         defaultSyncSubdirectory,
		TempBranchRetentionHours: defaultTempBranchRetentionHours,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return FilterConfig{}, syncerr.New(syncerr.KindConfigFailure, "filter.load", fmt.Errorf("read %s: %w", path, err))
	}

	if err := validateAgainstSchema("filter.schema.json", data); err != nil {
		return FilterConfig{}, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FilterConfig{}, syncerr.New(syncerr.KindConfigFailure, "filter.load", fmt.Errorf("parse %s: %w", path, err))
	}
	if cfg.SyncSubdirectory == "" {
		cfg.SyncSubdirectory = defaultSyncSubdirectory
	}
	if cfg.TempBranchRetentionHours == 0 {
		cfg.TempBranchRetentionHours = defaultTempBranchRetentionHours
	}
	return cfg, nil
}
