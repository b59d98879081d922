package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"

	"github.com/nickcecere/convsync/pkg/syncerr"
)

// State is the per-machine record of where the sync repository lives and
// whether it has a configured remote. It is the Go analogue of the
// original tool's SyncState.
type State struct {
	SyncRepoPath string `yaml:"sync_repo_path"`
	HasRemote    bool   `yaml:"has_remote"`
	RemoteName   string `yaml:"remote_name"`
	MainBranch   string `yaml:"main_branch"`
}

// StatePath returns the conventional location of the state file under
// configDir.
func StatePath(configDir string) string {
	return filepath.Join(configDir, "state.yaml")
}

// LoadState reads and validates the state file at path.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "state.load", fmt.Errorf("read %s: %w", path, err))
	}

	if err := validateAgainstSchema("state.schema.json", data); err != nil {
		return nil, err
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, syncerr.New(syncerr.KindConfigFailure, "state.load", fmt.Errorf("parse %s: %w", path, err))
	}
	if s.MainBranch == "" {
		s.MainBranch = "main"
	}
	return &s, nil
}

// Save writes the state file atomically (write to a temp file, then
// rename), so a crash mid-write never leaves a half-written state.yaml
// behind for the next invocation to choke on.
func (s *State) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return syncerr.New(syncerr.KindConfigFailure, "state.save", fmt.Errorf("marshal: %w", err))
	}
	return atomicWrite(path, data)
}

// EnsureConfigDir creates configDir (and parents) if it doesn't exist and
// returns it unchanged.
func EnsureConfigDir(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", syncerr.New(syncerr.KindFilesystemFailure, "config.ensure_dir", fmt.Errorf("create %s: %w", configDir, err))
	}
	return configDir, nil
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("create dir %s: %w", dir, err))
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("create temp file: %w", err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("write temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("sync temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("close temp file: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return syncerr.New(syncerr.KindFilesystemFailure, "atomic_write", fmt.Errorf("rename into place: %w", err))
	}
	return nil
}
