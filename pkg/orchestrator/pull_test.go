package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nickcecere/convsync/internal/config"
	"github.com/nickcecere/convsync/pkg/convo"
	"github.com/nickcecere/convsync/pkg/synclock"
	"github.com/nickcecere/convsync/pkg/syncerr"
	"github.com/nickcecere/convsync/pkg/transport/faketransport"
)

const sampleSession = `{"type":"user","uuid":"u1","sessionId":"sess1","timestamp":"2024-01-01T00:00:00Z","message":{"role":"user","content":"hi"}}
{"type":"assistant","uuid":"u2","sessionId":"sess1","timestamp":"2024-01-01T00:00:01Z","message":{"role":"assistant","content":"hello"}}
`

func setupPullFixture(t *testing.T) (paths Paths, syncRepoPath string) {
	t.Helper()
	root := t.TempDir()
	configDir := filepath.Join(root, "config")
	localProjectsDir := filepath.Join(root, "claude", "projects")
	syncRepoPath = filepath.Join(root, "sync-repo")

	if err := os.MkdirAll(filepath.Join(localProjectsDir, "proj1"), 0o755); err != nil {
		t.Fatalf("mkdir local projects: %v", err)
	}
	if err := os.WriteFile(filepath.Join(localProjectsDir, "proj1", "sess1.jsonl"), []byte(sampleSession), 0o644); err != nil {
		t.Fatalf("write session: %v", err)
	}
	if err := os.MkdirAll(syncRepoPath, 0o755); err != nil {
		t.Fatalf("mkdir sync repo: %v", err)
	}

	state := &config.State{SyncRepoPath: syncRepoPath, MainBranch: "main"}
	if err := state.Save(config.StatePath(configDir)); err != nil {
		t.Fatalf("save state: %v", err)
	}

	paths = Paths{
		ConfigDir:        configDir,
		LocalProjectsDir: localProjectsDir,
		LocalHistoryPath: filepath.Join(root, "claude", "history.jsonl"),
	}
	return paths, syncRepoPath
}

func TestPullAddsLocalOnlySession(t *testing.T) {
	paths, syncRepoPath := setupPullFixture(t)
	ft := faketransport.New()

	report, err := Pull(context.Background(), nil, ft, paths, PullOptions{})
	if err != nil {
		t.Fatalf("pull: %v", err)
	}
	if report.Added != 1 {
		t.Errorf("added = %d, want 1", report.Added)
	}
	if len(report.Conversations) != 1 || report.Conversations[0].Operation != OpAdded {
		t.Errorf("conversations = %+v, want one Added entry", report.Conversations)
	}

	syncedPath := filepath.Join(syncRepoPath, "projects", "proj1", "sess1.jsonl")
	synced, err := convo.Parse(syncedPath)
	if err != nil {
		t.Fatalf("parse synced session: %v", err)
	}
	if len(synced.Entries) != 2 {
		t.Errorf("synced entries = %d, want 2", len(synced.Entries))
	}

	local, err := convo.Parse(filepath.Join(paths.LocalProjectsDir, "proj1", "sess1.jsonl"))
	if err != nil {
		t.Fatalf("parse local session: %v", err)
	}
	if len(local.Entries) != 2 {
		t.Errorf("local entries = %d, want 2 (append-only write-back must not duplicate)", len(local.Entries))
	}
}

func TestPullRecordsJournalEntry(t *testing.T) {
	paths, _ := setupPullFixture(t)
	ft := faketransport.New()

	if _, err := Pull(context.Background(), nil, ft, paths, PullOptions{}); err != nil {
		t.Fatalf("pull: %v", err)
	}

	journal, err := config.LoadJournal(config.JournalPath(paths.ConfigDir))
	if err != nil {
		t.Fatalf("load journal: %v", err)
	}
	if len(journal.Records) != 1 {
		t.Fatalf("records = %d, want 1", len(journal.Records))
	}
	if journal.Records[0].Type != config.OperationPull {
		t.Errorf("record type = %s, want pull", journal.Records[0].Type)
	}
}

func TestPullReleasesLockOnSuccess(t *testing.T) {
	paths, _ := setupPullFixture(t)
	ft := faketransport.New()

	if _, err := Pull(context.Background(), nil, ft, paths, PullOptions{}); err != nil {
		t.Fatalf("first pull: %v", err)
	}

	lock, err := synclock.Acquire(synclock.DefaultPath(paths.ConfigDir))
	if err != nil {
		t.Fatalf("expected lock to be released after pull, got: %v", err)
	}
	lock.Release()
}

func TestPullFailsWhenLockHeld(t *testing.T) {
	paths, _ := setupPullFixture(t)
	ft := faketransport.New()

	held, err := synclock.Acquire(synclock.DefaultPath(paths.ConfigDir))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer held.Release()

	_, err = Pull(context.Background(), nil, ft, paths, PullOptions{})
	if err == nil {
		t.Fatal("expected pull to fail while lock is held")
	}
	if !syncerr.Is(err, syncerr.KindLockBusy) {
		t.Errorf("error = %v, want KindLockBusy", err)
	}
}
