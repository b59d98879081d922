// Binary convsync keeps Claude Code conversation transcripts synchronized
// between a machine's local session store and a shared git repository.
//
// Usage:
//
//	convsync init   [flags]
//	convsync pull   [flags]
//	convsync push   [flags]
//	convsync status [flags]
//
// Flags:
//
//	-v          verbose logging
//	-q          quiet (errors only)
//	-branch     override the branch treated as main
//	-no-fetch   pull: reconcile against the local sync repo only, skip network
//	-no-push    push: commit locally but don't push to the remote
//	-message    push: override the default "Sync at <time>" commit message
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nickcecere/convsync/internal/config"
	"github.com/nickcecere/convsync/internal/logging"
	"github.com/nickcecere/convsync/pkg/interactive"
	"github.com/nickcecere/convsync/pkg/orchestrator"
	"github.com/nickcecere/convsync/pkg/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	verbose := fs.Bool("v", false, "verbose logging")
	quiet := fs.Bool("q", false, "quiet (errors only)")
	branch := fs.String("branch", "", "override the branch treated as main")
	noFetch := fs.Bool("no-fetch", false, "pull: reconcile against the local sync repo only, skip network")
	noPush := fs.Bool("no-push", false, "push: commit locally but don't push to the remote")
	message := fs.String("message", "", "push: override the default commit message")
	remoteURL := fs.String("remote", "", "init: remote URL to configure as origin")
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(2)
	}

	level := slog.LevelInfo
	switch {
	case *verbose:
		level = slog.LevelDebug
	case *quiet:
		level = slog.LevelError
	}

	paths, err := defaultPaths()
	if err != nil {
		fatalf("resolve paths: %v", err)
	}
	paths = applyLocalStoreOverride(paths)
	logPath := filepath.Join(paths.ConfigDir, "convsync.log")
	logger := logging.New(level, logging.FileConfig{Path: logPath})

	switch cmd {
	case "init":
		runInit(logger, paths, *remoteURL)
	case "pull":
		runPull(logger, paths, *branch, !*noFetch)
	case "push":
		runPush(logger, paths, *branch, *message, !*noPush)
	case "status":
		runStatus(logger, paths)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "convsync: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
}

func runInit(logger *slog.Logger, paths orchestrator.Paths, remoteURL string) {
	if _, err := config.EnsureConfigDir(paths.ConfigDir); err != nil {
		fatalf("init: %v", err)
	}

	syncRepoPath := filepath.Join(paths.ConfigDir, "repo")
	authorName, authorEmail := commitIdentity()
	t, err := transport.Init(syncRepoPath, authorName, authorEmail)
	if err != nil {
		fatalf("init: %v", err)
	}

	state := &config.State{
		SyncRepoPath: syncRepoPath,
		MainBranch:   "main",
	}
	if remoteURL != "" {
		if err := t.AddRemote(context.Background(), "origin", remoteURL); err != nil {
			fatalf("init: add remote: %v", err)
		}
		state.HasRemote = true
		state.RemoteName = "origin"
	}
	if err := state.Save(config.StatePath(paths.ConfigDir)); err != nil {
		fatalf("init: save state: %v", err)
	}

	fmt.Printf("[convsync] initialized sync repository at %s\n", syncRepoPath)
	if remoteURL != "" {
		fmt.Printf("[convsync] remote origin = %s\n", remoteURL)
	}
}

func runPull(logger *slog.Logger, paths orchestrator.Paths, branch string, fetchRemote bool) {
	t := openTransport(paths)
	ctx := context.Background()

	opts := orchestrator.PullOptions{
		FetchRemote: fetchRemote,
		Branch:      branch,
		Interactive: interactive.IsInteractive(),
	}
	report, err := orchestrator.Pull(ctx, logger, t, paths, opts)
	if err != nil {
		fatalf("pull: %v", err)
	}
	printReport("pull", report)
}

func runPush(logger *slog.Logger, paths orchestrator.Paths, branch, message string, pushRemote bool) {
	t := openTransport(paths)
	ctx := context.Background()

	opts := orchestrator.PushOptions{
		Message:     message,
		PushRemote:  pushRemote,
		Branch:      branch,
		Interactive: interactive.IsInteractive(),
	}
	report, err := orchestrator.Push(ctx, logger, t, paths, opts)
	if err != nil {
		fatalf("push: %v", err)
	}
	printReport("push", report)
}

func runStatus(logger *slog.Logger, paths orchestrator.Paths) {
	state, err := config.LoadState(config.StatePath(paths.ConfigDir))
	if err != nil {
		fatalf("status: %v", err)
	}
	journal, err := config.LoadJournal(config.JournalPath(paths.ConfigDir))
	if err != nil {
		fatalf("status: %v", err)
	}

	fmt.Printf("sync repo:  %s\n", state.SyncRepoPath)
	fmt.Printf("main branch: %s\n", state.MainBranch)
	if state.HasRemote {
		fmt.Printf("remote:     %s\n", state.RemoteName)
	} else {
		fmt.Println("remote:     (none configured)")
	}

	if len(journal.Records) == 0 {
		fmt.Println("last operations: (none recorded yet)")
		return
	}
	fmt.Println("last operations:")
	for _, rec := range journal.Records {
		fmt.Printf("  %s  %-4s  sessions=%-3d conflicts=%-3d\n",
			rec.Timestamp, rec.Type, rec.SessionsAffected, rec.ConflictsResolved)
	}
}

func printReport(cmd string, report *orchestrator.Report) {
	if report.Cancelled {
		fmt.Printf("[convsync] %s cancelled by user\n", cmd)
		return
	}
	fmt.Printf("[convsync] %s on %s: added=%d modified=%d conflicted=%d unchanged=%d\n",
		cmd, report.Branch, report.Added, report.Modified, report.Conflicted, report.Unchanged)
	for _, c := range report.Conversations {
		fmt.Printf("  %-10s %-40s %s\n", c.Operation, c.ProjectPath, c.Timestamp)
	}
}

func openTransport(paths orchestrator.Paths) transport.Transport {
	state, err := config.LoadState(config.StatePath(paths.ConfigDir))
	if err != nil {
		fatalf("load state: %v", err)
	}
	authorName, authorEmail := commitIdentity()
	t, err := transport.Open(state.SyncRepoPath, authorName, authorEmail)
	if err != nil {
		fatalf("open sync repo: %v", err)
	}
	return t
}

func commitIdentity() (name, email string) {
	name = os.Getenv("CONVSYNC_AUTHOR_NAME")
	email = os.Getenv("CONVSYNC_AUTHOR_EMAIL")
	if name == "" {
		name = "convsync"
	}
	if email == "" {
		email = "convsync@localhost"
	}
	return name, email
}

// applyLocalStoreOverride re-roots paths under filter.yaml's
// local_store_path, if the user has set one. A missing or unreadable
// filter config is not fatal here — LoadFilterConfig already defaults to
// an empty override, and init hasn't necessarily run yet on a first
// invocation.
func applyLocalStoreOverride(paths orchestrator.Paths) orchestrator.Paths {
	filterCfg, err := config.LoadFilterConfig(config.FilterPath(paths.ConfigDir))
	if err != nil || filterCfg.LocalStorePath == "" {
		return paths
	}
	paths.LocalProjectsDir = filepath.Join(filterCfg.LocalStorePath, "projects")
	paths.LocalHistoryPath = filepath.Join(filterCfg.LocalStorePath, "history.jsonl")
	return paths
}

func defaultPaths() (orchestrator.Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return orchestrator.Paths{}, fmt.Errorf("resolve home dir: %w", err)
	}
	claudeDir := filepath.Join(home, ".claude")
	return orchestrator.Paths{
		ConfigDir:        filepath.Join(home, ".claude-sync"),
		LocalProjectsDir: filepath.Join(claudeDir, "projects"),
		LocalHistoryPath: filepath.Join(claudeDir, "history.jsonl"),
	}, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `convsync — sync Claude Code conversation transcripts via git

Usage:
  convsync init   [-remote <url>]
  convsync pull   [-branch <name>] [-no-fetch]
  convsync push   [-branch <name>] [-no-push] [-message <text>]
  convsync status

Common flags:
  -v   verbose logging
  -q   quiet (errors only)`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fatal: "+format+"\n", args...)
	os.Exit(1)
}
