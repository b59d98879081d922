package orchestrator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nickcecere/convsync/internal/config"
	"github.com/nickcecere/convsync/pkg/convo"
	"github.com/nickcecere/convsync/pkg/interactive"
	"github.com/nickcecere/convsync/pkg/synclock"
	"github.com/nickcecere/convsync/pkg/syncengine"
	"github.com/nickcecere/convsync/pkg/syncerr"
	"github.com/nickcecere/convsync/pkg/transport"
)

// PullOptions controls one invocation of Pull.
type PullOptions struct {
	// FetchRemote enables network operations (push the safety-net temp
	// branch, fetch and pull main). With it false, Pull only reconciles
	// local state against whatever is already in the sync repository.
	FetchRemote bool
	// Branch overrides which branch is treated as main. Empty means "use
	// the transport's current branch, or the state's main branch if that
	// fails".
	Branch string
	// Interactive gates the pre-merge confirmation prompt. It has no
	// effect when interactive.IsInteractive() is false.
	Interactive bool
	// In and Out back the confirmation prompt; default to os.Stdin/os.Stdout
	// when nil.
	In  io.Reader
	Out io.Writer
}

const tempBranchPrefix = "sync-local-"

func generateTempBranchName(now time.Time) string {
	return tempBranchPrefix + now.UTC().Format("20060102-150405")
}

// Pull reconciles the local store against the sync repository: local
// sessions are saved to a temp branch as a safety net, remote changes are
// pulled into main, true divergences are smart-merged or set aside as
// conflicts, and the result is appended back into the local store without
// ever rewriting bytes a concurrent assistant-tool write might also be
// touching.
func Pull(ctx context.Context, logger *slog.Logger, t transport.Transport, paths Paths, opts PullOptions) (*Report, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	lock, err := synclock.Acquire(synclock.DefaultPath(paths.ConfigDir))
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	state, err := config.LoadState(config.StatePath(paths.ConfigDir))
	if err != nil {
		return nil, err
	}
	filterCfg, err := config.LoadFilterConfig(config.FilterPath(paths.ConfigDir))
	if err != nil {
		return nil, err
	}
	convoFilter := filterCfg.ToConvoFilter()

	fetchRemote := opts.FetchRemote && state.HasRemote

	if err := cleanupOldTempBranches(ctx, t, fetchRemote, filterCfg.TempBranchRetentionHours, logger); err != nil {
		logger.Warn("pull: cleanup of old temp branches failed", "error", err)
	}

	mainBranch := opts.Branch
	if mainBranch == "" {
		if b, err := t.CurrentBranch(ctx); err == nil {
			mainBranch = b
		} else {
			mainBranch = state.MainBranch
		}
	}

	// Captured before the temp branch or any commit exists, mirroring the
	// original's commit_before_push snapshot, so the journal records what
	// main pointed at when this pull started.
	commitHash, _ := t.CurrentCommitHash(ctx)

	tempBranch := generateTempBranchName(time.Now())
	if err := t.CreateBranch(ctx, tempBranch); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.create_temp_branch", err)
	}
	if err := t.Checkout(ctx, tempBranch); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.checkout_temp_branch", err)
	}

	projectsDir := filepath.Join(state.SyncRepoPath, filterCfg.SyncSubdirectory)
	if err := os.MkdirAll(projectsDir, 0o755); err != nil {
		return nil, syncerr.New(syncerr.KindFilesystemFailure, "pull.mkdir_projects_dir", err)
	}

	localSessions, parseErrs := convo.Discover(logger, paths.LocalProjectsDir, convoFilter)
	for _, e := range parseErrs {
		logger.Warn("pull: skipping unparseable local session", "error", e)
	}
	for _, s := range localSessions {
		dest := destPath(s.Path, paths.LocalProjectsDir, projectsDir)
		if err := convo.WriteWhole(dest, s); err != nil {
			return nil, syncerr.New(syncerr.KindFilesystemFailure, "pull.save_local_to_temp", err)
		}
	}

	syncHistoryPath := filepath.Join(state.SyncRepoPath, "history.jsonl")
	if _, err := os.Stat(paths.LocalHistoryPath); err == nil {
		if _, _, err := syncengine.MergeHistory(logger, paths.LocalHistoryPath, syncHistoryPath, syncengine.TargetFirst); err != nil {
			logger.Warn("pull: failed to stage local history into sync repo", "error", err)
		}
	}

	if err := t.StageAll(ctx); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.stage_temp", err)
	}
	if changed, err := t.HasChanges(ctx); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.status_temp", err)
	} else if changed {
		msg := fmt.Sprintf("Save local state before pull (%s)", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
		if err := t.Commit(ctx, msg); err != nil {
			return nil, syncerr.New(syncerr.KindTransportFailure, "pull.commit_temp", err)
		}
	}

	if fetchRemote {
		if err := t.Push(ctx, "origin", tempBranch); err != nil {
			logger.Warn("pull: failed to push temp branch as safety net; continuing", "branch", tempBranch, "error", err)
		}
	}

	if err := t.Checkout(ctx, mainBranch); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.checkout_main", err)
	}

	if fetchRemote {
		if err := t.Fetch(ctx, "origin"); err != nil {
			logger.Warn("pull: fetch failed; continuing with local state", "error", err)
		}
		if err := t.Pull(ctx, "origin", mainBranch); err != nil {
			logger.Warn("pull: pull failed; continuing with local state", "error", err)
		}
	}

	remoteSessions, parseErrs := convo.Discover(logger, projectsDir, convoFilter)
	for _, e := range parseErrs {
		logger.Warn("pull: skipping unparseable remote session", "error", e)
	}

	if err := t.Checkout(ctx, tempBranch); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.checkout_temp_for_diff", err)
	}
	tempBranchSessions, parseErrs := convo.Discover(logger, projectsDir, convoFilter)
	for _, e := range parseErrs {
		logger.Warn("pull: skipping unparseable temp-branch session", "error", e)
	}
	if err := t.Checkout(ctx, mainBranch); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.checkout_main_again", err)
	}

	remoteByID := sessionsByID(remoteSessions)
	localByID := sessionsByID(tempBranchSessions)

	detector := syncengine.NewDetector()
	if err := detector.Detect(tempBranchSessions, remoteSessions); err != nil {
		return nil, syncerr.New(syncerr.KindMergeFailure, "pull.detect_conflicts", err)
	}

	if opts.Interactive && interactive.IsInteractive() {
		proceed, err := interactive.Confirm(opts.In, opts.Out,
			"Do you want to proceed with merging these changes?", true)
		if err != nil {
			return nil, err
		}
		if !proceed {
			_ = cleanupTempBranch(ctx, t, tempBranch, fetchRemote, filterCfg.TempBranchRetentionHours, true, logger)
			return &Report{Branch: mainBranch, Cancelled: true}, nil
		}
	}

	report := &Report{Branch: mainBranch}
	conflictSessionIDs := make(map[string]struct{}, detector.ConflictCount())
	for _, c := range detector.Conflicts() {
		conflictSessionIDs[c.SessionID] = struct{}{}
	}

	if detector.HasConflicts() {
		var failed []*syncengine.Conflict
		for _, conflict := range detector.ConflictsMut() {
			local, hasLocal := localByID[conflict.SessionID]
			remote, hasRemote := remoteByID[conflict.SessionID]
			if !hasLocal || !hasRemote {
				continue
			}
			if err := conflict.TrySmartMerge(local, remote); err != nil {
				logger.Warn("pull: smart merge failed", "session_id", conflict.SessionID, "error", err)
				failed = append(failed, conflict)
				continue
			}
			mergedSession := convo.Session{
				SessionID: conflict.SessionID,
				Entries:   conflict.Resolution.MergedEntries,
				Path:      local.Path,
			}
			// local.Path already lives under projectsDir (discovered while
			// checked out to the temp branch), so it is the correct
			// destination on main too — the working tree path doesn't
			// change across a branch switch, only its contents do.
			dest := local.Path
			if err := convo.WriteWhole(dest, mergedSession); err != nil {
				logger.Warn("pull: failed to write smart-merged session", "session_id", conflict.SessionID, "error", err)
				failed = append(failed, conflict)
				continue
			}
			report.Conversations = append(report.Conversations, ConversationSummary{
				SessionID:    conflict.SessionID,
				ProjectPath:  relativePath(local.Path, projectsDir),
				Timestamp:    mergedSession.LatestTimestamp(),
				MessageCount: mergedSession.MessageCount(),
				Operation:    OpConflict,
			})
		}

		if len(failed) > 0 {
			suffix := fmt.Sprintf("conflict-%s", time.Now().UTC().Format("20060102-150405"))
			for _, conflict := range failed {
				renamed := conflict.ResolveKeepBoth(suffix)
				if remote, ok := remoteByID[conflict.SessionID]; ok {
					if err := convo.WriteWhole(renamed, remote); err != nil {
						logger.Warn("pull: failed to write keep-both fork", "session_id", conflict.SessionID, "error", err)
					}
				}
			}
		}
		reportPath := config.ConflictReportPath(paths.ConfigDir)
		saveErr := config.SaveConflictReport(reportPath, config.ConflictReport{
			GeneratedAt: time.Now().UTC().Format(time.RFC3339),
			Conflicts:   detector.Conflicts(),
		})
		if saveErr != nil {
			logger.Warn("pull: failed to persist conflict report", "error", saveErr)
		}
		report.Conflicted = detector.ConflictCount()
	}

	for _, local := range tempBranchSessions {
		if _, isConflict := conflictSessionIDs[local.SessionID]; isConflict {
			continue
		}
		relPath := relativePath(local.Path, projectsDir)
		dest := filepath.Join(projectsDir, relPath)

		remote, hasRemote := remoteByID[local.SessionID]
		var operation SyncOperation
		if !hasRemote {
			operation = OpAdded
			if err := convo.WriteWhole(dest, local); err != nil {
				return nil, syncerr.New(syncerr.KindFilesystemFailure, "pull.write_local_only_session", err)
			}
			report.Added++
		} else {
			rel, err := syncengine.AnalyzeRelationship(local, remote)
			if err != nil {
				return nil, syncerr.New(syncerr.KindMergeFailure, "pull.analyze_relationship", err)
			}
			switch rel {
			case syncengine.Identical:
				operation = OpUnchanged
				report.Unchanged++
			case syncengine.LocalIsPrefix:
				operation = OpModified
				report.Modified++
			case syncengine.RemoteIsPrefix:
				operation = OpModified
				report.SkippedLocalNewer++
				if err := convo.WriteWhole(dest, local); err != nil {
					return nil, syncerr.New(syncerr.KindFilesystemFailure, "pull.write_local_newer_session", err)
				}
			case syncengine.Diverged:
				// Not caught by the detector (both sides share the session
				// id but the detector missed it, or ran against stale
				// maps) — fall back to the same identity-based union the
				// smart merge path uses, without full stats tracking.
				merged := unionByIdentity(local, remote)
				if err := convo.WriteWhole(dest, merged); err != nil {
					logger.Warn("pull: inline diverged-session merge failed", "session_id", local.SessionID, "error", err)
				}
				operation = OpModified
				report.Modified++
			}
		}

		summary := ConversationSummary{
			SessionID:    local.SessionID,
			ProjectPath:  relPath,
			Timestamp:    local.LatestTimestamp(),
			MessageCount: local.MessageCount(),
			Operation:    operation,
		}
		report.Conversations = append(report.Conversations, summary)
	}

	for _, remote := range remoteSessions {
		if _, ok := localByID[remote.SessionID]; ok {
			continue
		}
		report.Added++
		report.Conversations = append(report.Conversations, ConversationSummary{
			SessionID:    remote.SessionID,
			ProjectPath:  relativePath(remote.Path, projectsDir),
			Timestamp:    remote.LatestTimestamp(),
			MessageCount: remote.MessageCount(),
			Operation:    OpAdded,
		})
	}

	if err := t.StageAll(ctx); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.stage_main", err)
	}
	if changed, err := t.HasChanges(ctx); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "pull.status_main", err)
	} else if changed {
		msg := fmt.Sprintf("Merge local changes from %s (%s)", tempBranch, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
		if err := t.Commit(ctx, msg); err != nil {
			return nil, syncerr.New(syncerr.KindTransportFailure, "pull.commit_main", err)
		}
	}

	if err := appendOnlyWriteBack(logger, paths, projectsDir, convoFilter); err != nil {
		return nil, err
	}

	if _, err := os.Stat(syncHistoryPath); err == nil {
		if _, _, err := syncengine.MergeHistory(logger, syncHistoryPath, paths.LocalHistoryPath, syncengine.TargetFirst); err != nil {
			logger.Warn("pull: failed to merge history.jsonl back into local store", "error", err)
		}
	}

	if err := cleanupTempBranch(ctx, t, tempBranch, fetchRemote, filterCfg.TempBranchRetentionHours, false, logger); err != nil {
		logger.Warn("pull: temp branch cleanup failed", "error", err)
	}

	recordJournalEntry(paths, config.OperationPull, len(report.Conversations), report.Conflicted, commitHash, logger)

	return report, nil
}

// appendOnlyWriteBack copies the sync repo's merged session state back into
// the local store, appending only entries the local copy doesn't already
// have (by convo.EntryIdentity) rather than rewriting files a concurrent
// assistant-tool write might also be touching.
func appendOnlyWriteBack(logger *slog.Logger, paths Paths, projectsDir string, filter convo.Filter) error {
	currentLocal, parseErrs := convo.Discover(logger, paths.LocalProjectsDir, filter)
	for _, e := range parseErrs {
		logger.Warn("pull: skipping unparseable local session during write-back", "error", e)
	}
	currentLocalByID := sessionsByID(currentLocal)

	syncSessions, parseErrs := convo.Discover(logger, projectsDir, filter)
	for _, e := range parseErrs {
		logger.Warn("pull: skipping unparseable sync-repo session during write-back", "error", e)
	}

	for _, syncSession := range syncSessions {
		relPath := relativePath(syncSession.Path, projectsDir)
		localPath := filepath.Join(paths.LocalProjectsDir, relPath)

		localSession, exists := currentLocalByID[syncSession.SessionID]
		if !exists {
			if err := convo.WriteWhole(localPath, syncSession); err != nil {
				return syncerr.New(syncerr.KindFilesystemFailure, "pull.write_new_local_session", err)
			}
			continue
		}

		present := make(map[convo.Identity]struct{}, len(localSession.Entries))
		for _, e := range localSession.Entries {
			present[convo.EntryIdentity(e)] = struct{}{}
		}

		var toAppend []convo.Entry
		for _, e := range syncSession.Entries {
			if _, ok := present[convo.EntryIdentity(e)]; !ok {
				toAppend = append(toAppend, e)
			}
		}
		if len(toAppend) == 0 {
			continue
		}
		if err := convo.Append(localPath, toAppend); err != nil {
			return syncerr.New(syncerr.KindFilesystemFailure, "pull.append_local_session", err)
		}
	}
	return nil
}

// unionByIdentity combines two diverged sessions without the detector's
// richer stats, for the fallback path where a divergence slips past
// conflict detection.
func unionByIdentity(local, remote convo.Session) convo.Session {
	seen := make(map[convo.Identity]struct{}, len(local.Entries)+len(remote.Entries))
	var entries []convo.Entry
	for _, e := range local.Entries {
		id := convo.EntryIdentity(e)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			entries = append(entries, e)
		}
	}
	for _, e := range remote.Entries {
		id := convo.EntryIdentity(e)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			entries = append(entries, e)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp < entries[j].Timestamp })
	return convo.Session{SessionID: local.SessionID, Entries: entries, Path: local.Path}
}

func sessionsByID(sessions []convo.Session) map[string]convo.Session {
	m := make(map[string]convo.Session, len(sessions))
	for _, s := range sessions {
		m[s.SessionID] = s
	}
	return m
}

func destPath(sourcePath, sourceRoot, destRoot string) string {
	return filepath.Join(destRoot, relativePath(sourcePath, sourceRoot))
}

func relativePath(path, root string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.Base(path)
	}
	return rel
}

func recordJournalEntry(paths Paths, opType config.OperationType, sessionsAffected, conflictsResolved int, commitHash string, logger *slog.Logger) {
	journalPath := config.JournalPath(paths.ConfigDir)
	journal, err := config.LoadJournal(journalPath)
	if err != nil {
		logger.Warn("failed to load operation journal", "error", err)
		journal = &config.Journal{}
	}
	rec := config.OperationRecord{
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		Type:              opType,
		SessionsAffected:  sessionsAffected,
		ConflictsResolved: conflictsResolved,
		CommitHash:        commitHash,
	}
	if err := journal.Append(journalPath, rec); err != nil {
		logger.Warn("failed to save operation to journal", "error", err)
	}
}

func cleanupTempBranch(ctx context.Context, t transport.Transport, tempBranch string, hasRemote bool, retentionHours int, force bool, logger *slog.Logger) error {
	if retentionHours > 0 && !force {
		logger.Info("temp branch retained", "branch", tempBranch, "retention_hours", retentionHours)
		return nil
	}

	if hasRemote {
		if err := t.DeleteRemoteBranch(ctx, "origin", tempBranch); err != nil {
			logger.Debug("failed to delete remote temp branch (may not exist)", "branch", tempBranch, "error", err)
		}
	}
	if err := t.DeleteBranch(ctx, tempBranch); err != nil {
		logger.Warn("failed to delete local temp branch", "branch", tempBranch, "error", err)
	}
	return nil
}

func cleanupOldTempBranches(ctx context.Context, t transport.Transport, hasRemote bool, retentionHours int, logger *slog.Logger) error {
	if retentionHours == 0 {
		return nil
	}

	branches, err := t.ListBranches(ctx)
	if err != nil {
		logger.Debug("failed to list branches for cleanup", "error", err)
		return nil
	}

	now := time.Now().UTC()
	retention := time.Duration(retentionHours) * time.Hour
	cleaned := 0

	for _, branch := range branches {
		if !strings.HasPrefix(branch, tempBranchPrefix) {
			continue
		}
		ts := strings.TrimPrefix(branch, tempBranchPrefix)
		branchTime, err := time.Parse("20060102-150405", ts)
		if err != nil {
			continue
		}
		if now.Sub(branchTime) <= retention {
			continue
		}

		if hasRemote {
			if err := t.DeleteRemoteBranch(ctx, "origin", branch); err != nil {
				logger.Debug("failed to delete old remote temp branch", "branch", branch, "error", err)
			}
		}
		if err := t.DeleteBranch(ctx, branch); err != nil {
			logger.Debug("failed to delete old local temp branch", "branch", branch, "error", err)
			continue
		}
		cleaned++
	}

	if cleaned > 0 {
		logger.Info("cleaned up old temp branches", "count", cleaned)
	}
	return nil
}
