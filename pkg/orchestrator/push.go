package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/nickcecere/convsync/internal/config"
	"github.com/nickcecere/convsync/pkg/interactive"
	"github.com/nickcecere/convsync/pkg/synclock"
	"github.com/nickcecere/convsync/pkg/syncerr"
	"github.com/nickcecere/convsync/pkg/transport"
)

// PushOptions controls one invocation of Push.
type PushOptions struct {
	// Message overrides the default "Sync at <timestamp>" commit message.
	Message string
	// PushRemote enables pushing to the configured remote after committing.
	PushRemote bool
	// Branch overrides which branch to push. Empty means "use the
	// transport's current branch, or the state's main branch if that
	// fails".
	Branch      string
	Interactive bool
	In          io.Reader
	Out         io.Writer
}

// ErrPushRejected is returned when a push is rejected because the remote
// has commits the local sync repo doesn't — the actionable fix is to run
// Pull first.
var ErrPushRejected = errors.New("orchestrator: push rejected, remote has diverged — run pull first")

// Push commits whatever is staged in the sync repository and pushes it to
// the configured remote. Unlike Pull, Push never touches the local store —
// local sessions are only captured into the sync repo during Pull.
func Push(ctx context.Context, logger *slog.Logger, t transport.Transport, paths Paths, opts PushOptions) (*Report, error) {
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

	branch := opts.Branch
	if branch == "" {
		if b, err := t.CurrentBranch(ctx); err == nil {
			branch = b
		} else {
			branch = state.MainBranch
		}
	}

	if err := t.StageAll(ctx); err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "push.stage", err)
	}

	// Captured before any commit this invocation might make, so the journal
	// records what the branch pointed at when push started.
	commitHash, _ := t.CurrentCommitHash(ctx)

	hasChanges, err := t.HasChanges(ctx)
	if err != nil {
		return nil, syncerr.New(syncerr.KindTransportFailure, "push.status", err)
	}

	report := &Report{Branch: branch}

	if hasChanges {
		if opts.Interactive && interactive.IsInteractive() {
			proceed, err := interactive.Confirm(opts.In, opts.Out,
				"Do you want to proceed with pushing these changes?", true)
			if err != nil {
				return nil, err
			}
			if !proceed {
				report.Cancelled = true
				return report, nil
			}
		}

		message := opts.Message
		if message == "" {
			message = fmt.Sprintf("Sync at %s", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
		}
		if err := t.Commit(ctx, message); err != nil {
			return nil, syncerr.New(syncerr.KindTransportFailure, "push.commit", err)
		}
	} else if !opts.PushRemote || !state.HasRemote {
		// Nothing to commit and nothing to push: a true no-op.
		return report, nil
	}

	if opts.PushRemote && state.HasRemote {
		if err := t.Push(ctx, "origin", branch); err != nil {
			if errors.Is(err, transport.ErrNonFastForward) {
				return nil, fmt.Errorf("%w: %v", ErrPushRejected, err)
			}
			return nil, syncerr.New(syncerr.KindTransportFailure, "push.push", err)
		}
	}

	recordJournalEntry(paths, config.OperationPush, 0, 0, commitHash, logger)

	return report, nil
}
