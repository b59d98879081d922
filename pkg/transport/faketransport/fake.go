// Package faketransport is an in-memory implementation of transport.Transport
// for exercising the orchestrator's control flow without a real git
// repository or network.
package faketransport

import (
	"context"
	"fmt"

	"github.com/nickcecere/convsync/pkg/transport"
)

// Fake is a deterministic, in-memory Transport. Branches are simple string
// names pointing at a monotonic "commit" counter; there is no tree content
// here, since callers exercise file content through pkg/convo directly and
// only need git-level control flow (branch/commit/push/pull success or
// failure) from the transport.
type Fake struct {
	branches    map[string]int // branch -> commit counter
	remote      map[string]int // remote branch -> commit counter; hasRemote says whether a remote is configured
	current     string
	dirty       bool
	commitSeq   int
	hasRemote   bool
	FetchErr    error
	PullErr     error
	PushErr     error
	Ops         []string // recorded operation log, for assertions
}

// New returns a Fake rooted on branch "main" with no remote configured.
func New() *Fake {
	return &Fake{
		branches: map[string]int{"main": 0},
		remote:   map[string]int{},
		current:  "main",
	}
}

// WithRemote enables a simulated remote and seeds it with branch's current
// state.
func (f *Fake) WithRemote(branch string) *Fake {
	f.hasRemote = true
	f.remote[branch] = f.branches[branch]
	return f
}

// SetDirty marks the working tree as having uncommitted changes, the way a
// real transport would after files are written into its tree externally.
func (f *Fake) SetDirty(dirty bool) { f.dirty = dirty }

func (f *Fake) record(format string, args ...any) {
	f.Ops = append(f.Ops, fmt.Sprintf(format, args...))
}

func (f *Fake) CurrentBranch(ctx context.Context) (string, error) {
	return f.current, nil
}

func (f *Fake) CreateBranch(ctx context.Context, name string) error {
	if _, ok := f.branches[name]; ok {
		return fmt.Errorf("faketransport: branch %s already exists", name)
	}
	f.branches[name] = f.branches[f.current]
	f.record("create-branch %s", name)
	return nil
}

func (f *Fake) Checkout(ctx context.Context, branch string) error {
	if _, ok := f.branches[branch]; !ok {
		return fmt.Errorf("faketransport: no such branch %s", branch)
	}
	f.current = branch
	f.record("checkout %s", branch)
	return nil
}

func (f *Fake) DeleteBranch(ctx context.Context, name string) error {
	if name == f.current {
		return fmt.Errorf("faketransport: cannot delete checked-out branch %s", name)
	}
	delete(f.branches, name)
	f.record("delete-branch %s", name)
	return nil
}

func (f *Fake) DeleteRemoteBranch(ctx context.Context, remote, name string) error {
	delete(f.remote, name)
	f.record("delete-remote-branch %s/%s", remote, name)
	return nil
}

func (f *Fake) ListBranches(ctx context.Context) ([]string, error) {
	names := make([]string, 0, len(f.branches))
	for name := range f.branches {
		names = append(names, name)
	}
	return names, nil
}

func (f *Fake) StageAll(ctx context.Context) error {
	f.record("stage-all")
	return nil
}

func (f *Fake) HasChanges(ctx context.Context) (bool, error) {
	return f.dirty, nil
}

func (f *Fake) Commit(ctx context.Context, message string) error {
	if !f.dirty {
		return fmt.Errorf("faketransport: nothing to commit")
	}
	f.commitSeq++
	f.branches[f.current] = f.commitSeq
	f.dirty = false
	f.record("commit %s: %s", f.current, message)
	return nil
}

func (f *Fake) CurrentCommitHash(ctx context.Context) (string, error) {
	return fmt.Sprintf("commit-%d", f.branches[f.current]), nil
}

func (f *Fake) Fetch(ctx context.Context, remote string) error {
	if f.FetchErr != nil {
		return f.FetchErr
	}
	f.record("fetch %s", remote)
	return nil
}

func (f *Fake) Pull(ctx context.Context, remote, branch string) error {
	if f.PullErr != nil {
		return f.PullErr
	}
	if remoteSeq, ok := f.remote[branch]; ok && remoteSeq > f.branches[branch] {
		f.branches[branch] = remoteSeq
	}
	f.record("pull %s/%s", remote, branch)
	return nil
}

func (f *Fake) Push(ctx context.Context, remote, branch string) error {
	if f.PushErr != nil {
		return f.PushErr
	}
	if localSeq, ok := f.branches[branch]; ok {
		if remoteSeq, exists := f.remote[branch]; exists && remoteSeq > localSeq {
			return fmt.Errorf("%w: remote has diverged", transport.ErrNonFastForward)
		}
		f.remote[branch] = localSeq
	}
	f.record("push %s/%s", remote, branch)
	return nil
}

func (f *Fake) HasRemote(ctx context.Context, remote string) bool {
	return f.hasRemote
}
