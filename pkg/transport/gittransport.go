package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNonFastForward signals a push, fetch or pull that was rejected because
// the remote has diverged from the local branch. Pull logs such failures and
// continues with local state; Push returns them to its caller as
// orchestrator.ErrPushRejected.
var ErrNonFastForward = errors.New("transport: non-fast-forward update rejected")

// nonFastForwardMarkers are substrings go-git (and the git CLI it wraps in
// spirit) uses across its different code paths to report a rejected,
// diverged update. Matching on substring rather than a single sentinel
// error keeps this resilient to which underlying path produced the error.
var nonFastForwardMarkers = []string{
	"non-fast-forward",
	"fetch first",
	"rejected",
	"failed to push",
}

// GitTransport is the go-git-backed Transport used against a real working
// tree. Author identity is fixed at construction so every commit this tool
// makes is attributable to the sync process, not to whatever the ambient
// git config happens to say.
type GitTransport struct {
	repo       *git.Repository
	authorName string
	authorMail string
}

// Open opens the repository rooted at dir.
func Open(dir, authorName, authorMail string) (*GitTransport, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", dir, err)
	}
	return &GitTransport{repo: repo, authorName: authorName, authorMail: authorMail}, nil
}

// Init creates a new repository at dir, or opens it if one already exists.
func Init(dir, authorName, authorMail string) (*GitTransport, error) {
	repo, err := git.PlainInit(dir, false)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		return Open(dir, authorName, authorMail)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: init %s: %w", dir, err)
	}
	return &GitTransport{repo: repo, authorName: authorName, authorMail: authorMail}, nil
}

func (t *GitTransport) CurrentBranch(ctx context.Context) (string, error) {
	head, err := t.repo.Head()
	if err != nil {
		return "", fmt.Errorf("transport: head: %w", err)
	}
	if !head.Name().IsBranch() {
		return "", fmt.Errorf("transport: HEAD is detached")
	}
	return head.Name().Short(), nil
}

func (t *GitTransport) CreateBranch(ctx context.Context, name string) error {
	head, err := t.repo.Head()
	if err != nil {
		return fmt.Errorf("transport: create branch %s: %w", name, err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := t.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("transport: create branch %s: %w", name, err)
	}
	return nil
}

func (t *GitTransport) Checkout(ctx context.Context, branch string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("transport: worktree: %w", err)
	}
	branchRef := plumbing.NewBranchReferenceName(branch)
	err = wt.Checkout(&git.CheckoutOptions{Branch: branchRef})
	if err != nil {
		return fmt.Errorf("transport: checkout %s: %w", branch, err)
	}
	return nil
}

func (t *GitTransport) DeleteBranch(ctx context.Context, name string) error {
	if err := t.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("transport: delete branch %s: %w", name, err)
	}
	return nil
}

func (t *GitTransport) DeleteRemoteBranch(ctx context.Context, remote, name string) error {
	refspec := config.RefSpec(fmt.Sprintf(":refs/heads/%s", name))
	err := t.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refspec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("transport: delete remote branch %s/%s: %w", remote, name, classifyPushErr(err))
	}
	return nil
}

// AddRemote configures a remote named name pointing at url. It is not part
// of the Transport interface — only repository setup (convsync init) needs
// it, never the pull/push orchestration, which only ever talks to remotes
// that are already configured.
func (t *GitTransport) AddRemote(ctx context.Context, name, url string) error {
	_, err := t.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if err != nil {
		return fmt.Errorf("transport: add remote %s: %w", name, err)
	}
	return nil
}

func (t *GitTransport) ListBranches(ctx context.Context) ([]string, error) {
	iter, err := t.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("transport: list branches: %w", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transport: list branches: %w", err)
	}
	return names, nil
}

func (t *GitTransport) StageAll(ctx context.Context) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("transport: worktree: %w", err)
	}
	if err := wt.AddGlob("."); err != nil {
		return fmt.Errorf("transport: stage all: %w", err)
	}
	return nil
}

func (t *GitTransport) HasChanges(ctx context.Context) (bool, error) {
	wt, err := t.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("transport: worktree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("transport: status: %w", err)
	}
	return !status.IsClean(), nil
}

func (t *GitTransport) Commit(ctx context.Context, message string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("transport: worktree: %w", err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  t.authorName,
			Email: t.authorMail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("transport: commit: %w", err)
	}
	return nil
}

func (t *GitTransport) CurrentCommitHash(ctx context.Context) (string, error) {
	head, err := t.repo.Head()
	if err != nil {
		return "", fmt.Errorf("transport: head: %w", err)
	}
	return head.Hash().String(), nil
}

func (t *GitTransport) Fetch(ctx context.Context, remote string) error {
	err := t.repo.FetchContext(ctx, &git.FetchOptions{RemoteName: remote})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("transport: fetch %s: %w", remote, classifyPushErr(err))
	}
	return nil
}

func (t *GitTransport) Pull(ctx context.Context, remote, branch string) error {
	wt, err := t.repo.Worktree()
	if err != nil {
		return fmt.Errorf("transport: worktree: %w", err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    remote,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("transport: pull %s/%s: %w", remote, branch, classifyPushErr(err))
	}
	return nil
}

func (t *GitTransport) Push(ctx context.Context, remote, branch string) error {
	refspec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err := t.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refspec},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("transport: push %s/%s: %w", remote, branch, classifyPushErr(err))
	}
	return nil
}

func (t *GitTransport) HasRemote(ctx context.Context, remote string) bool {
	_, err := t.repo.Remote(remote)
	return err == nil
}

// classifyPushErr normalizes go-git's assorted rejection errors into
// ErrNonFastForward when the message matches one of the known markers, so
// callers can test with errors.Is instead of substring matching themselves.
func classifyPushErr(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range nonFastForwardMarkers {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrNonFastForward, err)
		}
	}
	return err
}
