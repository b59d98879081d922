// Package transport abstracts the git operations the sync engine needs,
// so the orchestrator can run against a real repository or an in-memory
// fake without caring which.
package transport

import "context"

// Transport is every git operation the orchestrator performs against the
// sync repository. There is no dedicated error value for "nothing to
// commit"; the orchestrator calls HasChanges before every Commit.
type Transport interface {
	CurrentBranch(ctx context.Context) (string, error)
	CreateBranch(ctx context.Context, name string) error
	Checkout(ctx context.Context, branch string) error
	DeleteBranch(ctx context.Context, name string) error
	DeleteRemoteBranch(ctx context.Context, remote, name string) error
	ListBranches(ctx context.Context) ([]string, error)

	StageAll(ctx context.Context) error
	HasChanges(ctx context.Context) (bool, error)
	Commit(ctx context.Context, message string) error
	CurrentCommitHash(ctx context.Context) (string, error)

	Fetch(ctx context.Context, remote string) error
	Pull(ctx context.Context, remote, branch string) error
	Push(ctx context.Context, remote, branch string) error

	// HasRemote reports whether the repository has any configured remote
	// named remote.
	HasRemote(ctx context.Context, remote string) bool
}
