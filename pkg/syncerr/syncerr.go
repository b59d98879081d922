// Package syncerr classifies the failures the sync engine can surface so
// callers and tests can discriminate on kind rather than parsing error
// strings.
package syncerr

import (
	"errors"
	"fmt"
)

// Kind discriminates the class of failure behind an Error.
type Kind int

const (
	// KindLockBusy means another sync process already holds the process lock.
	KindLockBusy Kind = iota
	// KindTransportFailure means the git transport (fetch, pull, push,
	// branch operations) failed.
	KindTransportFailure
	// KindParseFailure means a session file could not be parsed as JSONL.
	KindParseFailure
	// KindFilesystemFailure means a filesystem operation (read, write,
	// mkdir) failed, whether in the local store, the config directory, or
	// the sync repository's working tree.
	KindFilesystemFailure
	// KindMergeFailure means smart-merge or relationship analysis could not
	// produce a result.
	KindMergeFailure
	// KindConfigFailure means the config file failed to load or validate.
	KindConfigFailure
)

func (k Kind) String() string {
	switch k {
	case KindLockBusy:
		return "lock_busy"
	case KindTransportFailure:
		return "transport_failure"
	case KindParseFailure:
		return "parse_failure"
	case KindFilesystemFailure:
		return "filesystem_failure"
	case KindMergeFailure:
		return "merge_failure"
	case KindConfigFailure:
		return "config_failure"
	default:
		return "unknown"
	}
}

// Error wraps an underlying cause with a Kind, so errors.As lets callers
// recover the classification without string matching.
type Error struct {
	Kind Kind
	Op   string // the operation that failed, e.g. "pull", "push", "merge"
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
