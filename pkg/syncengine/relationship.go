// Package syncengine implements the conflict-free merge logic the
// orchestrator relies on: relationship analysis between two copies of the
// same session, conflict detection, smart merge, and flat history-index
// merge.
package syncengine

import (
	"github.com/nickcecere/convsync/pkg/convo"
)

// Relationship describes how two copies of the same session (identified by
// sessionId) relate to one another.
type Relationship int

const (
	// Identical means both copies have the same content hash.
	Identical Relationship = iota
	// LocalIsPrefix means every local entry also exists in remote, and
	// remote has strictly more: remote simply continued the conversation.
	LocalIsPrefix
	// RemoteIsPrefix is the mirror of LocalIsPrefix.
	RemoteIsPrefix
	// Diverged covers every case that is neither Identical nor a prefix,
	// e.g. both sides hold uuids the other lacks, or a uuid shared by both
	// sides has different content. It is the only case that produces a
	// real conflict.
	Diverged
)

func (r Relationship) String() string {
	switch r {
	case Identical:
		return "identical"
	case LocalIsPrefix:
		return "local_is_prefix"
	case RemoteIsPrefix:
		return "remote_is_prefix"
	case Diverged:
		return "diverged"
	default:
		return "unknown"
	}
}

// AnalyzeRelationship compares local and remote copies of the same session.
// When one side's uuids are a strict subset of the other's and every shared
// uuid has identical content on both sides, the result is LocalIsPrefix or
// RemoteIsPrefix, not Diverged; any other difference is Diverged.
func AnalyzeRelationship(local, remote convo.Session) (Relationship, error) {
	localHash, err := local.ContentHash()
	if err != nil {
		return Diverged, err
	}
	remoteHash, err := remote.ContentHash()
	if err != nil {
		return Diverged, err
	}
	if localHash == remoteHash {
		return Identical, nil
	}

	localUUIDs := local.UUIDSet()
	remoteUUIDs := remote.UUIDSet()

	localOnly := setDifference(localUUIDs, remoteUUIDs)
	remoteOnly := setDifference(remoteUUIDs, localUUIDs)

	if len(localOnly) == 0 && len(remoteOnly) > 0 {
		if commonEntriesIdentical(local, remote) {
			return LocalIsPrefix, nil
		}
	}
	if len(remoteOnly) == 0 && len(localOnly) > 0 {
		if commonEntriesIdentical(local, remote) {
			return RemoteIsPrefix, nil
		}
	}

	return Diverged, nil
}

func setDifference(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for k := range a {
		if _, ok := b[k]; !ok {
			out[k] = struct{}{}
		}
	}
	return out
}

// commonEntriesIdentical verifies that any uuid shared by both sessions
// serializes to the same bytes on each side. A shared uuid with differing
// content means history was edited, not merely extended — the divergence
// case, never a clean prefix relationship.
func commonEntriesIdentical(local, remote convo.Session) bool {
	localByUUID := local.ByUUID()
	for uuid, remoteEntry := range remote.ByUUID() {
		localEntry, ok := localByUUID[uuid]
		if !ok {
			continue
		}
		localJSON, err := localEntry.CanonicalJSON()
		if err != nil {
			return false
		}
		remoteJSON, err := remoteEntry.CanonicalJSON()
		if err != nil {
			return false
		}
		if string(localJSON) != string(remoteJSON) {
			return false
		}
	}
	return true
}
