package syncengine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nickcecere/convsync/pkg/convo"
)

// ResolutionKind discriminates the tagged union carried by
// ConflictResolution.
type ResolutionKind int

const (
	ResolutionPending ResolutionKind = iota
	ResolutionSmartMerge
	ResolutionKeepBoth
	ResolutionKeepLocal
	ResolutionKeepRemote
)

func (k ResolutionKind) String() string {
	switch k {
	case ResolutionPending:
		return "pending"
	case ResolutionSmartMerge:
		return "smart_merge"
	case ResolutionKeepBoth:
		return "keep_both"
	case ResolutionKeepLocal:
		return "keep_local"
	case ResolutionKeepRemote:
		return "keep_remote"
	default:
		return "unknown"
	}
}

// ConflictResolution is a tagged union: exactly the fields relevant to Kind
// are meaningful, mirroring Rust's enum-with-payload shape in Go.
type ConflictResolution struct {
	Kind ResolutionKind

	// Populated when Kind == ResolutionSmartMerge.
	MergedEntries []convo.Entry
	Stats         MergeStats

	// Populated when Kind == ResolutionKeepBoth.
	RenamedRemoteFile string
}

// Conflict records a true divergence between a session's local and remote
// copies, plus enough metadata to describe and resolve it.
type Conflict struct {
	SessionID          string
	LocalFile          string
	RemoteFile         string
	LocalTimestamp     string
	RemoteTimestamp    string
	LocalMessageCount  int
	RemoteMessageCount int
	LocalHash          string
	RemoteHash         string
	Resolution         ConflictResolution
}

// NewConflict builds a pending conflict record from the two diverged copies.
func NewConflict(local, remote convo.Session) (Conflict, error) {
	localHash, err := local.ContentHash()
	if err != nil {
		return Conflict{}, fmt.Errorf("syncengine: conflict local hash: %w", err)
	}
	remoteHash, err := remote.ContentHash()
	if err != nil {
		return Conflict{}, fmt.Errorf("syncengine: conflict remote hash: %w", err)
	}
	return Conflict{
		SessionID:          local.SessionID,
		LocalFile:          local.Path,
		RemoteFile:         remote.Path,
		LocalTimestamp:     local.LatestTimestamp(),
		RemoteTimestamp:    remote.LatestTimestamp(),
		LocalMessageCount:  local.MessageCount(),
		RemoteMessageCount: remote.MessageCount(),
		LocalHash:          localHash,
		RemoteHash:         remoteHash,
		Resolution:         ConflictResolution{Kind: ResolutionPending},
	}, nil
}

// IsRealConflict reports whether the two hashes actually differ — a
// defensive check against callers that build a Conflict from sessions that
// turned out identical after all.
func (c Conflict) IsRealConflict() bool {
	return c.LocalHash != c.RemoteHash
}

// Description renders a short human-readable summary for CLI output.
func (c Conflict) Description() string {
	localTS := c.LocalTimestamp
	if localTS == "" {
		localTS = "unknown"
	}
	remoteTS := c.RemoteTimestamp
	if remoteTS == "" {
		remoteTS = "unknown"
	}
	return fmt.Sprintf(
		"Session %s has diverged:\n  Local: %d messages, last update: %s\n  Remote: %d messages, last update: %s",
		c.SessionID, c.LocalMessageCount, localTS, c.RemoteMessageCount, remoteTS,
	)
}

// TrySmartMerge attempts to combine local and remote into one resolution.
// On success it sets the conflict's resolution to SmartMerge; on failure
// the caller is expected to fall back to KeepBoth.
func (c *Conflict) TrySmartMerge(local, remote convo.Session) error {
	result, err := SmartMerge(local, remote)
	if err != nil {
		return err
	}
	c.Resolution = ConflictResolution{
		Kind:          ResolutionSmartMerge,
		MergedEntries: result.MergedEntries,
		Stats:         result.Stats,
	}
	return nil
}

// ResolveKeepBoth sets the resolution to KeepBoth, renaming the remote file
// with conflictSuffix inserted before its extension.
func (c *Conflict) ResolveKeepBoth(conflictSuffix string) string {
	ext := filepath.Ext(c.RemoteFile)
	stem := strings.TrimSuffix(filepath.Base(c.RemoteFile), ext)
	if ext == "" {
		ext = ".jsonl"
	}
	dir := filepath.Dir(c.RemoteFile)
	renamed := filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, conflictSuffix, ext))
	c.Resolution = ConflictResolution{Kind: ResolutionKeepBoth, RenamedRemoteFile: renamed}
	return renamed
}

// Detector accumulates true conflicts found across a batch of sessions.
// Relationships that are Identical, LocalIsPrefix, or RemoteIsPrefix are
// never conflicts — the orchestrator handles those by simply copying the
// longer side.
type Detector struct {
	conflicts []Conflict
}

// NewDetector returns an empty Detector.
func NewDetector() *Detector { return &Detector{} }

// Detect compares every remote session against its local counterpart (by
// sessionId) and records a Conflict for each true divergence.
func (d *Detector) Detect(localSessions, remoteSessions []convo.Session) error {
	localByID := make(map[string]convo.Session, len(localSessions))
	for _, s := range localSessions {
		localByID[s.SessionID] = s
	}

	for _, remote := range remoteSessions {
		local, ok := localByID[remote.SessionID]
		if !ok {
			continue
		}
		rel, err := AnalyzeRelationship(local, remote)
		if err != nil {
			return fmt.Errorf("syncengine: analyze relationship for %s: %w", remote.SessionID, err)
		}
		if rel != Diverged {
			continue
		}
		conflict, err := NewConflict(local, remote)
		if err != nil {
			return err
		}
		d.conflicts = append(d.conflicts, conflict)
	}
	return nil
}

// Conflicts returns the detected conflicts.
func (d *Detector) Conflicts() []Conflict { return d.conflicts }

// ConflictsMut returns pointers into the detector's own slice, so callers
// can set each conflict's Resolution in place while iterating (e.g. trying
// SmartMerge on every conflict in a loop).
func (d *Detector) ConflictsMut() []*Conflict {
	ptrs := make([]*Conflict, len(d.conflicts))
	for i := range d.conflicts {
		ptrs[i] = &d.conflicts[i]
	}
	return ptrs
}

// HasConflicts reports whether any conflict was detected.
func (d *Detector) HasConflicts() bool { return len(d.conflicts) > 0 }

// ConflictCount returns the number of detected conflicts.
func (d *Detector) ConflictCount() int { return len(d.conflicts) }
