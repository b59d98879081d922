package convo

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Session is the in-memory triple (sessionId, ordered entries, source path).
type Session struct {
	SessionID string
	Entries   []Entry
	Path      string
}

// deriveSessionID returns the id carried by the first entry that has one,
// falling back to the file stem (the filename without its jsonl extension).
func deriveSessionID(entries []Entry, path string) string {
	for _, e := range entries {
		if e.SessionID != "" {
			return e.SessionID
		}
	}
	return fileStem(path)
}

func fileStem(path string) string {
	base := path
	if i := strings.LastIndexByte(base, '/'); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(base, ".jsonl")
	return base
}

// ContentHash is a stable 64-bit digest of the session's entries, rendered
// as 16 lowercase hex digits. It depends only on the entries (Invariant 4),
// not on Path, and is reproducible across machines and architectures: it
// hashes the canonical JSON form of each entry concatenated with newline
// separators (xxhash's 64-bit digest is fixed-endianness by construction).
func (s Session) ContentHash() (string, error) {
	h := xxhash.New()
	for _, e := range s.Entries {
		b, err := e.CanonicalJSON()
		if err != nil {
			return "", fmt.Errorf("convo: content hash: %w", err)
		}
		h.Write(b)
		h.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// UUIDSet returns the set of uuids carried by the session's entries.
// Entries without a uuid contribute nothing (spec.md §4.3 step 2).
func (s Session) UUIDSet() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Entries))
	for _, e := range s.Entries {
		if e.UUID != "" {
			set[e.UUID] = struct{}{}
		}
	}
	return set
}

// ByUUID indexes entries by uuid, skipping entries without one.
func (s Session) ByUUID() map[string]Entry {
	m := make(map[string]Entry, len(s.Entries))
	for _, e := range s.Entries {
		if e.UUID != "" {
			m[e.UUID] = e
		}
	}
	return m
}

// LatestTimestamp returns the lexicographically maximum timestamp among the
// session's entries (ISO-8601 strings sort correctly as strings), or "" if
// none carry one.
func (s Session) LatestTimestamp() string {
	var latest string
	for _, e := range s.Entries {
		if e.Timestamp > latest {
			latest = e.Timestamp
		}
	}
	return latest
}

// MessageCount returns the number of user/assistant entries.
func (s Session) MessageCount() int {
	n := 0
	for _, e := range s.Entries {
		if e.Type == "user" || e.Type == "assistant" {
			n++
		}
	}
	return n
}
