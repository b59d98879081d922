// Package convo models one conversation session: the JSONL record schema
// and the append-only file contract that mediates between the local store
// and the sync transport.
package convo

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one JSONL line of a conversation session.
//
// Unknown fields must round-trip bit-identically through Parse -> write, so
// anything not named below lives in Extra and is merged back in at the same
// nesting level on marshal.
type Entry struct {
	Type       string          `json:"type"`
	UUID       string          `json:"uuid,omitempty"`
	ParentUUID string          `json:"parentUuid,omitempty"`
	SessionID  string          `json:"sessionId,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`

	// Extra holds every field not named above (cwd, version, gitBranch,
	// and anything the tool adds in the future), keyed by JSON name.
	Extra map[string]json.RawMessage `json:"-"`
}

var knownEntryFields = map[string]bool{
	"type": true, "uuid": true, "parentUuid": true,
	"sessionId": true, "timestamp": true, "message": true,
}

// UnmarshalJSON decodes the known fields and stashes everything else in Extra.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type knownFields Entry
	var k knownFields
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}
	*e = Entry(k)

	e.Extra = make(map[string]json.RawMessage, len(raw))
	for key, val := range raw {
		if knownEntryFields[key] {
			continue
		}
		e.Extra[key] = val
	}
	return nil
}

// MarshalJSON merges Extra back in with the known fields at the same level.
func (e Entry) MarshalJSON() ([]byte, error) {
	type knownFields Entry
	known, err := json.Marshal(knownFields(e))
	if err != nil {
		return nil, err
	}

	var merged map[string]json.RawMessage
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for key, val := range e.Extra {
		merged[key] = val
	}

	// Always sorted, Extra present or not: a struct's default field order
	// must never leak through, or the same logical entry serializes
	// differently depending on whether it happens to carry extra fields.
	// Stable key order so byte-identical re-serialization of unchanged
	// entries is reproducible across runs (content_hash and the
	// byte-identical-shared-entry check in the relationship analyzer
	// both depend on this).
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf := make([]byte, 0, 256)
	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		kb, _ := json.Marshal(k)
		buf = append(buf, kb...)
		buf = append(buf, ':')
		buf = append(buf, merged[k]...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// CanonicalJSON returns the entry's deterministic serialized form, used by
// both ContentHash and the byte-identical-shared-entry check in the
// relationship analyzer.
func (e Entry) CanonicalJSON() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("convo: canonicalize entry %s: %w", e.UUID, err)
	}
	return b, nil
}
