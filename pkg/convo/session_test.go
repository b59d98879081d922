package convo

import (
	"encoding/json"
	"testing"
)

func makeEntry(uuid, ts, typ string) Entry {
	return Entry{Type: typ, UUID: uuid, Timestamp: ts, Message: json.RawMessage(`{"content":"x"}`)}
}

func TestSessionContentHashStableAndOrderSensitive(t *testing.T) {
	s1 := Session{Entries: []Entry{makeEntry("a", "2026-01-01T00:00:00Z", "user"), makeEntry("b", "2026-01-01T00:00:01Z", "assistant")}}
	s2 := Session{Entries: []Entry{makeEntry("a", "2026-01-01T00:00:00Z", "user"), makeEntry("b", "2026-01-01T00:00:01Z", "assistant")}}
	s3 := Session{Entries: []Entry{makeEntry("b", "2026-01-01T00:00:01Z", "assistant"), makeEntry("a", "2026-01-01T00:00:00Z", "user")}}

	h1, err := s1.ContentHash()
	if err != nil {
		t.Fatalf("hash s1: %v", err)
	}
	h2, err := s2.ContentHash()
	if err != nil {
		t.Fatalf("hash s2: %v", err)
	}
	h3, err := s3.ContentHash()
	if err != nil {
		t.Fatalf("hash s3: %v", err)
	}

	if h1 != h2 {
		t.Errorf("identical sessions hashed differently: %s vs %s", h1, h2)
	}
	if h1 == h3 {
		t.Errorf("reordered entries should change the hash")
	}
	if len(h1) != 16 {
		t.Errorf("hash %q is not 16 hex digits", h1)
	}
}

func TestSessionUUIDSetSkipsEmptyUUIDs(t *testing.T) {
	s := Session{Entries: []Entry{
		makeEntry("a", "t1", "user"),
		makeEntry("", "t2", "assistant"),
		makeEntry("b", "t3", "user"),
	}}
	set := s.UUIDSet()
	if len(set) != 2 {
		t.Fatalf("set len = %d, want 2: %v", len(set), set)
	}
	if _, ok := set["a"]; !ok {
		t.Error("missing a")
	}
	if _, ok := set["b"]; !ok {
		t.Error("missing b")
	}
}

func TestSessionLatestTimestamp(t *testing.T) {
	s := Session{Entries: []Entry{
		makeEntry("a", "2026-01-01T00:00:00Z", "user"),
		makeEntry("b", "2026-01-03T00:00:00Z", "assistant"),
		makeEntry("c", "2026-01-02T00:00:00Z", "user"),
	}}
	if got := s.LatestTimestamp(); got != "2026-01-03T00:00:00Z" {
		t.Errorf("latest = %q, want 2026-01-03T00:00:00Z", got)
	}
}

func TestSessionMessageCountIgnoresNonMessageEntries(t *testing.T) {
	s := Session{Entries: []Entry{
		makeEntry("a", "t1", "user"),
		makeEntry("b", "t2", "assistant"),
		makeEntry("c", "t3", "summary"),
	}}
	if got := s.MessageCount(); got != 2 {
		t.Errorf("message count = %d, want 2", got)
	}
}

func TestDeriveSessionIDFallsBackToFileStem(t *testing.T) {
	id := deriveSessionID(nil, "/tmp/sessions/abc-123.jsonl")
	if id != "abc-123" {
		t.Errorf("id = %q, want abc-123", id)
	}
}

func TestDeriveSessionIDPrefersEntryField(t *testing.T) {
	entries := []Entry{{Type: "user", SessionID: "real-id"}}
	id := deriveSessionID(entries, "/tmp/sessions/abc-123.jsonl")
	if id != "real-id" {
		t.Errorf("id = %q, want real-id", id)
	}
}
