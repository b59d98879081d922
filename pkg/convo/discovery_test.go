package convo

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSessionFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDiscoverFindsOnlyJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "a.jsonl", `{"type":"user","uuid":"a","timestamp":"t1","message":{"content":"hi"}}`+"\n")
	writeSessionFile(t, dir, "b.jsonl", `{"type":"user","uuid":"b","timestamp":"t1","message":{"content":"hi"}}`+"\n")
	writeSessionFile(t, dir, "ignore.txt", "not a session\n")

	sessions, errs := Discover(nil, dir, Filter{})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
}

func TestDiscoverCollectsParseErrorsWithoutAborting(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "good.jsonl", `{"type":"user","uuid":"a","timestamp":"t1","message":{"content":"hi"}}`+"\n")
	writeSessionFile(t, dir, "bad.jsonl", "not json at all\n")

	sessions, errs := Discover(nil, dir, Filter{})
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %d, want 1", len(errs))
	}
}

func TestDiscoverHonorsFilter(t *testing.T) {
	dir := t.TempDir()
	writeSessionFile(t, dir, "keep.jsonl", `{"type":"user","uuid":"a","timestamp":"t1","message":{"content":"hi"}}`+"\n")
	writeSessionFile(t, dir, "skip-draft.jsonl", `{"type":"user","uuid":"b","timestamp":"t1","message":{"content":"hi"}}`+"\n")

	sessions, _ := Discover(nil, dir, Filter{Exclude: []string{"*draft*"}})
	if len(sessions) != 1 {
		t.Fatalf("sessions = %d, want 1", len(sessions))
	}
	if sessions[0].SessionID != "keep" {
		t.Errorf("sessionId = %q, want keep", sessions[0].SessionID)
	}
}
