package syncengine

import "testing"

func TestSmartMergeUnionsByIdentity(t *testing.T) {
	local := session("s1", entry("a", "2026-01-01T00:00:00Z"), entry("b", "2026-01-01T00:00:01Z"))
	remote := session("s1", entry("a", "2026-01-01T00:00:00Z"), entry("c", "2026-01-01T00:00:02Z"))

	result, err := SmartMerge(local, remote)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.MergedEntries) != 3 {
		t.Fatalf("merged entries = %d, want 3: %+v", len(result.MergedEntries), result.MergedEntries)
	}
}

func TestSmartMergeOrdersByTimestamp(t *testing.T) {
	local := session("s1", entry("b", "2026-01-01T00:00:02Z"))
	remote := session("s1", entry("a", "2026-01-01T00:00:01Z"), entry("c", "2026-01-01T00:00:03Z"))

	result, err := SmartMerge(local, remote)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := []string{result.MergedEntries[0].UUID, result.MergedEntries[1].UUID, result.MergedEntries[2].UUID}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %q, want %q (full order %v)", i, got[i], want[i], got)
		}
	}
}

func TestSmartMergeMissingTimestampSortsFirst(t *testing.T) {
	local := session("s1", entry("a", ""))
	remote := session("s1", entry("b", "2026-01-01T00:00:01Z"))

	result, err := SmartMerge(local, remote)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if result.MergedEntries[0].UUID != "a" {
		t.Errorf("entry with no timestamp should sort first, got order %v", result.MergedEntries)
	}
}

func TestSmartMergeTiesKeepInsertionOrder(t *testing.T) {
	local := session("s1", entry("local1", "2026-01-01T00:00:00Z"), entry("local2", "2026-01-01T00:00:00Z"))
	remote := session("s1", entry("remote1", "2026-01-01T00:00:00Z"))

	result, err := SmartMerge(local, remote)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := []string{result.MergedEntries[0].UUID, result.MergedEntries[1].UUID, result.MergedEntries[2].UUID}
	want := []string{"local1", "local2", "remote1"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d = %q, want %q (local entries before remote on a tie)", i, got[i], want[i])
		}
	}
}

func TestSmartMergeDeduplicatesIdenticalContentKeyEntries(t *testing.T) {
	// Neither entry carries a uuid, so identity falls back to the content
	// key; identical (type, timestamp, message) on both sides must collapse
	// to one merged entry, not two.
	noUUID := entry("", "2026-01-01T00:00:00Z")
	local := session("s1", noUUID)
	remote := session("s1", noUUID)

	result, err := SmartMerge(local, remote)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if len(result.MergedEntries) != 1 {
		t.Fatalf("merged entries = %d, want 1", len(result.MergedEntries))
	}
}
