package config

import "testing"

func TestJournalAppendIsMostRecentFirst(t *testing.T) {
	dir := t.TempDir()
	path := JournalPath(dir)

	j, err := LoadJournal(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if err := j.Append(path, OperationRecord{Timestamp: "t1", Type: OperationPull, SessionsAffected: 3}); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := j.Append(path, OperationRecord{Timestamp: "t2", Type: OperationPush, SessionsAffected: 1}); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	reloaded, err := LoadJournal(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(reloaded.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(reloaded.Records))
	}
	if reloaded.Records[0].Timestamp != "t2" {
		t.Errorf("most recent record = %+v, want timestamp t2 first", reloaded.Records[0])
	}
}

func TestJournalEvictsOldestBeyondCapacity(t *testing.T) {
	dir := t.TempDir()
	path := JournalPath(dir)
	j := &Journal{}

	for i := 0; i < journalCapacity+3; i++ {
		rec := OperationRecord{Timestamp: string(rune('a' + i)), Type: OperationPull}
		if err := j.Append(path, rec); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if len(j.Records) != journalCapacity {
		t.Fatalf("records = %d, want %d", len(j.Records), journalCapacity)
	}
}
