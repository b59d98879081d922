package syncengine

import (
	"encoding/json"
	"testing"

	"github.com/nickcecere/convsync/pkg/convo"
)

func entry(uuid, ts string) convo.Entry {
	return convo.Entry{Type: "user", UUID: uuid, Timestamp: ts, Message: json.RawMessage(`{"content":"x"}`)}
}

func session(id string, entries ...convo.Entry) convo.Session {
	return convo.Session{SessionID: id, Entries: entries}
}

func TestAnalyzeRelationshipIdentical(t *testing.T) {
	local := session("s1", entry("a", "t1"), entry("b", "t2"))
	remote := session("s1", entry("a", "t1"), entry("b", "t2"))

	rel, err := AnalyzeRelationship(local, remote)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rel != Identical {
		t.Errorf("relationship = %s, want identical", rel)
	}
}

func TestAnalyzeRelationshipLocalIsPrefix(t *testing.T) {
	local := session("s1", entry("a", "t1"))
	remote := session("s1", entry("a", "t1"), entry("b", "t2"))

	rel, err := AnalyzeRelationship(local, remote)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rel != LocalIsPrefix {
		t.Errorf("relationship = %s, want local_is_prefix", rel)
	}
}

func TestAnalyzeRelationshipRemoteIsPrefix(t *testing.T) {
	local := session("s1", entry("a", "t1"), entry("b", "t2"))
	remote := session("s1", entry("a", "t1"))

	rel, err := AnalyzeRelationship(local, remote)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rel != RemoteIsPrefix {
		t.Errorf("relationship = %s, want remote_is_prefix", rel)
	}
}

func TestAnalyzeRelationshipDivergedWhenBothHaveUniqueEntries(t *testing.T) {
	local := session("s1", entry("a", "t1"), entry("local-only", "t2"))
	remote := session("s1", entry("a", "t1"), entry("remote-only", "t2"))

	rel, err := AnalyzeRelationship(local, remote)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rel != Diverged {
		t.Errorf("relationship = %s, want diverged", rel)
	}
}

func TestAnalyzeRelationshipEditedSharedEntryIsDiverged(t *testing.T) {
	localA := entry("a", "t1")
	remoteA := entry("a", "t1")
	remoteA.Message = json.RawMessage(`{"content":"edited"}`)

	local := session("s1", localA, entry("b", "t2"))
	remote := session("s1", remoteA, entry("b", "t2"), entry("c", "t3"))

	// remote has a strict superset of local's uuids (a, b, c vs a, b), so a
	// naive uuid-set check would call this LocalIsPrefix — but "a" was
	// edited on the remote side, so this must be Diverged.
	rel, err := AnalyzeRelationship(local, remote)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if rel != Diverged {
		t.Errorf("relationship = %s, want diverged (edited shared entry)", rel)
	}
}
