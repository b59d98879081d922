package convo

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Identity is the dedup/merge key for one entry: its uuid when present,
// otherwise a content-key derived from (type, timestamp, hash(message)).
// Two entries with the same Identity are the same logical entry for the
// purposes of the relationship analyzer and the merger (Invariant 3).
type Identity struct {
	uuid string // non-empty iff the entry carried a uuid
	key  string // content-key, used only when uuid is empty
}

// EntryIdentity computes the identity of an entry per Invariant 3.
func EntryIdentity(e Entry) Identity {
	if e.UUID != "" {
		return Identity{uuid: e.UUID}
	}
	return Identity{key: contentKey(e)}
}

// contentKey builds the (type, timestamp, xxh64(message)) identity used for
// entries that carry no uuid.
func contentKey(e Entry) string {
	var msgHash uint64
	if len(e.Message) > 0 {
		msgHash = xxhash.Sum64(e.Message)
	}
	return fmt.Sprintf("%s\x00%s\x00%016x", e.Type, e.Timestamp, msgHash)
}
