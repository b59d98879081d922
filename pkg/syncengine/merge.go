package syncengine

import (
	"sort"

	"github.com/nickcecere/convsync/pkg/convo"
)

// MergeStats summarizes a smart-merge result for CLI/log output.
type MergeStats struct {
	LocalMessages  int
	RemoteMessages int
	MergedMessages int
}

// MergeResult is the outcome of SmartMerge.
type MergeResult struct {
	MergedEntries []convo.Entry
	Stats         MergeStats
}

// SmartMerge combines two diverged copies of the same session into one
// ordered entry list. Every identity (see convo.EntryIdentity) present on
// either side appears exactly once in the result; ties prefer the local
// entry's bytes, since the local store is the side that is about to receive
// the merged write-back.
//
// The result is ordered by timestamp. Entries with no timestamp are
// considered "earliest" so tools that never stamped a time don't get
// shuffled to the end; entries that tie on timestamp keep the order they
// were encountered in (local entries first, then remote), giving a stable
// merge across repeated runs on the same inputs.
func SmartMerge(local, remote convo.Session) (MergeResult, error) {
	type seen struct {
		entry convo.Entry
		order int
	}

	byIdentity := make(map[convo.Identity]seen, len(local.Entries)+len(remote.Entries))
	order := 0

	for _, e := range local.Entries {
		id := convo.EntryIdentity(e)
		if _, ok := byIdentity[id]; !ok {
			byIdentity[id] = seen{entry: e, order: order}
			order++
		}
	}
	for _, e := range remote.Entries {
		id := convo.EntryIdentity(e)
		if _, ok := byIdentity[id]; !ok {
			byIdentity[id] = seen{entry: e, order: order}
			order++
		}
	}

	merged := make([]seen, 0, len(byIdentity))
	for _, s := range byIdentity {
		merged = append(merged, s)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		ti, tj := merged[i].entry.Timestamp, merged[j].entry.Timestamp
		if ti != tj {
			// Empty timestamp sorts first: lexicographic comparison already
			// does this since "" < any non-empty ISO-8601 string.
			return ti < tj
		}
		return merged[i].order < merged[j].order
	})

	entries := make([]convo.Entry, len(merged))
	for i, s := range merged {
		entries[i] = s.entry
	}

	return MergeResult{
		MergedEntries: entries,
		Stats: MergeStats{
			LocalMessages:  local.MessageCount(),
			RemoteMessages: remote.MessageCount(),
			MergedMessages: countMessages(entries),
		},
	}, nil
}

func countMessages(entries []convo.Entry) int {
	n := 0
	for _, e := range entries {
		if e.Type == "user" || e.Type == "assistant" {
			n++
		}
	}
	return n
}
