// Binary convsync-verify compares two conversation stores (typically the
// local store on one machine and a checked-out sync repository, or the same
// path on two different machines) and reports whether every shared session
// is in sync, without mutating either side.
//
// Usage:
//
//	convsync-verify <path1> <path2>
//
// Exits 1 if any shared session has truly diverged.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/nickcecere/convsync/pkg/convo"
	"github.com/nickcecere/convsync/pkg/syncengine"
)

type stats struct {
	identical  int
	firstAhead int
	secondAhead int
	diverged   int
	firstOnly  int
	secondOnly int
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "Usage: convsync-verify <path1> <path2>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Compares two conversation stores to verify sync status.")
		fmt.Fprintln(os.Stderr, "Shared sessions should be identical or one a prefix of the other.")
		os.Exit(2)
	}

	path1, path2 := os.Args[1], os.Args[2]
	name1, name2 := filepath.Base(path1), filepath.Base(path2)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Println("=== Conversation Sync Verification ===")
	fmt.Println()

	fmt.Printf("Scanning %s...\n", path1)
	sessions1, errs1 := convo.Discover(logger, path1, convo.Filter{})
	for _, e := range errs1 {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", e)
	}
	fmt.Printf("  Found %d sessions\n", len(sessions1))

	fmt.Printf("Scanning %s...\n", path2)
	sessions2, errs2 := convo.Discover(logger, path2, convo.Filter{})
	for _, e := range errs2 {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", e)
	}
	fmt.Printf("  Found %d sessions\n", len(sessions2))

	fmt.Println()
	fmt.Println("=== Comparing Sessions ===")

	byID1 := indexByID(sessions1)
	byID2 := indexByID(sessions2)

	ids := make(map[string]struct{}, len(byID1)+len(byID2))
	for id := range byID1 {
		ids[id] = struct{}{}
	}
	for id := range byID2 {
		ids[id] = struct{}{}
	}

	var st stats
	type divergence struct {
		sessionID string
		s1, s2    convo.Session
	}
	var diverged []divergence

	for id := range ids {
		s1, has1 := byID1[id]
		s2, has2 := byID2[id]
		switch {
		case !has1 && has2:
			st.secondOnly++
		case has1 && !has2:
			st.firstOnly++
		default:
			rel, err := syncengine.AnalyzeRelationship(s1, s2)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: comparing session %s: %v\n", id, err)
				continue
			}
			switch rel {
			case syncengine.Identical:
				st.identical++
			case syncengine.LocalIsPrefix:
				st.secondAhead++
			case syncengine.RemoteIsPrefix:
				st.firstAhead++
			case syncengine.Diverged:
				st.diverged++
				diverged = append(diverged, divergence{sessionID: id, s1: s1, s2: s2})
			}
		}
	}

	fmt.Println()
	fmt.Println("Results:")
	fmt.Printf("  Identical:        %d\n", st.identical)
	fmt.Printf("  %s ahead:  %d\n", name1, st.firstAhead)
	fmt.Printf("  %s ahead:  %d\n", name2, st.secondAhead)
	fmt.Printf("  Diverged:         %d\n", st.diverged)
	fmt.Printf("  %s only:   %d\n", name1, st.firstOnly)
	fmt.Printf("  %s only:   %d\n", name2, st.secondOnly)
	fmt.Println()

	totalShared := st.identical + st.firstAhead + st.secondAhead + st.diverged

	if st.diverged == 0 {
		fmt.Printf("All %d shared sessions are in sync (one is a prefix of the other)\n", totalShared)
		return
	}

	fmt.Printf("%d sessions have diverged histories\n", st.diverged)
	fmt.Println()
	fmt.Println("=== Diverged Session Details ===")

	sort.Slice(diverged, func(i, j int) bool { return diverged[i].sessionID < diverged[j].sessionID })

	shown := diverged
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, d := range shown {
		fmt.Println()
		fmt.Printf("Session: %s\n", d.sessionID)
		fmt.Printf("  %s entries: %d, %s entries: %d\n", name1, d.s1.MessageCount(), name2, d.s2.MessageCount())
	}
	if len(diverged) > 10 {
		fmt.Println()
		fmt.Printf("... and %d more diverged sessions\n", len(diverged)-10)
	}

	os.Exit(1)
}

func indexByID(sessions []convo.Session) map[string]convo.Session {
	m := make(map[string]convo.Session, len(sessions))
	for _, s := range sessions {
		m[s.SessionID] = s
	}
	return m
}
