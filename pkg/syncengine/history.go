package syncengine

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/unicode/norm"
)

// HistoryPriority controls which file's entries win a (sessionId,
// timestamp) tie when merging two history.jsonl indexes.
type HistoryPriority int

const (
	// TargetFirst means the target file wins ties. Pull uses it for both of
	// its history merges: the sync repository's index wins when local
	// history is staged, and the local index wins on the way back.
	TargetFirst HistoryPriority = iota
	// SourceFirst means the source file wins ties.
	SourceFirst
)

// historyEntry is one line of history.jsonl: a flat index the resume
// picker reads, unrelated to the per-session JSONL files.
type historyEntry struct {
	line      string
	sessionID string
	timestamp int64
}

func (h historyEntry) key() [2]any { return [2]any{h.sessionID, h.timestamp} }

func parseHistoryLine(logger *slog.Logger, line string) (historyEntry, bool) {
	var v map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return historyEntry{}, false
	}

	sessionID, ok := decodeString(v["sessionId"])
	if !ok || sessionID == "" {
		if logger != nil {
			logger.Warn("history: skipping entry with empty sessionId")
		}
		return historyEntry{}, false
	}

	timestamp, ok := decodeInt64(v["timestamp"])
	if !ok || timestamp == 0 {
		if logger != nil {
			logger.Warn("history: skipping entry with zero timestamp", "sessionId", sessionID)
		}
		return historyEntry{}, false
	}

	return historyEntry{line: line, sessionID: sessionID, timestamp: timestamp}, true
}

func decodeString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeInt64(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// normalizeDisplay applies NFC normalization to the "display" field of a
// history line, if present, so titles typed on different platforms (where
// the same glyph can arrive pre-composed or decomposed) are written in one
// form. It runs when merged lines are written out; the dedup key and the
// sort order use only sessionId and timestamp. A line whose display field
// changes is re-serialized with sorted keys; lines without a display field,
// with a malformed one, or already in NFC pass through unchanged.
func normalizeDisplay(line string) string {
	var v map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &v); err != nil {
		return line
	}
	display, ok := decodeString(v["display"])
	if !ok {
		return line
	}
	normalized := norm.NFC.String(display)
	if normalized == display {
		return line
	}
	encoded, err := json.Marshal(normalized)
	if err != nil {
		return line
	}
	v["display"] = json.RawMessage(encoded)

	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(v[k])
	}
	buf.WriteByte('}')
	return buf.String()
}

// MergeHistory merges two flat history.jsonl files, deduplicating by
// (sessionId, timestamp). Entries from the priority file win a tie; the
// merged, timestamp-sorted result is written to targetPath. It returns the
// total entry count and how many came from sourcePath.
func MergeHistory(logger *slog.Logger, sourcePath, targetPath string, priority HistoryPriority) (total, addedFromSource int, err error) {
	firstPath, secondPath := targetPath, sourcePath
	if priority == SourceFirst {
		firstPath, secondPath = sourcePath, targetPath
	}

	seen := make(map[[2]any]struct{})
	var entries []historyEntry

	firstCount, err := readHistoryFile(logger, firstPath, seen, &entries)
	if err != nil {
		return 0, 0, err
	}
	secondAdded, err := readHistoryFile(logger, secondPath, seen, &entries)
	if err != nil {
		return 0, 0, err
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].timestamp < entries[j].timestamp })

	if dir := filepath.Dir(targetPath); dir != "." {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return 0, 0, fmt.Errorf("syncengine: create history dir %s: %w", dir, mkErr)
		}
	}
	f, err := os.Create(targetPath)
	if err != nil {
		return 0, 0, fmt.Errorf("syncengine: create %s: %w", targetPath, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, werr := w.WriteString(normalizeDisplay(e.line)); werr != nil {
			return 0, 0, fmt.Errorf("syncengine: write %s: %w", targetPath, werr)
		}
		if werr := w.WriteByte('\n'); werr != nil {
			return 0, 0, fmt.Errorf("syncengine: write %s: %w", targetPath, werr)
		}
	}
	if err := w.Flush(); err != nil {
		return 0, 0, fmt.Errorf("syncengine: flush %s: %w", targetPath, err)
	}

	total = len(entries)
	if priority == SourceFirst {
		addedFromSource = firstCount
	} else {
		addedFromSource = secondAdded
	}
	if logger != nil {
		logger.Info("merged history index", "total", total, "added_from_source", addedFromSource)
	}
	return total, addedFromSource, nil
}

func readHistoryFile(logger *slog.Logger, path string, seen map[[2]any]struct{}, entries *[]historyEntry) (count int, err error) {
	if path == "" {
		return 0, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("syncengine: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(bytes.TrimSpace([]byte(line))) == 0 {
			continue
		}
		entry, ok := parseHistoryLine(logger, line)
		if !ok {
			continue
		}
		key := entry.key()
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		*entries = append(*entries, entry)
		count++
	}
	if err := sc.Err(); err != nil {
		return count, fmt.Errorf("syncengine: read %s: %w", path, err)
	}
	return count, nil
}
