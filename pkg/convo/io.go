package convo

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Parse reads a JSONL session file. Blank lines are skipped; a malformed
// line fails with its 1-indexed line number. sessionId is derived from the
// first entry that carries one, or from the file stem.
func Parse(path string) (Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return Session{}, fmt.Errorf("convo: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := sc.Bytes()
		if len(bytes.TrimSpace(raw)) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return Session{}, fmt.Errorf("convo: parse %s line %d: %w", path, line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return Session{}, fmt.Errorf("convo: read %s: %w", path, err)
	}

	return Session{
		SessionID: deriveSessionID(entries, path),
		Entries:   entries,
		Path:      path,
	}, nil
}

// WriteWhole creates parent directories, truncates the destination, and
// writes one JSON object per line with a trailing newline. It is used only
// for newly created files or files owned entirely by the core (the
// transport working tree) — never for files the assistant tool also
// appends to.
func WriteWhole(path string, s Session) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("convo: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("convo: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range s.Entries {
		b, err := e.CanonicalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("convo: write %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("convo: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("convo: flush %s: %w", path, err)
	}
	return nil
}

// Append opens path in append mode (creating it if absent) and writes each
// entry as one line, durably flushing to disk before returning. It never
// modifies existing bytes — the only routine permitted to touch a file
// co-owned with the external assistant tool.
func Append(path string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("convo: mkdir %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("convo: open %s for append: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, e := range entries {
		b, err := e.CanonicalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("convo: append %s: %w", path, err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("convo: append %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("convo: flush %s: %w", path, err)
	}
	// Durable before returning: a crash after this point may only lose
	// entries from the *next* append, never corrupt bytes already on disk.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("convo: sync %s: %w", path, err)
	}
	return nil
}
