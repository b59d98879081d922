package convo

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// LargeFileWarningThreshold is the size above which Discover's sibling pass
// warns about a bloated session file, per spec.md §4.2.
const LargeFileWarningThreshold = 10 * 1024 * 1024 // 10 MiB

// Discover walks baseDir, selects files with the jsonl extension that pass
// filter, and parses the surviving files in parallel. Parse failures are
// logged and skipped, never fatal — they're returned alongside the sessions
// so callers can report them without aborting discovery.
func Discover(logger *slog.Logger, baseDir string, filter Filter) ([]Session, []error) {
	var paths []string
	_ = filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".jsonl" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if filter.MaxFileSizeBytes > 0 && info.Size() > filter.MaxFileSizeBytes {
			return nil
		}
		if filter.MaxAge > 0 && time.Since(info.ModTime()) > filter.MaxAge {
			return nil
		}
		if !filter.ShouldInclude(path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})

	sessions, errs := parseParallel(logger, paths)
	WarnLargeFiles(logger, sessions)
	return sessions, errs
}

// parseParallel parses paths across a bounded worker pool, mirroring the
// original implementation's rayon par_iter fan-out: CPU-bound JSON parsing
// over many small files benefits from concurrency, but an unbounded
// goroutine-per-file would thrash the scheduler on large trees.
func parseParallel(logger *slog.Logger, paths []string) ([]Session, []error) {
	workers := runtime.GOMAXPROCS(0)
	if workers > len(paths) {
		workers = len(paths)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string, len(paths))
	for _, p := range paths {
		jobs <- p
	}
	close(jobs)

	var mu sync.Mutex
	var sessions []Session
	var errs []error

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				s, err := Parse(path)
				mu.Lock()
				if err != nil {
					if logger != nil {
						logger.Warn("discovery: failed to parse session", "path", path, "error", err)
					}
					errs = append(errs, err)
				} else {
					sessions = append(sessions, s)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return sessions, errs
}

// WarnLargeFiles emits a warning for every session whose source file
// exceeds LargeFileWarningThreshold, so users can prune bloated sessions.
func WarnLargeFiles(logger *slog.Logger, sessions []Session) {
	for _, s := range sessions {
		info, err := os.Stat(s.Path)
		if err != nil {
			continue
		}
		if info.Size() > LargeFileWarningThreshold {
			if logger != nil {
				logger.Warn("large conversation file detected",
					"path", s.Path, "size_mb", float64(info.Size())/(1024*1024))
			}
		}
	}
}
