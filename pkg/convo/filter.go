package convo

import (
	"path/filepath"
	"strings"
	"time"
)

// Filter controls which session files Discover considers.
type Filter struct {
	Include            []string // glob patterns; empty means "all"
	Exclude            []string // glob patterns checked after Include
	MaxFileSizeBytes   int64    // 0 = unlimited
	MaxAge             time.Duration
	ExcludeAttachments bool
}

// ShouldInclude reports whether path passes the filter's include/exclude
// glob lists. Size and age are checked against file metadata by the caller
// (Discover), since Filter has no filesystem access of its own.
func (f Filter) ShouldInclude(path string) bool {
	base := filepath.Base(path)

	if len(f.Include) > 0 && !matchesAny(f.Include, base, path) {
		return false
	}
	if matchesAny(f.Exclude, base, path) {
		return false
	}
	if f.ExcludeAttachments && strings.Contains(path, "attachment") {
		return false
	}
	return true
}

func matchesAny(patterns []string, base, path string) bool {
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, base); ok {
			return true
		}
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
	}
	return false
}
