package watcher

import (
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// IgnorePatterns matches paths against gitignore-style rules:
//
//	*.log              any file or directory named *.log
//	build/             directories named build, and everything below them
//	docs/*.md          .md files directly inside a docs directory
//	**/testdata/**     everything below any testdata directory
//	!keep.log          re-include keep.log
//
// Patterns are not anchored: the watcher may watch several roots, so a
// pattern containing a slash matches wherever its segments line up with
// consecutive path components. The last matching pattern wins.
type IgnorePatterns struct {
	mu       sync.RWMutex
	patterns []ignorePattern
}

type ignorePattern struct {
	segments []string
	negation bool
	dirOnly  bool
}

// NewIgnorePatterns creates an empty matcher.
func NewIgnorePatterns() *IgnorePatterns {
	return &IgnorePatterns{}
}

// AddPattern adds one rule. Blank lines and # comments are skipped.
func (ip *IgnorePatterns) AddPattern(pattern string) {
	pattern = strings.TrimRight(pattern, " \t")
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	var p ignorePattern
	if strings.HasPrefix(pattern, "!") {
		p.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		p.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return
	}
	p.segments = strings.Split(pattern, "/")

	ip.mu.Lock()
	ip.patterns = append(ip.patterns, p)
	ip.mu.Unlock()
}

// Len returns the number of rules.
func (ip *IgnorePatterns) Len() int {
	ip.mu.RLock()
	defer ip.mu.RUnlock()
	return len(ip.patterns)
}

// Match reports whether path is ignored. isDir tells whether the final
// component is a directory; every other component is one.
func (ip *IgnorePatterns) Match(p string, isDir bool) bool {
	ip.mu.RLock()
	defer ip.mu.RUnlock()

	if len(ip.patterns) == 0 {
		return false
	}
	parts := splitPath(p)

	ignored := false
	for _, pat := range ip.patterns {
		if pat.match(parts, isDir) {
			ignored = !pat.negation
		}
	}
	return ignored
}

func splitPath(p string) []string {
	var parts []string
	for _, part := range strings.Split(filepath.ToSlash(filepath.Clean(p)), "/") {
		if part != "" && part != "." {
			parts = append(parts, part)
		}
	}
	return parts
}

func (p ignorePattern) match(parts []string, isDir bool) bool {
	for start := range parts {
		if matchSegments(p.segments, parts[start:], isDir, p.dirOnly) {
			return true
		}
	}
	return false
}

// matchSegments matches segs against a prefix of parts. Matching a proper
// prefix means an ancestor directory matched.
func matchSegments(segs, parts []string, isDir, dirOnly bool) bool {
	if len(segs) == 0 {
		return len(parts) > 0
	}
	if segs[0] == "**" {
		if len(segs) == 1 {
			return len(parts) > 0
		}
		for i := 0; i < len(parts); i++ {
			if matchSegments(segs[1:], parts[i:], isDir, dirOnly) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	if ok, _ := path.Match(segs[0], parts[0]); !ok {
		return false
	}
	if len(segs) == 1 && len(parts) == 1 {
		return !dirOnly || isDir
	}
	return matchSegments(segs[1:], parts[1:], isDir, dirOnly)
}
