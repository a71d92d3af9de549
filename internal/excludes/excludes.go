// Package excludes implements the glob-based path filter that precedes
// classification (spec.md §4.2 "Exclude filter"). Grounded on
// github.com/bmatcuk/doublestar/v4, used for the identical concern
// (fsnotify + glob exclude matching) in the retrieved standardbeagle-lci
// watcher.
package excludes

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher rejects paths matching any configured glob.
type Matcher struct {
	patterns []string
	root     string
}

// New builds a Matcher for the given glob patterns, evaluated relative to
// root (the watch root whose paths are being classified).
func New(root string, patterns []string) *Matcher {
	return &Matcher{patterns: patterns, root: filepath.Clean(root)}
}

// Excluded reports whether path matches any configured pattern. Patterns
// are matched against both the path relative to root and the raw path, so
// a pattern like ".cctop/**" matches regardless of whether callers pass
// absolute or root-relative paths.
func (m *Matcher) Excluded(path string) bool {
	rel := path
	if r, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = filepath.ToSlash(rel)
	slashPath := filepath.ToSlash(path)

	for _, pat := range m.patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, slashPath); ok {
			return true
		}
		// Also match the pattern against the final path component
		// alone, so "**/node_modules/**" style excludes still work
		// when handed a single path component by the watcher.
		if ok, _ := doublestar.Match(pat, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}
