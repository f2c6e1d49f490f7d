package watcher

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions are the input file types that trigger reruns.
var DefaultExtensions = []string{".csv", ".gii"}

// Matcher decides which changed paths are analysis inputs.
type Matcher struct {
	exts  map[string]bool
	files map[string]bool
}

// NewMatcher matches files with one of exts (case-insensitive, with or
// without the leading dot) plus the named files regardless of extension.
func NewMatcher(exts []string, files []string) *Matcher {
	m := &Matcher{
		exts:  make(map[string]bool),
		files: make(map[string]bool),
	}
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		m.exts[e] = true
	}
	for _, f := range files {
		m.files[clean(f)] = true
	}
	return m
}

func clean(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// Match reports whether path is an input. Hidden files and editor
// temporaries never match.
func (m *Matcher) Match(path string) bool {
	if m.files[clean(path)] {
		return true
	}
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") || strings.HasPrefix(base, "#") {
		return false
	}
	return m.exts[strings.ToLower(filepath.Ext(base))]
}
