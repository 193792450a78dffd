// Package fs holds filesystem helpers shared by the scanner and the CLI:
// ignore patterns and resolution of user-supplied paths against a data root.
package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IgnoreFileName is read from the data root, when present, for extra patterns.
const IgnoreFileName = ".fhignore"

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
	dirOnly   bool // pattern had a trailing '/': only directories match
}

// IgnoreMatcher checks repository-relative paths against glob patterns.
// Patterns without '/' match the basename at any depth. Patterns containing
// '/' match the whole slash-separated path. A trailing '/' restricts a
// pattern to directories. Patterns and paths are compared in Unicode NFC.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	m := &IgnoreMatcher{}
	m.Add(rawPatterns...)
	return m
}

// Add appends more patterns to the matcher.
func (m *IgnoreMatcher) Add(rawPatterns ...string) {
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		p := ignorePattern{}
		if strings.HasSuffix(raw, "/") {
			p.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		raw = strings.TrimPrefix(raw, "/")
		if raw == "" {
			continue
		}
		p.pattern = norm.NFC.String(raw)
		p.matchPath = strings.Contains(raw, "/")
		m.patterns = append(m.patterns, p)
	}
}

// Len returns the number of active patterns.
func (m *IgnoreMatcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.patterns)
}

// Match reports whether the file at relativePath should be ignored.
func (m *IgnoreMatcher) Match(relativePath string) bool {
	return m.match(relativePath, false)
}

// MatchDir reports whether the directory at relativePath should be pruned.
func (m *IgnoreMatcher) MatchDir(relativePath string) bool {
	return m.match(relativePath, true)
}

func (m *IgnoreMatcher) match(relativePath string, isDir bool) bool {
	if m.Len() == 0 || relativePath == "" {
		return false
	}

	normalized := norm.NFC.String(relativePath)
	basename := path.Base(normalized)

	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := basename
		if p.matchPath {
			target = normalized
		}
		matched, err := path.Match(p.pattern, target)
		if err != nil {
			// Bad pattern: skip rather than crash.
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
