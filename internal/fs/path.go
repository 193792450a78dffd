package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrOutsideRoot is returned for paths that do not lie inside the data root.
var ErrOutsideRoot = errors.New("path is outside the data root")

// CanonicalRoot returns the absolute, symlink-free form of a data root.
func CanonicalRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving data root: %w", err)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", fmt.Errorf("stat data root: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("data root is not a directory: %s", resolved)
	}
	return resolved, nil
}

// Resolve converts a user-supplied path, absolute or relative to the working
// directory, into a slash-separated path relative to root. The path itself
// need not exist, which lets deleted files be named. root must be canonical.
// The root itself resolves to ".".
func Resolve(root, rawPath string) (string, error) {
	abs, err := filepath.Abs(rawPath)
	if err != nil {
		return "", fmt.Errorf("resolving absolute path: %w", err)
	}
	abs = resolveExisting(abs)

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rawPath)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, rawPath)
	}
	return rel, nil
}

// ResolveAll resolves each raw path with Resolve.
func ResolveAll(root string, rawPaths []string) ([]string, error) {
	out := make([]string, 0, len(rawPaths))
	for _, raw := range rawPaths {
		rel, err := Resolve(root, raw)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, nil
}

// resolveExisting evaluates symlinks in the longest existing ancestor of p and
// re-attaches the missing tail.
func resolveExisting(p string) string {
	var tail []string
	cur := p
	for {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			parts := append([]string{resolved}, tail...)
			return filepath.Join(parts...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p
		}
		tail = append([]string{filepath.Base(cur)}, tail...)
		cur = parent
	}
}

// Normalize returns the NFC form of a slash-separated path, used wherever
// user-typed paths are compared with names read from disk.
func Normalize(p string) string {
	return norm.NFC.String(p)
}
