package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// DefaultModTime is the modification time Tree gives files unless told otherwise.
var DefaultModTime = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// Tree builds a real directory tree under a test's temp dir. Paths are
// slash-separated and relative to Root.
type Tree struct {
	t    testing.TB
	Root string
}

// NewTree creates an empty tree. Root is symlink-free so it compares equal
// to what the scanner reports.
func NewTree(t testing.TB) *Tree {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return &Tree{t: t, Root: root}
}

// Path returns the absolute path of rel.
func (tr *Tree) Path(rel string) string {
	return filepath.Join(tr.Root, filepath.FromSlash(rel))
}

// Write creates or replaces a file with DefaultModTime.
func (tr *Tree) Write(rel, content string) {
	tr.t.Helper()
	tr.WriteAt(rel, content, DefaultModTime)
}

// WriteAt creates or replaces a file and sets its modification time.
func (tr *Tree) WriteAt(rel, content string, mtime time.Time) {
	tr.t.Helper()
	p := tr.Path(rel)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		tr.t.Fatalf("creating parent of %s: %v", rel, err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		tr.t.Fatalf("writing %s: %v", rel, err)
	}
	tr.Touch(rel, mtime)
}

// Touch sets the modification time of rel.
func (tr *Tree) Touch(rel string, mtime time.Time) {
	tr.t.Helper()
	if err := os.Chtimes(tr.Path(rel), mtime, mtime); err != nil {
		tr.t.Fatalf("setting times on %s: %v", rel, err)
	}
}

// Remove deletes rel.
func (tr *Tree) Remove(rel string) {
	tr.t.Helper()
	if err := os.Remove(tr.Path(rel)); err != nil {
		tr.t.Fatalf("removing %s: %v", rel, err)
	}
}

// Rename moves a file, keeping its modification time.
func (tr *Tree) Rename(from, to string) {
	tr.t.Helper()
	dest := tr.Path(to)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		tr.t.Fatalf("creating parent of %s: %v", to, err)
	}
	if err := os.Rename(tr.Path(from), dest); err != nil {
		tr.t.Fatalf("renaming %s to %s: %v", from, to, err)
	}
}

// Mkdir creates a directory and its parents.
func (tr *Tree) Mkdir(rel string) {
	tr.t.Helper()
	if err := os.MkdirAll(tr.Path(rel), 0755); err != nil {
		tr.t.Fatalf("creating %s: %v", rel, err)
	}
}
