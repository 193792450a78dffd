// Package snapshot holds the in-memory model of one point-in-time capture of
// a directory tree and its text encoding.
package snapshot

import (
	"sort"
	"strings"

	"fh-go/internal/checksum"
)

// Record is the captured state of a single file.
type Record struct {
	Size uint64
	// ModTime is the modification time in microseconds since the Unix epoch.
	// Zero means unknown.
	ModTime int64
	// Digest is the lowercase hex content digest, empty when not computed.
	Digest string
}

// HasDigest reports whether the record carries a content digest.
func (r Record) HasDigest() bool { return r.Digest != "" }

// Snapshot maps repository-relative, slash-separated paths to records.
// A Snapshot is not safe for concurrent mutation.
type Snapshot struct {
	Algorithm checksum.Algorithm
	Message   string
	files     map[string]Record
}

// New returns an empty snapshot using the given algorithm.
func New(alg checksum.Algorithm) *Snapshot {
	return &Snapshot{Algorithm: alg, files: make(map[string]Record)}
}

// Update inserts or replaces the record for path.
func (s *Snapshot) Update(path string, rec Record) {
	s.files[path] = rec
}

// Delete removes path. Deleting an absent path is a no-op.
func (s *Snapshot) Delete(path string) {
	delete(s.files, path)
}

// Clear removes every record at or below prefix. An empty prefix clears
// everything. Matching is by whole path components, so "a/b" does not clear
// "a/bc".
func (s *Snapshot) Clear(prefix string) {
	for p := range s.files {
		if HasPathPrefix(p, prefix) {
			delete(s.files, p)
		}
	}
}

// Merge copies every record of other into s, replacing existing entries.
func (s *Snapshot) Merge(other *Snapshot) {
	for p, rec := range other.files {
		s.files[p] = rec
	}
}

// Get returns the record for path.
func (s *Snapshot) Get(path string) (Record, bool) {
	rec, ok := s.files[path]
	return rec, ok
}

// Paths returns every path in ascending order.
func (s *Snapshot) Paths() []string {
	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the number of files.
func (s *Snapshot) Len() int { return len(s.files) }

// TotalSize returns the sum of all file sizes in bytes.
func (s *Snapshot) TotalSize() uint64 {
	var total uint64
	for _, rec := range s.files {
		total += rec.Size
	}
	return total
}

// Clone returns an independent copy of s.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Algorithm: s.Algorithm,
		Message:   s.Message,
		files:     make(map[string]Record, len(s.files)),
	}
	for p, rec := range s.files {
		c.files[p] = rec
	}
	return c
}

// MissingDigests returns the paths whose records lack a digest, sorted.
func (s *Snapshot) MissingDigests() []string {
	var missing []string
	for p, rec := range s.files {
		if !rec.HasDigest() {
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing
}

// Equal reports whether two snapshots hold the same algorithm, message and records.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s.Algorithm != other.Algorithm || s.Message != other.Message || len(s.files) != len(other.files) {
		return false
	}
	for p, rec := range s.files {
		if o, ok := other.files[p]; !ok || o != rec {
			return false
		}
	}
	return true
}

// HasPathPrefix reports whether p equals prefix or lies below it, comparing
// whole slash-separated components. The empty prefix and "." match everything.
func HasPathPrefix(p, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" || prefix == "." {
		return true
	}
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, prefix) && p[len(prefix)] == '/'
}
