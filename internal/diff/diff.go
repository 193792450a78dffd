// Package diff compares two snapshots and reports what changed, pairing
// deletions with creations of identical content as renames.
package diff

import (
	"fmt"
	"sort"

	"fh-go/internal/snapshot"
)

// Kind tags a Change.
type Kind int

const (
	Created Kind = iota + 1
	Modified
	MetadataModified
	Deleted
	Renamed
)

func (k Kind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case MetadataModified:
		return "metadata"
	case Deleted:
		return "deleted"
	case Renamed:
		return "renamed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Change is one difference between two snapshots. Path is the affected file;
// for Renamed it is the source and To is the destination.
type Change struct {
	Kind Kind
	Path string
	To   string
}

func (c Change) String() string {
	if c.Kind == Renamed {
		return fmt.Sprintf("%s %s -> %s", c.Kind, c.Path, c.To)
	}
	return fmt.Sprintf("%s %s", c.Kind, c.Path)
}

// Paths returns every path the change touches.
func (c Change) Paths() []string {
	if c.Kind == Renamed {
		return []string{c.Path, c.To}
	}
	return []string{c.Path}
}

type bucketKey struct {
	digest  string
	size    uint64
	modTime int64
}

// Diff reports how actual differs from target. The result is deterministic:
// changes to target's paths come first in path order, followed by creations
// and renames in path order of their destinations.
//
// A file present in both is MetadataModified when its modification time
// differs, otherwise Modified when its size differs, or when actual carries
// a digest that differs from target's. A file only in actual is reported as
// Renamed when a file only in target has the same digest, size and
// modification time; candidates are taken in path order.
func Diff(target, actual *snapshot.Snapshot) []Change {
	var changes []Change
	buckets := make(map[bucketKey][]string)

	for _, p := range target.Paths() {
		t, _ := target.Get(p)
		a, ok := actual.Get(p)
		if !ok {
			changes = append(changes, Change{Kind: Deleted, Path: p})
			if t.HasDigest() {
				k := bucketKey{t.Digest, t.Size, t.ModTime}
				buckets[k] = append(buckets[k], p)
			}
			continue
		}
		switch {
		case t.ModTime != a.ModTime:
			changes = append(changes, Change{Kind: MetadataModified, Path: p})
		case t.Size != a.Size:
			changes = append(changes, Change{Kind: Modified, Path: p})
		case a.HasDigest() && a.Digest != t.Digest:
			changes = append(changes, Change{Kind: Modified, Path: p})
		}
	}

	consumed := make(map[string]bool)
	for _, p := range actual.Paths() {
		if _, ok := target.Get(p); ok {
			continue
		}
		a, _ := actual.Get(p)
		if a.HasDigest() {
			k := bucketKey{a.Digest, a.Size, a.ModTime}
			if candidates := buckets[k]; len(candidates) > 0 {
				from := candidates[0]
				buckets[k] = candidates[1:]
				consumed[from] = true
				changes = append(changes, Change{Kind: Renamed, Path: from, To: p})
				continue
			}
		}
		changes = append(changes, Change{Kind: Created, Path: p})
	}

	if len(consumed) == 0 {
		return changes
	}
	out := changes[:0]
	for _, c := range changes {
		if c.Kind == Deleted && consumed[c.Path] {
			continue
		}
		out = append(out, c)
	}
	return out
}

// FilterByPaths keeps the changes that touch a path at or below one of the
// prefixes. A rename is kept when either end matches. An empty prefix list
// keeps everything.
func FilterByPaths(changes []Change, prefixes []string) []Change {
	if len(prefixes) == 0 {
		return changes
	}
	var out []Change
	for _, c := range changes {
		if matchesAny(c, prefixes) {
			out = append(out, c)
		}
	}
	return out
}

func matchesAny(c Change, prefixes []string) bool {
	for _, p := range c.Paths() {
		for _, prefix := range prefixes {
			if snapshot.HasPathPrefix(p, prefix) {
				return true
			}
		}
	}
	return false
}

// Files returns the sorted, de-duplicated set of paths the changes touch.
func Files(changes []Change) []string {
	seen := make(map[string]bool)
	files := make([]string, 0, len(changes))
	for _, c := range changes {
		for _, p := range c.Paths() {
			if !seen[p] {
				seen[p] = true
				files = append(files, p)
			}
		}
	}
	sort.Strings(files)
	return files
}

// displayRank orders kinds for presentation.
func displayRank(k Kind) int {
	switch k {
	case Deleted:
		return 0
	case Modified, MetadataModified:
		return 1
	case Renamed:
		return 2
	case Created:
		return 3
	default:
		panic(fmt.Sprintf("diff: unknown change kind %d", int(k)))
	}
}

// Sort orders changes for display: deletions, modifications, renames, then
// creations, each group alphabetical.
func Sort(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		ri, rj := displayRank(changes[i].Kind), displayRank(changes[j].Kind)
		if ri != rj {
			return ri < rj
		}
		return changes[i].Path < changes[j].Path
	})
}

// Summary counts changes by kind.
type Summary struct {
	Created          int
	Modified         int
	MetadataModified int
	Deleted          int
	Renamed          int
}

// Total returns the number of changes counted.
func (s Summary) Total() int {
	return s.Created + s.Modified + s.MetadataModified + s.Deleted + s.Renamed
}

// Summarize counts changes by kind.
func Summarize(changes []Change) Summary {
	var s Summary
	for _, c := range changes {
		switch c.Kind {
		case Created:
			s.Created++
		case Modified:
			s.Modified++
		case MetadataModified:
			s.MetadataModified++
		case Deleted:
			s.Deleted++
		case Renamed:
			s.Renamed++
		default:
			panic(fmt.Sprintf("diff: unknown change kind %d", int(c.Kind)))
		}
	}
	return s
}
