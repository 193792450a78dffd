// Package store keeps the append-only history of snapshots for one data root.
//
// Each snapshot is a zlib-compressed encoding stored in its own file named
// "{timestamp}-{checksum}.idx", where checksum is the digest of the
// compressed bytes. A file whose bytes no longer match its name is never
// returned.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"fh-go/internal/checksum"
	"fh-go/internal/snapshot"
)

var (
	ErrNotInitialized    = errors.New("index not found")
	ErrAlreadyExists     = errors.New("index already exists")
	ErrInvalidEntry      = errors.New("unexpected entry in index")
	ErrChecksumMismatch  = errors.New("snapshot checksum mismatch")
	ErrTimestampMismatch = errors.New("snapshot timestamp does not match its name")
	ErrCausality         = errors.New("snapshot timestamp is not after the latest snapshot")
	ErrMissingDigest     = errors.New("snapshot record has no digest")
	ErrAlgorithmMismatch = errors.New("snapshot algorithm differs from the index")
	ErrConflict          = errors.New("snapshot file already exists")
	ErrEmpty             = errors.New("index has no snapshots")
	ErrNotFound          = errors.New("snapshot not found")
	ErrAmbiguous         = errors.New("snapshot selector is ambiguous")
)

// minSelectorLen is the shortest checksum prefix Find accepts.
const minSelectorLen = 4

// Store is a directory of snapshot files.
type Store struct {
	root string
	refs []Reference // newest first
}

// ResolveRoot returns the store directory for a data root. Absolute index
// directories are used as given; relative ones are joined to dataRoot. The
// parent directory is resolved through symlinks when it exists so the result
// can be compared against canonical scan roots.
func ResolveRoot(dataRoot, indexDir string) string {
	p := indexDir
	if !filepath.IsAbs(p) {
		p = filepath.Join(dataRoot, p)
	}
	p = filepath.Clean(p)
	if parent, err := filepath.EvalSymlinks(filepath.Dir(p)); err == nil {
		p = filepath.Join(parent, filepath.Base(p))
	}
	return p
}

// Create makes a new, empty store at root. It fails if root already exists.
func Create(root string) (*Store, error) {
	if err := os.Mkdir(root, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w at %s", ErrAlreadyExists, root)
		}
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	return &Store{root: root}, nil
}

// Open opens an existing store and lists its snapshots.
func Open(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s: run 'fh init' first", ErrNotInitialized, root)
		}
		return nil, fmt.Errorf("opening index: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidEntry, root)
	}

	s := &Store{root: root}
	if err := s.refresh(); err != nil {
		return nil, err
	}
	return s, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// refresh re-reads the directory listing.
func (s *Store) refresh() error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return fmt.Errorf("listing index: %w", err)
	}

	refs := make([]Reference, 0, len(entries))
	for _, e := range entries {
		ref, ok := ParseFilename(e.Name())
		if !ok || !e.Type().IsRegular() {
			return fmt.Errorf("%w: %s", ErrInvalidEntry, filepath.Join(s.root, e.Name()))
		}
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Timestamp != refs[j].Timestamp {
			return refs[i].Timestamp > refs[j].Timestamp
		}
		return refs[i].Checksum < refs[j].Checksum
	})
	s.refs = refs
	return nil
}

// List returns every reference, newest first.
func (s *Store) List() []Reference {
	return append([]Reference(nil), s.refs...)
}

// Latest returns the newest reference.
func (s *Store) Latest() (Reference, bool) {
	if len(s.refs) == 0 {
		return Reference{}, false
	}
	return s.refs[0], true
}

// Find resolves a selector to a reference. The selector may be empty or
// "latest", a filename, a decimal timestamp, or a checksum prefix of at least
// four characters.
func (s *Store) Find(selector string) (Reference, error) {
	if selector == "" || selector == "latest" {
		ref, ok := s.Latest()
		if !ok {
			return Reference{}, ErrEmpty
		}
		return ref, nil
	}
	if ref, ok := ParseFilename(selector); ok {
		for _, r := range s.refs {
			if r == ref {
				return r, nil
			}
		}
		return Reference{}, fmt.Errorf("%w: %s", ErrNotFound, selector)
	}

	ts, tsErr := strconv.ParseInt(selector, 10, 64)
	var matches []Reference
	for _, r := range s.refs {
		if tsErr == nil && r.Timestamp == ts {
			matches = append(matches, r)
			continue
		}
		if len(selector) >= minSelectorLen && strings.HasPrefix(r.Checksum, selector) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return Reference{}, fmt.Errorf("%w: %s", ErrNotFound, selector)
	case 1:
		return matches[0], nil
	default:
		return Reference{}, fmt.Errorf("%w: %s matches %d snapshots", ErrAmbiguous, selector, len(matches))
	}
}

// Load reads and verifies a snapshot. The digest of the stored bytes is
// checked against the reference before anything is decoded.
func (s *Store) Load(ref Reference) (*snapshot.Snapshot, error) {
	alg, err := checksum.FromDigest(ref.Checksum)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEntry, ref.Filename(), err)
	}

	data, err := os.ReadFile(filepath.Join(s.root, ref.Filename()))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	if got := checksum.Compute(alg, data); got != ref.Checksum {
		return nil, fmt.Errorf("%w: %s has digest %s", ErrChecksumMismatch, ref.Filename(), got)
	}

	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", snapshot.ErrFormat, ref.Filename(), err)
	}

	snap, ts, err := snapshot.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", ref.Filename(), err)
	}
	if ts != 0 && ts != ref.Timestamp {
		return nil, fmt.Errorf("%w: %s embeds %d", ErrTimestampMismatch, ref.Filename(), ts)
	}
	if snap.Algorithm != alg {
		return nil, fmt.Errorf("%w: %s declares %s but is named with a %s digest",
			snapshot.ErrFormat, ref.Filename(), snap.Algorithm, alg)
	}
	return snap, nil
}

// LoadLatest loads the newest snapshot.
func (s *Store) LoadLatest() (Reference, *snapshot.Snapshot, error) {
	ref, ok := s.Latest()
	if !ok {
		return Reference{}, nil, ErrEmpty
	}
	snap, err := s.Load(ref)
	if err != nil {
		return Reference{}, nil, err
	}
	return ref, snap, nil
}

// Append stores snap as a new snapshot taken at timestamp (microseconds).
// The directory is listed again first so the ordering check sees snapshots
// written by other processes. Nothing is written when any check fails.
func (s *Store) Append(snap *snapshot.Snapshot, timestamp int64) (Reference, error) {
	if err := s.refresh(); err != nil {
		return Reference{}, err
	}
	if timestamp <= 0 {
		return Reference{}, fmt.Errorf("%w: timestamp %d", ErrCausality, timestamp)
	}
	if latest, ok := s.Latest(); ok {
		if timestamp <= latest.Timestamp {
			return Reference{}, fmt.Errorf("%w: %d <= %d", ErrCausality, timestamp, latest.Timestamp)
		}
		if alg, err := checksum.FromDigest(latest.Checksum); err == nil && alg != snap.Algorithm {
			return Reference{}, fmt.Errorf("%w: index uses %s, snapshot uses %s", ErrAlgorithmMismatch, alg, snap.Algorithm)
		}
	}
	if !snap.Algorithm.Valid() {
		return Reference{}, fmt.Errorf("%w: %v", checksum.ErrUnknownAlgorithm, snap.Algorithm)
	}
	if missing := snap.MissingDigests(); len(missing) > 0 {
		return Reference{}, fmt.Errorf("%w: %s (%d file(s) without digest)", ErrMissingDigest, missing[0], len(missing))
	}

	data, err := compress(snapshot.Encode(snap, timestamp))
	if err != nil {
		return Reference{}, err
	}
	ref := Reference{Timestamp: timestamp, Checksum: checksum.Compute(snap.Algorithm, data)}

	if err := s.publish(ref.Filename(), data); err != nil {
		return Reference{}, err
	}
	s.refs = append([]Reference{ref}, s.refs...)
	return ref, nil
}

// OpenRaw returns the stored, still compressed bytes of a snapshot.
func (s *Store) OpenRaw(ref Reference) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.root, ref.Filename()))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	return f, nil
}

// publish writes data to a temporary file beside the store directory and
// links it into place. Existing snapshot files are never replaced.
func (s *Store) publish(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.root), tempPattern(s.root))
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	dest := filepath.Join(s.root, name)
	err = os.Link(tmpPath, dest)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrConflict, dest)
	}
	if err != nil {
		// Filesystems without hard links: fall back to rename, which is
		// still atomic for readers. The caller holds the store lock.
		if _, statErr := os.Lstat(dest); statErr == nil {
			return fmt.Errorf("%w: %s", ErrConflict, dest)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			return fmt.Errorf("publishing snapshot: %w", err)
		}
	}
	return nil
}

// tempPattern is the os.CreateTemp pattern for in-flight snapshot files.
func tempPattern(root string) string {
	return filepath.Base(root) + ".tmp-*"
}

// ExcludePaths returns the store directory and lock file relative to
// dataRoot, for those that lie inside it.
func ExcludePaths(dataRoot, root string) []string {
	var out []string
	for _, p := range []string{root, LockPath(root)} {
		if rel, ok := relativeTo(dataRoot, p); ok && rel != "." {
			out = append(out, rel)
		}
	}
	return out
}

// IgnorePatterns returns glob patterns, relative to dataRoot, matching the
// store's temporary files.
func IgnorePatterns(dataRoot, root string) []string {
	rel, ok := relativeTo(dataRoot, filepath.Join(filepath.Dir(root), tempPattern(root)))
	if !ok {
		return nil
	}
	return []string{rel}
}

func relativeTo(base, p string) (string, bool) {
	rel, err := filepath.Rel(base, p)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", false
	}
	return rel, true
}

func compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressing snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
