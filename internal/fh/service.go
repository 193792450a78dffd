// Package fh implements the repository operations: initializing an index,
// comparing the tree against the latest snapshot, acknowledging changes and
// inspecting history.
package fh

import (
	"context"
	"fmt"
	"path/filepath"

	"fh-go/internal/checksum"
	"fh-go/internal/diff"
	"fh-go/internal/fs"
	"fh-go/internal/scan"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

// Options locates a repository and tunes its scans.
type Options struct {
	// DataDir is the directory tree being monitored.
	DataDir string
	// IndexDir holds the snapshots. Relative paths are joined to DataDir.
	IndexDir string
	// Ignore lists extra glob patterns to skip while scanning.
	Ignore []string
	// Workers bounds scan parallelism; zero means one per CPU.
	Workers int
}

// Service runs operations against one repository.
type Service struct {
	dataRoot  string
	storeRoot string
	scanner   *scan.Scanner
	logger    Logger
	clock     Clock
	progress  Progress
}

// NewService resolves the repository locations and prepares a scanner. The
// index itself is not touched until an operation runs.
func NewService(opts Options, logger Logger, clock Clock, progress Progress) (*Service, error) {
	dataRoot, err := fs.CanonicalRoot(opts.DataDir)
	if err != nil {
		return nil, err
	}
	storeRoot := store.ResolveRoot(dataRoot, opts.IndexDir)
	if storeRoot == dataRoot {
		return nil, fmt.Errorf("%w: %s", ErrIndexLocation, storeRoot)
	}

	fileIgnores, err := fs.ParseIgnoreFile(filepath.Join(dataRoot, fs.IgnoreFileName))
	if err != nil {
		return nil, err
	}
	ignore := fs.NewIgnoreMatcher(opts.Ignore)
	ignore.Add(fileIgnores...)
	ignore.Add(store.IgnorePatterns(dataRoot, storeRoot)...)

	sc, err := scan.New(dataRoot, scan.Options{
		Exclude: store.ExcludePaths(dataRoot, storeRoot),
		Ignore:  ignore,
		Workers: opts.Workers,
	})
	if err != nil {
		return nil, err
	}

	if progress == nil {
		progress = NopProgress{}
	}
	return &Service{
		dataRoot:  dataRoot,
		storeRoot: storeRoot,
		scanner:   sc,
		logger:    logger,
		clock:     clock,
		progress:  progress,
	}, nil
}

// DataRoot returns the canonical data root.
func (s *Service) DataRoot() string { return s.dataRoot }

// IndexRoot returns the resolved index directory.
func (s *Service) IndexRoot() string { return s.storeRoot }

// ResolvePaths converts user-supplied paths into repository-relative ones.
func (s *Service) ResolvePaths(raw []string) ([]string, error) {
	return fs.ResolveAll(s.dataRoot, raw)
}

func (s *Service) now() int64 {
	return s.clock.Now().UnixMicro()
}

// openStore takes the lock and opens the index. The returned release
// function must be called when the operation is done.
func (s *Service) openStore(exclusive bool) (*store.Store, func(), error) {
	// Fail on a missing index before a lock file is created beside it.
	if _, err := store.Open(s.storeRoot); err != nil {
		return nil, nil, err
	}

	lock, err := store.AcquireLock(s.storeRoot, exclusive)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := lock.Release(); err != nil {
			s.logger.Warn("releasing lock failed", "error", err)
		}
	}

	st, err := store.Open(s.storeRoot)
	if err != nil {
		release()
		return nil, nil, err
	}
	return st, release, nil
}

// scanAgainst scans the tree and compares it with stored. Only files whose
// metadata differs, and which fall under filter, are hashed, plus created
// files outside filter that could be the destination of a filtered deletion. It returns the
// current snapshot, where digests exist only for those files, and the
// filtered change list.
func (s *Service) scanAgainst(ctx context.Context, stored *snapshot.Snapshot, filter []string, step, total int) (*snapshot.Snapshot, []diff.Change, error) {
	current := snapshot.New(stored.Algorithm)

	s.progress.Step(step, total, "Scanning metadata")
	stats, err := s.scanner.MetadataPass(ctx, current)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("metadata pass done", "files", stats.Visited, "skipped", stats.Skipped)

	all := diff.Diff(stored, current)
	filtered := diff.FilterByPaths(all, filter)
	candidates := append(diff.Files(filtered), renameTargets(stored, current, all, filtered)...)

	s.progress.Step(step+1, total, fmt.Sprintf("Computing checksums for %d file(s)", len(candidates)))
	stats, err = s.scanner.WithExclusive(candidates).ChecksumPass(ctx, current)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Debug("checksum pass done", "files", stats.Hashed, "bytes", stats.BytesHashed)

	return current, diff.FilterByPaths(diff.Diff(stored, current), filter), nil
}

type sizeTime struct {
	size    uint64
	modTime int64
}

// renameTargets returns the created paths in all, outside filtered, whose
// size and mtime match a file deleted in filtered. Hashing them lets a move
// out of the filtered paths pair up as a rename.
func renameTargets(stored, current *snapshot.Snapshot, all, filtered []diff.Change) []string {
	deleted := make(map[sizeTime]bool)
	inFilter := make(map[string]bool)
	for _, c := range filtered {
		inFilter[c.Path] = true
		if c.Kind != diff.Deleted {
			continue
		}
		if rec, ok := stored.Get(c.Path); ok && rec.HasDigest() {
			deleted[sizeTime{rec.Size, rec.ModTime}] = true
		}
	}
	if len(deleted) == 0 {
		return nil
	}

	var targets []string
	for _, c := range all {
		if c.Kind != diff.Created || inFilter[c.Path] {
			continue
		}
		if rec, ok := current.Get(c.Path); ok && deleted[sizeTime{rec.Size, rec.ModTime}] {
			targets = append(targets, c.Path)
		}
	}
	return targets
}

// parseAlgorithm maps an algorithm name to an Algorithm, defaulting when empty.
func parseAlgorithm(name string) (checksum.Algorithm, error) {
	if name == "" {
		return checksum.Default, nil
	}
	return checksum.Parse(name)
}
