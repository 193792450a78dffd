package fh

import (
	"context"

	"fh-go/internal/diff"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

// StatusReport compares the latest snapshot with the tree on disk.
type StatusReport struct {
	Ref      store.Reference
	Snapshot *snapshot.Snapshot
	Changes  []diff.Change
}

// Clean reports whether nothing changed.
func (r *StatusReport) Clean() bool { return len(r.Changes) == 0 }

// Status reports how the tree differs from the latest snapshot. Unchanged
// metadata is trusted: only files that look different are hashed. paths
// limits the report to files at or below the given repository-relative
// prefixes.
func (s *Service) Status(ctx context.Context, paths []string) (*StatusReport, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	s.progress.Step(1, 3, "Loading index")
	ref, stored, err := st.LoadLatest()
	if err != nil {
		return nil, err
	}

	_, changes, err := s.scanAgainst(ctx, stored, paths, 2, 3)
	if err != nil {
		return nil, err
	}
	diff.Sort(changes)

	s.logger.Info("status computed", "snapshot", ref.Filename(), "changes", len(changes))
	return &StatusReport{Ref: ref, Snapshot: stored, Changes: changes}, nil
}

// FsckReport is the result of re-hashing the tree.
type FsckReport struct {
	Ref         store.Reference
	Changes     []diff.Change
	Checked     int
	BytesHashed int64
}

// Clean reports whether every file matched the snapshot.
func (r *FsckReport) Clean() bool { return len(r.Changes) == 0 }

// Fsck hashes every file, ignoring metadata, and compares the result with the
// latest snapshot. It finds content changes that kept size and mtime.
func (s *Service) Fsck(ctx context.Context, paths []string) (*FsckReport, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	s.progress.Step(1, 4, "Loading index")
	ref, stored, err := st.LoadLatest()
	if err != nil {
		return nil, err
	}

	current := snapshot.New(stored.Algorithm)
	s.progress.Step(2, 4, "Scanning metadata")
	if _, err := s.scanner.MetadataPass(ctx, current); err != nil {
		return nil, err
	}

	sc := s.scanner
	if len(paths) > 0 {
		sc = sc.WithExclusive(paths)
	}
	s.progress.Step(3, 4, "Computing checksums")
	stats, err := sc.ChecksumPass(ctx, current)
	if err != nil {
		return nil, err
	}

	s.progress.Step(4, 4, "Comparing")
	changes := diff.FilterByPaths(diff.Diff(stored, current), paths)
	diff.Sort(changes)

	s.logger.Info("fsck done", "snapshot", ref.Filename(), "checked", stats.Hashed, "changes", len(changes))
	return &FsckReport{Ref: ref, Changes: changes, Checked: stats.Hashed, BytesHashed: stats.BytesHashed}, nil
}
