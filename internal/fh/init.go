package fh

import (
	"context"
	"errors"
	"fmt"
	"os"

	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

// InitOptions configures a new index.
type InitOptions struct {
	// Algorithm is "sha256" or "md5"; empty selects sha256.
	Algorithm string
	// Empty skips scanning, so the first snapshot records no files.
	Empty   bool
	Message string
}

// InitResult describes the first snapshot of a new index.
type InitResult struct {
	Ref      store.Reference
	Snapshot *snapshot.Snapshot
}

// Init creates the index and records the first snapshot.
func (s *Service) Init(ctx context.Context, opts InitOptions) (*InitResult, error) {
	alg, err := parseAlgorithm(opts.Algorithm)
	if err != nil {
		return nil, err
	}

	lock, err := store.AcquireLock(s.storeRoot, true)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	st, err := store.Create(s.storeRoot)
	if err != nil {
		// An existing index keeps its lock file.
		if !errors.Is(err, store.ErrAlreadyExists) {
			lock.RemoveOnRelease()
		}
		return nil, err
	}

	snap := snapshot.New(alg)
	snap.Message = opts.Message

	if !opts.Empty {
		if err := s.fullScan(ctx, snap, 1, 3); err != nil {
			// Leave no half-initialized index behind; the directory is still empty.
			os.Remove(s.storeRoot)
			lock.RemoveOnRelease()
			return nil, err
		}
	}

	s.progress.Step(3, 3, "Writing snapshot")
	ref, err := st.Append(snap, s.now())
	if err != nil {
		os.Remove(s.storeRoot)
		lock.RemoveOnRelease()
		return nil, fmt.Errorf("writing first snapshot: %w", err)
	}

	s.logger.Info("index initialized",
		"index", s.storeRoot,
		"algorithm", alg.String(),
		"files", snap.Len(),
		"snapshot", ref.Filename(),
	)
	return &InitResult{Ref: ref, Snapshot: snap}, nil
}

// fullScan runs both passes over every file.
func (s *Service) fullScan(ctx context.Context, snap *snapshot.Snapshot, step, total int) error {
	s.progress.Step(step, total, "Scanning metadata")
	stats, err := s.scanner.MetadataPass(ctx, snap)
	if err != nil {
		return err
	}
	s.logger.Debug("metadata pass done", "files", stats.Visited, "skipped", stats.Skipped)

	s.progress.Step(step+1, total, fmt.Sprintf("Computing checksums for %d file(s)", snap.Len()))
	stats, err = s.scanner.ChecksumPass(ctx, snap)
	if err != nil {
		return err
	}
	s.logger.Debug("checksum pass done", "files", stats.Hashed, "bytes", stats.BytesHashed)
	return nil
}
