package fh

import (
	"context"
	"fmt"

	"fh-go/internal/diff"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

// AckOptions selects which changes to accept into a new snapshot.
type AckOptions struct {
	// Paths are repository-relative prefixes; "." accepts everything.
	Paths   []string
	Message string
	// Confirm, when set, is shown the changes before anything is written and
	// may decline them.
	Confirm func(changes []diff.Change) (bool, error)
}

// AckResult describes the snapshot written by Acknowledge.
type AckResult struct {
	Ref     store.Reference
	Changes []diff.Change
}

// Acknowledge records the current state of the files under opts.Paths as a
// new snapshot. Files outside those paths keep their previous records. The
// index stays locked from loading the latest snapshot until the new one is
// written.
func (s *Service) Acknowledge(ctx context.Context, opts AckOptions) (*AckResult, error) {
	if len(opts.Paths) == 0 {
		return nil, ErrNoPaths
	}

	st, release, err := s.openStore(true)
	if err != nil {
		return nil, err
	}
	defer release()

	s.progress.Step(1, 4, "Loading index")
	_, stored, err := st.LoadLatest()
	if err != nil {
		return nil, err
	}

	current, changes, err := s.scanAgainst(ctx, stored, opts.Paths, 2, 4)
	if err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return nil, ErrNothingToCommit
	}
	diff.Sort(changes)

	if opts.Confirm != nil {
		ok, err := opts.Confirm(changes)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAborted
		}
	}

	next, err := applyChanges(stored, current, changes)
	if err != nil {
		return nil, err
	}
	next.Message = opts.Message

	s.progress.Step(4, 4, "Writing snapshot")
	ref, err := st.Append(next, s.now())
	if err != nil {
		return nil, err
	}

	sum := diff.Summarize(changes)
	s.logger.Info("changes acknowledged",
		"snapshot", ref.Filename(),
		"created", sum.Created,
		"modified", sum.Modified+sum.MetadataModified,
		"deleted", sum.Deleted,
		"renamed", sum.Renamed,
	)
	return &AckResult{Ref: ref, Changes: changes}, nil
}

// applyChanges returns a copy of stored with changes applied, taking new
// records from current.
func applyChanges(stored, current *snapshot.Snapshot, changes []diff.Change) (*snapshot.Snapshot, error) {
	next := stored.Clone()

	record := func(p string) (snapshot.Record, error) {
		rec, ok := current.Get(p)
		if !ok || !rec.HasDigest() {
			return snapshot.Record{}, fmt.Errorf("%w: %s", ErrMissingRecord, p)
		}
		return rec, nil
	}

	for _, c := range changes {
		switch c.Kind {
		case diff.Deleted:
			next.Delete(c.Path)
		case diff.Created, diff.Modified, diff.MetadataModified:
			rec, err := record(c.Path)
			if err != nil {
				return nil, err
			}
			next.Update(c.Path, rec)
		case diff.Renamed:
			rec, err := record(c.To)
			if err != nil {
				return nil, err
			}
			next.Delete(c.Path)
			next.Update(c.To, rec)
		default:
			panic(fmt.Sprintf("fh: unknown change kind %v", c.Kind))
		}
	}
	return next, nil
}
