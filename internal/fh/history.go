package fh

import (
	"fmt"
	"io"

	"fh-go/internal/diff"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"
)

// HistoryEntry summarizes one stored snapshot. Err is set when the snapshot
// failed verification; the other fields are then zero.
type HistoryEntry struct {
	Ref       store.Reference
	Files     int
	TotalSize uint64
	Message   string
	Err       error
}

// History lists every snapshot, newest first, verifying each one.
func (s *Service) History() ([]HistoryEntry, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	refs := st.List()
	entries := make([]HistoryEntry, 0, len(refs))
	for _, ref := range refs {
		snap, err := st.Load(ref)
		if err != nil {
			s.logger.Warn("snapshot failed verification", "snapshot", ref.Filename(), "error", err)
			entries = append(entries, HistoryEntry{Ref: ref, Err: err})
			continue
		}
		entries = append(entries, HistoryEntry{
			Ref:       ref,
			Files:     snap.Len(),
			TotalSize: snap.TotalSize(),
			Message:   snap.Message,
		})
	}
	return entries, nil
}

// FileLogEntry is the state of one file in one snapshot.
type FileLogEntry struct {
	Ref     store.Reference
	Record  snapshot.Record
	Present bool
	// Changed is set when the file appeared, disappeared or its content
	// changed relative to the previous snapshot.
	Changed bool
}

// FileLog traces one repository-relative path through every snapshot,
// newest first. Snapshots where the file is absent are included only when it
// was present in the one before.
func (s *Service) FileLog(path string) ([]FileLogEntry, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	refs := st.List()
	var (
		entries []FileLogEntry
		prev    snapshot.Record
		hadPrev bool
	)
	for i := len(refs) - 1; i >= 0; i-- {
		snap, err := st.Load(refs[i])
		if err != nil {
			return nil, err
		}
		rec, ok := snap.Get(path)
		switch {
		case ok:
			changed := !hadPrev || rec.Digest != prev.Digest || rec.Size != prev.Size
			entries = append(entries, FileLogEntry{Ref: refs[i], Record: rec, Present: true, Changed: changed})
		case hadPrev:
			entries = append(entries, FileLogEntry{Ref: refs[i], Changed: true})
		}
		prev, hadPrev = rec, ok
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// DiffRefs compares two stored snapshots. An empty to selects the latest.
func (s *Service) DiffRefs(from, to string) ([]diff.Change, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer release()

	load := func(selector string) (*snapshot.Snapshot, error) {
		ref, err := st.Find(selector)
		if err != nil {
			return nil, err
		}
		return st.Load(ref)
	}

	older, err := load(from)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", from, err)
	}
	newer, err := load(to)
	if err != nil {
		return nil, fmt.Errorf("loading %q: %w", to, err)
	}

	changes := diff.Diff(older, newer)
	diff.Sort(changes)
	return changes, nil
}

// Show writes the text encoding of a stored snapshot to w.
func (s *Service) Show(selector string, w io.Writer) (store.Reference, error) {
	st, release, err := s.openStore(false)
	if err != nil {
		return store.Reference{}, err
	}
	defer release()

	ref, err := st.Find(selector)
	if err != nil {
		return store.Reference{}, err
	}
	snap, err := st.Load(ref)
	if err != nil {
		return store.Reference{}, err
	}
	if _, err := w.Write(snapshot.Encode(snap, ref.Timestamp)); err != nil {
		return store.Reference{}, fmt.Errorf("writing snapshot: %w", err)
	}
	return ref, nil
}
