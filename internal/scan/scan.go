// Package scan builds snapshots from a directory tree.
//
// A metadata pass records size and modification time for every regular file.
// A checksum pass fills in digests for the files a snapshot already knows,
// so callers can restrict expensive hashing to files that look changed.
// Both passes fan out to worker goroutines and merge results from a single
// goroutine; the input snapshot is only modified when a pass succeeds.
package scan

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unicode/utf8"

	"fh-go/internal/checksum"
	"fh-go/internal/fs"
	"fh-go/internal/snapshot"
)

// ErrInvalidPath is returned for file names that are not valid UTF-8.
var ErrInvalidPath = errors.New("path is not valid UTF-8")

// Options restricts which files a pass visits.
type Options struct {
	// Exclude lists slash-separated prefixes, relative to the root, that are
	// never visited.
	Exclude []string
	// Exclusive, when non-nil, is an allow-list of prefixes. A non-nil empty
	// slice visits nothing.
	Exclusive []string
	// Ignore holds glob patterns for files and directories to skip.
	Ignore *fs.IgnoreMatcher
	// Workers is the number of concurrent stat or hash workers. Zero means
	// runtime.NumCPU().
	Workers int
}

// Stats summarizes one pass.
type Stats struct {
	Visited     int
	Skipped     int
	Hashed      int
	BytesHashed int64
}

// Scanner walks one canonical root directory.
type Scanner struct {
	root    string
	policy  policy
	workers int
}

// New creates a Scanner for root. The root is resolved to an absolute,
// symlink-free path.
func New(root string, opts Options) (*Scanner, error) {
	canonical, err := fs.CanonicalRoot(root)
	if err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{root: canonical, policy: newPolicy(opts), workers: workers}, nil
}

// Root returns the canonical root.
func (s *Scanner) Root() string { return s.root }

// WithExclusive returns a copy of the scanner restricted to the given prefixes.
func (s *Scanner) WithExclusive(prefixes []string) *Scanner {
	c := *s
	c.policy.restricted = true
	c.policy.exclusive = nil
	for _, p := range prefixes {
		c.policy.exclusive = append(c.policy.exclusive, cleanPrefix(p))
	}
	return &c
}

type metaJob struct {
	rel   string
	entry iofs.DirEntry
}

type metaResult struct {
	rel string
	rec snapshot.Record
	err error
}

// MetadataPass walks the tree and records size and modification time, with no
// digest, for every regular file the policy admits. Existing records for
// visited paths are replaced; other records are left alone.
func (s *Scanner) MetadataPass(parent context.Context, snap *snapshot.Snapshot) (Stats, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan metaJob, s.workers*4)
	results := make(chan metaResult, s.workers*4)

	// walkErr and skipped belong to the walker until walkDone is closed.
	var (
		walkErr  error
		skipped  int
		walkDone = make(chan struct{})
	)
	go func() {
		defer close(walkDone)
		defer close(jobs)
		walkErr = filepath.WalkDir(s.root, func(p string, d iofs.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("walking %s: %w", p, err)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if p == s.root {
				return nil
			}
			rel, err := s.relative(p)
			if err != nil {
				return err
			}
			if d.IsDir() {
				if s.policy.skipDir(rel) {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || s.policy.skipFile(rel) {
				skipped++
				return nil
			}
			select {
			case jobs <- metaJob{rel: rel, entry: d}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				r := statEntry(j)
				select {
				case results <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	staged := make(map[string]snapshot.Record)
	var firstErr error
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		staged[r.rel] = r.rec
	}
	// Workers may quit on cancellation before the walker notices.
	<-walkDone

	if err := abortErr(parent, firstErr, walkErr); err != nil {
		return Stats{}, fmt.Errorf("metadata pass: %w", err)
	}

	for rel, rec := range staged {
		snap.Update(rel, rec)
	}
	return Stats{Visited: len(staged), Skipped: skipped}, nil
}

func statEntry(j metaJob) metaResult {
	info, err := j.entry.Info()
	if err != nil {
		return metaResult{rel: j.rel, err: fmt.Errorf("stat %s: %w", j.rel, err)}
	}
	return metaResult{
		rel: j.rel,
		rec: snapshot.Record{
			Size:    uint64(info.Size()),
			ModTime: info.ModTime().UnixMicro(),
		},
	}
}

type hashResult struct {
	rel    string
	digest string
	n      int64
	err    error
}

// ChecksumPass computes digests for every path already in snap that the
// policy admits, using snap's algorithm. Records outside the policy keep
// whatever digest they had.
func (s *Scanner) ChecksumPass(parent context.Context, snap *snapshot.Snapshot) (Stats, error) {
	var (
		paths   []string
		skipped int
	)
	for _, p := range snap.Paths() {
		if s.policy.skipFile(p) {
			skipped++
			continue
		}
		paths = append(paths, p)
	}
	if len(paths) == 0 {
		if err := parent.Err(); err != nil {
			return Stats{}, fmt.Errorf("checksum pass: %w", err)
		}
		return Stats{Skipped: skipped}, nil
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	jobs := make(chan string)
	results := make(chan hashResult, s.workers)
	alg := snap.Algorithm

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rel := range jobs {
				r := s.hashFile(ctx, alg, rel)
				select {
				case results <- r:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	staged := make(map[string]string, len(paths))
	var (
		firstErr error
		bytes    int64
	)
	for r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
				cancel()
			}
			continue
		}
		staged[r.rel] = r.digest
		bytes += r.n
	}

	if err := abortErr(parent, firstErr, nil); err != nil {
		return Stats{}, fmt.Errorf("checksum pass: %w", err)
	}

	for rel, digest := range staged {
		rec, _ := snap.Get(rel)
		rec.Digest = digest
		snap.Update(rel, rec)
	}
	return Stats{Visited: len(paths), Skipped: skipped, Hashed: len(staged), BytesHashed: bytes}, nil
}

func (s *Scanner) hashFile(ctx context.Context, alg checksum.Algorithm, rel string) hashResult {
	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return hashResult{rel: rel, err: fmt.Errorf("opening %s: %w", rel, err)}
	}
	defer f.Close()

	digest, n, err := checksum.ComputeReader(alg, &ctxReader{ctx: ctx, r: f})
	if err != nil {
		return hashResult{rel: rel, err: fmt.Errorf("hashing %s: %w", rel, err)}
	}
	return hashResult{rel: rel, digest: digest, n: n}
}

// relative converts an absolute path under the root to a slash-separated
// relative path, rejecting names that are not valid UTF-8.
func (s *Scanner) relative(p string) (string, error) {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return "", fmt.Errorf("relativizing %s: %w", p, err)
	}
	rel = filepath.ToSlash(rel)
	if !utf8.ValidString(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return rel, nil
}

// abortErr picks the error a pass reports: the caller's cancellation first,
// then the first worker failure, then the walk failure. A walk stopped by an
// internal cancel is reported through the worker error that caused it.
func abortErr(parent context.Context, workerErr, walkErr error) error {
	if err := parent.Err(); err != nil {
		return err
	}
	if workerErr != nil {
		return workerErr
	}
	return walkErr
}

// ctxReader stops a long read as soon as the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
