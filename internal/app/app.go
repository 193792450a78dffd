package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"fh-go/internal/config"
	"fh-go/internal/database"
	"fh-go/internal/diff"
	"fh-go/internal/fh"
	"fh-go/internal/vault"
)

// ErrNoJournal is returned by Operations when the journal is disabled.
var ErrNoJournal = errors.New("operation journal is disabled (database.type = none)")

// Options are the per-run settings taken from the command line.
type Options struct {
	DataDir  string
	IndexDir string
	// Timestamp pins the snapshot clock, in microseconds since the epoch.
	Timestamp int64
	Verbose   bool
	Progress  fh.Progress
	// Stderr receives warnings, or all log lines when Verbose is set.
	Stderr io.Writer
	// IDs generates the run ID; nil means random UUIDs.
	IDs fh.IDGenerator
}

// FHApp is the application layer between the CLI and the fh Service.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and records each run in the journal.
type FHApp struct {
	cfg     *config.Config
	journal fh.Journal
	service *fh.Service
	logger  *slog.Logger
	runID   string
	op      *Operation
	logFile *os.File
}

// NewFHApp creates a fully wired FHApp from the given config.
// operation identifies the CLI command being run (e.g. "status", "ack").
// The caller must call Close when done.
func NewFHApp(cfg *config.Config, operation, parameters string, opts Options) (*FHApp, error) {
	fileLevel, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	stderrLevel := slog.LevelWarn
	if opts.Verbose {
		fileLevel, stderrLevel = slog.LevelDebug, slog.LevelDebug
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var ids fh.IDGenerator = fh.UUIDGenerator{}
	if opts.IDs != nil {
		ids = opts.IDs
	}
	runID := ids.New()
	logger, logFile, err := newLogger(cfg.LogDir, runID, fileLevel, stderrLevel, stderr)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var clock fh.Clock = fh.RealClock{}
	if opts.Timestamp != 0 {
		clock = fh.FixedClock{T: time.UnixMicro(opts.Timestamp)}
	}

	svc, err := fh.NewService(fh.Options{
		DataDir:  firstNonEmpty(opts.DataDir, cfg.Repository.DataDir, "."),
		IndexDir: firstNonEmpty(opts.IndexDir, cfg.Repository.IndexDir, config.DefaultIndexDir),
		Ignore:   cfg.Repository.Ignore,
		Workers:  cfg.Repository.Workers,
	}, &slogAdapter{l: logger}, clock, opts.Progress)
	if err != nil {
		logFile.Close()
		return nil, err
	}

	journal, err := database.NewJournalFromConfig(cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	a := &FHApp{
		cfg:     cfg,
		journal: journal,
		service: svc,
		logger:  logger,
		runID:   runID,
		op:      NewOperation(operation, parameters),
		logFile: logFile,
	}

	if journal != nil {
		if err := journal.CheckMigrations(); err != nil {
			a.Close()
			return nil, fmt.Errorf("journal schema out of date: %w", err)
		}
		id, err := journal.StartOperation(runID, operation, svc.DataRoot(), parameters, time.Now())
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("recording operation: %w", err)
		}
		a.op.ID = id
	}

	logger.Debug("run started", "operation", operation, "data_root", svc.DataRoot(), "index", svc.IndexRoot())
	return a, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// DataRoot returns the canonical data root.
func (a *FHApp) DataRoot() string { return a.service.DataRoot() }

// IndexRoot returns the index directory.
func (a *FHApp) IndexRoot() string { return a.service.IndexRoot() }

// RunID identifies this run in logs and in the journal.
func (a *FHApp) RunID() string { return a.runID }

// Init creates the index. An empty algorithm uses the configured one.
func (a *FHApp) Init(ctx context.Context, algorithm string, empty bool, message string) (*fh.InitResult, error) {
	res, err := a.service.Init(ctx, fh.InitOptions{
		Algorithm: firstNonEmpty(algorithm, a.cfg.Repository.Checksum),
		Empty:     empty,
		Message:   message,
	})
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	a.op.Finish(res.Ref.Filename(), res.Snapshot.Len(), false, nil)
	return res, nil
}

// Status resolves the given paths and compares them with the latest snapshot.
// No paths means the whole tree.
func (a *FHApp) Status(ctx context.Context, rawPaths []string) (*fh.StatusReport, error) {
	paths, err := a.resolve(rawPaths)
	if err != nil {
		return nil, err
	}
	rep, err := a.service.Status(ctx, paths)
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	a.op.Finish(rep.Ref.Filename(), len(rep.Changes), !rep.Clean(), nil)
	return rep, nil
}

// Acknowledge resolves the given paths and records their current state.
func (a *FHApp) Acknowledge(ctx context.Context, rawPaths []string, message string, confirm func([]diff.Change) (bool, error)) (*fh.AckResult, error) {
	paths, err := a.resolve(rawPaths)
	if err != nil {
		return nil, err
	}
	res, err := a.service.Acknowledge(ctx, fh.AckOptions{Paths: paths, Message: message, Confirm: confirm})
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	a.op.Finish(res.Ref.Filename(), len(res.Changes), false, nil)
	return res, nil
}

// Fsck re-hashes the files under the given paths.
func (a *FHApp) Fsck(ctx context.Context, rawPaths []string) (*fh.FsckReport, error) {
	paths, err := a.resolve(rawPaths)
	if err != nil {
		return nil, err
	}
	rep, err := a.service.Fsck(ctx, paths)
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	a.op.Finish(rep.Ref.Filename(), len(rep.Changes), !rep.Clean(), nil)
	return rep, nil
}

// DiffRefs compares two stored snapshots.
func (a *FHApp) DiffRefs(from, to string) ([]diff.Change, error) {
	changes, err := a.service.DiffRefs(from, to)
	a.op.Finish("", len(changes), false, err)
	return changes, err
}

// History lists all snapshots, newest first.
func (a *FHApp) History() ([]fh.HistoryEntry, error) {
	entries, err := a.service.History()
	a.op.Finish("", 0, false, err)
	return entries, err
}

// FileLog resolves rawPath and traces it through every snapshot.
func (a *FHApp) FileLog(rawPath string) ([]fh.FileLogEntry, error) {
	paths, err := a.resolve([]string{rawPath})
	if err != nil {
		return nil, err
	}
	entries, err := a.service.FileLog(paths[0])
	a.op.Finish("", 0, false, err)
	return entries, err
}

// Show writes one stored snapshot as text.
func (a *FHApp) Show(selector string, w io.Writer) error {
	ref, err := a.service.Show(selector, w)
	if err != nil {
		a.op.Finish("", 0, false, err)
		return err
	}
	a.op.Finish(ref.Filename(), 0, false, nil)
	return nil
}

// Push replicates snapshot files to the named vault; an empty name selects
// the only configured vault.
func (a *FHApp) Push(ctx context.Context, vaultName string) (*fh.PushResult, error) {
	vc, err := a.cfg.Vault(vaultName)
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	v, err := vault.NewVaultFromConfig(ctx, vc)
	if err != nil {
		err = fmt.Errorf("creating vault %s: %w", vc.Name, err)
		a.op.Finish("", 0, false, err)
		return nil, err
	}
	res, err := a.service.Push(v)
	uploaded := 0
	if res != nil {
		uploaded = len(res.Uploaded)
	}
	a.op.Finish("", uploaded, false, err)
	return res, err
}

// Operations returns the most recent journal entries, newest first.
func (a *FHApp) Operations(limit int) ([]*fh.Operation, error) {
	if a.journal == nil {
		a.op.Finish("", 0, false, ErrNoJournal)
		return nil, ErrNoJournal
	}
	ops, err := a.journal.ListOperations(limit)
	a.op.Finish("", 0, false, err)
	return ops, err
}

// BackupJournal writes a consistent copy of the journal to path.
func (a *FHApp) BackupJournal(path string) error {
	if a.journal == nil {
		a.op.Finish("", 0, false, ErrNoJournal)
		return ErrNoJournal
	}
	err := a.journal.BackupTo(path)
	if err != nil {
		err = fmt.Errorf("backing up journal: %w", err)
	}
	a.op.Finish("", 0, false, err)
	return err
}

func (a *FHApp) resolve(rawPaths []string) ([]string, error) {
	paths, err := a.service.ResolvePaths(rawPaths)
	if err != nil {
		a.op.Finish("", 0, false, err)
		return nil, fmt.Errorf("resolving path: %w", err)
	}
	return paths, nil
}

// Close records the operation's outcome in the journal and closes all
// resources.
func (a *FHApp) Close() error {
	var firstErr error

	if a.journal != nil {
		if a.op.Persisted() {
			if err := a.journal.FinishOperation(a.op.ID, a.op.Result, time.Now()); err != nil {
				firstErr = fmt.Errorf("finishing operation: %w", err)
			}
		}
		if err := a.journal.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}
