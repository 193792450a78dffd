package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"fh-go/internal/app"
	"fh-go/internal/config"
	"fh-go/internal/diff"
	"fh-go/internal/fh"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// errDirty makes the process exit 1 after the report has been printed.
var errDirty = errors.New("changes detected")

var errNotInteractive = errors.New("stdin is not a terminal; pass --yes to apply changes")

// Global flags.
var (
	dataDir      string
	indexDir     string
	timestamp    int64
	verbose      bool
	progressMode string
	colourMode   string
)

func main() {
	_ = godotenv.Load() // .env is optional
	os.Exit(run(rootCmd, os.Stderr))
}

// run executes cmd and maps its outcome to an exit code: 0 clean, 1 dirty,
// 2 error.
func run(cmd *cobra.Command, stderr io.Writer) int {
	err := cmd.Execute()
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errDirty):
		return 1
	default:
		switch kind := fh.Classify(err); kind {
		case fh.KindIO, fh.KindUnknown:
			fmt.Fprintf(stderr, "fh: %v\n", err)
		default:
			fmt.Fprintf(stderr, "fh: %s: %v\n", kind, err)
		}
		return 2
	}
}

// enabled resolves an auto|on|off flag against whether f is a terminal.
func enabled(mode string, f *os.File) (bool, error) {
	switch mode {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "auto", "":
		return term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("%w: expected auto, on or off, got %q", config.ErrInvalid, mode)
	}
}

func stdout() (*printer, error) {
	colour, err := enabled(colourMode, os.Stdout)
	if err != nil {
		return nil, err
	}
	return &printer{w: os.Stdout, colour: colour}, nil
}

func loadConfig() (*config.Config, string, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, "", fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.Load(defaults["config_path"], defaults["base_dir"])
	if err != nil {
		return nil, "", fmt.Errorf("reading config: %w", err)
	}
	return cfg, defaults["config_path"], nil
}

// newApp reads the config and creates an FHApp. The caller must defer a.Close().
// operation identifies the CLI command being run (e.g. "status", "ack").
func newApp(operation string, args []string) (*app.FHApp, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}

	showProgress, err := enabled(progressMode, os.Stderr)
	if err != nil {
		return nil, err
	}
	colour, err := enabled(colourMode, os.Stderr)
	if err != nil {
		return nil, err
	}
	var progress fh.Progress
	if showProgress {
		progress = stepReporter{p: &printer{w: os.Stderr, colour: colour}}
	}

	a, err := app.NewFHApp(cfg, operation, strings.Join(args, " "), app.Options{
		DataDir:   dataDir,
		IndexDir:  indexDir,
		Timestamp: timestamp,
		Verbose:   verbose,
		Progress:  progress,
		Stderr:    os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:           "fh",
	Short:         "File history: detect and record changes to a directory tree",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", cfg.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, path, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Printf("# Configuration from %s\n\n", path)
		var m config.Manager
		return m.Write(os.Stdout, cfg)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the index and record the first snapshot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		algorithm, _ := cmd.Flags().GetString("checksum")
		empty, _ := cmd.Flags().GetBool("empty")
		message, _ := cmd.Flags().GetString("message")

		a, err := newApp("init", args)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Init(cmd.Context(), algorithm, empty, message)
		if err != nil {
			return err
		}
		fmt.Printf("Initialized %s\n", a.IndexRoot())
		fmt.Printf("Created snapshot %s (%d files)\n", res.Ref.Checksum, res.Snapshot.Len())
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status [PATH...]",
	Short: "Show changes since the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("status", args)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Status(cmd.Context(), args)
		if err != nil {
			return err
		}
		p.status(a.DataRoot(), rep)
		if !rep.Clean() {
			return errDirty
		}
		return nil
	},
}

// confirmer asks on the terminal before changes are applied.
func confirmer(p *printer, in *os.File, assumeYes bool) func([]diff.Change) (bool, error) {
	return func(changes []diff.Change) (bool, error) {
		p.printf("Acknowledging %d changes:\n", len(changes))
		p.changes(changes)
		if assumeYes {
			return true, nil
		}
		if !term.IsTerminal(int(in.Fd())) {
			return false, errNotInteractive
		}
		p.printf("Apply changes? (y/n): ")
		return readYes(in)
	}
}

// readYes accepts only "y".
func readYes(r io.Reader) (bool, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("reading answer: %w", err)
	}
	return strings.TrimSpace(line) == "y", nil
}

var ackCmd = &cobra.Command{
	Use:   "ack PATH...",
	Short: "Record the current state of the given paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return fmt.Errorf("%w: need a path (e.g. 'fh ack .')", fh.ErrNoPaths)
		}
		assumeYes, _ := cmd.Flags().GetBool("yes")
		message, _ := cmd.Flags().GetString("message")

		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("ack", args)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Acknowledge(cmd.Context(), args, message, confirmer(p, os.Stdin, assumeYes))
		switch {
		case errors.Is(err, fh.ErrNothingToCommit):
			fmt.Println("Nothing to commit")
			return nil
		case errors.Is(err, fh.ErrAborted):
			fmt.Println("Aborted")
			return nil
		case err != nil:
			return err
		}
		fmt.Printf("Created snapshot %s\n", res.Ref.Checksum)
		return nil
	},
}

var fsckCmd = &cobra.Command{
	Use:   "fsck [PATH...]",
	Short: "Re-hash every file and compare with the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("fsck", args)
		if err != nil {
			return err
		}
		defer a.Close()

		rep, err := a.Fsck(cmd.Context(), args)
		if err != nil {
			return err
		}
		p.fsck(a.DataRoot(), rep)
		if !rep.Clean() {
			return errDirty
		}
		return nil
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff FROM [TO]",
	Short: "Compare two snapshots; TO defaults to the latest",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		to := ""
		if len(args) == 2 {
			to = args[1]
		}
		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("diff", args)
		if err != nil {
			return err
		}
		defer a.Close()

		changes, err := a.DiffRefs(args[0], to)
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			fmt.Println("No differences.")
			return nil
		}
		p.changes(changes)
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log PATH",
	Short: "Show the recorded history of one file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("log", args)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.FileLog(args[0])
		if err != nil {
			return err
		}
		p.fileLog(args[0], entries)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("history", args)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.History()
		if err != nil {
			return err
		}
		p.history(entries)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [REF]",
	Short: "Print a snapshot in its text form; REF defaults to the latest",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selector := ""
		if len(args) == 1 {
			selector = args[0]
		}
		a, err := newApp("show", args)
		if err != nil {
			return err
		}
		defer a.Close()

		return a.Show(selector, os.Stdout)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [VAULT]",
	Short: "Copy snapshots to a vault",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := ""
		if len(args) == 1 {
			name = args[0]
		}
		a, err := newApp("push", args)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Push(cmd.Context(), name)
		if res != nil {
			for _, n := range res.Uploaded {
				fmt.Printf("Pushed %s\n", n)
			}
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d pushed, %d already in vault\n", len(res.Uploaded), res.Skipped)
		return nil
	},
}

var opsCmd = &cobra.Command{
	Use:   "ops",
	Short: "View recorded operations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		backup, _ := cmd.Flags().GetString("backup")

		p, err := stdout()
		if err != nil {
			return err
		}
		a, err := newApp("ops", args)
		if err != nil {
			return err
		}
		defer a.Close()

		if backup != "" {
			if err := a.BackupJournal(backup); err != nil {
				return err
			}
			fmt.Printf("Journal copied to %s\n", backup)
			return nil
		}

		ops, err := a.Operations(limit)
		if err != nil {
			return err
		}
		p.operations(ops)
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&dataDir, "data-dir", "d", "", "Directory tree to monitor (default from config, else .)")
	pf.StringVarP(&indexDir, "index-dir", "x", "", "Index directory, relative to the data dir (default .fhistory)")
	pf.Int64Var(&timestamp, "timestamp", 0, "Snapshot time in microseconds since the epoch")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	pf.StringVar(&progressMode, "progress", "auto", "Progress on stderr: auto, on or off")
	pf.StringVar(&colourMode, "colour", "auto", "Coloured output: auto, on or off")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	initCmd.Flags().String("checksum", "", "Checksum algorithm: sha256 or md5 (default from config)")
	initCmd.Flags().Bool("empty", false, "Record an empty first snapshot without scanning")
	initCmd.Flags().StringP("message", "m", "", "Snapshot message")

	ackCmd.Flags().BoolP("yes", "y", false, "Apply without asking")
	ackCmd.Flags().StringP("message", "m", "", "Snapshot message")

	opsCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	opsCmd.Flags().String("backup", "", "Write a copy of the journal to this file instead of listing")

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ackCmd)
	rootCmd.AddCommand(fsckCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(opsCmd)
}
