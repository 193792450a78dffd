package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fh-go/internal/checksum"
	"fh-go/internal/diff"
	"fh-go/internal/fh"
	"fh-go/internal/snapshot"
	"fh-go/internal/store"

	"github.com/spf13/cobra"
)

func TestChangeLine(t *testing.T) {
	p := &printer{}
	tests := []struct {
		change diff.Change
		want   string
	}{
		{diff.Change{Kind: diff.Created, Path: "new.txt"}, `    created  "new.txt"`},
		{diff.Change{Kind: diff.Deleted, Path: "old.txt"}, `    deleted  "old.txt"`},
		{diff.Change{Kind: diff.Modified, Path: "a b"}, `    modified "a b"`},
		{diff.Change{Kind: diff.MetadataModified, Path: "m"}, `    metadata "m"`},
		{diff.Change{Kind: diff.Renamed, Path: "x", To: "y"}, `    renamed  "x" -> "y"`},
		{diff.Change{Kind: diff.Created, Path: "line\nbreak"}, `    created  "line\nbreak"`},
	}
	for _, tt := range tests {
		t.Run(tt.change.Kind.String(), func(t *testing.T) {
			if got := p.changeLine(tt.change); got != tt.want {
				t.Errorf("changeLine() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPrinter_Status(t *testing.T) {
	snap := snapshot.New(checksum.SHA256)
	snap.Update("a.txt", snapshot.Record{Size: 5, ModTime: 1, Digest: "d1"})
	snap.Update("b.txt", snapshot.Record{Size: 7, ModTime: 1, Digest: "d2"})
	ref := store.Reference{Timestamp: 1_700_000_000_000_000, Checksum: "abc"}

	t.Run("clean", func(t *testing.T) {
		var buf bytes.Buffer
		p := &printer{w: &buf}
		p.status("/data", &fh.StatusReport{Ref: ref, Snapshot: snap})
		want := fmt.Sprintf("Repository: /data\nTotal Size: 12B (2 files)\nLast Snapshot: %s\nStatus: CLEAN\n",
			ref.Time().Format(timeLayout))
		if buf.String() != want {
			t.Errorf("status output:\n%s\nwant:\n%s", buf.String(), want)
		}
	})

	t.Run("dirty", func(t *testing.T) {
		var buf bytes.Buffer
		p := &printer{w: &buf}
		p.status("/data", &fh.StatusReport{Ref: ref, Snapshot: snap, Changes: []diff.Change{
			{Kind: diff.Deleted, Path: "a.txt"},
		}})
		if !strings.Contains(buf.String(), "Status: DIRTY\n\n    deleted  \"a.txt\"\n") {
			t.Errorf("status output missing change list:\n%s", buf.String())
		}
	})
}

func TestPrinter_History(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.history([]fh.HistoryEntry{
		{Ref: store.Reference{Timestamp: 2, Checksum: "bbb"}, Files: 1, TotalSize: 3, Message: "second"},
		{Ref: store.Reference{Timestamp: 1, Checksum: "aaa"}, Files: 0},
		{Ref: store.Reference{Timestamp: 0, Checksum: "zzz"}, Err: errors.New("checksum mismatch")},
	})
	out := buf.String()
	for _, want := range []string{
		"snapshot bbb\n",
		"Size: 3B (1 files)\n\n    second\n",
		"snapshot aaa\n",
		"    <no message>\n",
		"unreadable: checksum mismatch\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("history output missing %q:\n%s", want, out)
		}
	}
}

func TestPrinter_ColourOff(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	stepReporter{p: p}.Step(2, 3, "Scanning")
	if got := buf.String(); got != "[2/3] Scanning\n" {
		t.Errorf("progress line = %q", got)
	}
}

func TestReadYes(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"  y  \n", true},
		{"y", true},
		{"yes\n", false},
		{"Y\n", false},
		{"n\n", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
			got, err := readYes(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("readYes: %v", err)
			}
			if got != tt.want {
				t.Errorf("readYes(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	if on, err := enabled("on", nil); err != nil || !on {
		t.Errorf(`enabled("on") = %v, %v`, on, err)
	}
	if on, err := enabled("off", nil); err != nil || on {
		t.Errorf(`enabled("off") = %v, %v`, on, err)
	}
	if _, err := enabled("sometimes", nil); err == nil {
		t.Error(`enabled("sometimes") accepted an invalid mode`)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		want   int
		stderr string
	}{
		{"clean", nil, 0, ""},
		{"dirty", errDirty, 1, ""},
		{"locked", fmt.Errorf("opening index: %w", store.ErrLocked), 2, "fh: locked: opening index"},
		{"io", errors.New("disk on fire"), 2, "fh: disk on fire\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{
				Use:           "fh",
				SilenceUsage:  true,
				SilenceErrors: true,
				RunE:          func(*cobra.Command, []string) error { return tt.err },
			}
			cmd.SetArgs([]string{})
			var stderr bytes.Buffer
			if got := run(cmd, &stderr); got != tt.want {
				t.Errorf("run() = %d, want %d", got, tt.want)
			}
			if !strings.Contains(stderr.String(), tt.stderr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr.String(), tt.stderr)
			}
		})
	}
}
