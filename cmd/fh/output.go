package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"fh-go/internal/diff"
	"fh-go/internal/fh"

	"github.com/charmbracelet/lipgloss"
)

var (
	createdStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	refStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	cleanStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	dirtyStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

const timeLayout = time.RFC822Z

// printer renders command output, styling it only when colour is enabled.
type printer struct {
	w      io.Writer
	colour bool
}

func (p *printer) paint(style lipgloss.Style, text string) string {
	if !p.colour {
		return text
	}
	return style.Render(text)
}

func (p *printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) changeLine(c diff.Change) string {
	var style lipgloss.Style
	switch c.Kind {
	case diff.Created:
		style = createdStyle
	case diff.Deleted:
		style = deletedStyle
	case diff.Modified, diff.MetadataModified, diff.Renamed:
		style = modifiedStyle
	default:
		panic(fmt.Sprintf("fh: unknown change kind %d", int(c.Kind)))
	}
	target := strconv.Quote(c.Path)
	if c.Kind == diff.Renamed {
		target += " -> " + strconv.Quote(c.To)
	}
	return p.paint(style, fmt.Sprintf("    %-9s%s", c.Kind, target))
}

func (p *printer) changes(changes []diff.Change) {
	for _, c := range changes {
		p.printf("%s\n", p.changeLine(c))
	}
}

func (p *printer) state(clean bool) string {
	if clean {
		return p.paint(cleanStyle, "CLEAN")
	}
	return p.paint(dirtyStyle, "DIRTY")
}

func (p *printer) status(root string, rep *fh.StatusReport) {
	p.printf("Repository: %s\n", root)
	p.printf("Total Size: %dB (%d files)\n", rep.Snapshot.TotalSize(), rep.Snapshot.Len())
	p.printf("Last Snapshot: %s\n", rep.Ref.Time().Format(timeLayout))
	p.printf("Status: %s\n", p.state(rep.Clean()))
	if !rep.Clean() {
		p.printf("\n")
		p.changes(rep.Changes)
	}
}

func (p *printer) fsck(root string, rep *fh.FsckReport) {
	p.printf("Repository: %s\n", root)
	p.printf("Checked: %d files (%dB hashed)\n", rep.Checked, rep.BytesHashed)
	p.printf("Verified Against: %s\n", rep.Ref.Time().Format(timeLayout))
	p.printf("Status: %s\n", p.state(rep.Clean()))
	if !rep.Clean() {
		p.printf("\n")
		p.changes(rep.Changes)
	}
}

func (p *printer) history(entries []fh.HistoryEntry) {
	for i, e := range entries {
		if i > 0 {
			p.printf("\n")
		}
		p.printf("%s\n", p.paint(refStyle, "snapshot "+e.Ref.Checksum))
		p.printf("Timestamp: %s\n", e.Ref.Time().Format(timeLayout))
		if e.Err != nil {
			p.printf("%s\n", p.paint(deletedStyle, "unreadable: "+e.Err.Error()))
			continue
		}
		p.printf("Size: %dB (%d files)\n", e.TotalSize, e.Files)
		if e.Message == "" {
			p.printf("\n    %s\n", p.paint(dimStyle, "<no message>"))
		} else {
			p.printf("\n    %s\n", e.Message)
		}
	}
}

func (p *printer) fileLog(path string, entries []fh.FileLogEntry) {
	if len(entries) == 0 {
		p.printf("%s has never been recorded.\n", strconv.Quote(path))
		return
	}
	for _, e := range entries {
		when := e.Ref.Time().Format(timeLayout)
		if !e.Present {
			p.printf("%s  %s\n", p.paint(refStyle, e.Ref.Short()), p.paint(deletedStyle, when+"  absent"))
			continue
		}
		digest := e.Record.Digest
		if len(digest) > 12 {
			digest = digest[:12]
		}
		marker := ""
		if e.Changed {
			marker = "  " + p.paint(modifiedStyle, "changed")
		}
		p.printf("%s  %s  %s  %dB%s\n", p.paint(refStyle, e.Ref.Short()), when, digest, e.Record.Size, marker)
	}
}

func (p *printer) operations(ops []*fh.Operation) {
	for _, op := range ops {
		duration := ""
		if op.FinishedAt.Valid {
			duration = op.FinishedAt.Time.Sub(op.StartedAt).Truncate(time.Millisecond).String()
		}
		p.printf("#%d  %-8s  %s  %-8s  %-8s  %s\n",
			op.ID,
			op.Operation,
			op.StartedAt.Local().Format("2006-01-02 15:04:05"),
			op.Status,
			duration,
			op.DataDir,
		)
		if op.Error != "" {
			p.printf("    %s\n", p.paint(deletedStyle, op.Error))
		}
	}
}

// stepReporter prints "[n/total] msg" progress lines.
type stepReporter struct {
	p *printer
}

func (r stepReporter) Step(n, total int, msg string) {
	r.p.printf("%s\n", r.p.paint(dimStyle, fmt.Sprintf("[%d/%d] %s", n, total, msg)))
}
