// Package console renders the operator-facing report: per-file status lines
// and the final tally. It carries no contract beyond being readable.
package console

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/ProhorTaim/Egregoria/internal/domain"
	"github.com/ProhorTaim/Egregoria/internal/reconcile"
)

const (
	green  = "\033[92m"
	red    = "\033[91m"
	yellow = "\033[93m"
	blue   = "\033[94m"
	reset  = "\033[0m"

	rule = 60

	// MaxListedFailures caps the failure list in the summary.
	MaxListedFailures = 10
)

// Printer writes the report to an output stream.
type Printer struct {
	out     io.Writer
	color   bool
	verbose bool
	pending bool
}

// New creates a Printer; color enables ANSI escapes.
func New(out io.Writer, color, verbose bool) *Printer {
	return &Printer{out: out, color: color, verbose: verbose}
}

// Stdout returns a color-capable stdout and whether it is a terminal.
func Stdout() (io.Writer, bool) {
	fd := os.Stdout.Fd()
	return colorable.NewColorableStdout(), isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Printer) paint(code, s string) string {
	if !p.color {
		return s
	}
	return code + s + reset
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *Printer) rule() {
	p.printf("%s\n", p.paint(blue, strings.Repeat("=", rule)))
}

// Banner describes the run before it starts.
type Banner struct {
	Source  string
	Branch  string
	Dir     string
	Project string
	Entries int
	DryRun  bool
}

// Header prints the run banner.
func (p *Printer) Header(b Banner) {
	p.rule()
	p.printf("Syncing assets\n")
	p.printf("Source:  %s\n", b.Source)
	if b.Branch != "" {
		p.printf("Branch:  %s\n", b.Branch)
	}
	p.printf("Folder:  %s\n", b.Dir)
	if b.Project != "" {
		p.printf("Project: %s\n", b.Project)
	}
	if b.DryRun {
		p.printf("Mode:    %s\n", p.paint(yellow, "dry run, nothing is downloaded"))
	}
	p.rule()
	p.printf("\nFiles to check: %d\n\n", b.Entries)
}

// Fetching implements reconcile.Observer.
func (p *Printer) Fetching(path domain.AssetPath, prior domain.LocalFileState) {
	p.printf("  %s %s ... ", p.tag(prior), path)
	p.pending = true
}

func (p *Printer) tag(state domain.LocalFileState) string {
	switch state {
	case domain.PlaceholderStub:
		return p.paint(yellow, "[REPLACE]")
	case domain.Absent:
		return p.paint(blue, "[RESTORE]")
	default:
		return "[SKIP]"
	}
}

// Finished implements reconcile.Observer.
func (p *Printer) Finished(r domain.Result) {
	switch r.Outcome {
	case domain.OutcomeOk:
		p.printf("%s %s\n", p.paint(green, "✓"), humanize.Bytes(uint64(r.BytesWritten)))
	case domain.OutcomeFailed:
		if !p.pending {
			p.printf("  %s %s ... ", p.paint(red, "[FAIL]"), r.Path)
		}
		p.printf("%s\n", p.paint(red, fmt.Sprintf("✗ FAILED (%s)", Reason(r.Err))))
	default:
		if p.verbose {
			p.printf("  [SKIP] %s\n", r.Path)
		}
	}
	p.pending = false
}

// Reason renders a per-file error for the status line.
func Reason(err error) string {
	var te *domain.TransportError
	var pe *domain.PlaceholderPersistsError
	switch {
	case err == nil:
		return "unknown error"
	case errors.As(err, &pe):
		return "LFS placeholder"
	case errors.As(err, &te) && te.StatusCode != 0:
		return fmt.Sprintf("HTTP %d", te.StatusCode)
	case errors.As(err, &te) && te.Err != nil:
		return te.Err.Error()
	default:
		return err.Error()
	}
}

// Summary prints the tally and the capped failure list.
func (p *Printer) Summary(s domain.RunSummary) {
	p.printf("\n")
	p.rule()
	p.printf("Summary:\n")
	p.printf("  Total files:     %d\n", s.Total)
	p.printf("  %s\n", p.paint(green, fmt.Sprintf("Downloaded:      %d", s.Ok)))
	p.printf("  Skipped (valid): %d\n", s.Skipped)
	if s.Failed > 0 {
		p.printf("  %s\n", p.paint(red, fmt.Sprintf("Failed:          %d", s.Failed)))
	}

	if failed := s.FailedPaths(); len(failed) > 0 {
		p.printf("\n%s\n", p.paint(red, "Failed files:"))
		for i, path := range failed {
			if i == MaxListedFailures {
				p.printf("  ... and %d more\n", len(failed)-MaxListedFailures)
				break
			}
			p.printf("  - %s\n", path)
		}
	}

	p.rule()
	if s.Success() {
		p.printf("%s\n", p.paint(green, "✓ Done!"))
	} else {
		p.printf("%s\n", p.paint(yellow, "⚠ Finished with errors"))
	}
}

// Plan prints the local classification used by status and dry runs, and
// returns how many entries would be fetched.
func (p *Printer) Plan(items []reconcile.PlanItem) int {
	pending := 0
	counts := map[domain.LocalFileState]int{}
	for _, it := range items {
		if it.Err != nil {
			pending++
			p.printf("  %s %s (%v)\n", p.paint(red, "[ERROR]"), it.Path, it.Err)
			continue
		}
		counts[it.State]++
		if it.State.NeedsFetch() {
			pending++
			p.printf("  %s %s\n", p.tag(it.State), it.Path)
		} else if p.verbose {
			p.printf("  [OK] %s\n", it.Path)
		}
	}

	p.printf("\n")
	p.printf("  Present:      %d\n", counts[domain.Present])
	p.printf("  Placeholders: %d\n", counts[domain.PlaceholderStub])
	p.printf("  Missing:      %d\n", counts[domain.Absent])
	return pending
}

var _ reconcile.Observer = (*Printer)(nil)
