package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/movingbox/inventory-archive/internal/core"
)

// progressPrinter renders mapped progress as a single rewritten line.
type progressPrinter struct {
	w       io.Writer
	mapper  func(core.Event) (float64, string)
	quiet   bool
	last    string
	printed bool
}

func newProgressPrinter(w io.Writer, mapper func(core.Event) (float64, string), quiet bool) *progressPrinter {
	return &progressPrinter{w: w, mapper: mapper, quiet: quiet}
}

func (p *progressPrinter) update(ev core.Event) {
	if p.quiet {
		return
	}
	if _, ok := ev.(core.Progress); !ok {
		return
	}
	frac, label := p.mapper(ev)
	line := fmt.Sprintf("%3.0f%% %s", frac*100, label)
	if line == p.last {
		return
	}
	// pad to erase the tail of a longer previous line
	pad := max(len(p.last)-len(line), 0)
	fmt.Fprintf(p.w, "\r%s%s", line, strings.Repeat(" ", pad))
	p.last = line
	p.printed = true
}

func (p *progressPrinter) finish() {
	if p.printed {
		fmt.Fprintln(p.w)
	}
}

// follow prints op's progress until its stream closes and returns its
// outcome.
func follow[R any](op *core.Operation[R], p *progressPrinter) (R, error) {
	for ev := range op.Events() {
		p.update(ev)
	}
	p.finish()
	return op.Wait()
}

func printCounts(w io.Writer, c core.Counts) {
	rows := []struct {
		label string
		n     int
	}{
		{"Homes", c.Homes},
		{"Labels", c.Labels},
		{"Locations", c.Locations},
		{"Items", c.Items},
		{"Policies", c.Policies},
		{"Photos", c.Photos},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "  %-10s %s\n", r.label, humanize.Comma(int64(r.n)))
	}
}

func printExportResult(w io.Writer, res core.ExportResult) {
	color.New(color.FgGreen, color.Bold).Fprintln(w, "Export complete")
	fmt.Fprintf(w, "  %-10s %s", "Archive", res.Path)
	if fi, err := os.Stat(res.Path); err == nil {
		fmt.Fprintf(w, " (%s)", humanize.Bytes(uint64(fi.Size())))
	}
	fmt.Fprintln(w)
	printCounts(w, res.Counts)
}

func printImportResult(w io.Writer, res core.ImportResult) {
	color.New(color.FgGreen, color.Bold).Fprintln(w, "Import complete")
	printCounts(w, res.Counts)
	if res.SkippedFiles > 0 {
		color.New(color.FgYellow).Fprintf(w, "  %-10s %s\n", "Skipped", humanize.Comma(int64(res.SkippedFiles)))
	}
	if len(res.Warnings) == 0 {
		return
	}
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(w, "%d warning%s:\n", len(res.Warnings), plural(len(res.Warnings)))
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  - %s\n", warn)
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
