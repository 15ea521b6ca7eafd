package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"zerocheck/blockdev"
	"zerocheck/check"
	"zerocheck/sampler"
)

var (
	colorRed    = lipgloss.Color("#FF5555")
	colorYellow = lipgloss.Color("#F1FA8C")
	colorGreen  = lipgloss.Color("#50FA7B")
	colorCyan   = lipgloss.Color("#8BE9FD")
	colorGray   = lipgloss.Color("#6272A4")

	passStyle  = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	labelStyle = lipgloss.NewStyle().Foreground(colorGray).Width(10)
	hintStyle  = lipgloss.NewStyle().Foreground(colorGray).Italic(true)
)

func statusStyle(s check.Status) lipgloss.Style {
	switch s {
	case check.Pass:
		return passStyle
	case check.Fail:
		return failStyle
	default:
		return errStyle
	}
}

func field(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", labelStyle.Render(label), value)
}

// renderReport formats a finished check for the terminal.
func renderReport(r check.Report) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("zerocheck report"))
	b.WriteByte('\n')
	field(&b, "Device", r.Request.Device)
	field(&b, "Level", r.Request.Level.String())

	if s := r.Sampling; s != nil {
		field(&b, "Size", fmt.Sprintf("%s sectors (%s)", humanize.Comma(r.Sectors), humanize.IBytes(uint64(r.Sectors)*blockdev.SectorSize)))
		field(&b, "Sampled", fmt.Sprintf("%s of %s", humanize.Comma(s.Reads), humanize.Comma(r.Request.Level.Samples())))
		if s.Result == sampler.NonZeroDetected {
			field(&b, "Found", fmt.Sprintf("non-zero byte at offset %d (sector %d)", s.Offset, s.Sector))
		}
	}
	if e := r.Erase; e != nil {
		field(&b, "Family", e.Family.String())
		field(&b, "Query", e.Tool)
		field(&b, "Marker", fmt.Sprintf("%q", e.Marker))
	}
	field(&b, "Elapsed", r.Elapsed.Round(time.Millisecond).String())
	field(&b, "Result", statusStyle(r.Status).Render(r.Status.String())+"  "+verdictText(r))

	if r.Err != nil {
		field(&b, "Error", r.Err.Error())
		for _, h := range errors.GetAllHints(r.Err) {
			b.WriteString("  " + hintStyle.Render("hint: "+h) + "\n")
		}
	}
	return b.String()
}

func verdictText(r check.Report) string {
	switch {
	case r.Status == check.Error:
		return "the check could not be completed"
	case r.Erase != nil && r.Status == check.Pass:
		return "drive reports a completed secure erase"
	case r.Erase != nil:
		return "drive does not report a completed secure erase"
	case r.Status == check.Pass:
		return "all sampled sectors are zero-filled"
	default:
		return "non-zero data found, the disk is not erased"
	}
}
