package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"zerocheck/sampler"
)

// lineProgress prints a single carriage-return progress line, for terminals where the
// full-screen view is off.
type lineProgress struct {
	w           io.Writer
	total, done int64
	step        int64
}

func newLineProgress(w io.Writer) *lineProgress { return &lineProgress{w: w} }

func (p *lineProgress) Start(samples, sectors int64) {
	p.total, p.done = samples, 0
	p.step = max(1, samples/200)
	fmt.Fprintf(p.w, "Sampling %s of %s sectors...\n", humanize.Comma(samples), humanize.Comma(sectors))
}

func (p *lineProgress) Advance(int64) {
	p.done++
	if p.done%p.step == 0 || p.done == p.total {
		fmt.Fprintf(p.w, "\rProgress: %s / %s (%.1f%%)", humanize.Comma(p.done), humanize.Comma(p.total), float64(p.done)*100/float64(p.total))
	}
}

func (p *lineProgress) Finish(out sampler.Outcome, err error) {
	switch {
	case err != nil:
		fmt.Fprintf(p.w, "\nSampling stopped after %s reads\n", humanize.Comma(out.Reads))
	case out.Result == sampler.NonZeroDetected:
		fmt.Fprintf(p.w, "\nNon-zero data after %s reads\n", humanize.Comma(out.Reads))
	default:
		fmt.Fprintf(p.w, "\nSampling complete: %s reads\n", humanize.Comma(out.Reads))
	}
}
