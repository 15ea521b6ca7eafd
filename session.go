package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"zerocheck/blockdev"
	"zerocheck/check"
)

// errNoInput is returned when stdin closes while a prompt is waiting.
var errNoInput = errors.New("no more input")

// prompter asks numbered-menu questions on a line-oriented terminal.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	switch {
	case err == nil, errors.Is(err, io.EOF) && line != "":
		return strings.TrimSpace(line), nil
	case errors.Is(err, io.EOF):
		return "", errNoInput
	default:
		return "", err
	}
}

// choose prints options and returns the 0-based index the user picked. Invalid answers
// re-prompt until the input runs out.
func (p *prompter) choose(title string, options []string) (int, error) {
	fmt.Fprintln(p.out, title)
	for i, o := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, o)
	}
	for {
		fmt.Fprintf(p.out, "Enter a number (1-%d): ", len(options))
		s, err := p.readLine()
		if err != nil {
			return -1, err
		}
		if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintln(p.out, "Invalid selection. Please try again.")
	}
}

// waitEnter blocks until the user presses Enter or input ends.
func (p *prompter) waitEnter(msg string) {
	fmt.Fprint(p.out, msg)
	_, _ = p.in.ReadString('\n')
}

func diskLine(d blockdev.Device) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-14s %9s  %-4s", d.Path, d.HumanSize(), d.Kind)
	if d.Transport != "" {
		fmt.Fprintf(&b, " %-5s", d.Transport)
	}
	if d.Model != "" {
		fmt.Fprintf(&b, " %s", d.Model)
	}
	return b.String()
}

func selectDisk(p *prompter, devs []blockdev.Device) (blockdev.Device, error) {
	opts := make([]string, len(devs))
	for i, d := range devs {
		opts[i] = diskLine(d)
	}
	i, err := p.choose("Select the disk to check:", opts)
	if err != nil {
		return blockdev.Device{}, err
	}
	return devs[i], nil
}

// selectLevel offers every level. USB bridges often report SSDs as rotational, so the
// secure-erase query is only annotated, never hidden, for other media.
func selectLevel(p *prompter, d blockdev.Device) (check.Level, error) {
	levels := check.Levels
	opts := make([]string, len(levels))
	for i, l := range levels {
		opts[i] = l.Describe()
		if l == check.SsdSanitize && !d.IsSSD() {
			opts[i] += " (not detected as SSD)"
		}
	}
	i, err := p.choose("Select the check level:", opts)
	if err != nil {
		return 0, err
	}
	return levels[i], nil
}
