// Package erase asks a drive's firmware whether a secure erase or sanitize has been performed.
//
// SATA drives are queried with `hdparm -I`, NVMe drives with `nvme sanitize-log`. The
// verdict is the presence of a fixed marker string in the tool's output.
package erase

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"

	"zerocheck/execute"
	"zerocheck/logger"
)

const (
	DefaultHdparm = "hdparm"
	DefaultNVMe   = "nvme"

	DefaultSATAMarker = "supported: enhanced erase"
	DefaultNVMeMarker = "completed"
)

// ErrEmptyOutput is wrapped into a CollaboratorError when a tool succeeds but prints nothing.
var ErrEmptyOutput = errors.New("tool produced no output")

// Verdict is the boolean-shaped answer of a query.
type Verdict int

const (
	NotVerified Verdict = iota
	Verified
)

func (v Verdict) String() string {
	if v == Verified {
		return "verified"
	}
	return "not verified"
}

// CollaboratorError means the status tool could not give an answer at all, as opposed to
// answering without the marker.
type CollaboratorError struct {
	Tool   string
	Args   []string
	Output string
	Err    error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Tool, strings.Join(e.Args, " "), e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }

// Result carries the verdict together with what was asked.
type Result struct {
	Device  string
	Family  Family
	Verdict Verdict
	Tool    string
	Marker  string
	Output  string
}

// Verifier holds the tool names and markers for both families.
type Verifier struct {
	Runner execute.Runner

	HdparmPath string
	NVMePath   string
	SATAMarker string
	NVMeMarker string
}

// New returns a Verifier using the stock tool names and markers.
func New(r execute.Runner) *Verifier {
	return &Verifier{
		Runner:     r,
		HdparmPath: DefaultHdparm,
		NVMePath:   DefaultNVMe,
		SATAMarker: DefaultSATAMarker,
		NVMeMarker: DefaultNVMeMarker,
	}
}

// Verify queries the device using the family guessed from its path.
func (v *Verifier) Verify(ctx context.Context, device string) (Result, error) {
	return v.VerifyFamily(ctx, device, FamilyUnknown)
}

// VerifyFamily queries the device with an explicit family. FamilyUnknown falls back to
// DetectFamily. Only the chosen family's tool is run, exactly once.
//
// A tool failure yields NotVerified together with a *CollaboratorError.
func (v *Verifier) VerifyFamily(ctx context.Context, device string, family Family) (Result, error) {
	if family == FamilyUnknown {
		family = DetectFamily(device)
	}

	var tool, marker string
	var args []string
	switch family {
	case FamilyNVMe:
		tool, marker, args = v.NVMePath, v.NVMeMarker, []string{"sanitize-log", device}
	default:
		tool, marker, args = v.HdparmPath, v.SATAMarker, []string{"-I", device}
	}

	res := Result{Device: device, Family: family, Verdict: NotVerified, Tool: tool, Marker: marker}
	log := logger.FromContext(ctx).With().Str("device", device).Stringer("family", family).Str("tool", tool).Logger()

	out, err := v.Runner.Run(ctx, tool, args...)
	res.Output = string(out)
	if err != nil {
		log.Warn().Err(err).Msg("erase status query failed")
		return res, &CollaboratorError{Tool: tool, Args: args, Output: res.Output, Err: err}
	}
	if strings.TrimSpace(res.Output) == "" {
		log.Warn().Msg("erase status query returned nothing")
		return res, &CollaboratorError{Tool: tool, Args: args, Err: ErrEmptyOutput}
	}

	if strings.Contains(res.Output, marker) {
		res.Verdict = Verified
	}
	log.Info().Stringer("verdict", res.Verdict).Msg("erase status checked")
	return res, nil
}
