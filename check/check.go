// Package check runs one verification of one device at a chosen level and turns the
// outcome into a pass/fail report with a process exit code.
package check

import (
	"context"
	"io/fs"
	"time"

	"github.com/cockroachdb/errors"

	"zerocheck/blockdev"
	"zerocheck/erase"
	"zerocheck/logger"
	"zerocheck/sampler"
)

// Status is the overall outcome of a check.
type Status int

const (
	// Pass means the device sampled all-zero or its erase status was verified.
	Pass Status = iota
	// Fail means non-zero data was found or the erase could not be confirmed.
	Fail
	// Error means the check could not be carried out.
	Error
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "PASS"
	case Fail:
		return "FAIL"
	default:
		return "ERROR"
	}
}

// Request selects the device and how to check it.
type Request struct {
	Device string
	Level  Level
	// Sectors overrides the size read from the device when positive.
	Sectors int64
	// Family overrides name-based detection for SsdSanitize.
	Family erase.Family
}

// Report is the result of Checker.Run.
type Report struct {
	Request Request
	Status  Status
	Sectors int64
	Elapsed time.Duration

	// Sampling is set for sampling levels once the run started.
	Sampling *sampler.Outcome
	// Erase is set for SsdSanitize.
	Erase *erase.Result
	Err   error
}

// Passed reports whether the device is considered erased.
func (r Report) Passed() bool { return r.Status == Pass }

// ExitCode maps the status to 0 (pass), 1 (fail) or 2 (could not check).
func (r Report) ExitCode() int {
	switch r.Status {
	case Pass:
		return 0
	case Fail:
		return 1
	default:
		return 2
	}
}

// Checker dispatches a Request to the sampler or the erase verifier.
type Checker struct {
	Verifier *erase.Verifier
	// SectorCount sizes the device; blockdev.SectorCount when nil.
	SectorCount func(path string) (int64, error)
	// Options are passed to every sampling run.
	Options []sampler.Option
}

// Run performs the check. Errors are reported in Report.Err with Status Error, never
// returned separately, so callers always have a report to print.
func (c *Checker) Run(ctx context.Context, req Request, opts ...sampler.Option) Report {
	log := logger.FromContext(ctx).With().Str("device", req.Device).Stringer("level", req.Level).Logger()
	start := time.Now()
	rep := Report{Request: req, Status: Error}

	if req.Device == "" {
		rep.Err = errors.New("no device given")
		return finish(rep, start)
	}

	switch {
	case req.Level == SsdSanitize:
		rep = c.verify(ctx, rep)
	case req.Level.Sampling():
		rep = c.sample(ctx, rep, opts)
	default:
		rep.Err = errors.Newf("unknown check level %d", int(req.Level))
	}

	rep = finish(rep, start)
	ev := log.Info()
	if rep.Err != nil {
		ev = log.Error().Err(rep.Err)
	}
	ev.Stringer("status", rep.Status).Dur("took", rep.Elapsed).Msg("check finished")
	return rep
}

func finish(rep Report, start time.Time) Report {
	rep.Elapsed = time.Since(start)
	if rep.Err != nil && errors.Is(rep.Err, fs.ErrPermission) {
		rep.Err = errors.WithHint(rep.Err, "raw device access usually requires root; try sudo")
	}
	return rep
}

func (c *Checker) sample(ctx context.Context, rep Report, opts []sampler.Option) Report {
	sectors := rep.Request.Sectors
	if sectors <= 0 {
		count := c.SectorCount
		if count == nil {
			count = blockdev.SectorCount
		}
		n, err := count(rep.Request.Device)
		if err != nil {
			rep.Err = errors.Wrap(err, "determine sector count")
			return rep
		}
		sectors = n
	}
	rep.Sectors = sectors

	all := append(append([]sampler.Option(nil), c.Options...), opts...)
	out, err := sampler.Run(ctx, rep.Request.Device, sectors, rep.Request.Level.Samples(), all...)
	rep.Sampling = &out
	switch {
	case err != nil:
		rep.Err = err
	case out.Result == sampler.AllZero:
		rep.Status = Pass
	default:
		rep.Status = Fail
	}
	return rep
}

func (c *Checker) verify(ctx context.Context, rep Report) Report {
	if c.Verifier == nil {
		rep.Err = errors.New("no erase verifier configured")
		return rep
	}
	res, err := c.Verifier.VerifyFamily(ctx, rep.Request.Device, rep.Request.Family)
	rep.Erase = &res
	switch {
	case err != nil:
		rep.Err = err
	case res.Verdict == erase.Verified:
		rep.Status = Pass
	default:
		rep.Status = Fail
	}
	return rep
}
