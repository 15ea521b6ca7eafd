// Package sampler decides whether a device is plausibly all-zero from a fixed number of
// random single-sector reads.
//
// Sectors are drawn uniformly with replacement, so the cost of a run depends only on the
// sample count, never on the device size. The first non-zero sector ends the run.
package sampler

import (
	"context"
	"io"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/errors"

	"zerocheck/logger"
)

// SectorSize is the size of one logical sector and of every sample.
const SectorSize = 512

// Result is the verdict of a sampling run.
type Result int

const (
	// AllZero means every sample read back as zero bytes.
	AllZero Result = iota
	// NonZeroDetected means a sample contained at least one non-zero byte.
	NonZeroDetected
)

func (r Result) String() string {
	switch r {
	case AllZero:
		return "all-zero"
	case NonZeroDetected:
		return "non-zero detected"
	default:
		return "unknown"
	}
}

// Outcome describes a finished run.
type Outcome struct {
	Result Result
	// Reads is the number of sectors actually read, including the non-zero one.
	Reads int64
	// Sector and Offset locate the first non-zero byte; both are -1 for AllZero.
	Sector int64
	Offset int64
}

// Device is the read side of an opened block device or image file.
type Device interface {
	io.ReadSeeker
	io.Closer
}

// Opener opens a device for the duration of one run.
type Opener func(path string) (Device, error)

// Source draws sector indices. *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Int64N(n int64) int64
}

type options struct {
	open     Opener
	source   Source
	observer Observer
	delay    time.Duration
}

// Option customizes a run.
type Option func(*options)

// WithOpener replaces the default read-only exclusive open.
func WithOpener(o Opener) Option {
	return func(opts *options) { opts.open = o }
}

// WithSource injects the sector source, e.g. a seeded generator for repeatable runs.
func WithSource(s Source) Option {
	return func(opts *options) { opts.source = s }
}

// WithSeed seeds the default PCG generator.
func WithSeed(seed uint64) Option {
	return func(opts *options) { opts.source = NewSource(seed) }
}

// WithObserver receives progress events.
func WithObserver(o Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithDelay pauses between samples so a progress display can keep up. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(opts *options) { opts.delay = d }
}

// NewSource returns a PCG-backed source. A zero seed draws one from the clock.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Run reads numSamples random sectors out of totalSectors from the device at path and
// reports whether all of them were zero-filled.
//
// I/O failures are returned as *DeviceOpenError, *SeekError or *ReadError and are never
// retried. A non-zero sector is not an error: it yields NonZeroDetected and stops the run.
// The device is closed on every return path.
func Run(ctx context.Context, path string, totalSectors, numSamples int64, opts ...Option) (out Outcome, err error) {
	o := options{open: openDevice, observer: nopObserver{}}
	for _, fn := range opts {
		fn(&o)
	}
	if o.source == nil {
		o.source = NewSource(0)
	}

	out = Outcome{Result: AllZero, Sector: -1, Offset: -1}
	switch {
	case totalSectors < 0 || numSamples < 0:
		return out, errors.Wrapf(ErrInvalidArgument, "sectors=%d samples=%d", totalSectors, numSamples)
	case numSamples == 0:
		return out, nil
	case totalSectors == 0:
		return out, errors.Wrapf(ErrNoSectors, "%s", path)
	}

	log := logger.FromContext(ctx).With().Str("device", path).Logger()

	dev, err := o.open(path)
	if err != nil {
		return out, &DeviceOpenError{Path: path, Err: err}
	}
	defer dev.Close()

	log.Debug().Int64("sectors", totalSectors).Int64("samples", numSamples).Msg("sampling started")
	o.observer.Start(numSamples, totalSectors)
	defer func() { o.observer.Finish(out, err) }()

	buf := make([]byte, SectorSize)
	for i := int64(0); i < numSamples; i++ {
		sector := o.source.Int64N(totalSectors)
		if cerr := ctx.Err(); cerr != nil {
			return out, errors.Wrapf(ErrInterrupted, "after %d of %d samples: %v", out.Reads, numSamples, cerr)
		}

		offset := sector * SectorSize
		if _, err := dev.Seek(offset, io.SeekStart); err != nil {
			return out, &SeekError{Sector: sector, Offset: offset, Err: err}
		}
		if _, err := io.ReadFull(dev, buf); err != nil {
			return out, &ReadError{Sector: sector, Offset: offset, Err: err}
		}
		out.Reads++

		if idx := firstNonZero(buf); idx >= 0 {
			out.Result = NonZeroDetected
			out.Sector = sector
			out.Offset = offset + int64(idx)
			log.Info().Int64("sector", sector).Int64("offset", out.Offset).Int64("reads", out.Reads).Msg("non-zero data found")
			return out, nil
		}

		o.observer.Advance(sector)
		if o.delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(o.delay):
			}
		}
	}

	log.Debug().Int64("reads", out.Reads).Msg("sampling finished")
	return out, nil
}

func firstNonZero(b []byte) int {
	for i, c := range b {
		if c != 0 {
			return i
		}
	}
	return -1
}
