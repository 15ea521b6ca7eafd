package sampler

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoSectors is returned when samples are requested from a device of zero sectors.
	ErrNoSectors = errors.New("device has no sectors to sample")
	// ErrInvalidArgument is returned for negative sector or sample counts.
	ErrInvalidArgument = errors.New("invalid sampling argument")
	// ErrInterrupted is returned when the run's context is cancelled between samples.
	ErrInterrupted = errors.New("sampling interrupted")
)

// DeviceOpenError reports that the device could not be opened for reading.
type DeviceOpenError struct {
	Path string
	Err  error
}

func (e *DeviceOpenError) Error() string {
	return fmt.Sprintf("open device %s: %v", e.Path, e.Err)
}

func (e *DeviceOpenError) Unwrap() error { return e.Err }

// SeekError reports a failed seek to a sampled sector.
type SeekError struct {
	Sector int64
	Offset int64
	Err    error
}

func (e *SeekError) Error() string {
	return fmt.Sprintf("seek to sector %d (offset %d): %v", e.Sector, e.Offset, e.Err)
}

func (e *SeekError) Unwrap() error { return e.Err }

// ReadError reports a failed or short read of a sampled sector.
type ReadError struct {
	Sector int64
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read sector %d (offset %d): %v", e.Sector, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }
