package check

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Level is how thoroughly a device is checked.
type Level int

const (
	Fast Level = iota + 1
	Standard
	Deep
	// SsdSanitize asks the drive firmware instead of sampling.
	SsdSanitize
)

// Levels lists every level in menu order.
var Levels = []Level{Fast, Standard, Deep, SsdSanitize}

// Samples is the number of sectors read at this level, 0 for SsdSanitize.
func (l Level) Samples() int64 {
	switch l {
	case Fast:
		return 24900
	case Standard:
		return 74700
	case Deep:
		return 149400
	default:
		return 0
	}
}

// Sampling reports whether the level reads sectors.
func (l Level) Sampling() bool { return l.Samples() > 0 }

func (l Level) String() string {
	switch l {
	case Fast:
		return "fast"
	case Standard:
		return "standard"
	case Deep:
		return "deep"
	case SsdSanitize:
		return "ssd"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Estimate is the rough wall time of a run with the interactive default delay.
func (l Level) Estimate() time.Duration {
	switch l {
	case Fast:
		return 5 * time.Minute
	case Standard:
		return 15 * time.Minute
	case Deep:
		return 30 * time.Minute
	default:
		return 0
	}
}

// Describe is the menu text for the level.
func (l Level) Describe() string {
	switch l {
	case Fast:
		return fmt.Sprintf("Fast check (%d sectors, about 5 minutes)", l.Samples())
	case Standard:
		return fmt.Sprintf("Standard check (%d sectors, about 15 minutes)", l.Samples())
	case Deep:
		return fmt.Sprintf("Deep check (%d sectors, about 30 minutes)", l.Samples())
	case SsdSanitize:
		return "SSD secure erase / sanitize status"
	default:
		return l.String()
	}
}

// ParseLevel accepts a level name or its menu number.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "fast":
		return Fast, nil
	case "2", "standard":
		return Standard, nil
	case "3", "deep":
		return Deep, nil
	case "4", "ssd", "sanitize", "ssd-sanitize":
		return SsdSanitize, nil
	default:
		return 0, errors.Newf("unknown check level %q (want fast, standard, deep, ssd or 1-4)", s)
	}
}
