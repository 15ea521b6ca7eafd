package erase

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// Family selects which vendor status protocol is queried for a device.
type Family int

const (
	// FamilyUnknown defers to DetectFamily.
	FamilyUnknown Family = iota
	FamilySATA
	FamilyNVMe
)

func (f Family) String() string {
	switch f {
	case FamilySATA:
		return "sata"
	case FamilyNVMe:
		return "nvme"
	default:
		return "unknown"
	}
}

// ParseFamily accepts "sata", "ata", "nvme" and the empty string (unknown).
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto", "unknown":
		return FamilyUnknown, nil
	case "sata", "ata":
		return FamilySATA, nil
	case "nvme":
		return FamilyNVMe, nil
	default:
		return FamilyUnknown, errors.Newf("unknown device family %q (want sata or nvme)", s)
	}
}

// FamilyFromTransport maps an lsblk TRAN value to a family. Transports that say nothing
// about the command set (usb, empty) map to FamilyUnknown.
func FamilyFromTransport(tran string) Family {
	switch strings.ToLower(strings.TrimSpace(tran)) {
	case "nvme":
		return FamilyNVMe
	case "sata", "ata":
		return FamilySATA
	default:
		return FamilyUnknown
	}
}

// DetectFamily guesses the family from the device name: anything named like nvme0n1 is
// NVMe, everything else is treated as SATA.
func DetectFamily(devicePath string) Family {
	if strings.Contains(filepath.Base(devicePath), "nvme") {
		return FamilyNVMe
	}
	return FamilySATA
}
