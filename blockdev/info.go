package blockdev

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shirou/gopsutil/v4/disk"
)

// Mount is a mounted filesystem backed by a partition of a disk.
type Mount struct {
	Device     string `json:"device"`
	MountPoint string `json:"mountpoint"`
	FSType     string `json:"fstype"`
}

// Details is what `device info` prints about a device or mount point.
type Details struct {
	Input      string  `json:"input"`
	Device     string  `json:"device"`
	Whole      string  `json:"whole"`
	MountPoint string  `json:"mountpoint,omitempty"`
	SizeBytes  int64   `json:"size_bytes"`
	Serial     string  `json:"serial,omitempty"`
	Mounts     []Mount `json:"mounts,omitempty"`
}

// Sectors is the whole disk's size in sectors.
func (d Details) Sectors() int64 { return d.SizeBytes / SectorSize }

var partitions = func(ctx context.Context) ([]disk.PartitionStat, error) {
	return disk.PartitionsWithContext(ctx, false)
}

var serialNumber = func(ctx context.Context, dev string) (string, error) {
	return disk.SerialNumberWithContext(ctx, dev)
}

// Describe resolves a device node or mount point to its whole disk and reports size,
// serial number and the partitions of that disk that are currently mounted.
func Describe(ctx context.Context, p string) (Details, error) {
	d := Details{Input: p, SizeBytes: -1}

	// Without a mount table only device paths can be described.
	parts, _ := partitions(ctx)

	clean := filepath.Clean(p)
	if strings.HasPrefix(clean, "/dev/") || strings.HasPrefix(p, `\\.\`) {
		d.Device = p
	} else {
		for _, ps := range parts {
			if filepath.Clean(ps.Mountpoint) == clean {
				d.Device, d.MountPoint = ps.Device, ps.Mountpoint
				break
			}
		}
		if d.Device == "" {
			return d, errors.Newf("cannot resolve device for %s", p)
		}
	}
	d.Whole = wholeDiskOf(normalizeDevicePath(d.Device))

	if size, err := Size(d.Whole); err == nil {
		d.SizeBytes = size
	}
	if s, err := serialNumber(ctx, d.Whole); err == nil {
		d.Serial = strings.TrimSpace(s)
	}
	d.Mounts = mountsOf(parts, d.Whole)
	return d, nil
}

// MountedPartitions lists the mounted filesystems living on the disk at devicePath.
func MountedPartitions(ctx context.Context, devicePath string) ([]Mount, error) {
	parts, err := partitions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list mounted partitions")
	}
	return mountsOf(parts, wholeDiskOf(normalizeDevicePath(devicePath))), nil
}

func mountsOf(parts []disk.PartitionStat, whole string) []Mount {
	var out []Mount
	for _, ps := range parts {
		if ps.Device != whole && wholeDiskOf(normalizeDevicePath(ps.Device)) != whole {
			continue
		}
		out = append(out, Mount{Device: ps.Device, MountPoint: ps.Mountpoint, FSType: ps.Fstype})
	}
	return out
}
