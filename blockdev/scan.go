package blockdev

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	sysBlock = "/sys/block"
	devDir   = "/dev"

	// sdX, vdX, xvdX, hdX, nvmeXnY, mmcblkX
	wholeLinux = regexp.MustCompile(`^((s|v|xv|h)d[a-z]+|nvme\d+n\d+|mmcblk\d+)$`)
	// sdXN, vdXN, nvmeXnYpZ, mmcblkXpZ
	partLinux = regexp.MustCompile(`^((s|v|xv|h)d[a-z]+\d+|nvme\d+n\d+p\d+|mmcblk\d+p\d+)$`)
	// diskN or rdiskN, but not diskNsM
	wholeDarwin = regexp.MustCompile(`^r?disk\d+$`)
	partDarwin  = regexp.MustCompile(`^(r?disk\d+)s\d+$`)
)

func isWholeLinuxDevice(name string) bool { return wholeLinux.MatchString(name) }

func isPartitionLinux(name string) bool { return partLinux.MatchString(name) }

// wholeDiskOf strips a partition suffix: sda1 -> sda, nvme0n1p2 -> nvme0n1, disk2s1 -> disk2.
func wholeDiskOf(path string) string {
	dir, base := filepath.Split(path)
	if m := partDarwin.FindStringSubmatch(base); m != nil {
		return dir + m[1]
	}
	if !isPartitionLinux(base) {
		return path
	}
	if strings.HasPrefix(base, "nvme") || strings.HasPrefix(base, "mmcblk") {
		return dir + base[:strings.LastIndexByte(base, 'p')]
	}
	return dir + strings.TrimRight(base, "0123456789")
}

// scan enumerates disks without lsblk.
func scan() ([]Device, error) {
	switch runtime.GOOS {
	case "linux":
		return scanLinux()
	case "darwin":
		return scanDarwin()
	case "windows":
		return scanWindows()
	default:
		return nil, errors.Newf("unsupported OS: %s", runtime.GOOS)
	}
}

func scanLinux() ([]Device, error) {
	entries, err := os.ReadDir(sysBlock)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", sysBlock)
	}
	var devs []Device
	for _, e := range entries {
		name := e.Name()
		if !isWholeLinuxDevice(name) {
			continue
		}
		devs = append(devs, sysfsDevice(name))
	}
	return devs, nil
}

// sysfsDevice fills a Device from /sys/block/<name>. The sysfs size file always counts
// 512-byte sectors regardless of the logical block size.
func sysfsDevice(name string) Device {
	base := filepath.Join(sysBlock, name)
	d := Device{Name: name, Path: filepath.Join(devDir, name)}

	if n, err := strconv.ParseInt(readSys(base, "size"), 10, 64); err == nil {
		d.SizeBytes = n * SectorSize
	}
	d.Model = readSys(base, "device", "model")
	d.Serial = readSys(base, "device", "serial")
	if strings.HasPrefix(name, "nvme") {
		d.Transport = "nvme"
	}
	switch readSys(base, "queue", "rotational") {
	case "1":
		d.Kind = KindHDD
	case "0":
		d.Kind = KindSSD
	}
	if d.Transport == "nvme" {
		d.Kind = KindSSD
	}
	return d
}

func readSys(parts ...string) string {
	b, err := os.ReadFile(filepath.Join(parts...))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

func scanDarwin() ([]Device, error) {
	entries, err := os.ReadDir(devDir)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", devDir)
	}
	var devs []Device
	for _, e := range entries {
		name := e.Name()
		// Raw nodes duplicate the buffered ones; list each disk once.
		if !wholeDarwin.MatchString(name) || strings.HasPrefix(name, "r") {
			continue
		}
		d := Device{Name: name, Path: filepath.Join(devDir, name)}
		if size, err := Size(d.Path); err == nil {
			d.SizeBytes = size
		}
		devs = append(devs, d)
	}
	return devs, nil
}

func scanWindows() ([]Device, error) {
	var devs []Device
	for i := 0; i < 32; i++ {
		path := fmt.Sprintf(`\\.\PhysicalDrive%d`, i)
		size, err := Size(path)
		if err != nil {
			continue
		}
		devs = append(devs, Device{Name: fmt.Sprintf("PhysicalDrive%d", i), Path: path, SizeBytes: size})
	}
	return devs, nil
}
