//go:build linux

package sampler

import (
	"os"

	"golang.org/x/sys/unix"
)

// openDevice opens path read-only. O_EXCL makes the kernel refuse block devices that are
// mounted or held open exclusively elsewhere; it is ignored for regular image files.
func openDevice(path string) (Device, error) {
	return os.OpenFile(path, os.O_RDONLY|unix.O_EXCL, 0)
}
