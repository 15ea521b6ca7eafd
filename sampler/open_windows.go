//go:build windows

package sampler

import (
	"os"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

// openDevice opens a \\.\PhysicalDriveN path (or an image file) for shared reading.
// Writers are refused so nothing can change the disk while it is sampled.
func openDevice(path string) (Device, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		p,
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return nil, errors.WithHint(err, "run as administrator and close programs using the drive")
	}
	file := os.NewFile(uintptr(handle), path)
	if file == nil {
		windows.CloseHandle(handle)
		return nil, errors.New("cannot create file from handle")
	}
	return file, nil
}
