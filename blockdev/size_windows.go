//go:build windows

package blockdev

import (
	"io"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

const ioctlDiskGetLengthInfo = 0x7405C

// deviceSize tries a seek to the end for image files and IOCTL_DISK_GET_LENGTH_INFO for
// \\.\PhysicalDriveN handles.
func deviceSize(f *os.File) (int64, error) {
	size, err := f.Seek(0, io.SeekEnd)
	if err == nil && size > 0 {
		_, _ = f.Seek(0, io.SeekStart)
		return size, nil
	}

	var length int64
	var returned uint32
	err = windows.DeviceIoControl(
		windows.Handle(f.Fd()),
		ioctlDiskGetLengthInfo,
		nil, 0,
		(*byte)(unsafe.Pointer(&length)), uint32(unsafe.Sizeof(length)),
		&returned,
		nil,
	)
	if err != nil {
		return 0, errors.Wrap(err, "cannot determine device size")
	}
	return length, nil
}
