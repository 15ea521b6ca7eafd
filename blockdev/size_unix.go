//go:build !windows

package blockdev

import (
	"io"
	"os"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// deviceSize returns the size of a file or block device in bytes.
func deviceSize(f *os.File) (int64, error) {
	// Regular files and Linux block devices report their size on a seek to the end.
	size, err := f.Seek(0, io.SeekEnd)
	if err == nil && size > 0 {
		_, _ = f.Seek(0, io.SeekStart)
		return size, nil
	}

	// macOS/BSD block devices: DKIOCGETBLOCKCOUNT * DKIOCGETBLOCKSIZE
	const (
		dkiocGetBlockSize  = 0x40046418 // _IOR('d', 24, uint32)
		dkiocGetBlockCount = 0x40086419 // _IOR('d', 25, uint64)
		blkGetSize64       = 0x80081272 // Linux BLKGETSIZE64
	)

	var blockSize uint32
	var blockCount uint64

	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), dkiocGetBlockSize, uintptr(unsafe.Pointer(&blockSize)))
	if errno != 0 {
		var sizeBytes uint64
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, f.Fd(), blkGetSize64, uintptr(unsafe.Pointer(&sizeBytes)))
		if errno != 0 {
			return 0, errors.Wrap(errno, "cannot determine device size")
		}
		return int64(sizeBytes), nil
	}

	_, _, errno = unix.Syscall(unix.SYS_IOCTL, f.Fd(), dkiocGetBlockCount, uintptr(unsafe.Pointer(&blockCount)))
	if errno != 0 {
		return 0, errors.Wrap(errno, "cannot get block count")
	}
	return int64(blockSize) * int64(blockCount), nil
}
