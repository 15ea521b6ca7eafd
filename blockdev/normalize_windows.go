//go:build windows

package blockdev

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

const ioctlStorageGetDeviceNumber = 0x2D1080

type storageDeviceNumber struct {
	DeviceType      uint32
	DeviceNumber    uint32
	PartitionNumber uint32
}

// normalizeDevicePath maps a volume (C:, \\.\C:) to the \\.\PhysicalDriveN holding it.
// Anything else, or a failed lookup, is returned unchanged.
func normalizeDevicePath(p string) string {
	vol := p
	if len(vol) == 2 && vol[1] == ':' {
		vol = `\\.\` + vol
	}
	if !strings.HasPrefix(vol, `\\.\`) || len(vol) != 6 || vol[5] != ':' {
		return p
	}
	letter := strings.ToUpper(vol[4:5])
	if letter < "A" || letter > "Z" {
		return p
	}
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(vol),
		windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_EXISTING,
		0,
		0,
	)
	if err != nil {
		return p
	}
	defer windows.CloseHandle(h)

	var out storageDeviceNumber
	var n uint32
	err = windows.DeviceIoControl(h, ioctlStorageGetDeviceNumber, nil, 0,
		(*byte)(unsafe.Pointer(&out)), uint32(unsafe.Sizeof(out)), &n, nil)
	if err != nil {
		return p
	}
	return fmt.Sprintf(`\\.\PhysicalDrive%d`, out.DeviceNumber)
}
