package blockdev

import (
	"os"

	"github.com/cockroachdb/errors"
)

// Size opens path read-only and returns its size in bytes.
func Size(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrap(err, "open device")
	}
	defer f.Close()

	if st, err := f.Stat(); err == nil && st.Mode().IsRegular() {
		return st.Size(), nil
	}
	return deviceSize(f)
}

// SectorCount returns the number of whole 512-byte sectors of the device or image at path.
// A trailing partial sector is not counted.
func SectorCount(path string) (int64, error) {
	size, err := Size(path)
	if err != nil {
		return 0, err
	}
	return size / SectorSize, nil
}
