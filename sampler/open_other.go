//go:build !linux && !windows

package sampler

import "os"

func openDevice(path string) (Device, error) {
	return os.OpenFile(path, os.O_RDONLY, 0)
}
