//go:build !windows

package blockdev

func normalizeDevicePath(p string) string { return p }
