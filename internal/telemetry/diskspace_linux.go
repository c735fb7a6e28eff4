//go:build linux

package telemetry

import "syscall"

// freeDiskBytes reports bytes available to an unprivileged caller on the
// filesystem containing path.
func freeDiskBytes(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}

	return stat.Bavail * uint64(stat.Bsize), nil
}
