//go:build !windows

package capacity

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskUsage reports total and free bytes available to unprivileged users.
func DiskUsage(path string) (int64, int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := int64(st.Bsize) //nolint:unconvert,gosec // field type varies by platform

	return int64(st.Blocks) * bsize, int64(st.Bavail) * bsize, nil //nolint:gosec // block counts fit in int64
}
