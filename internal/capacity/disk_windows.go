//go:build windows

package capacity

import (
	"fmt"

	"golang.org/x/sys/windows"
)

// DiskUsage reports total and free bytes available to the calling user.
func DiskUsage(path string) (int64, int64, error) {
	dir, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid path %s: %w", path, err)
	}

	var free, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dir, &free, &total, &totalFree); err != nil {
		return 0, 0, fmt.Errorf("GetDiskFreeSpaceEx %s: %w", path, err)
	}

	return int64(total), int64(free), nil //nolint:gosec // disk sizes fit in int64
}
