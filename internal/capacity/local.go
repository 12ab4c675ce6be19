package capacity

import (
	"fmt"
	"path/filepath"

	"github.com/joe/gamesync/pkg/filesystem"
)

// DiskFunc reports total and free bytes of the filesystem holding path.
type DiskFunc func(path string) (total, free int64, err error)

// LocalStats describes an export target.
type LocalStats struct {
	Total    int64
	Free     int64
	Previous int64
}

// Available returns LocalAvailable for the stats.
func (s LocalStats) Available() int64 {
	return LocalAvailable(s.Free, s.Previous)
}

// LocalProbe measures an export directory.
type LocalProbe struct {
	Disk DiskFunc
	FS   filesystem.Walkable
}

// NewLocalProbe returns a probe using the OS disk statistics and filesystem.
func NewLocalProbe() *LocalProbe {
	return &LocalProbe{
		Disk: DiskUsage,
		FS:   filesystem.NewWalkable(filesystem.NewOsFs()),
	}
}

// Probe measures the disk holding root and the size of what is already below it.
// root may not exist yet; the disk is then measured at its nearest existing ancestor.
func (p *LocalProbe) Probe(root string) (LocalStats, error) {
	previous, err := filesystem.DirSize(p.FS, root)
	if err != nil {
		return LocalStats{}, fmt.Errorf("failed to measure previous export: %w", err)
	}

	total, free, err := p.Disk(p.existingAncestor(root))
	if err != nil {
		return LocalStats{}, fmt.Errorf("failed to read free space for %s: %w", root, err)
	}

	return LocalStats{Total: total, Free: free, Previous: previous}, nil
}

func (p *LocalProbe) existingAncestor(path string) string {
	for {
		if _, err := p.FS.Lstat(path); err == nil {
			return path
		}

		parent := filepath.Dir(path)
		if parent == path {
			return path
		}

		path = parent
	}
}
