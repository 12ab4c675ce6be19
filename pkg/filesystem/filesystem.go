// Package filesystem provides the local filesystem used for exports and game
// assets, plus a directory scanner shared by local and SFTP targets.
//
// Local access goes through afero so tests can run against an in-memory
// filesystem. Walking goes through kr/fs, which *sftp.Client already satisfies,
// so one scanner serves both sides.
package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kr/fs"
	"github.com/spf13/afero"
)

// DefaultDirPermissions is the permission mode for created directories.
const DefaultDirPermissions = 0o755

// Walkable is anything kr/fs can walk: the afero adapter below or an *sftp.Client.
type Walkable = fs.FileSystem

// NewOsFs returns the real local filesystem.
func NewOsFs() afero.Fs {
	return afero.NewOsFs()
}

// NewWalkable adapts an afero filesystem for kr/fs walking.
func NewWalkable(afs afero.Fs) Walkable {
	return &aferoWalkable{fs: afs}
}

// Opener returns a function that opens files on afs.
func Opener(afs afero.Fs) func(name string) (io.ReadCloser, error) {
	return func(name string) (io.ReadCloser, error) {
		file, err := afs.Open(name)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}

		return file, nil
	}
}

// DirSize returns the total size of regular files under root.
// A missing root counts as empty.
func DirSize(w Walkable, root string) (int64, error) {
	files, err := Scan(w, root)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}

	return total, nil
}

// IsEmptyDir reports whether dir exists and has no entries.
func IsEmptyDir(afs afero.Fs, dir string) (bool, error) {
	empty, err := afero.IsEmpty(afs, dir)
	if err != nil {
		return false, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	return empty, nil
}

// Touch sets both access and modification time.
func Touch(afs afero.Fs, path string, mtime time.Time) error {
	if err := afs.Chtimes(path, mtime, mtime); err != nil {
		return fmt.Errorf("failed to change times for %s: %w", path, err)
	}

	return nil
}

type aferoWalkable struct {
	fs afero.Fs
}

func (a *aferoWalkable) Join(elem ...string) string {
	return filepath.Join(elem...)
}

func (a *aferoWalkable) Lstat(name string) (os.FileInfo, error) {
	if lstater, ok := a.fs.(afero.Lstater); ok {
		info, _, err := lstater.LstatIfPossible(name)
		return info, err //nolint:wrapcheck // kr/fs reports it with the path
	}

	return a.fs.Stat(name) //nolint:wrapcheck // kr/fs reports it with the path
}

func (a *aferoWalkable) ReadDir(dirname string) ([]os.FileInfo, error) {
	return afero.ReadDir(a.fs, dirname) //nolint:wrapcheck // kr/fs reports it with the path
}
