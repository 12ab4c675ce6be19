// Package fileops provides progress-reporting copy helpers used by every transport.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/joe/gamesync/pkg/filesystem"
	"github.com/joe/gamesync/pkg/signature"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
)

// Exported variables.
var (
	ErrShortCopy = errors.New("source size does not match signature")
)

// ProgressCallback is called during file operations to report progress
type ProgressCallback func(bytesTransferred int64, totalBytes int64, currentFile string)

// CountingReader counts bytes read through it and reports the running total.
type CountingReader struct {
	r      io.Reader
	n      int64
	onRead func(total int64)
}

// NewCountingReader wraps r. onRead may be nil.
func NewCountingReader(r io.Reader, onRead func(total int64)) *CountingReader {
	return &CountingReader{r: r, onRead: onRead}
}

// Count returns the bytes read so far.
func (c *CountingReader) Count() int64 {
	return c.n
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		if c.onRead != nil {
			c.onRead(c.n)
		}
	}

	return n, err //nolint:wrapcheck // io.Reader contract
}

// CopyEntry writes entry below root on afs, creating parent directories and
// preserving the entry's modification time. onBytes receives the bytes copied
// so far for this file. The written size must match the signature.
func CopyEntry(afs afero.Fs, root string, entry *signature.Entry, onBytes func(int64)) (int64, error) {
	dst := filepath.Join(root, filepath.FromSlash(entry.Path))
	dstDir := filepath.Dir(dst)

	if err := afs.MkdirAll(dstDir, filesystem.DefaultDirPermissions); err != nil {
		return 0, fmt.Errorf("failed to create destination directory %s: %w", dstDir, err)
	}

	src, err := entry.Open()
	if err != nil {
		return 0, err //nolint:wrapcheck // already carries the path
	}

	defer func() {
		_ = src.Close()
	}()

	destFile, err := afs.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	copyCompleted := false

	defer func() {
		if !copyCompleted {
			_ = destFile.Close()
			_ = afs.Remove(dst)
		}
	}()

	buf := make([]byte, BufferSize)

	written, err := io.CopyBuffer(destFile, NewCountingReader(src, onBytes), buf)
	if err != nil {
		return written, fmt.Errorf("failed to copy %s: %w", entry.Path, err)
	}

	if written != entry.Size {
		return written, fmt.Errorf("%w: %s wrote %d of %d bytes", ErrShortCopy, entry.Path, written, entry.Size)
	}

	// Close before setting the modification time; some filesystems reset it on close.
	if err := destFile.Close(); err != nil {
		return written, fmt.Errorf("failed to close destination file %s: %w", dst, err)
	}

	copyCompleted = true

	if err := filesystem.Touch(afs, dst, entry.ModTime); err != nil {
		return written, err //nolint:wrapcheck // already carries the path
	}

	return written, nil
}
