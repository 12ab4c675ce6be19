package filesystem

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kr/fs"
)

// FileScanner is an iterator over files in a directory.
// It provides a simple Next pattern for traversing directory contents.
type FileScanner interface {
	// Next advances to the next file and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to distinguish between end-of-scan and error.
	Next() (FileInfo, bool)

	// Err returns any error that occurred during scanning.
	// Should be checked after Next() returns false.
	Err() error
}

// FileInfo contains metadata about a regular file found by a scan.
type FileInfo struct {
	// Path is the full path as seen by the walked filesystem
	Path string

	// RelativePath is the slash-separated path relative to the scan root
	RelativePath string

	// Size is the file size in bytes
	Size int64

	// ModTime is the modification time
	ModTime time.Time
}

// NewScanner returns a scanner over the regular files below root.
// Directories are walked but not yielded.
func NewScanner(w Walkable, root string) FileScanner {
	return &walkScanner{
		walker: fs.WalkFS(root, w),
		root:   root,
	}
}

// Collect drains a scanner.
func Collect(scanner FileScanner) ([]FileInfo, error) {
	files := make([]FileInfo, 0)

	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		files = append(files, info)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return files, nil
}

// walkScanner implements FileScanner on top of a kr/fs walker, one step per Next.
type walkScanner struct {
	walker *fs.Walker
	root   string
	err    error
}

// Err returns any error that occurred during scanning.
func (s *walkScanner) Err() error {
	return s.err
}

// Next advances to the next regular file.
func (s *walkScanner) Next() (FileInfo, bool) {
	if s.err != nil {
		return FileInfo{}, false
	}

	for s.walker.Step() {
		if err := s.walker.Err(); err != nil {
			s.err = fmt.Errorf("error scanning %s: %w", s.walker.Path(), err)
			return FileInfo{}, false
		}

		stat := s.walker.Stat()
		if stat == nil || !stat.Mode().IsRegular() {
			continue
		}

		fullPath := s.walker.Path()

		relPath, err := relativePath(s.root, fullPath)
		if err != nil {
			s.err = err
			return FileInfo{}, false
		}

		return FileInfo{
			Path:         fullPath,
			RelativePath: relPath,
			Size:         stat.Size(),
			ModTime:      stat.ModTime(),
		}, true
	}

	return FileInfo{}, false
}

// relativePath computes the slash-separated path of target below root.
// Works for both local (possibly backslash) and SFTP (slash) paths.
func relativePath(root, target string) (string, error) {
	root = strings.ReplaceAll(root, "\\", "/")
	target = strings.ReplaceAll(target, "\\", "/")

	root = strings.TrimSuffix(root, "/")
	if root == "." {
		return strings.TrimPrefix(target, "./"), nil
	}

	if !strings.HasPrefix(target, root+"/") {
		return "", fmt.Errorf("target %s is not under root %s", target, root) //nolint:err113 // Path validation error with actual paths
	}

	return target[len(root)+1:], nil
}

// Scan returns every regular file below root. A missing root yields no files.
func Scan(w Walkable, root string) ([]FileInfo, error) {
	if _, err := w.Lstat(root); errors.Is(err, os.ErrNotExist) {
		return []FileInfo{}, nil
	}

	return Collect(NewScanner(w, root))
}
