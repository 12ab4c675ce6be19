// Package signature models files by their (path, size, modification time)
// triple and computes the delete/upload sets that bring a target in line with
// a desired layout.
package signature

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"
	"time"
)

// Exported variables.
var (
	ErrNoSource = errors.New("entry has no source")
)

// Signature identifies one file by relative path, size and modification time.
// Two signatures are equal when all three match; ModTime is kept at one-second
// resolution in UTC because that is what target filesystems report.
type Signature struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// New returns a normalized signature.
func New(relPath string, size int64, modTime time.Time) Signature {
	return Signature{
		Path:    NormalizePath(relPath),
		Size:    size,
		ModTime: modTime.UTC().Truncate(time.Second),
	}
}

// Equal reports whether both signatures describe the same file state.
func (s Signature) Equal(other Signature) bool {
	return s.key() == other.key()
}

// String returns "path (size bytes, mtime)".
func (s Signature) String() string {
	return fmt.Sprintf("%s (%d bytes, %s)", s.Path, s.Size, s.ModTime.Format(time.RFC3339))
}

func (s Signature) key() key {
	return key{path: s.Path, size: s.Size, mtime: s.ModTime.Unix()}
}

// Entry is a signature plus, for desired entries, where its bytes come from.
// Observed entries carry neither a LocalPath nor Content.
type Entry struct {
	Signature

	// LocalPath is a file on the local disk holding the content.
	LocalPath string

	// Content opens an in-memory or generated stream when there is no LocalPath.
	Content func() (io.ReadCloser, error)

	// Opener overrides how LocalPath is opened (for example an afero filesystem).
	Opener func(name string) (io.ReadCloser, error)
}

// NewEntry returns an observed entry with no source.
func NewEntry(sig Signature) *Entry {
	return &Entry{Signature: sig}
}

// Open returns a reader over the entry content.
func (e *Entry) Open() (io.ReadCloser, error) {
	if e.LocalPath != "" {
		if e.Opener != nil {
			return e.Opener(e.LocalPath)
		}

		file, err := os.Open(e.LocalPath) // #nosec G304 - path comes from the manifest
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", e.LocalPath, err)
		}

		return file, nil
	}

	if e.Content != nil {
		return e.Content()
	}

	return nil, fmt.Errorf("%w: %s", ErrNoSource, e.Path)
}

// NormalizePath converts a path into the slash-separated, root-relative form
// used for comparisons ("000/CLV-H-ABCDE/game.sfrom").
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)

	return strings.TrimPrefix(p, "/")
}

// SortEntries orders entries by path.
func SortEntries(entries []*Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})
}

type key struct {
	path  string
	size  int64
	mtime int64
}
