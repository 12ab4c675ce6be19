package transport

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/signature"
)

const (
	tarBlockSize   = 512
	tarTrailerSize = 2 * tarBlockSize
	tarFileMode    = 0o644
	tarDirMode     = 0o755
)

// TarStream is a ustar/pax archive of entries that is produced while it is
// read. Its total length is known before the first byte, and each file is
// opened only when the reader reaches it.
type TarStream struct {
	parts  []tarPart
	length int64

	mu       sync.Mutex
	pos      int64
	cur      int
	partRead int64
	reader   io.Reader
	closer   io.Closer
	onRead   func(pos int64, currentFile string)
}

type tarPart struct {
	data  []byte
	entry *signature.Entry
}

func (p tarPart) size() int64 {
	if p.entry != nil {
		return p.entry.Size
	}

	return int64(len(p.data))
}

// NewTarStream lays out an archive of entries with paths relative to ".".
// Parent directories get their own records the first time they appear.
func NewTarStream(entries []*signature.Entry) (*TarStream, error) {
	stream := &TarStream{}
	seenDirs := make(map[string]bool)

	for _, entry := range entries {
		for _, dir := range parentDirs(entry.Path) {
			if seenDirs[dir] {
				continue
			}

			seenDirs[dir] = true

			header, err := headerBytes(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     "./" + dir + "/",
				Mode:     tarDirMode,
				ModTime:  entry.ModTime,
			})
			if err != nil {
				return nil, err
			}

			stream.add(tarPart{data: header})
		}

		header, err := headerBytes(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     "./" + entry.Path,
			Mode:     tarFileMode,
			Size:     entry.Size,
			ModTime:  entry.ModTime,
		})
		if err != nil {
			return nil, err
		}

		stream.add(tarPart{data: header})
		stream.add(tarPart{entry: entry})

		if pad := padding(entry.Size); pad > 0 {
			stream.add(tarPart{data: make([]byte, pad)})
		}
	}

	if len(stream.parts) > 0 {
		stream.add(tarPart{data: make([]byte, tarTrailerSize)})
	}

	return stream, nil
}

// Len returns the total archive length in bytes.
func (t *TarStream) Len() int64 {
	return t.length
}

// Position returns the number of bytes read so far.
func (t *TarStream) Position() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pos
}

// OnRead registers a callback invoked after every read with the position and
// the file being streamed. It runs on the reading goroutine.
func (t *TarStream) OnRead(fn func(pos int64, currentFile string)) {
	t.onRead = fn
}

// Read implements io.Reader.
func (t *TarStream) Read(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		if t.reader == nil {
			if t.cur >= len(t.parts) {
				return 0, io.EOF
			}

			if err := t.openPart(); err != nil {
				return 0, err
			}
		}

		n, err := t.reader.Read(p)
		t.pos += int64(n)
		t.partRead += int64(n)

		if n > 0 && t.onRead != nil {
			t.onRead(t.pos, t.currentFile())
		}

		if err == io.EOF {
			if closeErr := t.finishPart(); closeErr != nil {
				return n, closeErr
			}

			if n > 0 {
				return n, nil
			}

			continue
		}

		if err != nil {
			return n, fmt.Errorf("failed to read %s: %w", t.currentFile(), err)
		}

		return n, nil
	}
}

// Close releases the file currently being streamed, if any.
func (t *TarStream) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closer == nil {
		return nil
	}

	err := t.closer.Close()
	t.closer = nil
	t.reader = nil

	return err //nolint:wrapcheck // close error of the source file
}

func (t *TarStream) add(part tarPart) {
	t.parts = append(t.parts, part)
	t.length += part.size()
}

func (t *TarStream) currentFile() string {
	if t.cur < len(t.parts) && t.parts[t.cur].entry != nil {
		return t.parts[t.cur].entry.Path
	}

	return ""
}

func (t *TarStream) openPart() error {
	part := t.parts[t.cur]
	t.partRead = 0

	if part.entry == nil {
		t.reader = bytes.NewReader(part.data)
		return nil
	}

	rc, err := part.entry.Open()
	if err != nil {
		return err //nolint:wrapcheck // already carries the path
	}

	t.reader = io.LimitReader(rc, part.entry.Size)
	t.closer = rc

	return nil
}

func (t *TarStream) finishPart() error {
	part := t.parts[t.cur]

	var err error
	if t.closer != nil {
		err = t.closer.Close()
		t.closer = nil
	}

	t.reader = nil
	t.cur++

	if t.partRead != part.size() {
		return fmt.Errorf("%w: %s produced %d of %d bytes",
			fileops.ErrShortCopy, part.entry.Path, t.partRead, part.size())
	}

	return err //nolint:wrapcheck // close error of the source file
}

// headerBytes renders the header records tar.Writer emits for hdr.
func headerBytes(hdr *tar.Header) ([]byte, error) {
	var buf bytes.Buffer

	if err := tar.NewWriter(&buf).WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to build tar header for %s: %w", hdr.Name, err)
	}

	return buf.Bytes(), nil
}

func padding(size int64) int64 {
	if rem := size % tarBlockSize; rem != 0 {
		return tarBlockSize - rem
	}

	return 0
}

// parentDirs returns "a", "a/b" for "a/b/c".
func parentDirs(relPath string) []string {
	dir := path.Dir(relPath)
	if dir == "." || dir == "/" {
		return nil
	}

	return append(parentDirs(dir), dir)
}
