package transport

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/filesystem"
	"github.com/joe/gamesync/pkg/signature"
)

// Local exports to a directory on a local filesystem.
type Local struct {
	fs    afero.Fs
	root  string
	clock clockwork.Clock
	log   *zap.Logger
}

// NewLocal returns a transport rooted at root on afs.
func NewLocal(afs afero.Fs, root string, opts Options) *Local {
	opts = opts.withDefaults()

	return &Local{
		fs:    afs,
		root:  filepath.Clean(root),
		clock: opts.Clock,
		log:   opts.Log,
	}
}

// Name returns "local".
func (l *Local) Name() string {
	return ChoiceLocal.String()
}

// Root returns the export directory.
func (l *Local) Root() string {
	return l.root
}

// List walks the export directory. A missing directory lists as empty.
func (l *Local) List(_ context.Context) (*signature.Set, error) {
	files, err := filesystem.Scan(filesystem.NewWalkable(l.fs), l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", l.root, err)
	}

	set := signature.NewSet()
	for _, f := range files {
		set.AddSignature(signature.New(f.RelativePath, f.Size, f.ModTime))
	}

	return set, nil
}

// Delete removes each entry and then its parent directory if that delete
// left it empty. The export root itself is never removed. The first failure
// stops the phase.
func (l *Local) Delete(ctx context.Context, entries []*signature.Entry) error {
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // caller checks for context.Canceled
		}

		path := filepath.Join(l.root, filepath.FromSlash(entry.Path))

		if err := l.fs.Remove(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}

		l.log.Debug("deleted", zap.String("path", entry.Path))

		dir := filepath.Dir(path)
		if dir == l.root {
			continue
		}

		empty, err := filesystem.IsEmptyDir(l.fs, dir)
		if err != nil {
			return err //nolint:wrapcheck // already carries the path
		}

		if empty {
			if err := l.fs.Remove(dir); err != nil {
				return fmt.Errorf("failed to remove empty directory %s: %w", dir, err)
			}
		}
	}

	return nil
}

// Transfer copies entries into the export directory, preserving modification times.
func (l *Local) Transfer(ctx context.Context, entries []*signature.Entry, progress fileops.ProgressFunc) error {
	throttle := fileops.NewThrottle(l.clock, progressTotal(entries), progress)

	var done int64

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err //nolint:wrapcheck // caller checks for context.Canceled
		}

		offset := done
		name := entry.Path
		throttle.StartFile(name, offset, entry.Size)

		written, err := fileops.CopyEntry(l.fs, l.root, entry, func(n int64) {
			throttle.Update(offset+n, name)
		})
		if err != nil {
			return err //nolint:wrapcheck // already carries the path
		}

		done += written
	}

	throttle.Finish(done)

	return nil
}
