package menu

import (
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/signature"
)

// DefaultTrashName is the folder name whose contents are never synced.
const DefaultTrashName = "Recycle Bin"

// DefaultStamp is the modification time given to generated folder descriptors.
var DefaultStamp = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// Options configures Flatten.
type Options struct {
	TrashName string
	Mode      CopyMode
	Stamp     time.Time
	Log       *zap.Logger
}

// Stats summarizes one flattening pass.
type Stats struct {
	// Menus lists collections in discovery order; position is the directory index.
	Menus        []Handle
	TotalGames   int
	TotalSize    int64
	TransferSize int64
}

// Result is everything a flattening pass produces.
type Result struct {
	Stats

	// Index maps every reached collection to its directory index.
	Index map[Handle]int

	// Desired is the set of files the target should hold afterwards.
	Desired *signature.Set

	// Originals maps each original game code to the directory it was placed in.
	Originals map[string]string
}

// Dir returns the directory name of collection h, or "" when it was not reached.
func (r *Result) Dir(h Handle) string {
	idx, ok := r.Index[h]
	if !ok {
		return ""
	}

	return IndexDir(idx)
}

// Flatten walks tree depth-first from the root and assigns each reached
// collection the next directory index. A folder opening an unseen collection
// flattens it before the folder's later siblings. Folders named
// opts.TrashName are skipped with everything below them.
func Flatten(tree *Tree, opts Options) (*Result, error) {
	if opts.TrashName == "" {
		opts.TrashName = DefaultTrashName
	}

	if opts.Stamp.IsZero() {
		opts.Stamp = DefaultStamp
	}

	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	f := &flattener{
		tree: tree,
		opts: opts,
		result: &Result{
			Index:     make(map[Handle]int),
			Desired:   signature.NewSet(),
			Originals: make(map[string]string),
		},
	}

	f.visit(tree.Root())

	if err := f.walk(tree.Root()); err != nil {
		return nil, err
	}

	opts.Log.Debug("menu flattened",
		zap.Int("menus", len(f.result.Menus)),
		zap.Int("games", f.result.TotalGames),
		zap.String("size", humanize.IBytes(uint64(f.result.TotalSize)))) //nolint:gosec // sizes are non-negative

	return f.result, nil
}

type flattener struct {
	tree   *Tree
	opts   Options
	result *Result
}

// visit records h and reports whether it was new.
func (f *flattener) visit(h Handle) bool {
	if _, seen := f.result.Index[h]; seen {
		return false
	}

	f.result.Index[h] = len(f.result.Menus)
	f.result.Menus = append(f.result.Menus, h)

	return true
}

func (f *flattener) walk(h Handle) error {
	dir := IndexDir(f.result.Index[h])

	for _, item := range f.tree.Items(h) {
		switch it := item.(type) {
		case *Folder:
			if it.Name() == f.opts.TrashName {
				continue
			}

			if f.visit(it.Child()) {
				if err := f.walk(it.Child()); err != nil {
					return err
				}
			}

			childIndex := f.result.Index[it.Child()]

			code := it.Code()
			if code == "" {
				code = FolderCode(childIndex)
			}

			entry := folderEntry(dir, code, it.Name(), childIndex, f.opts.Stamp)
			if f.result.Desired.Add(entry) {
				f.add(entry.Size)
			}

			f.opts.Log.Debug("processed folder",
				zap.String("code", code),
				zap.String("name", it.Name()),
				zap.String("dir", dir))

		case Game:
			size, err := it.CopyTo(dir, f.opts.Mode, f.result.Desired)
			if err != nil {
				return err //nolint:wrapcheck // games name themselves in errors
			}

			f.add(size)
			f.result.TotalGames++

			if it.IsOriginal() {
				f.result.Originals[it.Code()] = dir
			}

			f.opts.Log.Debug("processed game",
				zap.String("code", it.Code()),
				zap.String("name", it.Name()),
				zap.String("dir", dir),
				zap.Int64("size", size))
		}
	}

	return nil
}

func (f *flattener) add(size int64) {
	f.result.TotalSize += size
	f.result.TransferSize += size
}
