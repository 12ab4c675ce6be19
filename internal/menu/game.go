package menu

import (
	"fmt"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/joe/gamesync/pkg/filesystem"
	"github.com/joe/gamesync/pkg/signature"
)

// DescriptorExt is the extension of the file describing a game or folder.
const DescriptorExt = ".desktop"

// DirGame is a game whose files live in one local directory, with the
// descriptor named <code>.desktop at its top level.
type DirGame struct {
	fs       afero.Fs
	dir      string
	code     string
	name     string
	original bool
}

// NewDirGame returns a game backed by dir on afs.
func NewDirGame(afs afero.Fs, dir, code, name string, original bool) *DirGame {
	return &DirGame{fs: afs, dir: dir, code: code, name: name, original: original}
}

// Code returns the game code.
func (g *DirGame) Code() string { return g.code }

// Name returns the display name.
func (g *DirGame) Name() string { return g.name }

// IsOriginal reports a built-in game.
func (g *DirGame) IsOriginal() bool { return g.original }

// Dir returns the game's local directory.
func (g *DirGame) Dir() string { return g.dir }

// Size returns the bytes CopyTo adds in a non-linked mode.
func (g *DirGame) Size() (int64, error) {
	files, err := g.files()
	if err != nil {
		return 0, err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}

	return total, nil
}

// CopyTo adds the game below targetDir. Original games contribute only their
// descriptor. In linked modes the payload goes under StorageDir once and only
// the descriptor is placed in targetDir.
func (g *DirGame) CopyTo(targetDir string, mode CopyMode, desired *signature.Set) (int64, error) {
	files, err := g.files()
	if err != nil {
		return 0, err
	}

	descriptor := g.code + DescriptorExt
	opener := filesystem.Opener(g.fs)

	var added int64

	for _, f := range files {
		var rel string

		switch {
		case f.RelativePath == descriptor:
			rel = path.Join(targetDir, g.code, descriptor)
		case g.original:
			continue
		case mode.Linked():
			rel = path.Join(StorageDir, g.code, f.RelativePath)
		default:
			rel = path.Join(targetDir, g.code, f.RelativePath)
		}

		entry := &signature.Entry{
			Signature: signature.New(rel, f.Size, f.ModTime),
			LocalPath: f.Path,
			Opener:    opener,
		}

		if desired.Add(entry) {
			added += f.Size
		}
	}

	return added, nil
}

func (g *DirGame) files() ([]filesystem.FileInfo, error) {
	files, err := filesystem.Collect(filesystem.NewScanner(filesystem.NewWalkable(g.fs), filepath.Clean(g.dir)))
	if err != nil {
		return nil, fmt.Errorf("game %s: %w", g.code, err)
	}

	return files, nil
}
