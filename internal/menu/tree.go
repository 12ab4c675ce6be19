// Package menu holds the desired menu tree and flattens it into the numbered
// directory layout a device reads.
package menu

import (
	"fmt"

	"github.com/joe/gamesync/pkg/signature"
)

// Handle identifies a collection inside a Tree. Two collections with the same
// contents are still different targets; only the handle decides identity.
type Handle int

// Item is an entry of a collection: a Game or a *Folder.
type Item interface {
	Code() string
	Name() string
}

// Game is an application the engine places but never creates or deletes.
type Game interface {
	Item

	// IsOriginal reports a built-in game whose payload already lives on the device.
	IsOriginal() bool

	// Size is the number of bytes CopyTo would add in a non-linked mode.
	Size() (int64, error)

	// CopyTo adds the game's files below targetDir to desired and returns the
	// bytes actually added. Paths already present in desired are not added again.
	CopyTo(targetDir string, mode CopyMode, desired *signature.Set) (int64, error)
}

// Folder opens another collection.
type Folder struct {
	code  string
	name  string
	child Handle
}

// NewFolder returns a folder opening child. code may be empty; Flatten then
// derives one from the child's index.
func NewFolder(code, name string, child Handle) *Folder {
	return &Folder{code: code, name: name, child: child}
}

// Code returns the folder code.
func (f *Folder) Code() string { return f.code }

// Name returns the display name.
func (f *Folder) Name() string { return f.name }

// Child returns the collection the folder opens.
func (f *Folder) Child() Handle { return f.child }

// Tree is an arena of collections. The root collection is created with the tree.
type Tree struct {
	collections [][]Item
}

// NewTree returns a tree with an empty root.
func NewTree() *Tree {
	return &Tree{collections: [][]Item{nil}}
}

// Root returns the root collection handle.
func (t *Tree) Root() Handle {
	return 0
}

// NewCollection adds an empty collection and returns its handle.
func (t *Tree) NewCollection() Handle {
	t.collections = append(t.collections, nil)
	return Handle(len(t.collections) - 1)
}

// Add appends item to collection h.
func (t *Tree) Add(h Handle, item Item) {
	t.mustHave(h)
	t.collections[h] = append(t.collections[h], item)
}

// Items returns the items of collection h in order.
func (t *Tree) Items(h Handle) []Item {
	t.mustHave(h)
	return t.collections[h]
}

// Len returns the number of collections.
func (t *Tree) Len() int {
	return len(t.collections)
}

// IsEmpty reports whether the root has no items.
func (t *Tree) IsEmpty() bool {
	return len(t.collections[0]) == 0
}

func (t *Tree) mustHave(h Handle) {
	if h < 0 || int(h) >= len(t.collections) {
		panic(fmt.Sprintf("menu: unknown collection handle %d", h))
	}
}
