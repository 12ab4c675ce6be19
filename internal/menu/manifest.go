package menu

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// FolderPrefix marks a menu item that opens another menu by name.
const FolderPrefix = "@"

// Manifest is the TOML description of a desired menu tree.
//
//	games_dir = "/home/me/games"
//
//	[[game]]
//	code = "CLV-H-AAAAA"
//	name = "Some Game"
//
//	[[menu]]
//	name = "Home"
//	items = ["CLV-H-AAAAA", "@Shooters"]
//
// The first menu is the root. An item starting with "@" is a folder opening
// the named menu; every other item is a game code.
type Manifest struct {
	GamesDir  string         `toml:"games_dir"`
	TrashName string         `toml:"trash_name"`
	Games     []ManifestGame `toml:"game"`
	Menus     []ManifestMenu `toml:"menu"`
}

// ManifestGame describes one game directory.
type ManifestGame struct {
	Code     string `toml:"code"`
	Name     string `toml:"name"`
	Dir      string `toml:"dir"` // relative to games_dir; defaults to the code
	Original bool   `toml:"original"`
}

// ManifestMenu is one collection.
type ManifestMenu struct {
	Name  string   `toml:"name"`
	Code  string   `toml:"code"` // folder code used when another menu opens this one
	Items []string `toml:"items"`
}

// LoadManifest reads and decodes a manifest file. Relative games_dir values
// are resolved against the manifest's directory.
func LoadManifest(afs afero.Fs, path string) (*Manifest, error) {
	data, err := afero.ReadFile(afs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if m.GamesDir == "" {
		m.GamesDir = "."
	}

	if m.TrashName == "" {
		m.TrashName = DefaultTrashName
	}

	if !filepath.IsAbs(m.GamesDir) {
		m.GamesDir = filepath.Join(filepath.Dir(path), m.GamesDir)
	}

	return &m, nil
}

// Build resolves the manifest into a tree of directory-backed games on afs.
func (m *Manifest) Build(afs afero.Fs) (*Tree, error) {
	if len(m.Menus) == 0 {
		return NewTree(), nil
	}

	games := make(map[string]*DirGame, len(m.Games))
	for _, g := range m.Games {
		if g.Code == "" {
			return nil, fmt.Errorf("manifest game %q has no code", g.Name) //nolint:err113 // validation error with value
		}

		dir := g.Dir
		if dir == "" {
			dir = g.Code
		}

		if !filepath.IsAbs(dir) {
			dir = filepath.Join(m.GamesDir, dir)
		}

		games[g.Code] = NewDirGame(afs, dir, g.Code, g.Name, g.Original)
	}

	tree := NewTree()
	handles := make(map[string]Handle, len(m.Menus))
	menus := make(map[string]ManifestMenu, len(m.Menus))

	for i, menu := range m.Menus {
		if _, dup := handles[menu.Name]; dup {
			return nil, fmt.Errorf("manifest menu %q defined twice", menu.Name) //nolint:err113 // validation error with value
		}

		if i == 0 {
			handles[menu.Name] = tree.Root()
		} else {
			handles[menu.Name] = tree.NewCollection()
		}

		menus[menu.Name] = menu
	}

	for _, menu := range m.Menus {
		h := handles[menu.Name]

		for _, item := range menu.Items {
			if name, ok := strings.CutPrefix(item, FolderPrefix); ok {
				child, found := handles[name]
				if !found && name != m.TrashName {
					return nil, fmt.Errorf("menu %q opens unknown menu %q", menu.Name, name) //nolint:err113 // validation error with value
				}

				if !found {
					child = tree.NewCollection()
					handles[name] = child
				}

				tree.Add(h, NewFolder(menus[name].Code, name, child))

				continue
			}

			game, ok := games[item]
			if !ok {
				return nil, fmt.Errorf("menu %q lists unknown game %q", menu.Name, item) //nolint:err113 // validation error with value
			}

			tree.Add(h, game)
		}
	}

	return tree, nil
}
