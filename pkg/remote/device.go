package remote

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/signature"
)

// DefaultSavesPath is where the device keeps save states.
const DefaultSavesPath = "/var/saves"

// Console selects the device's per-console sync directory and relink rules.
type Console string

// Console values.
const (
	ConsoleNES          Console = "nes-usa"
	ConsoleFamicom      Console = "nes-jpn"
	ConsoleSNESUSA      Console = "snes-usa"
	ConsoleSNESEUR      Console = "snes-eur"
	ConsoleSuperFamicom Console = "snes-jpn"
)

// Consoles lists every supported console in display order.
func Consoles() []Console {
	return []Console{ConsoleNES, ConsoleFamicom, ConsoleSNESUSA, ConsoleSNESEUR, ConsoleSuperFamicom}
}

// UnmarshalText implements encoding.TextUnmarshaler for flags and config files.
func (c *Console) UnmarshalText(text []byte) error {
	for _, console := range Consoles() {
		if string(text) == string(console) {
			*c = console
			return nil
		}
	}

	return fmt.Errorf("unknown console %q (valid: nes-usa, nes-jpn, snes-usa, snes-eur, snes-jpn)", string(text)) //nolint:err113 // validation error with value
}

// LinksPixelArt reports whether original games on this console also share pixelart.
func (c Console) LinksPixelArt() bool {
	return c == ConsoleNES || c == ConsoleFamicom
}

// Paths are the device locations a sync works with.
type Paths struct {
	SyncRoot  string
	GamesPath string
	RootFS    string
	SquashFS  string
	SavesPath string
}

// StorageStats describes the device's game storage. All values are bytes.
type StorageStats struct {
	Total     int64
	Used      int64
	Free      int64
	GamesUsed int64
	SavesUsed int64
}

// Onliner is implemented by shells that can tell whether the device still answers.
type Onliner interface {
	IsOnline() bool
}

// Device runs the hakchi commands a sync needs.
type Device struct {
	shell   Shell
	console Console
	paths   Paths
	log     *zap.Logger
}

// NewDevice returns a device for console reached through sh. Call Discover
// before anything that needs Paths.
func NewDevice(sh Shell, console Console, log *zap.Logger) *Device {
	if log == nil {
		log = zap.NewNop()
	}

	return &Device{
		shell:   sh,
		console: console,
		log:     log,
		paths:   Paths{SavesPath: DefaultSavesPath},
	}
}

// Shell returns the shell the device runs commands through.
func (d *Device) Shell() Shell {
	return d.shell
}

// Console returns the device's console.
func (d *Device) Console() Console {
	return d.console
}

// Paths returns the discovered paths.
func (d *Device) Paths() Paths {
	return d.paths
}

// Discover asks the device for its game, rootfs and squashfs paths. The sync
// root is syncRoot when given. Otherwise it is the game sync storage itself,
// or its console directory when each console keeps separate storage.
func (d *Device) Discover(ctx context.Context, syncRoot string, separateStorage bool) (Paths, error) {
	queries := []struct {
		command string
		dst     *string
	}{
		{"hakchi get gamepath", &d.paths.GamesPath},
		{"hakchi get rootfs", &d.paths.RootFS},
		{"hakchi get squashfs", &d.paths.SquashFS},
	}

	for _, q := range queries {
		out, err := Output(ctx, d.shell, q.command)
		if err != nil {
			return Paths{}, fmt.Errorf("failed to discover device paths: %w", err)
		}

		*q.dst = out
	}

	if syncRoot == "" {
		storage, err := Output(ctx, d.shell, "hakchi findGameSyncStorage")
		if err != nil {
			return Paths{}, fmt.Errorf("failed to find game sync storage: %w", err)
		}

		syncRoot = storage
		if separateStorage {
			syncRoot = path.Join(storage, string(d.console))
		}
	}

	d.paths.SyncRoot = syncRoot

	d.log.Debug("device paths discovered",
		zap.String("sync_root", d.paths.SyncRoot),
		zap.String("games_path", d.paths.GamesPath),
		zap.String("squashfs", d.paths.SquashFS))

	return d.paths, nil
}

// StorageStats reports capacity of the filesystem holding the sync root plus
// the space used by synced games and save states. A sync root that does not
// exist yet is measured through its nearest existing parent.
func (d *Device) StorageStats(ctx context.Context) (StorageStats, error) {
	root := shellescape.Quote(d.paths.SyncRoot)

	dfOut, err := Output(ctx, d.shell, fmt.Sprintf(
		`d=%s; while [ ! -d "$d" ]; do d=$(dirname "$d"); done; df -k "$d" | tail -n 1`, root))
	if err != nil {
		return StorageStats{}, fmt.Errorf("failed to query storage: %w", err)
	}

	stats, err := parseDF(dfOut)
	if err != nil {
		return StorageStats{}, err
	}

	if stats.GamesUsed, err = d.du(ctx, d.paths.SyncRoot); err != nil {
		return StorageStats{}, err
	}

	if stats.SavesUsed, err = d.du(ctx, d.paths.SavesPath); err != nil {
		return StorageStats{}, err
	}

	return stats, nil
}

func (d *Device) du(ctx context.Context, dir string) (int64, error) {
	out, err := Output(ctx, d.shell, fmt.Sprintf("du -sk %s 2>/dev/null || echo 0", shellescape.Quote(dir)))
	if err != nil {
		return 0, fmt.Errorf("failed to measure %s: %w", dir, err)
	}

	fields := strings.Fields(out)
	if len(fields) == 0 {
		return 0, nil
	}

	kb, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected du output %q: %w", out, err)
	}

	return kb * 1024, nil
}

// parseDF reads the last line of `df -k`. Fields are taken from the right
// because long device names may contain spaces.
func parseDF(line string) (StorageStats, error) {
	const minFields = 5

	fields := strings.Fields(line)
	if len(fields) < minFields {
		return StorageStats{}, fmt.Errorf("unexpected df output %q", line) //nolint:err113 // parse error with value
	}

	n := len(fields)

	values := make([]int64, 3)
	for i, field := range fields[n-5 : n-2] {
		v, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return StorageStats{}, fmt.Errorf("unexpected df output %q: %w", line, err)
		}

		values[i] = v * 1024
	}

	return StorageStats{Total: values[0], Used: values[1], Free: values[2]}, nil
}

// ListCommand returns the command that prints one `path size mtime` line per
// file below the sync root. A missing root lists nothing.
func (d *Device) ListCommand() string {
	root := shellescape.Quote(d.paths.SyncRoot)

	return fmt.Sprintf(`cd %s 2>/dev/null || exit 0; find . -type f -exec stat -c "%%n %%s %%y" {} \;`, root)
}

// EnsureSyncRoot creates the sync root.
func (d *Device) EnsureSyncRoot(ctx context.Context) error {
	return Run(ctx, d.shell, "mkdir -p "+shellescape.Quote(d.paths.SyncRoot))
}

// List returns the signatures of every file below the sync root.
func (d *Device) List(ctx context.Context) (*signature.Set, error) {
	var out strings.Builder

	if err := d.shell.Execute(ctx, d.ListCommand(), nil, &out, nil); err != nil {
		return nil, fmt.Errorf("failed to list device files: %w", err)
	}

	set, err := signature.ParseListing(strings.NewReader(out.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse device listing: %w", err)
	}

	return set, nil
}

// Storage layout patterns matched against `find <storage>/ -maxdepth 1`.
// The separate pattern also keeps the storage directory itself.
const (
	consoleDirsPattern  = `/(snes(-usa|-eur|-jpn)?|nes(-usa|-jpn)?)$`
	separateKeepPattern = `(/snes(-usa|-eur|-jpn)?|/nes(-usa|-jpn)?|/)$`
)

// CleanStorageCommand returns the command removing what the other storage
// layout left in the game sync storage: with separate storage everything but
// the console directories goes, otherwise the console directories go. The
// sync root is never removed.
func (d *Device) CleanStorageCommand(separateStorage bool) string {
	match := "grep -Ee '" + consoleDirsPattern + "'"
	if separateStorage {
		match = "grep -vEe '" + separateKeepPattern + "'"
	}

	return `find "$(hakchi findGameSyncStorage)/" -maxdepth 1 | ` + match +
		` | grep -vxF -e ` + shellescape.Quote(d.paths.SyncRoot) +
		` | while read f; do rm -rf "$f"; done`
}

// CleanStorage runs CleanStorageCommand.
func (d *Device) CleanStorage(ctx context.Context, separateStorage bool) error {
	return Run(ctx, d.shell, d.CleanStorageCommand(separateStorage))
}

// ReleaseGames unmounts the live games overlay so the sync root can be written.
func (d *Device) ReleaseGames(ctx context.Context) error {
	return Run(ctx, d.shell, `hakchi eval 'umount "$gamepath"'`)
}

// PruneEmptyDirs removes menu and game directories that hold nothing but
// relinked metadata.
func (d *Device) PruneEmptyDirs(ctx context.Context) error {
	root := shellescape.Quote(d.paths.SyncRoot)
	command := fmt.Sprintf(`for f in $(find %s -mindepth 1 -maxdepth 2 -type d); do `+
		`{ ls -1 "$f" | grep -v pixelart | grep -v autoplay | wc -l | `+
		`{ read wc; test $wc -eq 0 && rm -rf "$f"; } } ; done`, root)

	return Run(ctx, d.shell, command)
}

// RelinkCommand returns the idempotent command that links an original game's
// shared metadata from the squashfs into its menu directory.
func RelinkCommand(console Console, paths Paths, menuDir, code string) string {
	src := paths.SquashFS + paths.GamesPath + "/" + code
	dst := paths.SyncRoot + "/" + menuDir + "/" + code

	parts := []string{
		"src=" + shellescape.Quote(src),
		"dst=" + shellescape.Quote(dst),
		`mkdir -p "$dst"`,
		`([ -e "$dst/autoplay" ] || ln -s "$src/autoplay" "$dst/")`,
	}

	if console.LinksPixelArt() {
		parts = append(parts, `([ -e "$dst/pixelart" ] || ln -s "$src/pixelart" "$dst/")`)
	}

	return strings.Join(parts, " && ")
}

// Relink runs RelinkCommand for every original game, keyed by code with the
// menu directory as value. Every game is attempted; failures are combined.
func (d *Device) Relink(ctx context.Context, originals map[string]string) error {
	codes := make([]string, 0, len(originals))
	for code := range originals {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	var errs error

	for _, code := range codes {
		if err := Run(ctx, d.shell, RelinkCommand(d.console, d.paths, originals[code], code)); err != nil {
			d.log.Warn("relink failed", zap.String("code", code), zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("relink %s: %w", code, err))
		}
	}

	return errs
}

// ConfigScript renders one `hakchi config` line per key, sorted by key.
func ConfigScript(values map[string]string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "hakchi config %s %s\n", shellescape.Quote(key), shellescape.Quote(values[key]))
	}

	return b.String()
}

// PushConfig writes the flat key-value map to the device configuration.
func (d *Device) PushConfig(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	if err := d.shell.Execute(ctx, "sh", strings.NewReader(ConfigScript(values)), nil, nil); err != nil {
		return fmt.Errorf("failed to push device config: %w", err)
	}

	return nil
}

// IsOnline reports whether the device still answers. Shells that cannot tell
// are assumed online.
func (d *Device) IsOnline() bool {
	if onliner, ok := d.shell.(Onliner); ok {
		return onliner.IsOnline()
	}

	return true
}

// Restore remounts the games overlay and restarts the UI. It is a no-op when
// the device is gone, and failures are only logged.
func (d *Device) Restore(ctx context.Context) {
	if !d.IsOnline() {
		d.log.Debug("device offline, skipping restore")
		return
	}

	if err := Run(ctx, d.shell, "hakchi overmount_games; uistart"); err != nil {
		d.log.Debug("restore failed", zap.Error(err))
	}
}
