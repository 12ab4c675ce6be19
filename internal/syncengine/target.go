package syncengine

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/joe/gamesync/internal/capacity"
	"github.com/joe/gamesync/pkg/filesystem"
	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/transport"
)

// Target is where a run writes: a local export directory or a device.
type Target interface {
	// Name describes the target for logs.
	Name() string

	// Local reports a filesystem export rather than a device sync.
	Local() bool

	// Prepare resolves paths. It must not modify the target.
	Prepare(ctx context.Context) error

	// Available returns the bytes the desired layout may occupy.
	Available(ctx context.Context) (int64, error)

	// Clean removes leftovers the target must not list. It runs after the
	// capacity check and before the target is listed, and never on dry runs.
	Clean(ctx context.Context) error

	// Transport returns the transport for this run, selecting it once.
	Transport(ctx context.Context) (transport.Transport, error)

	// BeforeTransfer runs after stale entries are deleted and before upload.
	BeforeTransfer(ctx context.Context) error

	// AfterTransfer runs after a successful upload.
	AfterTransfer(ctx context.Context) error

	// Relink links shared metadata for original games, keyed by code.
	Relink(ctx context.Context, originals map[string]string) error

	// PersistConfig pushes the flat configuration map.
	PersistConfig(ctx context.Context, values map[string]string) error

	// Restore puts the target back into service after BeforeTransfer took it
	// out. It never fails.
	Restore(ctx context.Context)
}

// LocalTarget exports to a directory.
type LocalTarget struct {
	fs    afero.Fs
	root  string
	probe *capacity.LocalProbe
	opts  transport.Options
}

// NewLocalTarget returns a target for root on afs. probe measures free space.
func NewLocalTarget(afs afero.Fs, root string, probe *capacity.LocalProbe, opts transport.Options) *LocalTarget {
	if probe.FS == nil {
		probe.FS = filesystem.NewWalkable(afs)
	}

	return &LocalTarget{fs: afs, root: root, probe: probe, opts: opts}
}

// Name returns the export path.
func (t *LocalTarget) Name() string { return t.root }

// Local returns true.
func (t *LocalTarget) Local() bool { return true }

// Prepare does nothing; the directory is created on first upload.
func (t *LocalTarget) Prepare(context.Context) error { return nil }

// Available returns free space plus the size of the previous export.
func (t *LocalTarget) Available(context.Context) (int64, error) {
	stats, err := t.probe.Probe(t.root)
	if err != nil {
		return 0, err //nolint:wrapcheck // already wrapped by the probe
	}

	return stats.Available(), nil
}

// Clean does nothing for exports.
func (t *LocalTarget) Clean(context.Context) error { return nil }

// Transport returns the local transport.
func (t *LocalTarget) Transport(context.Context) (transport.Transport, error) {
	return transport.NewLocal(t.fs, t.root, t.opts), nil
}

// BeforeTransfer does nothing for exports.
func (t *LocalTarget) BeforeTransfer(context.Context) error { return nil }

// AfterTransfer does nothing for exports.
func (t *LocalTarget) AfterTransfer(context.Context) error { return nil }

// Relink does nothing for exports; originals are linked when the export is installed.
func (t *LocalTarget) Relink(context.Context, map[string]string) error { return nil }

// PersistConfig does nothing for exports.
func (t *LocalTarget) PersistConfig(context.Context, map[string]string) error { return nil }

// Restore does nothing for exports.
func (t *LocalTarget) Restore(context.Context) {}

// DeviceOptions configures a DeviceTarget.
type DeviceOptions struct {
	// SyncRoot overrides the discovered sync root.
	SyncRoot string
	// CleanStorage removes the other storage layout's directories before listing.
	CleanStorage bool
	// SeparateStorage keeps one storage directory per console.
	SeparateStorage bool
	Transport       transport.Options
	Log             *zap.Logger
}

// DeviceTarget syncs to a device over its shell.
type DeviceTarget struct {
	device    *remote.Device
	opts      DeviceOptions
	transport transport.Transport
	released  bool
	log       *zap.Logger
}

// NewDeviceTarget returns a target for device.
func NewDeviceTarget(device *remote.Device, opts DeviceOptions) *DeviceTarget {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &DeviceTarget{device: device, opts: opts, log: log}
}

// Name returns the device sync root.
func (t *DeviceTarget) Name() string {
	return "device:" + t.device.Paths().SyncRoot
}

// Local returns false.
func (t *DeviceTarget) Local() bool { return false }

// Prepare discovers device paths.
func (t *DeviceTarget) Prepare(ctx context.Context) error {
	_, err := t.device.Discover(ctx, t.opts.SyncRoot, t.opts.SeparateStorage)
	return err //nolint:wrapcheck // already wrapped by the device
}

// Available returns free space plus synced games, minus the reserved headroom.
func (t *DeviceTarget) Available(ctx context.Context) (int64, error) {
	stats, err := t.device.StorageStats(ctx)
	if err != nil {
		return 0, err //nolint:wrapcheck // already wrapped by the device
	}

	t.log.Debug("device storage",
		zap.Int64("total", stats.Total),
		zap.Int64("free", stats.Free),
		zap.Int64("games", stats.GamesUsed),
		zap.Int64("saves", stats.SavesUsed))

	return capacity.RemoteAvailable(stats.Free, stats.GamesUsed), nil
}

// Transport probes the connection and selects the transport once.
func (t *DeviceTarget) Transport(ctx context.Context) (transport.Transport, error) {
	if t.transport != nil {
		return t.transport, nil
	}

	tr, err := transport.Select(ctx, t.device, t.opts.Transport)
	if err != nil {
		return nil, err //nolint:wrapcheck // sentinel checked by callers
	}

	t.transport = tr

	return tr, nil
}

// Clean removes the other storage layout's directories when asked to.
func (t *DeviceTarget) Clean(ctx context.Context) error {
	if !t.opts.CleanStorage {
		return nil
	}

	if err := t.device.CleanStorage(ctx, t.opts.SeparateStorage); err != nil {
		return fmt.Errorf("failed to clean game storage: %w", err)
	}

	return nil
}

// BeforeTransfer releases the games mount and creates the sync root.
func (t *DeviceTarget) BeforeTransfer(ctx context.Context) error {
	// a failed umount may still have taken the games offline
	t.released = true

	if err := t.device.ReleaseGames(ctx); err != nil {
		return fmt.Errorf("failed to release games mount: %w", err)
	}

	if err := t.device.EnsureSyncRoot(ctx); err != nil {
		return fmt.Errorf("failed to create sync root: %w", err)
	}

	return nil
}

// AfterTransfer prunes directories left empty by the differential sync.
func (t *DeviceTarget) AfterTransfer(ctx context.Context) error {
	if err := t.device.PruneEmptyDirs(ctx); err != nil {
		return fmt.Errorf("failed to prune empty directories: %w", err)
	}

	return nil
}

// Relink links autoplay (and pixelart where the console has it) for original games.
func (t *DeviceTarget) Relink(ctx context.Context, originals map[string]string) error {
	return t.device.Relink(ctx, originals) //nolint:wrapcheck // already wrapped per game
}

// PersistConfig pushes values with hakchi config.
func (t *DeviceTarget) PersistConfig(ctx context.Context, values map[string]string) error {
	return t.device.PushConfig(ctx, values) //nolint:wrapcheck // already wrapped by the device
}

// Restore remounts games and restarts the UI if BeforeTransfer released them
// and the device is still online.
func (t *DeviceTarget) Restore(ctx context.Context) {
	if !t.released {
		return
	}

	t.device.Restore(ctx)
}
