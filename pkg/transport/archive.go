package transport

import (
	"context"
	"fmt"
	"strings"

	"al.essio.dev/pkg/shellescape"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/signature"
)

// Archive talks to a device through nothing but its shell: deletes run as
// one generated script and uploads stream as a single tar archive.
type Archive struct {
	device *remote.Device
	clock  clockwork.Clock
	log    *zap.Logger
}

// NewArchive returns the archive transport for device.
func NewArchive(device *remote.Device, opts Options) *Archive {
	opts = opts.withDefaults()

	return &Archive{
		device: device,
		clock:  opts.Clock,
		log:    opts.Log,
	}
}

// Name returns "archive".
func (a *Archive) Name() string {
	return ChoiceArchive.String()
}

// List runs the device listing command.
func (a *Archive) List(ctx context.Context) (*signature.Set, error) {
	return a.device.List(ctx) //nolint:wrapcheck // already wrapped by the device
}

// CleanupScript renders a script that removes paths relative to root.
func CleanupScript(root string, paths []string) string {
	var b strings.Builder

	b.WriteString("#!/bin/sh\n")
	b.WriteString("cd " + shellescape.Quote(root) + "\n")

	for _, p := range paths {
		b.WriteString("rm " + shellescape.Quote(p) + "\n")
	}

	return b.String()
}

// Delete uploads a cleanup script, runs it once and removes it.
func (a *Archive) Delete(ctx context.Context, entries []*signature.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		paths = append(paths, e.Path)
	}

	sh := a.device.Shell()
	script := "/tmp/gamesync-cleanup-" + uuid.NewString() + ".sh"
	quoted := shellescape.Quote(script)

	defer func() {
		if rmErr := remote.Run(ctx, sh, "rm -f "+quoted); rmErr != nil {
			a.log.Debug("failed to remove cleanup script", zap.String("script", script), zap.Error(rmErr))
		}
	}()

	body := strings.NewReader(CleanupScript(a.device.Paths().SyncRoot, paths))
	if err := sh.Execute(ctx, "cat > "+quoted, body, nil, nil); err != nil {
		return fmt.Errorf("failed to upload cleanup script: %w", err)
	}

	if err := remote.Run(ctx, sh, "chmod +x "+quoted+" && "+quoted); err != nil {
		return fmt.Errorf("cleanup script failed: %w", err)
	}

	a.log.Debug("cleanup script ran", zap.Int("files", len(entries)))

	return nil
}

// Transfer pipes a tar stream of entries into an extract command at the sync root.
func (a *Archive) Transfer(ctx context.Context, entries []*signature.Entry, progress fileops.ProgressFunc) error {
	if len(entries) == 0 {
		return nil
	}

	stream, err := NewTarStream(entries)
	if err != nil {
		return err
	}

	defer func() {
		_ = stream.Close()
	}()

	throttle := fileops.NewThrottle(a.clock, stream.Len(), progress)
	stream.OnRead(throttle.Update)

	a.log.Debug("streaming archive", zap.Int64("bytes", stream.Len()), zap.Int("files", len(entries)))

	command := "tar -xC " + shellescape.Quote(a.device.Paths().SyncRoot)
	if err := a.device.Shell().Execute(ctx, command, stream, nil, nil); err != nil {
		return fmt.Errorf("archive extract failed: %w", err)
	}

	if pos := stream.Position(); pos != stream.Len() {
		return fmt.Errorf("%w: %d of %d bytes", ErrIncompleteTransfer, pos, stream.Len())
	}

	throttle.Finish(stream.Len())

	return nil
}
