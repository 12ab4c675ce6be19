// Package transport moves files to a sync target. There are exactly three
// variants: a local directory, a tar stream piped through a restricted shell,
// and FTP on devices with a full POSIX shell.
package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/signature"
)

// Exported variables.
var (
	ErrTransportUnavailable = errors.New("no transport available for this connection")
	ErrIncompleteTransfer   = errors.New("transfer ended before all bytes were sent")
)

// Transport lists, deletes and uploads files below a sync root.
type Transport interface {
	// Name identifies the variant in logs and events.
	Name() string

	// List returns the signatures currently present below the sync root.
	List(ctx context.Context) (*signature.Set, error)

	// Delete removes entries. Implementations may stop at the first failure.
	Delete(ctx context.Context, entries []*signature.Entry) error

	// Transfer uploads entries, reporting throttled aggregate progress.
	// It succeeds only once every byte has been written.
	Transfer(ctx context.Context, entries []*signature.Entry, progress fileops.ProgressFunc) error
}

// Choice names a transport variant.
type Choice int

// Choice values.
const (
	ChoiceNone Choice = iota
	ChoiceLocal
	ChoiceArchive
	ChoiceFTP
)

// String returns the variant name.
func (c Choice) String() string {
	switch c {
	case ChoiceLocal:
		return "local"
	case ChoiceArchive:
		return "archive"
	case ChoiceFTP:
		return "ftp"
	case ChoiceNone:
		return "none"
	default:
		return "none"
	}
}

// Choose maps a probed connection to a transport variant. Restricted shells
// get the archive stream; POSIX shells get FTP when an FTP server answers and
// the archive stream otherwise. Unknown connections fail closed.
func Choose(kind remote.Kind, ftpAvailable, forceArchive bool) (Choice, error) {
	switch kind {
	case remote.KindRestricted:
		return ChoiceArchive, nil
	case remote.KindPOSIX:
		if ftpAvailable && !forceArchive {
			return ChoiceFTP, nil
		}

		return ChoiceArchive, nil
	case remote.KindUnknown:
		return ChoiceNone, fmt.Errorf("%w: connection type is %s", ErrTransportUnavailable, kind)
	default:
		return ChoiceNone, fmt.Errorf("%w: connection type is %s", ErrTransportUnavailable, kind)
	}
}

// Options configures device transports.
type Options struct {
	ForceArchive bool

	// FTP is tried only when FTP.Address is set.
	FTP       FTPOptions
	FTPDialer FTPDialer

	Clock clockwork.Clock
	Log   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	if o.FTPDialer == nil {
		o.FTPDialer = DialFTP
	}

	return o
}

// Select probes the device connection once and returns the transport for it.
func Select(ctx context.Context, device *remote.Device, opts Options) (Transport, error) {
	opts = opts.withDefaults()

	kind := remote.Probe(ctx, device.Shell())

	ftpAvailable := false

	if kind == remote.KindPOSIX && !opts.ForceArchive && opts.FTP.Address != "" {
		conn, err := opts.FTPDialer(ctx, opts.FTP)
		if err != nil {
			opts.Log.Info("FTP unavailable, using archive transfers", zap.Error(err))
		} else {
			_ = conn.Quit()
			ftpAvailable = true
		}
	}

	choice, err := Choose(kind, ftpAvailable, opts.ForceArchive)
	if err != nil {
		return nil, err
	}

	opts.Log.Info("transport selected",
		zap.Stringer("connection", kind),
		zap.Stringer("transport", choice))

	if choice == ChoiceFTP {
		return NewFTP(device, sftpWalkable(device.Shell()), opts), nil
	}

	return NewArchive(device, opts), nil
}

func progressTotal(entries []*signature.Entry) int64 {
	var total int64
	for _, e := range entries {
		total += e.Size
	}

	return total
}
