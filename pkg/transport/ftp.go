package transport

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"al.essio.dev/pkg/shellescape"
	"github.com/jlaffaye/ftp"
	"github.com/jonboulle/clockwork"
	"github.com/pkg/sftp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/joe/gamesync/pkg/fileops"
	"github.com/joe/gamesync/pkg/filesystem"
	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/signature"
)

// DefaultFTPPort is the port stock devices serve FTP on.
const DefaultFTPPort = 21

// FTPOptions configures the FTP connection.
type FTPOptions struct {
	Address  string
	User     string
	Password string
	Timeout  time.Duration
}

// FTPConn is the subset of *ftp.ServerConn the transport uses.
type FTPConn interface {
	Stor(path string, r io.Reader) error
	MakeDir(path string) error
	Delete(path string) error
	SetTime(path string, t time.Time) error
	IsSetTimeSupported() bool
	Quit() error
}

// FTPDialer opens a logged-in FTP connection.
type FTPDialer func(ctx context.Context, opts FTPOptions) (FTPConn, error)

// DialFTP connects and logs in with jlaffaye/ftp.
func DialFTP(ctx context.Context, opts FTPOptions) (FTPConn, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = remote.DefaultDialTimeout
	}

	conn, err := ftp.Dial(opts.Address, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("FTP connection to %s failed: %w", opts.Address, err)
	}

	if err := conn.Login(opts.User, opts.Password); err != nil {
		return nil, multierr.Append(fmt.Errorf("FTP login failed: %w", err), conn.Quit())
	}

	return conn, nil
}

// FTP uploads and deletes file by file over FTP. Listing goes through SFTP
// on the same device when available, otherwise through the shell.
type FTP struct {
	device *remote.Device
	walker filesystem.Walkable
	opts   FTPOptions
	dial   FTPDialer
	clock  clockwork.Clock
	log    *zap.Logger
}

// NewFTP returns the FTP transport. walker may be nil.
func NewFTP(device *remote.Device, walker filesystem.Walkable, opts Options) *FTP {
	opts = opts.withDefaults()

	return &FTP{
		device: device,
		walker: walker,
		opts:   opts.FTP,
		dial:   opts.FTPDialer,
		clock:  opts.Clock,
		log:    opts.Log,
	}
}

// Name returns "ftp".
func (f *FTP) Name() string {
	return ChoiceFTP.String()
}

// List walks the sync root.
func (f *FTP) List(ctx context.Context) (*signature.Set, error) {
	if f.walker == nil {
		return f.device.List(ctx) //nolint:wrapcheck // already wrapped by the device
	}

	root := f.device.Paths().SyncRoot

	files, err := filesystem.Scan(f.walker, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	set := signature.NewSet()
	for _, file := range files {
		set.AddSignature(signature.New(file.RelativePath, file.Size, file.ModTime))
	}

	return set, nil
}

// Delete removes entries one by one, stopping at the first failure.
func (f *FTP) Delete(ctx context.Context, entries []*signature.Entry) (err error) {
	if len(entries) == 0 {
		return nil
	}

	conn, err := f.dial(ctx, f.opts)
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, conn.Quit())
	}()

	root := f.device.Paths().SyncRoot

	for _, entry := range entries {
		if err := conn.Delete(path.Join(root, entry.Path)); err != nil {
			return fmt.Errorf("failed to delete %s: %w", entry.Path, err)
		}
	}

	return nil
}

// Transfer uploads entries one by one with per-file and aggregate progress.
// Modification times are set over FTP when the server supports it and with
// one shell touch script otherwise.
func (f *FTP) Transfer(ctx context.Context, entries []*signature.Entry, progress fileops.ProgressFunc) (err error) {
	if len(entries) == 0 {
		return nil
	}

	conn, err := f.dial(ctx, f.opts)
	if err != nil {
		return err
	}

	defer func() {
		err = multierr.Append(err, conn.Quit())
	}()

	root := f.device.Paths().SyncRoot
	throttle := fileops.NewThrottle(f.clock, progressTotal(entries), progress)
	madeDirs := map[string]bool{}
	setTime := conn.IsSetTimeSupported()

	var (
		done    int64
		untimed []*signature.Entry
	)

	_ = conn.MakeDir(root)

	for _, entry := range entries {
		for _, dir := range parentDirs(entry.Path) {
			if !madeDirs[dir] {
				madeDirs[dir] = true
				// Fails harmlessly when the directory already exists
				_ = conn.MakeDir(path.Join(root, dir))
			}
		}

		written, err := f.upload(conn, root, entry, throttle, done)
		if err != nil {
			return err
		}

		done += written

		if !setTime {
			untimed = append(untimed, entry)
			continue
		}

		if err := conn.SetTime(path.Join(root, entry.Path), entry.ModTime); err != nil {
			return fmt.Errorf("failed to set time on %s: %w", entry.Path, err)
		}
	}

	if err := f.touch(ctx, root, untimed); err != nil {
		return err
	}

	throttle.Finish(done)

	return nil
}

func (f *FTP) upload(conn FTPConn, root string, entry *signature.Entry, throttle *fileops.Throttle, offset int64) (int64, error) {
	src, err := entry.Open()
	if err != nil {
		return 0, err //nolint:wrapcheck // already carries the path
	}

	defer func() {
		_ = src.Close()
	}()

	name := entry.Path
	throttle.StartFile(name, offset, entry.Size)

	counter := fileops.NewCountingReader(io.LimitReader(src, entry.Size), func(n int64) {
		throttle.Update(offset+n, name)
	})

	if err := conn.Stor(path.Join(root, entry.Path), counter); err != nil {
		return counter.Count(), fmt.Errorf("failed to upload %s: %w", entry.Path, err)
	}

	if counter.Count() != entry.Size {
		return counter.Count(), fmt.Errorf("%w: %s sent %d of %d bytes",
			fileops.ErrShortCopy, entry.Path, counter.Count(), entry.Size)
	}

	f.log.Debug("uploaded", zap.String("path", entry.Path), zap.Int64("bytes", entry.Size))

	return counter.Count(), nil
}

// TouchScript renders a script that stamps each entry's modification time.
func TouchScript(root string, entries []*signature.Entry) string {
	var b strings.Builder

	b.WriteString("cd " + shellescape.Quote(root) + "\n")

	for _, e := range entries {
		stamp := e.ModTime.UTC().Format("2006-01-02 15:04:05")
		fmt.Fprintf(&b, "TZ=UTC0 touch -c -d %s %s\n", shellescape.Quote(stamp), shellescape.Quote(e.Path))
	}

	return b.String()
}

func (f *FTP) touch(ctx context.Context, root string, entries []*signature.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	script := strings.NewReader(TouchScript(root, entries))
	if err := f.device.Shell().Execute(ctx, "sh", script, nil, nil); err != nil {
		return fmt.Errorf("failed to set modification times: %w", err)
	}

	return nil
}

// sftpWalkable returns the SFTP client of sh when it has one.
func sftpWalkable(sh remote.Shell) filesystem.Walkable {
	provider, ok := sh.(interface {
		SFTP() (*sftp.Client, error)
	})
	if !ok {
		return nil
	}

	client, err := provider.SFTP()
	if err != nil {
		return nil
	}

	return client
}
