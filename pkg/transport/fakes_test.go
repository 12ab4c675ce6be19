package transport_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/signature"
)

var errFake = errors.New("fake failure")

type executed struct {
	command string
	stdin   string
}

// fakeShell records commands, drains stdin and answers by command prefix.
type fakeShell struct {
	responses   map[string]string
	failing     map[string]bool
	ignoreStdin bool
	sftp        bool
	runs        []executed
}

func newFakeShell() *fakeShell {
	return &fakeShell{responses: map[string]string{}, failing: map[string]bool{}}
}

func (f *fakeShell) Execute(_ context.Context, command string, stdin io.Reader, stdout, _ io.Writer) error {
	run := executed{command: command}

	if stdin != nil && !f.ignoreStdin {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, stdin); err != nil {
			return err
		}

		run.stdin = buf.String()
	}

	f.runs = append(f.runs, run)

	for prefix := range f.failing {
		if strings.HasPrefix(command, prefix) {
			return errFake
		}
	}

	for prefix, out := range f.responses {
		if strings.HasPrefix(command, prefix) && stdout != nil {
			_, _ = io.WriteString(stdout, out)
		}
	}

	return nil
}

func (f *fakeShell) HasSFTP() bool { return f.sftp }

func (f *fakeShell) commands() []string {
	out := make([]string, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, r.command)
	}

	return out
}

func deviceAt(sh *fakeShell, syncRoot string) *remote.Device {
	device := remote.NewDevice(sh, remote.ConsoleSNESUSA, nil)
	_, _ = device.Discover(context.Background(), syncRoot, false)
	sh.runs = nil

	return device
}

// fakeFTP records FTP operations.
type fakeFTP struct {
	setTime  bool
	stored   map[string]string
	dirs     []string
	deleted  []string
	times    map[string]time.Time
	failStor bool
	quits    int
}

func newFakeFTP() *fakeFTP {
	return &fakeFTP{stored: map[string]string{}, times: map[string]time.Time{}}
}

func (f *fakeFTP) Stor(path string, r io.Reader) error {
	if f.failStor {
		return errFake
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	f.stored[path] = string(data)

	return nil
}

func (f *fakeFTP) MakeDir(path string) error {
	f.dirs = append(f.dirs, path)
	return nil
}

func (f *fakeFTP) Delete(path string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeFTP) SetTime(path string, t time.Time) error {
	f.times[path] = t
	return nil
}

func (f *fakeFTP) IsSetTimeSupported() bool { return f.setTime }

func (f *fakeFTP) Quit() error {
	f.quits++
	return nil
}

func memEntry(path, content string, mtime time.Time) *signature.Entry {
	return &signature.Entry{
		Signature: signature.New(path, int64(len(content)), mtime),
		Content: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}
