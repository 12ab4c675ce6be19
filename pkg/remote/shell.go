package remote

import (
	"bytes"
	"context"
	"io"
	"strings"
)

// Shell runs commands on a device. *SSHConnection is the production implementation.
type Shell interface {
	Execute(ctx context.Context, command string, stdin io.Reader, stdout, stderr io.Writer) error
}

// SFTPCapable is implemented by shells that may expose the SFTP subsystem.
type SFTPCapable interface {
	HasSFTP() bool
}

// HasSFTP reports whether the SFTP subsystem can be opened.
func (c *SSHConnection) HasSFTP() bool {
	_, err := c.SFTP()
	return err == nil
}

// Output runs command and returns its stdout with surrounding whitespace trimmed.
func Output(ctx context.Context, sh Shell, command string) (string, error) {
	var stdout bytes.Buffer

	if err := sh.Execute(ctx, command, nil, &stdout, nil); err != nil {
		return "", err //nolint:wrapcheck // Execute errors carry the command
	}

	return strings.TrimSpace(stdout.String()), nil
}

// Run runs command and discards its output.
func Run(ctx context.Context, sh Shell, command string) error {
	return sh.Execute(ctx, command, nil, nil, nil) //nolint:wrapcheck // Execute errors carry the command
}

// Kind classifies what a connection can do.
type Kind int

// Kind values.
const (
	// KindUnknown means the connection could not be classified; transports fail closed.
	KindUnknown Kind = iota
	// KindRestricted is a command channel without file-transfer subsystems.
	KindRestricted
	// KindPOSIX is a full shell with SFTP, where an FTP server is usually running too.
	KindPOSIX
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindRestricted:
		return "restricted"
	case KindPOSIX:
		return "posix"
	case KindUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Probe classifies sh. A shell that cannot echo is unknown; one that also
// serves SFTP is POSIX; anything else that runs commands is restricted.
func Probe(ctx context.Context, sh Shell) Kind {
	if sh == nil {
		return KindUnknown
	}

	out, err := Output(ctx, sh, "echo ok")
	if err != nil || out != "ok" {
		return KindUnknown
	}

	if capable, ok := sh.(SFTPCapable); ok && capable.HasSFTP() {
		return KindPOSIX
	}

	return KindRestricted
}
