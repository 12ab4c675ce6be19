package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/multierr"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultDialTimeout bounds the TCP connect and SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// CommandError is returned when a remote command exits non-zero.
type CommandError struct {
	Command    string
	ExitStatus int
	Stderr     string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("remote command %q exited with status %d", e.Command, e.ExitStatus)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}

	return msg
}

// DialOptions configures Dial.
type DialOptions struct {
	User     string
	Password string
	// KnownHostsFile enables host key verification when set.
	KnownHostsFile string
	Timeout        time.Duration
}

// SSHConnection holds an active SSH connection to a device. The SFTP
// subsystem is opened on first use.
type SSHConnection struct {
	sshClient *ssh.Client
	address   string

	sftpOnce   sync.Once
	sftpClient *sftp.Client
	sftpErr    error
}

// Dial establishes an SSH connection. It uses the SSH agent, default SSH keys,
// and finally the password (which may be empty) for authentication.
func Dial(address string, opts DialOptions) (*SSHConnection, error) {
	user := opts.User
	if user == "" {
		user = DefaultUser
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // devices regenerate host keys on every flash
	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", opts.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultDialTimeout
	}

	config := &ssh.ClientConfig{
		User:            user,
		Auth:            getSSHAuthMethods(opts.Password),
		HostKeyCallback: hostKeyCallback,
		Timeout:         timeout,
	}

	sshClient, err := ssh.Dial("tcp", address, config)
	if err != nil {
		return nil, fmt.Errorf("SSH connection to %s failed: %w", address, err)
	}

	return &SSHConnection{
		sshClient: sshClient,
		address:   address,
	}, nil
}

// Address returns the host:port this connection was dialed to.
func (c *SSHConnection) Address() string {
	return c.address
}

// Execute runs command in a new session. stdin, stdout and stderr may be nil.
// Cancelling ctx signals the remote process and closes the session.
func (c *SSHConnection) Execute(ctx context.Context, command string, stdin io.Reader, stdout, stderr io.Writer) error {
	session, err := c.sshClient.NewSession()
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}

	defer func() {
		_ = session.Close()
	}()

	var stderrBuf bytes.Buffer

	session.Stdin = stdin
	session.Stdout = stdout

	if stderr != nil {
		session.Stderr = io.MultiWriter(stderr, &stderrBuf)
	} else {
		session.Stderr = &stderrBuf
	}

	if err := session.Start(command); err != nil {
		return fmt.Errorf("failed to start %q: %w", command, err)
	}

	done := make(chan error, 1)

	go func() {
		done <- session.Wait()
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGTERM)
		_ = session.Close()

		return ctx.Err() //nolint:wrapcheck // caller checks for context.Canceled
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{Command: command, ExitStatus: exitErr.ExitStatus(), Stderr: stderrBuf.String()}
	}

	if err != nil {
		return fmt.Errorf("remote command %q failed: %w", command, err)
	}

	return nil
}

// IsOnline reports whether the connection still answers a keepalive request.
func (c *SSHConnection) IsOnline() bool {
	_, _, err := c.sshClient.SendRequest("keepalive@openssh.com", true, nil)
	return err == nil
}

// SFTP returns the SFTP client, opening the subsystem on first call.
func (c *SSHConnection) SFTP() (*sftp.Client, error) {
	c.sftpOnce.Do(func() {
		client, err := sftp.NewClient(c.sshClient)
		if err != nil {
			c.sftpErr = fmt.Errorf("SFTP session creation failed: %w", err)
			return
		}
		c.sftpClient = client
	})

	return c.sftpClient, c.sftpErr
}

// Close closes the SFTP session, if any, and the SSH connection.
func (c *SSHConnection) Close() error {
	var err error

	if c.sftpClient != nil {
		err = multierr.Append(err, c.sftpClient.Close())
	}

	if c.sshClient != nil {
		err = multierr.Append(err, c.sshClient.Close())
	}

	return err
}

// getSSHAuthMethods returns SSH authentication methods in priority order:
// 1. SSH agent
// 2. Default SSH keys
// 3. Password, including the empty password stock devices accept
func getSSHAuthMethods(password string) []ssh.AuthMethod {
	var authMethods []ssh.AuthMethod

	if agentAuth := trySSHAgent(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	if keyAuths, err := tryDefaultSSHKeys(); err == nil && len(keyAuths) > 0 {
		authMethods = append(authMethods, keyAuths...)
	}

	authMethods = append(authMethods,
		ssh.Password(password),
		ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = password
			}

			return answers, nil
		}),
	)

	return authMethods
}

// trySSHAgent attempts to connect to the SSH agent.
func trySSHAgent() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}

	agentClient := agent.NewClient(conn)

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// tryDefaultSSHKeys tries to load SSH keys from default locations.
func tryDefaultSSHKeys() ([]ssh.AuthMethod, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err //nolint:wrapcheck // caller ignores the error
	}

	sshDir := filepath.Join(homeDir, ".ssh")

	keyFiles := []string{
		filepath.Join(sshDir, "id_ed25519"),
		filepath.Join(sshDir, "id_rsa"),
		filepath.Join(sshDir, "id_ecdsa"),
	}

	var authMethods []ssh.AuthMethod

	for _, keyPath := range keyFiles {
		keyData, err := os.ReadFile(keyPath) //nolint:gosec // fixed key locations
		if err != nil {
			continue
		}

		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			// Encrypted keys are skipped
			continue
		}

		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	return authMethods, nil
}
