package errors_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/pkg/errors"
)

func TestPatternMatcher_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		expected errors.ErrorCategory
	}{
		{"capacity guard", "insufficient space: need 2.0 GiB, only 1.0 GiB available", errors.CategoryCapacity},
		{"ssh dial refused", "SSH connection to clover:22 failed: dial tcp 10.0.0.2:22: connect: connection refused", errors.CategoryConnection},
		{"ssh auth", "ssh: handshake failed: ssh: unable to authenticate", errors.CategoryConnection},
		{"host key", "knownhosts: key mismatch", errors.CategoryConnection},
		{"timeout", "read tcp 10.0.0.2:21: i/o timeout", errors.CategoryConnection},
		{"permission", "open /export/000: permission denied", errors.CategoryPermission},
		{"read-only device", "mkdir /var/lib/hakchi/games: read-only file system", errors.CategoryPermission},
		{"disk full", "write /export/x.sfrom: no space left on device", errors.CategoryDiskSpace},
		{"missing game dir", "open /games/CLV-H-AAAAA: no such file or directory", errors.CategoryPath},
		{"missing manifest", "manifest does not exist: menu.toml", errors.CategoryPath},
		{"delete", "remove /export/007: directory not empty", errors.CategoryDelete},
		{"truncated upload", "CLV-H-AAAAA.sfrom: size does not match signature", errors.CategoryCopy},
		{"short write", "short write", errors.CategoryCopy},
		{"no transport", "no transport available for this connection", errors.CategoryTransport},
		{"ftp", "ftp connection closed", errors.CategoryTransport},
		{"remote command", `remote command "tar -xC /x" exited with status 2: tar: short read`, errors.CategoryTransport},
		{"remote permission wins", `remote command "rm x" exited with status 1: rm: x: Permission denied`, errors.CategoryPermission},
		{"case insensitive", "NO SPACE LEFT ON DEVICE", errors.CategoryDiskSpace},
		{"unknown", "something unexpected happened", errors.CategoryUnknown},
		{"empty", "", errors.CategoryUnknown},
	}

	matcher := errors.NewPatternMatcher()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			g.Expect(matcher.Match(tt.msg)).To(Equal(tt.expected))
		})
	}
}
