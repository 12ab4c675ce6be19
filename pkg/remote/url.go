// Package remote talks to a device over SSH: running commands, probing what
// the connection can do, and the device-side commands a sync needs.
package remote

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Default connection values for a stock device.
const (
	DefaultSSHPort = 22
	DefaultUser    = "root"
)

// Location is either a local export path or a device address.
type Location struct {
	IsRemote bool

	// For local paths
	LocalPath string

	// For device URLs
	Host string
	Port int
	User string
	Path string // Sync root override; empty means ask the device
}

// Address returns host:port.
func (l *Location) Address() string {
	return fmt.Sprintf("%s:%d", l.Host, l.Port)
}

// ParseLocation parses a path string, detecting whether it's a local path or a device URL.
// Device URLs have the format: ssh://user@host:port/absolute/sync/root
// User defaults to root, port to 22, and the path is optional.
// Examples:
//   - ssh://root@192.168.1.1
//   - ssh://root@clover.local:2222/var/lib/hakchi/games/snes-usa
//   - /media/usb/hakchi/games (local path)
func ParseLocation(path string) (*Location, error) {
	if strings.HasPrefix(path, "ssh://") || strings.HasPrefix(path, "sftp://") {
		return parseDeviceURL(path)
	}

	return &Location{
		IsRemote:  false,
		LocalPath: path,
	}, nil
}

// parseDeviceURL parses an ssh:// (or sftp://) URL into its components.
func parseDeviceURL(deviceURL string) (*Location, error) {
	u, err := url.Parse(deviceURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("invalid device URL: %w", err)
	}

	if u.Scheme != "ssh" && u.Scheme != "sftp" {
		return nil, fmt.Errorf("expected ssh:// scheme, got %s://", u.Scheme) //nolint:err113 // URL validation with actual scheme
	}

	user := DefaultUser
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("device URL must include host") //nolint:err113,perfsprint // URL validation error
	}

	port := DefaultSSHPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid port number: %w", err)
		}
		port = p
	}

	syncRoot := strings.TrimSuffix(u.Path, "/")

	return &Location{
		IsRemote: true,
		Host:     host,
		Port:     port,
		User:     user,
		Path:     syncRoot,
	}, nil
}
