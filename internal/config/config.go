// Package config handles application configuration and command-line argument parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/bmatcuk/doublestar/v4"

	"github.com/joe/gamesync/pkg/remote"
	"github.com/joe/gamesync/pkg/transport"
)

// Defaults applied before flags and the config file are read.
const (
	DefaultConsole   = remote.ConsoleSNESUSA
	DefaultTrashName = "Recycle Bin"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
)

// Exported variables.
var (
	ErrMissingManifest = errors.New("manifest path is required")
	ErrMissingTarget   = errors.New("target is required")
)

// StorageLayout selects how game payloads are stored on the target.
type StorageLayout int

const (
	// Flat copies every payload into each menu directory it appears in.
	Flat StorageLayout = iota
	// Linked stores each payload once under .storage and links it from menus.
	Linked
)

// String returns the string representation of StorageLayout
func (s StorageLayout) String() string {
	switch s {
	case Flat:
		return "flat"
	case Linked:
		return "linked"
	default:
		return "unknown"
	}
}

// ParseStorageLayout parses a string into a StorageLayout
func ParseStorageLayout(s string) (StorageLayout, error) {
	switch strings.ToLower(s) {
	case "flat", "copy":
		return Flat, nil
	case "linked", "link":
		return Linked, nil
	default:
		return Flat, fmt.Errorf("invalid storage layout: %s (valid: flat, linked)", s) //nolint:err113 // validation error with value
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for go-arg and TOML
func (s *StorageLayout) UnmarshalText(text []byte) error {
	parsed, err := ParseStorageLayout(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// Config holds the application configuration
type Config struct {
	Manifest   string               `arg:"-m,--manifest" help:"TOML manifest describing games and menus"`
	Target     string               `arg:"-t,--target" help:"export directory, or ssh://[user@]host[:port][/sync/root] for a device"`
	ConfigFile string               `arg:"-c,--config" help:"TOML config file with device settings and [device_config]"`
	Console    remote.Console       `arg:"--console" help:"console layout: nes-usa|nes-jpn|snes-usa|snes-eur|snes-jpn (default: snes-usa)"`
	Storage    StorageLayout        `arg:"--storage" help:"payload layout: flat|linked (default: flat)"`
	TrashName  string               `arg:"--trash-name" help:"name of the folder whose contents are never synced (default: Recycle Bin)"`
	DryRun     bool                 `arg:"-n,--dry-run" help:"compute and print the plan without changing the target"`
	Protect    []string             `arg:"--protect,separate" help:"glob of target paths that are never deleted (repeatable)"`
	Plain      bool                 `arg:"--plain" help:"plain progress output instead of the terminal UI"`

	// Device connection
	Password        string `arg:"--password,env:GAMESYNC_PASSWORD" help:"SSH password (falls back to the OS keyring)"`
	KnownHosts      string `arg:"--known-hosts" help:"known_hosts file used to verify the device host key"`
	ForceArchive    bool   `arg:"--force-archive" help:"always transfer as a tar stream over the shell"`
	NoFTP           bool   `arg:"--no-ftp" help:"never try the FTP transport"`
	FTPPort         int    `arg:"--ftp-port" help:"device FTP port (default: 21)"`
	FTPUser         string `arg:"--ftp-user" help:"device FTP user (default: SSH user)"`
	FTPPassword     string `arg:"--ftp-password,env:GAMESYNC_FTP_PASSWORD" help:"device FTP password (falls back to the OS keyring)"`
	SavePassword    bool   `arg:"--save-password" help:"store the given SSH and FTP passwords in the OS keyring"`
	CleanStorage    bool   `arg:"--clean-storage" help:"remove the other storage layout's directories before listing the device"`
	SeparateStorage bool   `arg:"--separate-storage" help:"keep one storage directory per console"`

	// Observability
	LogLevel    string `arg:"--log-level" help:"debug|info|warn|error (default: info)"`
	LogFormat   string `arg:"--log-format" help:"console|json (default: console)"`
	LogFile     string `arg:"--log-file" help:"write logs to this file instead of stderr"`
	MetricsFile string `arg:"--metrics-file" help:"write run metrics in Prometheus text format to this file"`

	// DeviceConfig is pushed to the device after a successful sync. Only the config file sets it.
	DeviceConfig map[string]string `arg:"-"`

	// Location is Target parsed by PostProcessConfig.
	Location *remote.Location `arg:"-"`
}

// Description returns the program description for go-arg
func (Config) Description() string {
	return "Differential sync of a game menu tree to an export directory or a device"
}

// Version returns the version string for go-arg
func (Config) Version() string {
	return "gamesync 1.0.0"
}

// Defaults returns a config with every default applied.
func Defaults() *Config {
	return &Config{
		Console:   DefaultConsole,
		Storage:   Flat,
		TrashName: DefaultTrashName,
		FTPPort:   transport.DefaultFTPPort,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// ParseFlags parses command-line flags, merges the config file if one was
// named, and returns the validated configuration.
func ParseFlags() (*Config, error) {
	cfg := Defaults()

	arg.MustParse(cfg)

	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}

		file.ApplyTo(cfg)
	}

	return PostProcessConfig(cfg)
}

// PostProcessConfig applies post-processing logic to a parsed config
func PostProcessConfig(cfg *Config) (*Config, error) {
	if cfg.Manifest == "" {
		return nil, ErrMissingManifest
	}

	if cfg.Target == "" {
		return nil, ErrMissingTarget
	}

	location, err := remote.ParseLocation(cfg.Target)
	if err != nil {
		return nil, fmt.Errorf("invalid target: %w", err)
	}

	cfg.Location = location

	if err := cfg.ValidatePaths(); err != nil {
		return nil, err
	}

	for _, pattern := range cfg.Protect {
		if err := ValidateFilePattern(pattern); err != nil {
			return nil, err
		}
	}

	if cfg.FTPUser == "" && location.IsRemote {
		cfg.FTPUser = location.User
	}

	return cfg, nil
}

// ValidatePaths checks that the manifest is a file and that a local target,
// if it exists already, is a directory.
func (cfg *Config) ValidatePaths() error {
	info, err := os.Stat(cfg.Manifest)
	if os.IsNotExist(err) {
		return fmt.Errorf("manifest does not exist: %s", cfg.Manifest) //nolint:err113 // validation error with value
	}

	if err != nil {
		return fmt.Errorf("cannot access manifest: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("manifest is a directory: %s", cfg.Manifest) //nolint:err113 // validation error with value
	}

	if cfg.Location == nil || cfg.Location.IsRemote {
		return nil
	}

	info, err = os.Stat(cfg.Location.LocalPath)
	if os.IsNotExist(err) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("cannot access target: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("target is not a directory: %s", cfg.Location.LocalPath) //nolint:err113 // validation error with value
	}

	return nil
}

// ValidateFilePattern validates a protect glob.
func ValidateFilePattern(pattern string) error {
	if pattern == "" {
		return nil
	}

	if !doublestar.ValidatePattern(pattern) {
		return fmt.Errorf("invalid protect pattern: %s", pattern) //nolint:err113 // validation error with value
	}

	return nil
}

// FTPOptions returns the FTP settings for a device target.
func (cfg *Config) FTPOptions() transport.FTPOptions {
	if cfg.NoFTP || cfg.Location == nil || !cfg.Location.IsRemote {
		return transport.FTPOptions{}
	}

	return transport.FTPOptions{
		Address:  fmt.Sprintf("%s:%d", cfg.Location.Host, cfg.FTPPort),
		User:     cfg.FTPUser,
		Password: cfg.FTPPassword,
	}
}
