package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/joe/gamesync/pkg/remote"
)

// File is the optional TOML config file. Unset keys leave the flag value alone.
type File struct {
	Manifest        *string         `toml:"manifest"`
	Target          *string         `toml:"target"`
	Console         *remote.Console `toml:"console"`
	Storage         *StorageLayout  `toml:"storage"`
	TrashName       *string         `toml:"trash_name"`
	Protect         []string        `toml:"protect"`
	KnownHosts      *string         `toml:"known_hosts"`
	ForceArchive    *bool           `toml:"force_archive"`
	NoFTP           *bool           `toml:"no_ftp"`
	FTPPort         *int            `toml:"ftp_port"`
	FTPUser         *string         `toml:"ftp_user"`
	CleanStorage    *bool           `toml:"clean_storage"`
	SeparateStorage *bool           `toml:"separate_storage"`
	LogLevel        *string         `toml:"log_level"`
	LogFormat       *string         `toml:"log_format"`
	LogFile         *string         `toml:"log_file"`
	MetricsFile     *string         `toml:"metrics_file"`

	DeviceConfig map[string]string `toml:"device_config"`
}

// LoadFile decodes a config file. Unknown keys are an error so typos surface.
func LoadFile(path string) (*File, error) {
	var f File

	meta, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String()) //nolint:err113 // validation error with value
	}

	return &f, nil
}

// ApplyTo copies every key set in the file onto cfg, unless the matching flag
// moved cfg away from its default.
func (f *File) ApplyTo(cfg *Config) {
	def := Defaults()

	applyString(&cfg.Manifest, def.Manifest, f.Manifest)
	applyString(&cfg.Target, def.Target, f.Target)
	applyString(&cfg.TrashName, def.TrashName, f.TrashName)
	applyString(&cfg.KnownHosts, def.KnownHosts, f.KnownHosts)
	applyString(&cfg.FTPUser, def.FTPUser, f.FTPUser)
	applyString(&cfg.LogLevel, def.LogLevel, f.LogLevel)
	applyString(&cfg.LogFormat, def.LogFormat, f.LogFormat)
	applyString(&cfg.LogFile, def.LogFile, f.LogFile)
	applyString(&cfg.MetricsFile, def.MetricsFile, f.MetricsFile)

	applyBool(&cfg.ForceArchive, f.ForceArchive)
	applyBool(&cfg.NoFTP, f.NoFTP)
	applyBool(&cfg.CleanStorage, f.CleanStorage)
	applyBool(&cfg.SeparateStorage, f.SeparateStorage)

	if f.Console != nil && cfg.Console == def.Console {
		cfg.Console = *f.Console
	}

	if f.Storage != nil && cfg.Storage == def.Storage {
		cfg.Storage = *f.Storage
	}

	if f.FTPPort != nil && cfg.FTPPort == def.FTPPort {
		cfg.FTPPort = *f.FTPPort
	}

	if len(cfg.Protect) == 0 {
		cfg.Protect = f.Protect
	}

	if len(f.DeviceConfig) > 0 {
		cfg.DeviceConfig = f.DeviceConfig
	}
}

func applyString(dst *string, def string, src *string) {
	if src != nil && *dst == def {
		*dst = *src
	}
}

func applyBool(dst *bool, src *bool) {
	if src != nil && !*dst {
		*dst = *src
	}
}
