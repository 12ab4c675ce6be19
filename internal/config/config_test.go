//nolint:varnamelen // Test files use idiomatic short variable names (t, tt, etc.)
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/internal/config"
	"github.com/joe/gamesync/pkg/remote"
)

func TestStorageLayoutString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		layout   config.StorageLayout
		expected string
	}{
		{config.Flat, "flat"},
		{config.Linked, "linked"},
		{config.StorageLayout(999), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.layout.String(); got != tt.expected {
			t.Errorf("StorageLayout(%d).String() = %q, want %q", tt.layout, got, tt.expected)
		}
	}
}

func TestParseStorageLayout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected config.StorageLayout
		wantErr  bool
	}{
		{"flat", config.Flat, false},
		{"copy", config.Flat, false},
		{"LINKED", config.Linked, false},
		{"link", config.Linked, false},
		{"", config.Flat, true},
		{"invalid", config.Flat, true},
	}

	for _, tt := range tests {
		var layout config.StorageLayout

		err := layout.UnmarshalText([]byte(tt.input))
		if (err != nil) != tt.wantErr {
			t.Errorf("UnmarshalText(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}

		if !tt.wantErr && layout != tt.expected {
			t.Errorf("UnmarshalText(%q) = %v, want %v", tt.input, layout, tt.expected)
		}
	}
}

func TestConfigDescriptionAndVersion(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := config.Config{}

	g.Expect(cfg.Description()).ToNot(BeEmpty())
	g.Expect(cfg.Version()).To(HavePrefix("gamesync"))
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := config.Defaults()

	g.Expect(cfg.Console).To(Equal(remote.ConsoleSNESUSA))
	g.Expect(cfg.TrashName).To(Equal("Recycle Bin"))
	g.Expect(cfg.FTPPort).To(Equal(21))
	g.Expect(cfg.LogLevel).To(Equal("info"))
}

func writeManifest(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "menu.toml")
	if err := os.WriteFile(path, []byte("games_dir = \"games\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestPostProcessConfig(t *testing.T) {
	t.Parallel()

	manifest := writeManifest(t)
	notDir := writeManifest(t)

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{
			name:    "missing manifest",
			cfg:     config.Config{Target: "/tmp/export"},
			wantErr: true,
		},
		{
			name:    "missing target",
			cfg:     config.Config{Manifest: manifest},
			wantErr: true,
		},
		{
			name:    "manifest does not exist",
			cfg:     config.Config{Manifest: "/nonexistent/menu.toml", Target: "/tmp/export"},
			wantErr: true,
		},
		{
			name:    "manifest is a directory",
			cfg:     config.Config{Manifest: filepath.Dir(manifest), Target: "/tmp/export"},
			wantErr: true,
		},
		{
			name:    "local target that does not exist yet",
			cfg:     config.Config{Manifest: manifest, Target: filepath.Join(t.TempDir(), "new")},
			wantErr: false,
		},
		{
			name:    "local target is a file",
			cfg:     config.Config{Manifest: manifest, Target: notDir},
			wantErr: true,
		},
		{
			name:    "device target",
			cfg:     config.Config{Manifest: manifest, Target: "ssh://root@clover"},
			wantErr: false,
		},
		{
			name:    "invalid protect pattern",
			cfg:     config.Config{Manifest: manifest, Target: "ssh://clover", Protect: []string{"[bad"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			cfg, err := config.PostProcessConfig(&tt.cfg)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				g.Expect(cfg).To(BeNil())

				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(cfg.Location).ToNot(BeNil())
		})
	}
}

func TestPostProcessConfig_FTPUserDefaultsToSSHUser(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := config.Defaults()
	cfg.Manifest = writeManifest(t)
	cfg.Target = "ssh://hakchi@clover:2222"

	cfg, err := config.PostProcessConfig(cfg)
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(cfg.FTPUser).To(Equal("hakchi"))
	g.Expect(cfg.FTPOptions().Address).To(Equal("clover:21"))
	g.Expect(cfg.FTPOptions().User).To(Equal("hakchi"))
}

func TestFTPOptions_DisabledOrLocal(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	cfg := config.Defaults()
	cfg.Manifest = writeManifest(t)
	cfg.Target = t.TempDir()

	cfg, err := config.PostProcessConfig(cfg)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(cfg.FTPOptions().Address).To(BeEmpty())

	cfg.Location = &remote.Location{IsRemote: true, Host: "clover"}
	cfg.NoFTP = true
	g.Expect(cfg.FTPOptions().Address).To(BeEmpty())
}

func TestValidateFilePattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "empty pattern is valid", pattern: "", wantErr: false},
		{name: "simple wildcard", pattern: "*.sram", wantErr: false},
		{name: "double star", pattern: "**/*.sram", wantErr: false},
		{name: "brace expansion", pattern: "**/*.{sram,png}", wantErr: false},
		{name: "invalid pattern - unclosed bracket", pattern: "[invalid", wantErr: true},
		{name: "invalid pattern - unclosed brace", pattern: "*.{sram", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := config.ValidateFilePattern(tt.pattern)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFilePattern(%q) error = %v, wantErr %v", tt.pattern, err, tt.wantErr)
			}
		})
	}
}
