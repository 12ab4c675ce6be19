//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package config_test

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/gamesync/internal/config"
	"github.com/joe/gamesync/pkg/remote"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gamesync.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadFile_AppliesUnsetValues(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := writeConfig(t, `
target = "ssh://root@clover"
console = "nes-usa"
storage = "linked"
protect = ["**/*.sram"]
force_archive = true
ftp_port = 2121

[device_config]
cfg_folders_set = "1"
cfg_max_games = "200"
`)

	file, err := config.LoadFile(path)
	g.Expect(err).ToNot(HaveOccurred())

	cfg := config.Defaults()
	file.ApplyTo(cfg)

	g.Expect(cfg.Target).To(Equal("ssh://root@clover"))
	g.Expect(cfg.Console).To(Equal(remote.ConsoleNES))
	g.Expect(cfg.Storage).To(Equal(config.Linked))
	g.Expect(cfg.Protect).To(Equal([]string{"**/*.sram"}))
	g.Expect(cfg.ForceArchive).To(BeTrue())
	g.Expect(cfg.FTPPort).To(Equal(2121))
	g.Expect(cfg.DeviceConfig).To(Equal(map[string]string{
		"cfg_folders_set": "1",
		"cfg_max_games":   "200",
	}))
}

func TestLoadFile_FlagsWin(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	path := writeConfig(t, `
target = "/from/file"
console = "nes-usa"
log_level = "debug"
`)

	file, err := config.LoadFile(path)
	g.Expect(err).ToNot(HaveOccurred())

	cfg := config.Defaults()
	cfg.Target = "/from/flag"
	cfg.Console = remote.ConsoleSNESEUR

	file.ApplyTo(cfg)

	g.Expect(cfg.Target).To(Equal("/from/flag"))
	g.Expect(cfg.Console).To(Equal(remote.ConsoleSNESEUR))
	g.Expect(cfg.LogLevel).To(Equal("debug"))
}

func TestLoadFile_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "targte = \"/x\"\n"},
		{name: "bad console", content: "console = \"genesis\"\n"},
		{name: "bad storage", content: "storage = \"zip\"\n"},
		{name: "syntax", content: "target = \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			_, err := config.LoadFile(writeConfig(t, tt.content))
			g.Expect(err).To(HaveOccurred())
		})
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := config.LoadFile(filepath.Join(t.TempDir(), "none.toml"))
	g.Expect(err).To(HaveOccurred())
}
