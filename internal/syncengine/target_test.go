//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package syncengine_test

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/spf13/afero"

	"github.com/joe/gamesync/internal/capacity"
	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/pkg/remote"
)

const syncRoot = "/var/lib/hakchi/games"

// hakchiShell answers the commands a restricted hakchi shell would, by substring.
type hakchiShell struct {
	mu       sync.Mutex
	answers  map[string]string
	failing  []string
	commands []string
	stdins   map[string]string
}

func newHakchiShell() *hakchiShell {
	return &hakchiShell{
		answers: map[string]string{
			"echo ok":                    "ok\n",
			"hakchi get gamepath":        "/var/games\n",
			"hakchi get rootfs":          "/var/lib/hakchi/rootfs\n",
			"hakchi get squashfs":        "/var/squashfs\n",
			"hakchi findGameSyncStorage": "/var/lib/hakchi/games\n",
			"df -k":                      "/dev/mapper/root-crypt 200000 100000 100000 50% /var/lib\n",
			"du -sk":                     "2048\t/var/lib/hakchi/games\n",
		},
		stdins: map[string]string{},
	}
}

func (s *hakchiShell) Execute(_ context.Context, command string, stdin io.Reader, stdout, _ io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.commands = append(s.commands, command)

	if stdin != nil {
		data, _ := io.ReadAll(stdin)
		s.stdins[command] = string(data)
	}

	for _, f := range s.failing {
		if strings.Contains(command, f) {
			return &remote.CommandError{Command: command, ExitStatus: 1}
		}
	}

	for key, answer := range s.answers {
		if strings.Contains(command, key) && stdout != nil {
			_, _ = io.WriteString(stdout, answer)
		}
	}

	return nil
}

func (s *hakchiShell) ran(fragment string) bool {
	return s.index(fragment) >= 0
}

// index returns the position of the first command containing fragment, or -1.
func (s *hakchiShell) index(fragment string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.commands {
		if strings.Contains(c, fragment) {
			return i
		}
	}

	return -1
}

func newDeviceTarget(sh *hakchiShell, opts syncengine.DeviceOptions) *syncengine.DeviceTarget {
	return syncengine.NewDeviceTarget(remote.NewDevice(sh, remote.ConsoleSNESUSA, nil), opts)
}

func TestDeviceTarget_PrepareAndAvailable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{})

	g.Expect(target.Local()).To(BeFalse())
	g.Expect(target.Prepare(context.Background())).To(Succeed())
	g.Expect(target.Name()).To(Equal("device:" + syncRoot))

	available, err := target.Available(context.Background())
	g.Expect(err).ToNot(HaveOccurred())

	// free + synced games (saves are measured with the same du answer but not counted)
	g.Expect(available).To(Equal(capacity.RemoteAvailable(100000*1024, 2048*1024)))
}

func TestDeviceTarget_SyncRootOverride(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{SyncRoot: "/media/games"})

	g.Expect(target.Prepare(context.Background())).To(Succeed())
	g.Expect(target.Name()).To(Equal("device:/media/games"))
	g.Expect(sh.ran("findGameSyncStorage")).To(BeFalse())
}

func TestDeviceTarget_SeparateStorageSyncsIntoConsoleDir(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	target := newDeviceTarget(newHakchiShell(), syncengine.DeviceOptions{SeparateStorage: true})

	g.Expect(target.Prepare(context.Background())).To(Succeed())
	g.Expect(target.Name()).To(Equal("device:" + syncRoot + "/snes-usa"))
}

func TestDeviceTarget_TransportSelectedOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{})
	g.Expect(target.Prepare(context.Background())).To(Succeed())

	first, err := target.Transport(context.Background())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(first.Name()).To(Equal("archive"))

	second, err := target.Transport(context.Background())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(second).To(BeIdenticalTo(first))
}

func TestDeviceTarget_CleanWhenAsked(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		opts     syncengine.DeviceOptions
		cleaned  bool
		fragment string
	}{
		{"no clean", syncengine.DeviceOptions{}, false, ""},
		{"shared storage", syncengine.DeviceOptions{CleanStorage: true}, true, "grep -Ee"},
		{"separate storage", syncengine.DeviceOptions{CleanStorage: true, SeparateStorage: true}, true, "grep -vEe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			sh := newHakchiShell()
			target := newDeviceTarget(sh, tt.opts)
			g.Expect(target.Prepare(context.Background())).To(Succeed())

			g.Expect(target.Clean(context.Background())).To(Succeed())
			g.Expect(sh.ran("maxdepth 1")).To(Equal(tt.cleaned))
			g.Expect(sh.ran("umount")).To(BeFalse())

			if tt.cleaned {
				g.Expect(sh.ran(tt.fragment)).To(BeTrue())
			}
		})
	}
}

func TestDeviceTarget_BeforeTransferReleasesAndCreatesRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{})
	g.Expect(target.Prepare(context.Background())).To(Succeed())

	g.Expect(target.BeforeTransfer(context.Background())).To(Succeed())
	g.Expect(sh.index("umount")).To(BeNumerically("<", sh.index("mkdir -p "+syncRoot)))
}

func TestDeviceTarget_RestoreOnlyAfterRelease(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{})
	g.Expect(target.Prepare(context.Background())).To(Succeed())

	target.Restore(context.Background())
	g.Expect(sh.ran("overmount_games")).To(BeFalse())

	sh.failing = []string{"umount"}
	g.Expect(target.BeforeTransfer(context.Background())).ToNot(Succeed())

	target.Restore(context.Background())
	g.Expect(sh.ran("overmount_games")).To(BeTrue())
}

func TestDeviceTarget_BeforeTransferFailure(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	sh := newHakchiShell()
	sh.failing = []string{"umount"}

	err := newDeviceTarget(sh, syncengine.DeviceOptions{}).BeforeTransfer(context.Background())
	g.Expect(err).To(MatchError(ContainSubstring("release games mount")))
}

// TestEngine_DeviceRunOverArchive drives a whole run against a restricted
// shell, so uploads travel as one tar stream.
func TestEngine_DeviceRunOverArchive(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	afs := afero.NewMemMapFs()
	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{})

	engine := syncengine.NewEngine(newTree(g, afs), target, syncengine.Options{
		DeviceConfig: map[string]string{"ui_theme": "dark"},
	})

	result, err := engine.Run(context.Background())
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(result.Transport).To(Equal("archive"))
	g.Expect(result.FilesUploaded).To(BeNumerically(">", 0))
	g.Expect(result.RelinkErr).ToNot(HaveOccurred())

	g.Expect(sh.ran("tar -xC " + syncRoot)).To(BeTrue())
	g.Expect(sh.ran("ln -s")).To(BeTrue())
	g.Expect(sh.ran("overmount_games")).To(BeTrue())

	sh.mu.Lock()
	defer sh.mu.Unlock()

	g.Expect(sh.stdins["sh"]).To(Equal("hakchi config ui_theme dark\n"))
	g.Expect(sh.stdins["tar -xC "+syncRoot]).To(ContainSubstring("CLV-H-AAAAA.sfrom"))
}

func TestEngine_DeviceCleansStorageBeforeListing(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	afs := afero.NewMemMapFs()
	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{CleanStorage: true})

	_, err := syncengine.NewEngine(newTree(g, afs), target, syncengine.Options{}).Run(context.Background())
	g.Expect(err).ToNot(HaveOccurred())

	clean := sh.index("rm -rf \"$f\"")
	list := sh.index("stat -c")

	g.Expect(clean).To(BeNumerically(">=", 0))
	g.Expect(list).To(BeNumerically(">=", 0))
	g.Expect(clean).To(BeNumerically("<", list))
	g.Expect(sh.commands[clean]).To(ContainSubstring("grep -vxF -e " + syncRoot + " |"))
}

func TestEngine_DeviceDryRunLeavesDeviceAlone(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	afs := afero.NewMemMapFs()
	sh := newHakchiShell()
	target := newDeviceTarget(sh, syncengine.DeviceOptions{CleanStorage: true})

	result, err := syncengine.NewEngine(newTree(g, afs), target, syncengine.Options{DryRun: true}).
		Run(context.Background())
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.DryRun).To(BeTrue())

	for _, fragment := range []string{"mkdir", "rm -rf", "umount", "overmount_games", "uistart", "tar -x"} {
		g.Expect(sh.ran(fragment)).To(BeFalse(), fragment)
	}
}

func TestEngine_DeviceRelinkFailureIsReported(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	afs := afero.NewMemMapFs()
	sh := newHakchiShell()
	sh.failing = []string{"ln -s"}

	result, err := syncengine.NewEngine(newTree(g, afs), newDeviceTarget(sh, syncengine.DeviceOptions{}),
		syncengine.Options{}).Run(context.Background())

	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(result.RelinkErr).To(MatchError(syncengine.ErrRelinkFailed))
	g.Expect(sh.ran("overmount_games")).To(BeTrue())
}
