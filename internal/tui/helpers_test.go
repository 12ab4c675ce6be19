package tui_test

import (
	"bytes"
	"sync"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers
	"github.com/spf13/afero"

	"github.com/joe/gamesync/internal/capacity"
	"github.com/joe/gamesync/internal/menu"
	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/pkg/transport"
)

const exportRoot = "/export"

func newEngine(g *WithT, free int64) (*syncengine.Engine, afero.Fs) {
	afs := afero.NewMemMapFs()

	for _, code := range []string{"CLV-H-AAAAA", "CLV-H-BBBBB"} {
		dir := "/games/" + code
		g.Expect(afero.WriteFile(afs, dir+"/"+code+".desktop", []byte("[Desktop Entry]\n"), 0o644)).To(Succeed())
		g.Expect(afero.WriteFile(afs, dir+"/"+code+".sfrom", []byte("rom-"+code), 0o644)).To(Succeed())
	}

	tree := menu.NewTree()
	tree.Add(tree.Root(), menu.NewDirGame(afs, "/games/CLV-H-AAAAA", "CLV-H-AAAAA", "A", false))
	tree.Add(tree.Root(), menu.NewDirGame(afs, "/games/CLV-H-BBBBB", "CLV-H-BBBBB", "B", false))

	probe := &capacity.LocalProbe{Disk: func(string) (int64, int64, error) { return free * 2, free, nil }}
	target := syncengine.NewLocalTarget(afs, exportRoot, probe, transport.Options{})

	return syncengine.NewEngine(tree, target, syncengine.Options{}), afs
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []syncengine.Event
}

func (r *recordingEmitter) Emit(event syncengine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

func (r *recordingEmitter) last() syncengine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == 0 {
		return nil
	}

	return r.events[len(r.events)-1]
}

// safeBuffer is written by the bubbletea renderer goroutine.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}
