// Package tui renders a sync run, either as a bubbletea view or as plain
// progress lines when no terminal is attached.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gamesync/internal/syncengine"
	"github.com/joe/gamesync/internal/tui/shared"
)

// Options configures Run.
type Options struct {
	// Target names the destination in the header.
	Target string
	// Emitters also receive every engine event.
	Emitters []syncengine.EventEmitter
	// ProgramOptions are passed to tea.NewProgram.
	ProgramOptions []tea.ProgramOption
}

// Run executes engine under the terminal UI and returns its result once the
// program has shown the summary.
func Run(ctx context.Context, engine *syncengine.Engine, opts Options) (*syncengine.SyncResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bridge := shared.NewEventBridge()
	engine.SetEventEmitter(syncengine.Multi(append(opts.Emitters, bridge)...))

	type outcome struct {
		result *syncengine.SyncResult
		err    error
	}

	finished := make(chan outcome, 1)

	go func() {
		result, err := engine.Run(ctx)
		bridge.Close()
		finished <- outcome{result, err}
	}()

	_, uiErr := tea.NewProgram(NewModel(bridge, cancel, opts.Target), opts.ProgramOptions...).Run()
	if uiErr != nil {
		cancel()
	}

	// After a normal quit the stream is already closed; after a crash nobody
	// reads it any more.
	go bridge.Drain()

	done := <-finished

	if uiErr != nil && done.err == nil {
		return done.result, fmt.Errorf("terminal UI failed: %w", uiErr)
	}

	return done.result, done.err
}
