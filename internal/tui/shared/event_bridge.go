package shared

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gamesync/internal/syncengine"
)

// EngineEventMsg wraps a syncengine.Event for use as a tea.Msg.
type EngineEventMsg struct {
	Event syncengine.Event
}

// StreamClosedMsg is delivered once the engine has emitted its last event.
type StreamClosedMsg struct{}

// EventBridge adapts syncengine events to bubble tea messages.
// It implements syncengine.EventEmitter on top of a syncengine.Stream, so
// progress is dropped when the UI falls behind and nothing else is.
type EventBridge struct {
	stream *syncengine.Stream
}

// NewEventBridge creates a new event bridge.
func NewEventBridge() *EventBridge {
	return &EventBridge{stream: syncengine.NewStream(syncengine.DefaultStreamBuffer)}
}

// Emit implements syncengine.EventEmitter.
func (b *EventBridge) Emit(event syncengine.Event) {
	b.stream.Emit(event)
}

// ListenCmd returns a tea.Cmd that blocks until an event is received.
// Use this in Init() or after processing an event to continue listening.
func (b *EventBridge) ListenCmd() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-b.stream.Events()
		if !ok {
			return StreamClosedMsg{}
		}

		return EngineEventMsg{Event: event}
	}
}

// Close ends the stream. Call this once the engine has returned.
func (b *EventBridge) Close() {
	b.stream.Close()
}

// Drain discards events until the stream is closed, so the engine never
// blocks on a UI that has stopped listening.
func (b *EventBridge) Drain() {
	for range b.stream.Events() { //nolint:revive // discarding is the point
	}
}
