package syncengine

import "sync"

// DefaultStreamBuffer is the channel capacity of a Stream.
const DefaultStreamBuffer = 100

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f.
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

// Multi fans events out to several emitters in order. Nil emitters are skipped.
func Multi(emitters ...EventEmitter) EventEmitter {
	return EmitterFunc(func(event Event) {
		for _, e := range emitters {
			if e != nil {
				e.Emit(event)
			}
		}
	})
}

// Stream delivers events to one subscriber over a channel in emission order.
// Progress events are dropped when the subscriber falls behind; every other
// event waits for room so none is lost.
type Stream struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

// NewStream returns a stream with the given buffer; 0 means DefaultStreamBuffer.
func NewStream(buffer int) *Stream {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}

	return &Stream{ch: make(chan Event, buffer)}
}

// Emit implements EventEmitter.
func (s *Stream) Emit(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if _, progress := event.(TransferProgress); progress {
		select {
		case s.ch <- event:
		default:
		}

		return
	}

	s.ch <- event
}

// Events returns the receive side.
func (s *Stream) Events() <-chan Event {
	return s.ch
}

// Close ends the stream. Emits after Close are ignored.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}
