package fileops

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// ProgressInterval is the minimum wall time between forwarded progress updates.
const ProgressInterval = 100 * time.Millisecond

// Progress is one transfer status update.
type Progress struct {
	BytesDone      int64
	BytesTotal     int64
	CurrentFile    string
	BytesPerSecond float64
	Elapsed        time.Duration

	// FileDone and FileSize describe CurrentFile when the transport reports per-file progress.
	FileDone int64
	FileSize int64
}

// Percent returns completion in the range 0..1.
func (p Progress) Percent() float64 {
	if p.BytesTotal <= 0 {
		return 0
	}

	return float64(p.BytesDone) / float64(p.BytesTotal)
}

// ProgressFunc receives throttled progress updates.
type ProgressFunc func(Progress)

// Throttle turns a high-frequency byte counter into at most one ProgressFunc
// call per interval. Update is called from the goroutine doing the I/O and
// never blocks beyond the forwarded callback.
type Throttle struct {
	clock    clockwork.Clock
	interval time.Duration
	total    int64
	emit     ProgressFunc

	mu    sync.Mutex
	start time.Time
	last  time.Time
	done  bool

	file       string
	fileOffset int64
	fileSize   int64
}

// NewThrottle returns a throttle for a transfer of total bytes. A nil clock
// uses the real clock; a nil emit discards updates.
func NewThrottle(clock clockwork.Clock, total int64, emit ProgressFunc) *Throttle {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	now := clock.Now()

	return &Throttle{
		clock:    clock,
		interval: ProgressInterval,
		total:    total,
		emit:     emit,
		start:    now,
		last:     now,
	}
}

// StartFile marks the start of name, which begins at aggregate offset and is size bytes long.
func (t *Throttle) StartFile(name string, offset, size int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.file = name
	t.fileOffset = offset
	t.fileSize = size
}

// Update reports bytesSoFar. It is forwarded only when the interval elapsed
// since the last forwarded update.
func (t *Throttle) Update(bytesSoFar int64, currentFile string) {
	t.mu.Lock()

	now := t.clock.Now()
	if t.done || now.Sub(t.last) < t.interval {
		t.mu.Unlock()
		return
	}

	t.last = now
	progress := t.progressAt(now, bytesSoFar, currentFile)
	t.mu.Unlock()

	if t.emit != nil {
		t.emit(progress)
	}
}

// Finish forwards a final update unconditionally and stops further updates.
func (t *Throttle) Finish(bytesSoFar int64) {
	t.mu.Lock()
	t.done = true
	progress := t.progressAt(t.clock.Now(), bytesSoFar, "")
	t.mu.Unlock()

	if t.emit != nil {
		t.emit(progress)
	}
}

// Callback adapts the throttle to the per-file ProgressCallback shape.
func (t *Throttle) Callback() ProgressCallback {
	return func(bytesTransferred, _ int64, currentFile string) {
		t.Update(bytesTransferred, currentFile)
	}
}

func (t *Throttle) progressAt(now time.Time, bytesSoFar int64, currentFile string) Progress {
	elapsed := now.Sub(t.start)

	var rate float64
	if seconds := elapsed.Seconds(); seconds > 0 {
		rate = float64(bytesSoFar) / seconds
	}

	progress := Progress{
		BytesDone:      bytesSoFar,
		BytesTotal:     t.total,
		CurrentFile:    currentFile,
		BytesPerSecond: rate,
		Elapsed:        elapsed,
	}

	if currentFile != "" && currentFile == t.file {
		progress.FileDone = bytesSoFar - t.fileOffset
		progress.FileSize = t.fileSize
	}

	return progress
}
