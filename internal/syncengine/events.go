package syncengine

import (
	"time"

	"github.com/joe/gamesync/pkg/fileops"
)

// Event is the interface implemented by all sync engine events.
type Event interface {
	isEvent()
}

// EventEmitter is the interface for emitting events.
type EventEmitter interface {
	Emit(event Event)
}

// PhaseChanged is emitted on every state transition.
type PhaseChanged struct {
	Phase Phase
}

func (PhaseChanged) isEvent() {}

// Build phase events

// TreeBuilt is emitted once the menu tree has been flattened.
type TreeBuilt struct {
	Menus     int
	Games     int
	TotalSize int64
}

func (TreeBuilt) isEvent() {}

// CapacityChecked is emitted after the capacity guard, whether it passed or not.
type CapacityChecked struct {
	Required  int64
	Available int64
	OK        bool
}

func (CapacityChecked) isEvent() {}

// Compare phase events

// TargetListed is emitted when the target listing is complete.
type TargetListed struct {
	Transport string
	Files     int
	Bytes     int64
}

func (TargetListed) isEvent() {}

// PlanComputed is emitted when the diff is known.
type PlanComputed struct {
	Plan *SyncPlan
}

func (PlanComputed) isEvent() {}

// SyncPlan summarizes what a run will change.
type SyncPlan struct {
	FilesToUpload  int
	FilesToDelete  int
	FilesProtected int
	BytesToUpload  int64
	BytesToDelete  int64

	// FilesUnchanged are desired files already present with the same signature.
	FilesUnchanged int
	BytesUnchanged int64
}

// Mutation phase events

// DeleteComplete is emitted after stale entries were removed.
type DeleteComplete struct {
	Files int
	Bytes int64
}

func (DeleteComplete) isEvent() {}

// TransferStarted is emitted when uploading begins.
type TransferStarted struct {
	Transport string
	Files     int
	Bytes     int64
}

func (TransferStarted) isEvent() {}

// TransferProgress is emitted at most every fileops.ProgressInterval during upload.
type TransferProgress struct {
	Progress fileops.Progress
}

func (TransferProgress) isEvent() {}

// TransferComplete is emitted when every byte has been acknowledged.
type TransferComplete struct {
	Files    int
	Bytes    int64
	Duration time.Duration
}

func (TransferComplete) isEvent() {}

// Finalize phase events

// RelinkComplete is emitted after original games were relinked. Err is non-nil
// when at least one link failed; the run continues regardless.
type RelinkComplete struct {
	Games int
	Err   error
}

func (RelinkComplete) isEvent() {}

// ConfigPersisted is emitted after the device configuration was pushed.
type ConfigPersisted struct {
	Keys int
}

func (ConfigPersisted) isEvent() {}

// SyncComplete is emitted when the run finishes, successfully or not.
type SyncComplete struct {
	Result *SyncResult
}

func (SyncComplete) isEvent() {}

// SyncResult contains the results of a run.
type SyncResult struct {
	Transport     string
	Plan          *SyncPlan
	FilesUploaded int
	BytesUploaded int64
	FilesDeleted  int
	Duration      time.Duration
	DryRun        bool

	// RelinkErr is set when relinking failed; the run still succeeded.
	RelinkErr error
	// Err is the error that ended the run, if any.
	Err error
}

// Error events

// ErrorOccurred is emitted when an error ends the run.
type ErrorOccurred struct {
	Phase Phase
	Err   error
}

func (ErrorOccurred) isEvent() {}
