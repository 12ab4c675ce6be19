package menu

import "fmt"

// CopyMode selects how games are laid out.
type CopyMode int

// CopyMode values.
const (
	// ModeExport writes every game in full into each menu directory of a local export.
	ModeExport CopyMode = iota
	// ModeLinkedExport stores each payload once under StorageDir of a local export.
	ModeLinkedExport
	// ModeSync writes every game in full into each menu directory on a device.
	ModeSync
	// ModeLinkedSync stores each payload once under StorageDir on a device.
	ModeLinkedSync
)

// StorageDir holds shared game payloads in linked modes.
const StorageDir = ".storage"

// Linked reports whether payloads are shared.
func (m CopyMode) Linked() bool {
	return m == ModeLinkedExport || m == ModeLinkedSync
}

// String returns the mode name.
func (m CopyMode) String() string {
	switch m {
	case ModeExport:
		return "export"
	case ModeLinkedExport:
		return "linked-export"
	case ModeSync:
		return "sync"
	case ModeLinkedSync:
		return "linked-sync"
	default:
		return fmt.Sprintf("CopyMode(%d)", int(m))
	}
}

// ModeFor returns the mode for a local export or a device sync.
func ModeFor(local, linked bool) CopyMode {
	switch {
	case local && linked:
		return ModeLinkedExport
	case local:
		return ModeExport
	case linked:
		return ModeLinkedSync
	default:
		return ModeSync
	}
}
