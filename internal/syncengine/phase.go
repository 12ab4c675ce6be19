package syncengine

// Phase is a state of the sync state machine.
type Phase int

// Phases in the order a successful run visits them, followed by the two
// terminal failure states.
const (
	PhaseStart Phase = iota
	PhaseBuildTree
	PhaseCapacityCheck
	PhaseListTarget
	PhaseDiff
	PhaseDeleteStale
	PhaseTransfer
	PhaseRelink
	PhasePersistConfig
	PhaseDone
	PhaseAbort
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseStart:         "start",
	PhaseBuildTree:     "build-tree",
	PhaseCapacityCheck: "capacity-check",
	PhaseListTarget:    "list-target",
	PhaseDiff:          "diff",
	PhaseDeleteStale:   "delete-stale",
	PhaseTransfer:      "transfer",
	PhaseRelink:        "relink",
	PhasePersistConfig: "persist-config",
	PhaseDone:          "done",
	PhaseAbort:         "abort",
	PhaseError:         "error",
}

// String returns the phase name.
func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}

	return "unknown"
}

// Terminal reports whether no further transitions follow.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseAbort || p == PhaseError
}
