package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joe/gamesync/internal/syncengine"
)

func ActiveSymbol() string    { return symbol("◉", "[*]") }
func CancelledSymbol() string { return symbol("⊘", "[!]") }

// TimelineStep is one entry of the header timeline. Several engine phases may
// share a step.
type TimelineStep struct {
	Name   string
	Phases []syncengine.Phase
}

// TimelineSteps lists the header steps in order.
func TimelineSteps() []TimelineStep {
	return []TimelineStep{
		{"Build", []syncengine.Phase{syncengine.PhaseStart, syncengine.PhaseBuildTree}},
		{"Capacity", []syncengine.Phase{syncengine.PhaseCapacityCheck}},
		{"Compare", []syncengine.Phase{syncengine.PhaseListTarget, syncengine.PhaseDiff}},
		{"Transfer", []syncengine.Phase{syncengine.PhaseDeleteStale, syncengine.PhaseTransfer}},
		{"Finalize", []syncengine.Phase{syncengine.PhaseRelink, syncengine.PhasePersistConfig}},
		{"Done", []syncengine.Phase{syncengine.PhaseDone}},
	}
}

// StepIndex returns the timeline step holding phase, or -1.
func StepIndex(phase syncengine.Phase) int {
	for i, step := range TimelineSteps() {
		for _, p := range step.Phases {
			if p == phase {
				return i
			}
		}
	}

	return -1
}

// RenderTimeline renders the phase progression for the header.
// Steps before current show ✓, the current one ◉ and later ones ○.
// When failed is set, current shows ✗ and later steps ⊘.
func RenderTimeline(current syncengine.Phase, failed bool) string {
	steps := TimelineSteps()

	currentIdx := StepIndex(current)
	if currentIdx == -1 {
		currentIdx = 0
	}

	parts := make([]string, 0, len(steps))

	for stepIdx, step := range steps {
		var mark string
		var style lipgloss.Style

		switch {
		case failed && stepIdx == currentIdx:
			mark = ErrorSymbol()
			style = lipgloss.NewStyle().Foreground(ErrorColor())
		case failed && stepIdx > currentIdx:
			mark = CancelledSymbol()
			style = DimStyle()
		case stepIdx < currentIdx:
			mark = SuccessSymbol()
			style = lipgloss.NewStyle().Foreground(SuccessColor())
		case stepIdx == currentIdx && currentIdx == len(steps)-1:
			// "Done" shows as complete, not active
			mark = SuccessSymbol()
			style = lipgloss.NewStyle().Foreground(SuccessColor())
		case stepIdx == currentIdx:
			mark = ActiveSymbol()
			style = lipgloss.NewStyle().Foreground(PrimaryColor())
		default:
			mark = PendingSymbol()
			style = DimStyle()
		}

		parts = append(parts, style.Render(mark+" "+step.Name))
	}

	return strings.Join(parts, DimStyle().Render(" ── "))
}
