package shared

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/gamesync/pkg/fileops"
)

// TickMsg refreshes the elapsed time while the engine is quiet.
type TickMsg time.Time

// TickCmd schedules the next TickMsg.
func TickCmd() tea.Cmd {
	return tea.Tick(TickIntervalMs*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// NewProgressModel returns a bar in the accent colors. Callers render the
// percentage themselves.
func NewProgressModel(width int) progress.Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = width

	if !colorsDisabled {
		bar.EmptyColor = dimColorCode
		bar.FullColor = accentColorCode
	}

	return bar
}

// RenderASCIIProgress draws "[=======>     ] 45%" for terminals without color.
func RenderASCIIProgress(percent float64, width int) string {
	percent = min(max(percent, 0), 1)
	filled := int(percent * float64(width))

	var bar string

	switch {
	case filled >= width:
		bar = strings.Repeat("=", width)
	case percent == 0:
		bar = strings.Repeat(" ", width)
	default:
		head := max(filled-1, 0)
		bar = strings.Repeat("=", head) + ">" + strings.Repeat(" ", width-head-1)
	}

	return fmt.Sprintf("[%s] %d%%", bar, int(percent*ProgressPercentageScale))
}

// RenderProgress uses the styled bar, or ASCII when colors are disabled.
func RenderProgress(model progress.Model, percent float64) string {
	if colorsDisabled {
		return RenderASCIIProgress(percent, model.Width)
	}

	return model.ViewAs(percent)
}

// RenderTransfer renders an upload: the bar, a byte counter with rate and
// time left, and the file being sent.
func RenderTransfer(model progress.Model, p fileops.Progress) string {
	stats := fmt.Sprintf("%s / %s  %s  %s",
		FormatBytes(p.BytesDone), FormatBytes(p.BytesTotal), FormatRate(p.BytesPerSecond), FormatDuration(p.Elapsed))

	if remaining := p.BytesTotal - p.BytesDone; remaining > 0 && p.BytesPerSecond > 0 {
		eta := time.Duration(float64(remaining) / p.BytesPerSecond * float64(time.Second))
		stats += "  " + FormatDuration(eta) + " left"
	}

	lines := []string{RenderProgress(model, p.Percent()), stats}

	if p.CurrentFile != "" {
		file := p.CurrentFile
		if p.FileSize > 0 {
			file += fmt.Sprintf(" (%s / %s)", FormatBytes(p.FileDone), FormatBytes(p.FileSize))
		}

		lines = append(lines, RenderDim(file))
	}

	return strings.Join(lines, "\n")
}
