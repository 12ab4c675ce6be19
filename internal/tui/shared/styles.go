package shared

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Layout and timing constants shared by the views.
const (
	DefaultPadding          = 2
	ProgressBarWidth        = 40
	MaxProgressBarWidth     = 100
	ProgressPercentageScale = 100
	TickIntervalMs          = 100

	KeyCtrlC = "ctrl+c"
)

// ANSI 256 palette.
const (
	accentColorCode    = "62"
	dimColorCode       = "240"
	errorColorCode     = "196"
	highlightColorCode = "86"
	primaryColorCode   = "205"
	successColorCode   = "42"
	warningColorCode   = "214"
)

//nolint:gochecknoglobals // Terminal capabilities are process-wide
var (
	colorsDisabled  = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb"
	unicodeDisabled = os.Getenv("TERM") == "dumb"
)

// GetColorsDisabled reports whether styled output is turned off.
func GetColorsDisabled() bool {
	return colorsDisabled
}

// SetColorsDisabledForTesting overrides color detection.
func SetColorsDisabledForTesting(disabled bool) {
	colorsDisabled = disabled
}

func AccentColor() lipgloss.Color    { return lipgloss.Color(accentColorCode) }
func DimColor() lipgloss.Color       { return lipgloss.Color(dimColorCode) }
func ErrorColor() lipgloss.Color     { return lipgloss.Color(errorColorCode) }
func HighlightColor() lipgloss.Color { return lipgloss.Color(highlightColorCode) }
func PrimaryColor() lipgloss.Color   { return lipgloss.Color(primaryColorCode) }
func SuccessColor() lipgloss.Color   { return lipgloss.Color(successColorCode) }
func WarningColor() lipgloss.Color   { return lipgloss.Color(warningColorCode) }

// DimStyle is used for secondary text such as file names and pending steps.
func DimStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(DimColor())
}

func bold(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color).Bold(true)
}

// RenderBox frames a summary block.
func RenderBox(content string) string {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor()).
		Padding(1, DefaultPadding).
		Render(content)
}

func RenderDim(text string) string     { return DimStyle().Render(text) }
func RenderError(text string) string   { return bold(ErrorColor()).Render(text) }
func RenderLabel(text string) string   { return bold(HighlightColor()).Render(text) }
func RenderSuccess(text string) string { return bold(SuccessColor()).Render(text) }
func RenderWarning(text string) string { return bold(WarningColor()).Render(text) }

// RenderTitle renders the header line of a view.
func RenderTitle(text string) string {
	return bold(PrimaryColor()).MarginBottom(1).Render(text)
}

// symbol picks the ASCII fallback on dumb terminals.
func symbol(unicode, ascii string) string {
	if unicodeDisabled {
		return ascii
	}

	return unicode
}

func SuccessSymbol() string { return symbol("✓", "[ok]") }
func ErrorSymbol() string   { return symbol("✗", "[x]") }
func PendingSymbol() string { return symbol("○", "[ ]") }
