package ui

import "github.com/charmbracelet/lipgloss"

// Terminal palette: a single lime accent over grays, after asitop's
// monitor look.
const (
	ColorLime     = "154" // accent (#AFFF00)
	ColorLimeDim  = "106" // inactive accent, dividers
	ColorWhite    = "255" // highlighted values
	ColorGray     = "245" // labels
	ColorDarkGray = "238" // de-emphasized text
	ColorRed      = "196" // errors
	ColorYellow   = "220" // warnings
)

// Styles bundles the lipgloss styles for report and watch rendering.
type Styles struct {
	Header  lipgloss.Style
	Ready   lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style

	Border    lipgloss.Style
	Sparkline lipgloss.Style
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// DefaultStyles returns the colored styles for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:  fg(ColorLime).Bold(true),
		Ready:   fg(ColorLime),
		Warning: fg(ColorYellow),
		Error:   fg(ColorRed),
		Dim:     fg(ColorDarkGray),
		Label:   fg(ColorGray),
		Value:   fg(ColorWhite).Bold(true),

		Border:    fg(ColorLimeDim),
		Sparkline: fg(ColorLime),
	}
}

// NoColorStyles returns pass-through styles for plain mode.
func NoColorStyles() Styles {
	none := lipgloss.NewStyle()
	return Styles{
		Header: none, Ready: none, Warning: none, Error: none,
		Dim: none, Label: none, Value: none,
		Border: none, Sparkline: none,
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
