package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorAccent = "39"  // blue accent
	colorDim    = "245" // secondary text
	colorError  = "196"
)

// Styles holds the lipgloss styles shared by the TUI renderer.
type Styles struct {
	Header lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
}

// DefaultStyles returns the accent-colored style set.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(colorAccent)),
		Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color(colorDim)),
		Error:  lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)),
	}
}

// NoColorStyles returns a style set with no ANSI color codes, for
// NO_COLOR-respecting output.
func NoColorStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().Bold(true),
		Dim:    lipgloss.NewStyle(),
		Error:  lipgloss.NewStyle(),
	}
}
