// Package ui renders terminal output for the concierge CLI.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/josephgoksu/concierge/internal/task"
)

var (
	// Colors
	ColorPrimary   = lipgloss.Color("205") // Pink
	ColorSecondary = lipgloss.Color("241") // Gray
	ColorSuccess   = lipgloss.Color("42")  // Green
	ColorError     = lipgloss.Color("160") // Red
	ColorWarning   = lipgloss.Color("214") // Orange/Yellow
	ColorText      = lipgloss.Color("252") // White/Gray
	ColorCyan      = lipgloss.Color("87")
	ColorBlue      = lipgloss.Color("75")

	StyleTitle   = lipgloss.NewStyle().Foreground(ColorText).Bold(true)
	StyleSubtle  = lipgloss.NewStyle().Foreground(ColorSecondary)
	StylePrimary = lipgloss.NewStyle().Foreground(ColorPrimary)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleText    = lipgloss.NewStyle().Foreground(ColorText)

	StyleHeader = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true).
			Padding(0, 1)

	// Chat transcript
	StyleOperator = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	StyleUser     = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleSystem   = lipgloss.NewStyle().Foreground(ColorSecondary).Italic(true)

	// Form overlay box
	StyleFormBox = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(0, 1)
)

// Icon returns a styled icon string
func Icon(icon string, style lipgloss.Style) string {
	return style.Render(icon)
}

// StatusStyle picks the color for a task status.
func StatusStyle(s task.Status) lipgloss.Style {
	switch s {
	case task.StatusDone:
		return StyleSuccess
	case task.StatusInProgress:
		return StylePrimary
	case task.StatusCancelled:
		return StyleSubtle
	default:
		return StyleWarning
	}
}

// StatusIcon is a one-glyph marker for a task status.
func StatusIcon(s task.Status) string {
	switch s {
	case task.StatusDone:
		return "✓"
	case task.StatusInProgress:
		return "●"
	case task.StatusCancelled:
		return "✗"
	default:
		return "○"
	}
}
