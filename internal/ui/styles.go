// Package ui renders CLI output. Styling is applied only when stdout is a
// terminal; pipes and files get plain text.
package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Report palette, one shade per terminal background.
var (
	colorAccent = lipgloss.AdaptiveColor{Light: "57", Dark: "141"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "244", Dark: "243"}
	colorPass   = lipgloss.AdaptiveColor{Light: "28", Dark: "42"}
	colorFail   = lipgloss.AdaptiveColor{Light: "124", Dark: "203"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "130", Dark: "214"}
	colorNote   = lipgloss.AdaptiveColor{Light: "25", Dark: "81"}
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true)
	StyleSubtle  = lipgloss.NewStyle().Foreground(colorMuted)
	StyleSuccess = lipgloss.NewStyle().Foreground(colorPass)
	StyleError   = lipgloss.NewStyle().Foreground(colorFail)
	StyleWarning = lipgloss.NewStyle().Foreground(colorWarn)

	// StyleHeader frames feature and graph titles.
	StyleHeader = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorMuted)

	StyleSectionTitle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	styleTableHeader = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleTableRule   = lipgloss.NewStyle().Foreground(colorMuted)

	styleBarDone = lipgloss.NewStyle().Foreground(colorPass)
	styleBarLeft = lipgloss.NewStyle().Foreground(colorMuted)
)

// severityStyles colors issue severities.
var severityStyles = map[validation.Severity]lipgloss.Style{
	validation.SeverityCritical: lipgloss.NewStyle().Foreground(colorFail).Bold(true).Reverse(true),
	validation.SeverityError:    lipgloss.NewStyle().Foreground(colorFail),
	validation.SeverityWarning:  lipgloss.NewStyle().Foreground(colorWarn),
	validation.SeverityInfo:     lipgloss.NewStyle().Foreground(colorNote),
}

func severityStyle(s validation.Severity) lipgloss.Style {
	if st, ok := severityStyles[s]; ok {
		return st
	}
	return StyleSubtle
}

// verdict returns the label and style for a document decision.
func verdict(valid bool) (string, lipgloss.Style) {
	if valid {
		return "VALID", StyleSuccess.Bold(true)
	}
	return "INVALID", StyleError.Bold(true)
}
