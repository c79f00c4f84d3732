// Package tui provides a live terminal view of the integrity manifest.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles for the display.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/habib-here/Secure-File-Integrity-Monitor/pkg/integrity/manifest"
)

// Color palette for the TUI.
var (
	// Primary colors
	primaryColor = lipgloss.Color("#7D56F4")
	accentColor  = lipgloss.Color("#00D9FF")

	// Status colors
	successColor = lipgloss.Color("#28A745")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#DC3545")

	// Neutral colors
	mutedColor  = lipgloss.Color("#666666")
	borderColor = lipgloss.Color("#333333")
)

// Text styles.
var (
	// titleStyle for the header bar.
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// mutedTextStyle for less important text.
	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// errorTextStyle for error messages.
	errorTextStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	// followStyle marks the live-follow indicator.
	followStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	// digestStyle for digest columns.
	digestStyle = lipgloss.NewStyle().
			Foreground(accentColor)

	// timeStyle for record timestamps.
	timeStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// dividerStyle creates horizontal dividers.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Event kind styles.
var (
	createdStyle = lipgloss.NewStyle().
			Foreground(successColor)

	modifiedStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	deletedStyle = lipgloss.NewStyle().
			Foreground(dangerColor)

	downloadedStyle = lipgloss.NewStyle().
			Foreground(accentColor)
)

// Key hint styles.
var (
	// keyStyle for keyboard key hints.
	keyStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	// keyDescStyle for key descriptions.
	keyDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// kindStyle returns the style for an event kind.
func kindStyle(kind manifest.EventKind) lipgloss.Style {
	switch kind {
	case manifest.KindCreated:
		return createdStyle
	case manifest.KindModified:
		return modifiedStyle
	case manifest.KindDeleted:
		return deletedStyle
	case manifest.KindDownloaded:
		return downloadedStyle
	default:
		return mutedTextStyle
	}
}

// renderDivider creates a horizontal divider line.
func renderDivider(width int) string {
	return dividerStyle.Render(repeatChar('─', width))
}

// repeatChar repeats a character n times.
func repeatChar(char rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = char
	}
	return string(result)
}

// truncatePath truncates a path to fit within maxLen, preserving the end.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return path[:maxLen]
	}
	return "..." + path[len(path)-(maxLen-3):]
}
