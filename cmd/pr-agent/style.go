package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// isTTY mirrors pkg/logger's terminal detection: style codes are only
// worth emitting when something will actually render them.
var isTTY = isatty.IsTerminal(os.Stderr.Fd())

var (
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5F5F"})
	infoStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.AdaptiveColor{Light: "#006B8F", Dark: "#5FD7FF"})
)

func applyStyle(style lipgloss.Style, text string) string {
	if isTTY {
		return style.Render(text)
	}
	return text
}

func formatErrorMessage(message string) string {
	return applyStyle(errorStyle, "✗ ") + message
}

func formatInfoMessage(message string) string {
	return applyStyle(infoStyle, "ℹ ") + message
}
