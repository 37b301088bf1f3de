// Package util provides terminal text helpers shared by the TUI and the
// headless runner.
package util

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// Truncate shortens s to at most width terminal columns, ending it with
// Ellipsis when anything was cut. Escape sequences are preserved and wide
// characters are measured by the columns they occupy.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	if width == 1 {
		return Ellipsis
	}
	return ansi.Truncate(s, width, Ellipsis)
}

// StripANSI removes escape sequences, for output written without colors.
// Tasks run with FORCE_COLOR keep their colors even when piped.
func StripANSI(s string) string {
	return ansi.Strip(s)
}
