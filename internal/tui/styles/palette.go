package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// ThemeName represents a named color theme.
type ThemeName string

// Available theme names.
const (
	ThemeDefault ThemeName = "default" // Purple/green dark theme
	ThemeMono    ThemeName = "mono"    // Grayscale, for terminals with poor color support
)

// BuiltinThemes returns all built-in theme names.
func BuiltinThemes() []string {
	return []string{
		string(ThemeDefault),
		string(ThemeMono),
	}
}

// IsValidTheme checks if a theme name is a built-in theme.
func IsValidTheme(name string) bool {
	return slices.Contains(BuiltinThemes(), name)
}

// ColorPalette defines the color scheme for a theme.
// All colors should meet WCAG AA contrast requirements (4.5:1 ratio).
type ColorPalette struct {
	// Primary accent color (used for emphasis, active elements)
	Primary lipgloss.Color
	// Secondary accent color (used for key hints, success states)
	Secondary lipgloss.Color
	// Warning color (used for cancellation, attention-needed states)
	Warning lipgloss.Color
	// Error color (used for errors, failures)
	Error lipgloss.Color
	// Muted color (used for de-emphasized text)
	Muted lipgloss.Color
	// Surface color (used for the status bar background)
	Surface lipgloss.Color
	// Text color (primary text)
	Text lipgloss.Color
	// Border color (panel borders)
	Border lipgloss.Color

	// Task status colors
	StatusIdle      lipgloss.Color
	StatusQueued    lipgloss.Color
	StatusRunning   lipgloss.Color
	StatusSucceeded lipgloss.Color
	StatusFailed    lipgloss.Color
	StatusCancelled lipgloss.Color

	// Steps cycles through these colors by step number.
	Steps []lipgloss.Color
}

// DefaultPalette returns the default purple/green dark theme palette.
func DefaultPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#A78BFA"), // Purple (violet-400)
		Secondary: lipgloss.Color("#10B981"), // Green
		Warning:   lipgloss.Color("#F59E0B"), // Amber
		Error:     lipgloss.Color("#F87171"), // Red (red-400)
		Muted:     lipgloss.Color("#9CA3AF"), // Gray
		Surface:   lipgloss.Color("#1F2937"), // Dark surface
		Text:      lipgloss.Color("#F9FAFB"), // Light text
		Border:    lipgloss.Color("#6B7280"), // Gray-500

		StatusIdle:      lipgloss.Color("#6B7280"), // Gray-500
		StatusQueued:    lipgloss.Color("#60A5FA"), // Blue
		StatusRunning:   lipgloss.Color("#FBBF24"), // Yellow
		StatusSucceeded: lipgloss.Color("#10B981"), // Green
		StatusFailed:    lipgloss.Color("#F87171"), // Red
		StatusCancelled: lipgloss.Color("#FB923C"), // Orange

		Steps: []lipgloss.Color{
			lipgloss.Color("#60A5FA"), // Blue
			lipgloss.Color("#F472B6"), // Pink
			lipgloss.Color("#34D399"), // Emerald
			lipgloss.Color("#FBBF24"), // Yellow
			lipgloss.Color("#A78BFA"), // Purple
			lipgloss.Color("#FB923C"), // Orange
		},
	}
}

// MonoPalette returns a grayscale palette using the basic ANSI colors.
func MonoPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("15"),
		Secondary: lipgloss.Color("15"),
		Warning:   lipgloss.Color("7"),
		Error:     lipgloss.Color("15"),
		Muted:     lipgloss.Color("8"),
		Surface:   lipgloss.Color("0"),
		Text:      lipgloss.Color("15"),
		Border:    lipgloss.Color("8"),

		StatusIdle:      lipgloss.Color("8"),
		StatusQueued:    lipgloss.Color("7"),
		StatusRunning:   lipgloss.Color("15"),
		StatusSucceeded: lipgloss.Color("7"),
		StatusFailed:    lipgloss.Color("15"),
		StatusCancelled: lipgloss.Color("7"),

		Steps: []lipgloss.Color{lipgloss.Color("15")},
	}
}

// GetPalette returns the palette for a theme, falling back to the default.
func GetPalette(name ThemeName) *ColorPalette {
	switch name {
	case ThemeMono:
		return MonoPalette()
	default:
		return DefaultPalette()
	}
}
