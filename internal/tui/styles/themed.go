package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/miseq/internal/engine"
)

// ThemedStyles contains all the lipgloss styles built from a color palette.
type ThemedStyles struct {
	palette *ColorPalette

	// Convenience styles for colors
	Primary   lipgloss.Style
	Secondary lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
	Text      lipgloss.Style

	// Layout
	Header    lipgloss.Style
	Pane      lipgloss.Style
	PaneFocus lipgloss.Style
	PaneTitle lipgloss.Style
	StatusBar lipgloss.Style
	HelpBar   lipgloss.Style
	HelpKey   lipgloss.Style

	// Catalog list
	Group        lipgloss.Style
	Task         lipgloss.Style
	Selected     lipgloss.Style
	StepEmpty    lipgloss.Style
	DetailLabel  lipgloss.Style
	OutputPrefix lipgloss.Style
	OutputStderr lipgloss.Style

	// Messages
	ErrorMsg   lipgloss.Style
	SuccessMsg lipgloss.Style
	WarningMsg lipgloss.Style
	Prompt     lipgloss.Style
}

// NewThemedStyles creates a complete set of styles from a palette.
func NewThemedStyles(p *ColorPalette) *ThemedStyles {
	s := &ThemedStyles{palette: p}

	s.Primary = lipgloss.NewStyle().Foreground(p.Primary)
	s.Secondary = lipgloss.NewStyle().Foreground(p.Secondary)
	s.Warning = lipgloss.NewStyle().Foreground(p.Warning)
	s.Error = lipgloss.NewStyle().Foreground(p.Error)
	s.Muted = lipgloss.NewStyle().Foreground(p.Muted)
	s.Text = lipgloss.NewStyle().Foreground(p.Text)

	s.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary).
		Padding(0, 1)

	s.Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)

	s.PaneFocus = s.Pane.
		BorderForeground(p.Primary)

	s.PaneTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary)

	s.StatusBar = lipgloss.NewStyle().
		Foreground(p.Text).
		Background(p.Surface).
		Padding(0, 1)

	s.HelpBar = lipgloss.NewStyle().
		Foreground(p.Muted).
		Padding(0, 1)

	s.HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Secondary)

	s.Group = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Text)

	s.Task = lipgloss.NewStyle().
		Foreground(p.Text)

	s.Selected = lipgloss.NewStyle().
		Bold(true).
		Reverse(true)

	s.StepEmpty = lipgloss.NewStyle().
		Foreground(p.Muted)

	s.DetailLabel = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Secondary)

	s.OutputPrefix = lipgloss.NewStyle().
		Foreground(p.Muted)

	s.OutputStderr = lipgloss.NewStyle().
		Foreground(p.Warning)

	s.ErrorMsg = lipgloss.NewStyle().
		Foreground(p.Error).
		Bold(true)

	s.SuccessMsg = lipgloss.NewStyle().
		Foreground(p.Secondary).
		Bold(true)

	s.WarningMsg = lipgloss.NewStyle().
		Foreground(p.Warning).
		Bold(true)

	s.Prompt = lipgloss.NewStyle().
		Bold(true).
		Foreground(p.Primary)

	return s
}

// ForTheme builds the styles for a named theme.
func ForTheme(name string) *ThemedStyles {
	return NewThemedStyles(GetPalette(ThemeName(name)))
}

// StatusColor returns the color for a task phase.
func (s *ThemedStyles) StatusColor(phase engine.Phase) lipgloss.Color {
	p := s.palette
	switch phase {
	case engine.PhaseQueued:
		return p.StatusQueued
	case engine.PhaseRunning:
		return p.StatusRunning
	case engine.PhaseSucceeded:
		return p.StatusSucceeded
	case engine.PhaseFailed:
		return p.StatusFailed
	case engine.PhaseCancelled:
		return p.StatusCancelled
	default:
		return p.StatusIdle
	}
}

// Status returns the style for a task phase.
func (s *ThemedStyles) Status(phase engine.Phase) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.StatusColor(phase))
}

// StepColor returns the color for a step number (1-based).
func (s *ThemedStyles) StepColor(step int) lipgloss.Color {
	colors := s.palette.Steps
	if step < 1 || len(colors) == 0 {
		return s.palette.Muted
	}
	return colors[(step-1)%len(colors)]
}

// Step returns the bold style for a step number.
func (s *ThemedStyles) Step(step int) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(s.StepColor(step))
}

// RunState returns the style for the aggregate run state.
func (s *ThemedStyles) RunState(state engine.State) lipgloss.Style {
	switch state {
	case engine.StateRunning:
		return s.Status(engine.PhaseRunning).Bold(true)
	case engine.StateCancelling, engine.StateCancelled:
		return s.Status(engine.PhaseCancelled).Bold(true)
	case engine.StateCompleted:
		return s.Status(engine.PhaseSucceeded).Bold(true)
	case engine.StateFailed:
		return s.Status(engine.PhaseFailed).Bold(true)
	default:
		return s.Muted
	}
}
