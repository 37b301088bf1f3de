package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the key bindings of the main view.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Step     key.Binding
	Run      key.Binding
	RunOne   key.Binding
	Stop     key.Binding
	Clear    key.Binding
	Dismiss  key.Binding
	Details  key.Binding
	Edit     key.Binding
	Rename   key.Binding
	Copy     key.Binding
	Save     key.Binding
	Delete   key.Binding
	Refresh  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Step: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "toggle step"),
		),
		Run: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run sequence"),
		),
		RunOne: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "run task"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear steps"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "dismiss run"),
		),
		Details: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "details"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Rename: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rename"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy command"),
		),
		Save: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "save as task"),
		),
		Delete: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete task"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("pgup", "scroll up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("pgdn", "scroll down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shortHelp is the one-line help shown in the footer.
func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.Step, k.Run, k.RunOne, k.Stop, k.Details, k.Help, k.Quit}
}

// fullHelp groups every binding into columns for the help overlay.
func (k keyMap) fullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Details},
		{k.Step, k.Clear, k.Run, k.RunOne, k.Stop, k.Dismiss},
		{k.Edit, k.Rename, k.Delete, k.Copy, k.Save, k.Refresh},
		{k.Help, k.Quit},
	}
}
