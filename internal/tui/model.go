package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/dispatch"
	"github.com/Iron-Ham/miseq/internal/tui/styles"
)

// inputMode selects how key presses are interpreted.
type inputMode int

const (
	modeNormal inputMode = iota
	modeRename
	modeConfirmDelete
	modeHelp
)

// toastKind picks the style of a status message.
type toastKind int

const (
	toastInfo toastKind = iota
	toastWarn
	toastError
)

// Options configures the model.
type Options struct {
	// Theme is a built-in theme name; unknown names use the default theme.
	Theme string
	// Editor is the command line used to open task files.
	Editor string
	// Clipboard writes text to the system clipboard. Defaults to
	// clipboard.WriteAll.
	Clipboard func(string) error
}

// Model is the bubbletea model. It renders dispatcher snapshots and turns
// key presses into dispatcher operations, which always run inside a
// tea.Cmd so Update never waits on the dispatcher.
type Model struct {
	ctx     context.Context
	ctrl    Controller
	updates <-chan struct{}
	styles  *styles.ThemedStyles
	keys    keyMap
	editor  string
	copy    func(string) error

	snap     *dispatch.Snapshot
	width    int
	height   int
	mode     inputMode
	quitting bool

	// Output pane
	output        viewport.Model
	outputSession string
	outputEnd     int

	spinner  spinner.Model
	spinning bool

	// Rename prompt and delete confirmation
	input  textinput.Model
	target catalog.Path

	// Details pane
	showDetails bool
	details     *detailsMsg
	loading     string

	toast     string
	toastKind toastKind
	toastSeq  int
}

// NewModel creates a model driving ctrl. updates receives a value whenever
// the dispatcher publishes a new snapshot.
func NewModel(ctx context.Context, ctrl Controller, updates <-chan struct{}, opts Options) Model {
	write := opts.Clipboard
	if write == nil {
		write = clipboard.WriteAll
	}

	input := textinput.New()
	input.Prompt = "rename: "
	input.CharLimit = 128

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		updates: updates,
		styles:  styles.ForTheme(opts.Theme),
		keys:    defaultKeyMap(),
		editor:  opts.Editor,
		copy:    write,
		snap:    ctrl.Snapshot(),
		output:  viewport.New(0, 0),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		input:   input,
	}
}

// Init starts listening for dispatcher updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), func() tea.Msg { return stateMsg{} })
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case stateMsg:
		return m.handleState()

	case spinner.TickMsg:
		if !m.snap.Busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionMsg:
		if msg.err != nil {
			return m, m.setToast(msg.err.Error(), toastError)
		}
		if msg.note != "" {
			return m, m.setToast(msg.note, toastInfo)
		}
		return m, nil

	case detailsMsg:
		if m.loading == msg.path {
			m.loading = ""
		}
		if it, ok := m.snap.SelectedItem(); ok && it.Path.String() == msg.path {
			m.details = &msg
		}
		return m, nil

	case editMsg:
		return m, openEditor(m.editor, msg.target)

	case editorDoneMsg:
		if msg.err != nil {
			return m, m.setToast("editor: "+msg.err.Error(), toastError)
		}
		return m, reloadCmd(m.ctx, m.ctrl)

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleState() (tea.Model, tea.Cmd) {
	m.snap = m.ctrl.Snapshot()
	m.syncOutput(false)

	cmds := []tea.Cmd{waitForUpdate(m.updates)}
	if m.snap.Busy() && !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	if cmd := m.refreshDetails(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// refreshDetails fetches the detail of the selected task when the details
// pane shows something else.
func (m *Model) refreshDetails() tea.Cmd {
	if !m.showDetails {
		return nil
	}
	it, ok := m.snap.SelectedItem()
	if !ok || !it.IsTask() {
		m.details = nil
		return nil
	}
	p := it.Path.String()
	if (m.details != nil && m.details.path == p) || m.loading == p {
		return nil
	}
	m.details = nil
	m.loading = p
	return describeCmd(m.ctx, m.ctrl, it.Path)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeRename:
		return m.handleRenameKey(msg)
	case modeConfirmDelete:
		return m.handleDeleteKey(msg)
	case modeHelp:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		m.mode = modeNormal
		return m, nil
	}

	it, hasItem := m.snap.SelectedItem()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = modeHelp
		return m, nil

	case key.Matches(msg, m.keys.Up):
		return m, moveCmd(m.ctrl, false)

	case key.Matches(msg, m.keys.Down):
		return m, moveCmd(m.ctrl, true)

	case key.Matches(msg, m.keys.Step):
		step := int(msg.String()[0] - '0')
		if step > m.snap.Steps {
			return m, m.setToast(fmt.Sprintf("only %d steps are configured", m.snap.Steps), toastWarn)
		}
		if !hasItem {
			return m, nil
		}
		return m, do("toggle", func() error { return m.ctrl.ToggleStep(it.Path, step) })

	case key.Matches(msg, m.keys.Run):
		return m, do("run", m.ctrl.StartSequence)

	case key.Matches(msg, m.keys.RunOne):
		if !hasItem || !it.IsTask() {
			return m, m.setToast("select a task to run it", toastWarn)
		}
		return m, do("run", func() error { return m.ctrl.StartSingle(it.Path) })

	case key.Matches(msg, m.keys.Stop):
		return m, stopCmd(m.ctrl)

	case key.Matches(msg, m.keys.Clear):
		return m, do("clear", m.ctrl.ClearAssignments)

	case key.Matches(msg, m.keys.Dismiss):
		return m, do("dismiss", m.ctrl.Dismiss)

	case key.Matches(msg, m.keys.Details):
		m.showDetails = !m.showDetails
		if !m.showDetails {
			m.details = nil
			m.loading = ""
			m.syncOutput(true)
			return m, nil
		}
		return m, m.refreshDetails()

	case key.Matches(msg, m.keys.Edit):
		if !hasItem {
			return m, editTargetCmd(m.ctx, m.ctrl, nil, false)
		}
		return m, editTargetCmd(m.ctx, m.ctrl, it.Path, it.IsTask())

	case key.Matches(msg, m.keys.Rename):
		if !hasItem {
			return m, nil
		}
		m.mode = modeRename
		m.target = it.Path
		m.input.SetValue(it.Name)
		m.input.CursorEnd()
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.Copy):
		return m, copyCmd(m.ctrl, m.copy)

	case key.Matches(msg, m.keys.Save):
		return m, addSequenceCmd(m.ctx, m.ctrl)

	case key.Matches(msg, m.keys.Delete):
		if !hasItem || !it.IsTask() {
			return m, m.setToast("select a task to delete it", toastWarn)
		}
		if m.snap.Busy() {
			return m, m.setToast("cannot delete while a run is active", toastWarn)
		}
		m.mode = modeConfirmDelete
		m.target = it.Path
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		return m, reloadCmd(m.ctx, m.ctrl)

	case key.Matches(msg, m.keys.PageUp):
		m.output.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.output.HalfViewDown()
		return m, nil
	}
	return m, nil
}

func (m Model) handleRenameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = modeNormal
		m.input.Blur()
		name := strings.TrimSpace(m.input.Value())
		if name == "" || name == m.target.Name() {
			return m, nil
		}
		return m, renameCmd(m.ctx, m.ctrl, m.target, name)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleDeleteKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeNormal
	if msg.String() != "y" {
		return m, nil
	}
	return m, deleteCmd(m.ctx, m.ctrl, m.target)
}

func (m *Model) setToast(text string, kind toastKind) tea.Cmd {
	m.toastSeq++
	m.toast = text
	m.toastKind = kind
	return expireToast(m.toastSeq)
}

// resize lays out the output viewport for the current window size.
func (m *Model) resize() {
	l := m.layout()
	m.output.Width = l.rightWidth
	m.output.Height = l.bodyHeight - 1
	if m.output.Height < 1 {
		m.output.Height = 1
	}
	m.syncOutput(true)
}

// syncOutput refreshes the viewport when the run output grew. It keeps the
// view pinned to the bottom unless the user scrolled up.
func (m *Model) syncOutput(force bool) {
	s := m.snap.Session
	if s == nil {
		if m.outputSession != "" || force {
			m.output.SetContent("")
			m.outputSession = ""
			m.outputEnd = 0
		}
		return
	}
	end := s.Output.End()
	if !force && s.ID == m.outputSession && end == m.outputEnd {
		return
	}
	follow := s.ID != m.outputSession || m.output.AtBottom()
	m.output.SetContent(m.renderOutput(s.Output.Lines()))
	if follow {
		m.output.GotoBottom()
	}
	m.outputSession = s.ID
	m.outputEnd = end
}
