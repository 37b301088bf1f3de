package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/miseq/internal/dispatch"
	"github.com/Iron-Ham/miseq/internal/engine"
	"github.com/Iron-Ham/miseq/internal/util"
)

// Layout constants
const (
	ListMinWidth = 28 // Minimum catalog pane width
	ListMaxWidth = 48 // Maximum catalog pane width
	paneChrome   = 4  // border (2) + horizontal padding (2)
	chromeRows   = 5  // header + toast/prompt + help bar + pane borders (2)
)

// layout holds the pane sizes derived from the window size.
type layout struct {
	listWidth  int
	rightWidth int
	bodyHeight int
}

func (m Model) layout() layout {
	lw := min(max(m.width/3, ListMinWidth), ListMaxWidth)
	rw := max(m.width-lw-2*paneChrome, 10)
	bh := max(m.height-chromeRows, 3)
	return layout{listWidth: lw, rightWidth: rw, bodyHeight: bh}
}

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading…"
	}

	l := m.layout()
	var body string
	if m.mode == modeHelp {
		body = m.renderHelp(l)
	} else {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(l), m.renderRight(l))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderMessage(),
		m.renderHelpBar(),
	)
}

func (m Model) renderHeader() string {
	s := m.styles
	parts := []string{s.Header.Render("miseq")}

	sess := m.snap.Session
	switch {
	case sess == nil:
		parts = append(parts, s.Muted.Render(fmt.Sprintf("%d tasks", m.snap.Tasks())))
	case sess.State.Active():
		progress := fmt.Sprintf("%s %d/%d %s", m.spinner.View(), sess.Index+1, sess.Total, sess.Current.Path)
		if sess.Kind == engine.KindSequence {
			progress = fmt.Sprintf("step %d · %s", sess.Step, progress)
		}
		parts = append(parts, s.RunState(sess.State).Render(sess.State.String()), progress)
	default:
		parts = append(parts, s.RunState(sess.State).Render(outcomeText(sess)))
	}
	if m.snap.PendingReload {
		parts = append(parts, s.Warning.Render("reload pending"))
	}
	return strings.Join(parts, "  ")
}

// outcomeText describes a finished session.
func outcomeText(sess *engine.SessionView) string {
	o := sess.Outcome
	switch o.State {
	case engine.StateCompleted:
		return fmt.Sprintf("completed %d tasks in %s", sess.Total, sess.Finished.Sub(sess.Started).Round(100*time.Millisecond))
	case engine.StateFailed:
		if o.Err != nil {
			return fmt.Sprintf("failed to start %s: %v", o.Task, o.Err)
		}
		if o.Step > 0 {
			return fmt.Sprintf("failed at step %d: %s (exit %d)", o.Step, o.Task, o.Code)
		}
		return fmt.Sprintf("failed: %s (exit %d)", o.Task, o.Code)
	case engine.StateCancelled:
		return fmt.Sprintf("cancelled: %s", o.Task)
	default:
		return o.State.String()
	}
}

func (m Model) renderList(l layout) string {
	s := m.styles
	visible := l.bodyHeight - 1
	items := m.snap.Items

	start := 0
	if m.snap.Selected >= 0 && len(items) > visible {
		start = min(max(m.snap.Selected-visible/2, 0), len(items)-visible)
	}
	end := min(start+visible, len(items))

	lines := []string{s.PaneTitle.Render("Tasks")}
	if len(items) == 0 {
		lines = append(lines, s.Muted.Render("no tasks found"))
	}
	for i := start; i < end; i++ {
		lines = append(lines, m.renderItem(items[i], i == m.snap.Selected, l.listWidth-2))
	}

	return s.Pane.Width(l.listWidth).Height(l.bodyHeight).Render(strings.Join(lines, "\n"))
}

// renderItem renders one catalog row: step columns, status glyph, then the
// indented name.
func (m Model) renderItem(it dispatch.Item, selected bool, width int) string {
	s := m.styles

	var b strings.Builder
	for step := 1; step <= m.snap.Steps; step++ {
		if assigned(it.Steps, step) {
			b.WriteString(s.Step(step).Render(strconv.Itoa(step)))
		} else {
			b.WriteString(s.StepEmpty.Render("·"))
		}
	}
	b.WriteString(" ")
	b.WriteString(m.glyph(it))
	b.WriteString(" ")

	name := strings.Repeat("  ", max(it.Depth-1, 0)) + it.Name
	if !it.IsTask() {
		name += catalogSuffix
	}
	room := width - m.snap.Steps - 3
	if room > 0 {
		name = util.Truncate(name, room)
	}
	switch {
	case selected:
		b.WriteString(s.Selected.Render(name))
	case it.IsTask():
		b.WriteString(s.Task.Render(name))
	default:
		b.WriteString(s.Group.Render(name))
	}
	return b.String()
}

// catalogSuffix marks group rows.
const catalogSuffix = "/"

func (m Model) glyph(it dispatch.Item) string {
	if !it.IsTask() {
		return " "
	}
	st := m.styles.Status(it.Status.Phase)
	switch it.Status.Phase {
	case engine.PhaseQueued:
		return st.Render("○")
	case engine.PhaseRunning:
		return st.Render("●")
	case engine.PhaseSucceeded:
		return st.Render("✓")
	case engine.PhaseFailed:
		return st.Render("✗")
	case engine.PhaseCancelled:
		return st.Render("⊘")
	default:
		return " "
	}
}

func assigned(steps []int, step int) bool {
	for _, s := range steps {
		if s == step {
			return true
		}
	}
	return false
}

func (m Model) renderRight(l layout) string {
	s := m.styles
	var title, content string
	if m.showDetails {
		title = "Details"
		content = m.renderDetails(l.rightWidth)
	} else {
		title = "Output"
		if sess := m.snap.Session; sess != nil && sess.Output.Start() > 0 {
			title += s.Muted.Render(fmt.Sprintf("  (%d earlier lines dropped)", sess.Output.Start()))
		}
		if m.snap.Session == nil {
			content = s.Muted.Render("assign tasks with 1-9 and press enter to run")
		} else {
			content = m.output.View()
		}
	}
	pane := s.Pane
	if m.snap.Busy() && !m.showDetails {
		pane = s.PaneFocus
	}
	return pane.Width(l.rightWidth + 2).Height(l.bodyHeight).
		Render(s.PaneTitle.Render(title) + "\n" + content)
}

// renderOutput formats output lines tagged with their step and task.
func (m Model) renderOutput(lines []engine.OutputLine) string {
	s := m.styles
	width := m.output.Width
	var b strings.Builder
	for i, ln := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		tag := ln.Task
		if ln.Step > 0 {
			tag = strconv.Itoa(ln.Step) + " " + tag
		}
		b.WriteString(s.OutputPrefix.Render("[" + tag + "] "))
		text := ln.Text
		if width > 0 {
			text = util.Truncate(text, width-lipgloss.Width(tag)-3)
		}
		if ln.Stream == engine.Stderr {
			text = s.OutputStderr.Render(text)
		}
		b.WriteString(text)
	}
	return b.String()
}

func (m Model) renderDetails(width int) string {
	s := m.styles
	it, ok := m.snap.SelectedItem()
	switch {
	case !ok || !it.IsTask():
		return s.Muted.Render("select a task to see its details")
	case m.details == nil:
		return s.Muted.Render("loading…")
	case m.details.err != nil:
		return s.ErrorMsg.Render(m.details.err.Error())
	}

	lines := m.details.info.Summary()
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		label, value, found := strings.Cut(line, ":")
		if !found {
			out = append(out, line)
			continue
		}
		out = append(out, s.DetailLabel.Render(label+":")+value)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(out, "\n"))
}

// renderMessage shows the active prompt, or the latest toast.
func (m Model) renderMessage() string {
	s := m.styles
	switch m.mode {
	case modeRename:
		return m.input.View()
	case modeConfirmDelete:
		return s.WarningMsg.Render(fmt.Sprintf("delete task %s? (y/n)", m.target))
	}
	if m.toast == "" {
		return ""
	}
	switch m.toastKind {
	case toastError:
		return s.ErrorMsg.Render(m.toast)
	case toastWarn:
		return s.WarningMsg.Render(m.toast)
	default:
		return s.SuccessMsg.Render(m.toast)
	}
}

func (m Model) renderHelpBar() string {
	s := m.styles
	var parts []string
	for _, b := range m.keys.shortHelp() {
		parts = append(parts, helpEntry(s.HelpKey, b))
	}
	return s.HelpBar.Render(strings.Join(parts, "  "))
}

func (m Model) renderHelp(l layout) string {
	s := m.styles
	var cols []string
	for _, group := range m.keys.fullHelp() {
		var rows []string
		for _, b := range group {
			rows = append(rows, helpEntry(s.HelpKey, b))
		}
		cols = append(cols, strings.Join(rows, "\n"))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, spaced(cols)...)
	return s.Pane.Width(l.listWidth + l.rightWidth + paneChrome).Height(l.bodyHeight).
		Render(s.PaneTitle.Render("Keys") + "\n" + body)
}

func helpEntry(keyStyle lipgloss.Style, b key.Binding) string {
	h := b.Help()
	return keyStyle.Render(h.Key) + " " + h.Desc
}

func spaced(cols []string) []string {
	out := make([]string, 0, 2*len(cols))
	for i, c := range cols {
		if i > 0 {
			out = append(out, "    ")
		}
		out = append(out, c)
	}
	return out
}
