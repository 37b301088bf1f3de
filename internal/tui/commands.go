package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/dispatch"
	"github.com/Iron-Ham/miseq/internal/mise"
)

// Controller is the part of the dispatcher the TUI drives.
// *dispatch.Dispatcher implements it.
type Controller interface {
	Snapshot() *dispatch.Snapshot
	MoveNext() (bool, error)
	MovePrevious() (bool, error)
	ToggleStep(p catalog.Path, step int) error
	ClearAssignments() error
	StartSequence() error
	StartSingle(p catalog.Path) error
	Stop() (bool, error)
	Dismiss() error
	Rename(ctx context.Context, p catalog.Path, newName string) error
	Reload(ctx context.Context) error
	Describe(ctx context.Context, p catalog.Path) (mise.Info, error)
	Delete(ctx context.Context, p catalog.Path) error
	AddSequenceAsTask(ctx context.Context) (string, error)
	CommandLine() (string, error)
}

var _ Controller = (*dispatch.Dispatcher)(nil)

// toastDuration is how long a status message stays visible.
const toastDuration = 4 * time.Second

// toastExpiredMsg clears the toast with the matching sequence number.
type toastExpiredMsg struct{ seq int }

// waitForUpdate blocks until the dispatcher signals a new snapshot. The
// model re-issues it after every stateMsg.
func waitForUpdate(updates <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-updates; !ok {
			return nil
		}
		return stateMsg{}
	}
}

func expireToast(seq int) tea.Cmd {
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

// do runs a dispatcher operation off the update goroutine.
func do(action string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: action, err: fn()}
	}
}

func moveCmd(c Controller, forward bool) tea.Cmd {
	return do("move", func() error {
		var err error
		if forward {
			_, err = c.MoveNext()
		} else {
			_, err = c.MovePrevious()
		}
		return err
	})
}

func stopCmd(c Controller) tea.Cmd {
	return func() tea.Msg {
		stopped, err := c.Stop()
		msg := actionMsg{action: "stop", err: err}
		if err == nil && stopped {
			msg.note = "stopping…"
		}
		return msg
	}
}

func renameCmd(ctx context.Context, c Controller, p catalog.Path, name string) tea.Cmd {
	return func() tea.Msg {
		err := c.Rename(ctx, p, name)
		return actionMsg{action: "rename", note: "renamed to " + name, err: err}
	}
}

func reloadCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{action: "refresh", note: "tasks reloaded", err: c.Reload(ctx)}
	}
}

func deleteCmd(ctx context.Context, c Controller, p catalog.Path) tea.Cmd {
	return func() tea.Msg {
		err := c.Delete(ctx, p)
		return actionMsg{action: "delete", note: "deleted " + p.String(), err: err}
	}
}

func addSequenceCmd(ctx context.Context, c Controller) tea.Cmd {
	return func() tea.Msg {
		name, err := c.AddSequenceAsTask(ctx)
		return actionMsg{action: "save", note: "saved as task " + name, err: err}
	}
}

func copyCmd(c Controller, write func(string) error) tea.Cmd {
	return func() tea.Msg {
		line, err := c.CommandLine()
		if err == nil {
			err = write(line)
		}
		return actionMsg{action: "copy", note: "copied: " + line, err: err}
	}
}

func describeCmd(ctx context.Context, c Controller, p catalog.Path) tea.Cmd {
	return func() tea.Msg {
		info, err := c.Describe(ctx, p)
		return detailsMsg{path: p.String(), info: info, err: err}
	}
}

// editTargetCmd resolves the file to open for p. Groups and tasks whose
// detail cannot be read open the project directory.
func editTargetCmd(ctx context.Context, c Controller, p catalog.Path, isTask bool) tea.Cmd {
	return func() tea.Msg {
		if !isTask {
			return editMsg{target: "."}
		}
		info, err := c.Describe(ctx, p)
		if err != nil {
			return editMsg{target: "."}
		}
		return editMsg{target: info.EditPath()}
	}
}

func openEditor(editor, target string) tea.Cmd {
	cmd, err := editorCommand(editor, target)
	if err != nil {
		return func() tea.Msg { return editorDoneMsg{err: err} }
	}
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorDoneMsg{err: err}
	})
}
