package tui

import (
	"github.com/Iron-Ham/miseq/internal/mise"
)

// stateMsg signals that the dispatcher published a new snapshot.
type stateMsg struct{}

// actionMsg reports the result of a dispatcher operation. note is shown
// as a toast on success.
type actionMsg struct {
	action string
	note   string
	err    error
}

// detailsMsg carries the mise detail for the task at path.
type detailsMsg struct {
	path string
	info mise.Info
	err  error
}

// editMsg asks the model to open target in the editor.
type editMsg struct {
	target string
}

// editorDoneMsg is sent when the editor process exits.
type editorDoneMsg struct {
	err error
}
