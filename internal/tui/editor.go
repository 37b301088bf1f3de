package tui

import (
	"fmt"
	"os/exec"

	"github.com/mattn/go-shellwords"
)

// editorCommand builds the command that opens target. editor is a command
// line such as "code --wait" or "vim"; target is appended as the last
// argument.
func editorCommand(editor, target string) (*exec.Cmd, error) {
	args, err := shellwords.Parse(editor)
	if err != nil {
		return nil, fmt.Errorf("invalid editor command %q: %w", editor, err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("no editor configured")
	}
	args = append(args, target)
	return exec.Command(args[0], args[1:]...), nil
}
