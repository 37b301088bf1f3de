package engine

import "context"

// Runner executes one mise task as a child process.
//
// Run blocks until the process has exited and both output streams have been
// read to EOF, calling onLine for each line as it arrives. onLine may be
// called from more than one goroutine. Cancelling ctx asks the process to
// terminate; Run still returns only after it has exited.
//
// A process that ran reports its exit code with a nil error. A process that
// could not be started reports an error wrapping errors.ErrSpawnFailure.
type Runner interface {
	Run(ctx context.Context, task string, onLine func(Line)) (exitCode int, err error)
}

// Message is a report from a task worker. Workers never touch engine state;
// their messages are applied by Engine.Handle on the owner's goroutine.
type Message interface {
	sessionID() string
}

// LineMessage carries one line of output from the running task.
type LineMessage struct {
	Session string
	Seq     int
	Line    Line
}

// ExitMessage reports that the running task's process is gone.
type ExitMessage struct {
	Session string
	Seq     int
	Code    int
	Err     error
}

func (m LineMessage) sessionID() string { return m.Session }
func (m ExitMessage) sessionID() string { return m.Session }
