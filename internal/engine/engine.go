// Package engine runs queued mise tasks one at a time and tracks their
// statuses.
//
// An Engine is a state machine owned by a single goroutine. Task processes
// run on worker goroutines that report back only through Messages; the
// owner feeds those to Handle. At most one Session exists at a time.
package engine

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/event"
	"github.com/Iron-Ham/miseq/internal/logging"
)

// Options configures an Engine.
type Options struct {
	// MaxLines bounds each session's output buffer.
	MaxLines int
	// Bus receives run, task and output events. May be nil.
	Bus *event.Bus
	// Logger receives debug logging. May be nil.
	Logger *logging.Logger
}

// Engine owns the run slot and the per-task statuses.
type Engine struct {
	runner   Runner
	post     func(Message)
	bus      *event.Bus
	logger   *logging.Logger
	maxLines int

	statuses map[catalog.NodeID]Status
	session  *Session
}

// New creates an Engine. post delivers worker messages back to the owning
// goroutine and must be safe to call from any goroutine.
func New(runner Runner, post func(Message), opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	if opts.MaxLines <= 0 {
		opts.MaxLines = 5000
	}
	return &Engine{
		runner:   runner,
		post:     post,
		bus:      opts.Bus,
		logger:   logger.WithComponent("engine"),
		maxLines: opts.MaxLines,
		statuses: make(map[catalog.NodeID]Status),
	}
}

// State returns the aggregate run state.
func (e *Engine) State() State {
	if e.session == nil {
		return StateIdle
	}
	return e.session.State
}

// Busy reports whether a run holds the slot.
func (e *Engine) Busy() bool {
	return e.State().Active()
}

// Status returns the status of a task. Unknown tasks are Idle.
func (e *Engine) Status(id catalog.NodeID) Status {
	return e.statuses[id]
}

// Statuses returns a copy of every non-idle status.
func (e *Engine) Statuses() map[catalog.NodeID]Status {
	return maps.Clone(e.statuses)
}

// Session returns a view of the current session, or nil when idle.
func (e *Engine) Session() *SessionView {
	if e.session == nil {
		return nil
	}
	return e.session.view()
}

// StartSequence runs queue in order, stopping at the first failure.
func (e *Engine) StartSequence(queue []Entry) error {
	return e.start(KindSequence, queue)
}

// StartSingle runs one task outside the sequence, as step 0.
func (e *Engine) StartSingle(entry Entry) error {
	entry.Step = 0
	return e.start(KindSingle, []Entry{entry})
}

func (e *Engine) start(kind Kind, queue []Entry) error {
	if e.Busy() {
		return errors.NewSessionError("start "+kind.String(), errors.ErrBusy).WithSessionID(e.session.ID)
	}
	if len(queue) == 0 {
		return errors.NewSessionError("start "+kind.String(), errors.ErrNothingToRun)
	}

	clear(e.statuses)
	for _, entry := range queue {
		if _, seen := e.statuses[entry.Task]; !seen {
			e.statuses[entry.Task] = Status{Phase: PhaseQueued, Step: entry.Step}
		}
	}

	e.session = &Session{
		ID:      uuid.NewString(),
		Kind:    kind,
		State:   StateRunning,
		Queue:   append([]Entry(nil), queue...),
		Started: time.Now(),
		Output:  NewOutput(e.maxLines),
	}
	e.logger.WithSession(e.session.ID).Info("run started", "kind", kind.String(), "tasks", len(queue))
	e.publish(event.NewRunStartedEvent(e.session.ID, kind.String(), len(queue)))

	e.launch()
	return nil
}

// launch spawns the entry at session.Index on a worker goroutine.
func (e *Engine) launch() {
	s := e.session
	entry := s.Queue[s.Index]
	s.seq++

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	e.statuses[entry.Task] = Status{Phase: PhaseRunning, Step: entry.Step}

	e.logger.WithSession(s.ID).WithTask(entry.Path).Info("task started", "step", entry.Step, "ref", entry.Ref)
	e.publish(event.NewTaskStartedEvent(s.ID, entry.Path, entry.Step))

	id, seq, runner, post := s.ID, s.seq, e.runner, e.post
	go func() {
		code, err := runner.Run(ctx, entry.Ref, func(l Line) {
			post(LineMessage{Session: id, Seq: seq, Line: l})
		})
		post(ExitMessage{Session: id, Seq: seq, Code: code, Err: err})
	}()
}

// Stop asks the running task to terminate. The session stays Cancelling
// until the process exit is reported. It reports whether a stop was issued.
func (e *Engine) Stop() bool {
	s := e.session
	if s == nil || s.State != StateRunning {
		return false
	}
	s.State = StateCancelling
	if s.cancel != nil {
		s.cancel()
	}
	e.logger.WithSession(s.ID).Info("stop requested", "step", s.Step())
	return true
}

// Dismiss clears a finished session so the slot reads Idle. Statuses are
// kept until the next run.
func (e *Engine) Dismiss() error {
	if e.session == nil {
		return nil
	}
	if e.Busy() {
		return errors.NewSessionError("dismiss", errors.ErrBusy).WithSessionID(e.session.ID)
	}
	e.session = nil
	return nil
}

// Handle applies a worker message. Messages from earlier sessions or
// earlier tasks are ignored. It reports whether state changed.
func (e *Engine) Handle(msg Message) bool {
	s := e.session
	if s == nil || !s.State.Active() || msg.sessionID() != s.ID {
		return false
	}

	switch m := msg.(type) {
	case LineMessage:
		if m.Seq != s.seq {
			return false
		}
		entry, _ := s.Current()
		offset := s.Output.Append(entry.Step, entry.Path, m.Line)
		e.publish(event.NewOutputAppendedEvent(s.ID, entry.Path, entry.Step, m.Line.Stream.String(), m.Line.Text, offset))
		return true

	case ExitMessage:
		if m.Seq != s.seq {
			return false
		}
		e.finishTask(m)
		return true
	}
	return false
}

func (e *Engine) finishTask(m ExitMessage) {
	s := e.session
	entry, _ := s.Current()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	log := e.logger.WithSession(s.ID).WithTask(entry.Path)

	switch {
	case s.State == StateCancelling:
		e.statuses[entry.Task] = Status{Phase: PhaseCancelled, Step: entry.Step}
		log.Info("task cancelled", "step", entry.Step, "exit_code", m.Code)
		e.publish(event.NewTaskFinishedEvent(s.ID, entry.Path, entry.Step, m.Code, "cancelled"))
		e.abort(Outcome{
			State: StateCancelled,
			Step:  entry.Step,
			Task:  entry.Path,
			Code:  m.Code,
			Err:   errors.NewTaskError(entry.Path, errors.ErrCancelled).WithStep(entry.Step),
		})

	case m.Err != nil || m.Code != 0:
		code := m.Code
		cause := m.Err
		if cause != nil {
			code = -1
		} else {
			cause = errors.ErrNonZeroExit
		}
		e.statuses[entry.Task] = Status{Phase: PhaseFailed, Step: entry.Step, Code: code}
		log.Warn("task failed", "step", entry.Step, "exit_code", code, "error", cause.Error())
		e.publish(event.NewTaskFinishedEvent(s.ID, entry.Path, entry.Step, code, "failed"))
		e.abort(Outcome{
			State: StateFailed,
			Step:  entry.Step,
			Task:  entry.Path,
			Code:  code,
			Err:   errors.NewTaskError(entry.Path, cause).WithStep(entry.Step).WithExitCode(code),
		})

	default:
		e.statuses[entry.Task] = Status{Phase: PhaseSucceeded, Step: entry.Step}
		log.Info("task succeeded", "step", entry.Step)
		e.publish(event.NewTaskFinishedEvent(s.ID, entry.Path, entry.Step, 0, "succeeded"))

		if s.Index+1 < len(s.Queue) {
			s.Index++
			e.launch()
			return
		}
		e.end(Outcome{State: StateCompleted})
	}
}

// abort ends the session early. Tasks that never started go back to Idle.
func (e *Engine) abort(out Outcome) {
	s := e.session
	for _, entry := range s.Queue[s.Index+1:] {
		if e.statuses[entry.Task].Phase == PhaseQueued {
			delete(e.statuses, entry.Task)
		}
	}
	e.end(out)
}

func (e *Engine) end(out Outcome) {
	s := e.session
	s.State = out.State
	s.Outcome = out
	s.Finished = time.Now()

	errText := ""
	if out.Err != nil {
		errText = out.Err.Error()
	}
	e.logger.WithSession(s.ID).Info("run finished",
		"outcome", out.State.String(),
		"step", out.Step,
		"task", out.Task,
		"duration", s.Finished.Sub(s.Started).String())
	e.publish(event.NewRunFinishedEvent(s.ID, out.State.String(), out.Step, out.Task, out.Code, errText))
}

// Remap rewrites status keys after the catalog is rebuilt, dropping tasks
// that no longer exist. It is a no-op while a run is active.
func (e *Engine) Remap(fn func(old catalog.NodeID) (catalog.NodeID, bool)) {
	if e.Busy() {
		return
	}
	next := make(map[catalog.NodeID]Status, len(e.statuses))
	for id, st := range e.statuses {
		if nid, ok := fn(id); ok {
			next[nid] = st
		}
	}
	e.statuses = next
	if e.session != nil {
		for i, entry := range e.session.Queue {
			if nid, ok := fn(entry.Task); ok {
				e.session.Queue[i].Task = nid
			} else {
				e.session.Queue[i].Task = -1
			}
		}
	}
}

// Relabel refreshes the mise names and paths of queued entries after a
// rename. lookup returns the current Ref and path of a task. The running
// entry keeps its Ref because its process already started; its path is
// updated so output and the outcome are tagged with the new name.
func (e *Engine) Relabel(lookup func(id catalog.NodeID) (ref, path string, ok bool)) {
	s := e.session
	if s == nil {
		return
	}
	for i, entry := range s.Queue {
		ref, path, ok := lookup(entry.Task)
		if !ok {
			continue
		}
		s.Queue[i].Path = path
		if i > s.Index {
			s.Queue[i].Ref = ref
		}
	}
}

// Shutdown cancels any running task without waiting for it.
func (e *Engine) Shutdown() {
	if s := e.session; s != nil && s.cancel != nil {
		s.cancel()
	}
}

func (e *Engine) publish(ev event.Event) {
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}
