package event

import "time"

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "run.started", "task.finished")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeRunStarted     = "run.started"
	TypeRunFinished    = "run.finished"
	TypeTaskStarted    = "task.started"
	TypeTaskFinished   = "task.finished"
	TypeOutputAppended = "output.appended"
	TypeCatalogChanged = "catalog.changed"
	TypeStateChanged   = "state.changed"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Run Lifecycle Events
// -----------------------------------------------------------------------------

// RunStartedEvent is emitted when a sequence or single-task run begins.
type RunStartedEvent struct {
	baseEvent
	SessionID string // Unique identifier for the run session
	Kind      string // "sequence" or "single"
	Tasks     int    // Number of queued tasks
}

// NewRunStartedEvent creates a RunStartedEvent.
func NewRunStartedEvent(sessionID, kind string, tasks int) RunStartedEvent {
	return RunStartedEvent{
		baseEvent: newBaseEvent(TypeRunStarted),
		SessionID: sessionID,
		Kind:      kind,
		Tasks:     tasks,
	}
}

// RunFinishedEvent is emitted when a run reaches a terminal outcome.
// Step, Task and ExitCode describe the task that decided the outcome and are
// zero for a completed run.
type RunFinishedEvent struct {
	baseEvent
	SessionID string
	Outcome   string // "completed", "failed" or "cancelled"
	Step      int
	Task      string
	ExitCode  int
	Err       string // Spawn error text, if any
}

// NewRunFinishedEvent creates a RunFinishedEvent.
func NewRunFinishedEvent(sessionID, outcome string, step int, task string, exitCode int, errText string) RunFinishedEvent {
	return RunFinishedEvent{
		baseEvent: newBaseEvent(TypeRunFinished),
		SessionID: sessionID,
		Outcome:   outcome,
		Step:      step,
		Task:      task,
		ExitCode:  exitCode,
		Err:       errText,
	}
}

// Succeeded reports whether the run completed without failure or cancellation.
func (e RunFinishedEvent) Succeeded() bool {
	return e.Outcome == "completed"
}

// -----------------------------------------------------------------------------
// Task Events
// -----------------------------------------------------------------------------

// TaskStartedEvent is emitted when a task's process is launched.
type TaskStartedEvent struct {
	baseEvent
	SessionID string
	Task      string // Catalog path of the task
	Step      int    // 0 for single-task runs
}

// NewTaskStartedEvent creates a TaskStartedEvent.
func NewTaskStartedEvent(sessionID, task string, step int) TaskStartedEvent {
	return TaskStartedEvent{
		baseEvent: newBaseEvent(TypeTaskStarted),
		SessionID: sessionID,
		Task:      task,
		Step:      step,
	}
}

// TaskFinishedEvent is emitted when a task's process exits or fails to spawn.
type TaskFinishedEvent struct {
	baseEvent
	SessionID string
	Task      string
	Step      int
	ExitCode  int    // -1 when the process could not be spawned
	Outcome   string // "succeeded", "failed" or "cancelled"
}

// NewTaskFinishedEvent creates a TaskFinishedEvent.
func NewTaskFinishedEvent(sessionID, task string, step, exitCode int, outcome string) TaskFinishedEvent {
	return TaskFinishedEvent{
		baseEvent: newBaseEvent(TypeTaskFinished),
		SessionID: sessionID,
		Task:      task,
		Step:      step,
		ExitCode:  exitCode,
		Outcome:   outcome,
	}
}

// OutputAppendedEvent is emitted for every line a running task writes.
type OutputAppendedEvent struct {
	baseEvent
	SessionID string
	Task      string
	Step      int
	Stream    string // "stdout" or "stderr"
	Text      string
	Offset    int // Absolute offset of the line in the run output
}

// NewOutputAppendedEvent creates an OutputAppendedEvent.
func NewOutputAppendedEvent(sessionID, task string, step int, stream, text string, offset int) OutputAppendedEvent {
	return OutputAppendedEvent{
		baseEvent: newBaseEvent(TypeOutputAppended),
		SessionID: sessionID,
		Task:      task,
		Step:      step,
		Stream:    stream,
		Text:      text,
		Offset:    offset,
	}
}

// -----------------------------------------------------------------------------
// Catalog and State Events
// -----------------------------------------------------------------------------

// CatalogChangedEvent is emitted when the task tree is rebuilt or edited.
type CatalogChangedEvent struct {
	baseEvent
	Reason string // "reload", "rename" or "delete"
	Tasks  int    // Number of tasks in the catalog afterwards
}

// NewCatalogChangedEvent creates a CatalogChangedEvent.
func NewCatalogChangedEvent(reason string, tasks int) CatalogChangedEvent {
	return CatalogChangedEvent{
		baseEvent: newBaseEvent(TypeCatalogChanged),
		Reason:    reason,
		Tasks:     tasks,
	}
}

// StateChangedEvent is emitted after every applied dispatcher message.
// Version increases monotonically; subscribers fetch the snapshot it names.
type StateChangedEvent struct {
	baseEvent
	Version uint64
}

// NewStateChangedEvent creates a StateChangedEvent.
func NewStateChangedEvent(version uint64) StateChangedEvent {
	return StateChangedEvent{
		baseEvent: newBaseEvent(TypeStateChanged),
		Version:   version,
	}
}
