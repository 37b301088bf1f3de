package engine

import "fmt"

// Phase is the lifecycle position of one task within the latest run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseQueued
	PhaseRunning
	PhaseSucceeded
	PhaseFailed
	PhaseCancelled
)

// String returns a human-readable string for the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseQueued:
		return "queued"
	case PhaseRunning:
		return "running"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Status is the execution status of a task. Step is meaningless for
// PhaseIdle, and Code is only set for PhaseFailed.
type Status struct {
	Phase Phase
	Step  int
	Code  int
}

// Idle is the status of a task that has not run in the current session.
var Idle = Status{}

func (s Status) String() string {
	switch s.Phase {
	case PhaseIdle:
		return "idle"
	case PhaseFailed:
		return fmt.Sprintf("failed(%d, code %d)", s.Step, s.Code)
	default:
		return fmt.Sprintf("%s(%d)", s.Phase, s.Step)
	}
}

// State is the aggregate state of the run slot.
type State int

const (
	// StateIdle means no session exists.
	StateIdle State = iota
	// StateRunning means a task process is active.
	StateRunning
	// StateCancelling means a stop was requested and the process has not exited yet.
	StateCancelling
	// StateCompleted means every queued task succeeded.
	StateCompleted
	// StateFailed means a task failed to spawn or exited nonzero.
	StateFailed
	// StateCancelled means the run was stopped.
	StateCancelled
)

// String returns a human-readable string for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelling:
		return "cancelling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Active reports whether the state holds the run slot.
func (s State) Active() bool {
	return s == StateRunning || s == StateCancelling
}

// Terminal reports whether the state is a finished outcome.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}
