package engine

import (
	"context"
	"time"

	"github.com/Iron-Ham/miseq/internal/catalog"
)

// Kind distinguishes a full sequence run from a single task run.
type Kind int

const (
	KindSequence Kind = iota
	KindSingle
)

func (k Kind) String() string {
	if k == KindSingle {
		return "single"
	}
	return "sequence"
}

// Entry is one queued task execution. Step is 0 for single-task runs.
type Entry struct {
	Step int
	Task catalog.NodeID
	Ref  string // mise task name
	Path string // catalog path, used to tag output
}

// Outcome describes how a terminal session ended. For StateCompleted only
// State is set.
type Outcome struct {
	State State
	Step  int
	Task  string
	Code  int
	Err   error
}

// Session is the single run slot. It outlives its terminal outcome until it
// is dismissed or replaced by a new run.
type Session struct {
	ID       string
	Kind     Kind
	State    State
	Queue    []Entry
	Index    int // Position of the running (or last run) entry in Queue
	Started  time.Time
	Finished time.Time
	Outcome  Outcome
	Output   *Output

	seq    int
	cancel context.CancelFunc
}

// Current returns the entry at Index.
func (s *Session) Current() (Entry, bool) {
	if s.Index < 0 || s.Index >= len(s.Queue) {
		return Entry{}, false
	}
	return s.Queue[s.Index], true
}

// Step returns the step of the current entry.
func (s *Session) Step() int {
	e, _ := s.Current()
	return e.Step
}

// SessionView is an immutable copy of a Session for readers outside the
// owning goroutine.
type SessionView struct {
	ID       string
	Kind     Kind
	State    State
	Step     int
	Index    int
	Total    int
	Current  Entry
	Started  time.Time
	Finished time.Time
	Outcome  Outcome
	Output   OutputView
}

func (s *Session) view() *SessionView {
	cur, _ := s.Current()
	return &SessionView{
		ID:       s.ID,
		Kind:     s.Kind,
		State:    s.State,
		Step:     cur.Step,
		Index:    s.Index,
		Total:    len(s.Queue),
		Current:  cur,
		Started:  s.Started,
		Finished: s.Finished,
		Outcome:  s.Outcome,
		Output:   s.Output.View(),
	}
}
