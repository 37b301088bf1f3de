package engine

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/event"
)

// script describes how the fake runner behaves for one task.
type script struct {
	lines    []Line
	code     int
	spawnErr error
	block    bool // wait for cancellation after writing lines
	// stopExit replaces the exit report once cancelled, for tasks that
	// ignore the signal or fail while shutting down.
	stopExit *exitReport
}

type exitReport struct {
	code int
	err  error
}

type fakeRunner struct {
	mu      sync.Mutex
	scripts map[string]script
	started []string
}

func (r *fakeRunner) Run(ctx context.Context, task string, onLine func(Line)) (int, error) {
	r.mu.Lock()
	sc := r.scripts[task]
	r.started = append(r.started, task)
	r.mu.Unlock()

	if sc.spawnErr != nil {
		return -1, sc.spawnErr
	}
	for _, l := range sc.lines {
		onLine(l)
	}
	if sc.block {
		<-ctx.Done()
		if sc.stopExit != nil {
			return sc.stopExit.code, sc.stopExit.err
		}
		return 143, nil
	}
	return sc.code, nil
}

func (r *fakeRunner) Started() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.started...)
}

// harness wires an Engine to a channel and pumps messages on the test
// goroutine, standing in for the dispatcher.
type harness struct {
	t      *testing.T
	engine *Engine
	runner *fakeRunner
	msgs   chan Message
	events []event.Event
}

func newHarness(t *testing.T, scripts map[string]script) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		runner: &fakeRunner{scripts: scripts},
		msgs:   make(chan Message, 256),
	}
	bus := event.NewBus(nil)
	bus.SubscribeAll(func(e event.Event) { h.events = append(h.events, e) })
	h.engine = New(h.runner, func(m Message) { h.msgs <- m }, Options{MaxLines: 100, Bus: bus})
	return h
}

// pump applies messages until cond holds or the deadline passes.
func (h *harness) pump(cond func() bool) {
	h.t.Helper()
	deadline := time.After(5 * time.Second)
	for !cond() {
		select {
		case m := <-h.msgs:
			h.engine.Handle(m)
		case <-deadline:
			h.t.Fatalf("timed out; state=%v", h.engine.State())
		}
	}
}

func (h *harness) settle() {
	h.t.Helper()
	h.pump(func() bool { return !h.engine.Busy() })
}

func entry(step int, id int, name string) Entry {
	return Entry{Step: step, Task: catalog.NodeID(id), Ref: name, Path: name}
}

func TestStartSequence_Completes(t *testing.T) {
	h := newHarness(t, map[string]script{
		"build": {lines: []Line{{Stdout, "compiling"}, {Stdout, "done"}}},
		"test":  {lines: []Line{{Stderr, "ok"}}},
	})

	queue := []Entry{entry(1, 1, "build"), entry(2, 2, "test")}
	if err := h.engine.StartSequence(queue); err != nil {
		t.Fatalf("StartSequence: %v", err)
	}
	if !h.engine.Busy() {
		t.Fatal("engine should be busy after start")
	}
	h.settle()

	if got := h.engine.State(); got != StateCompleted {
		t.Errorf("State() = %v, want completed", got)
	}
	if got := h.engine.Status(1); got != (Status{Phase: PhaseSucceeded, Step: 1}) {
		t.Errorf("build status = %v", got)
	}
	if got := h.engine.Status(2); got != (Status{Phase: PhaseSucceeded, Step: 2}) {
		t.Errorf("test status = %v", got)
	}

	view := h.engine.Session()
	lines := view.Output.Lines()
	if len(lines) != 3 {
		t.Fatalf("expected 3 output lines, got %d", len(lines))
	}
	if lines[2].Task != "test" || lines[2].Step != 2 || lines[2].Stream != Stderr {
		t.Errorf("last line not tagged correctly: %+v", lines[2])
	}
	if view.Outcome.State != StateCompleted || view.Finished.IsZero() {
		t.Errorf("unexpected outcome: %+v", view.Outcome)
	}
}

func TestStartSequence_FailFast(t *testing.T) {
	h := newHarness(t, map[string]script{
		"build":  {},
		"test":   {code: 1},
		"deploy": {},
	})

	queue := []Entry{entry(1, 1, "build"), entry(2, 2, "test"), entry(3, 3, "deploy")}
	if err := h.engine.StartSequence(queue); err != nil {
		t.Fatal(err)
	}
	if got := h.engine.Status(3); got.Phase != PhaseQueued || got.Step != 3 {
		t.Errorf("deploy should be queued for step 3, got %v", got)
	}
	h.settle()

	if got := h.engine.State(); got != StateFailed {
		t.Fatalf("State() = %v, want failed", got)
	}
	if got := h.engine.Status(1); got != (Status{Phase: PhaseSucceeded, Step: 1}) {
		t.Errorf("build = %v, want succeeded(1)", got)
	}
	if got := h.engine.Status(2); got != (Status{Phase: PhaseFailed, Step: 2, Code: 1}) {
		t.Errorf("test = %v, want failed(2, code 1)", got)
	}
	if got := h.engine.Status(3); got != Idle {
		t.Errorf("deploy = %v, want idle", got)
	}
	for _, name := range h.runner.Started() {
		if name == "deploy" {
			t.Error("deploy should never have started")
		}
	}

	out := h.engine.Session().Outcome
	if out.Step != 2 || out.Task != "test" || out.Code != 1 {
		t.Errorf("Outcome = %+v", out)
	}
	if !errors.Is(out.Err, errors.ErrNonZeroExit) {
		t.Errorf("Outcome.Err = %v, want ErrNonZeroExit", out.Err)
	}
}

func TestStartSequence_SpawnFailure(t *testing.T) {
	spawnErr := fmt.Errorf("%w: exec: \"mise\": executable file not found", errors.ErrSpawnFailure)
	h := newHarness(t, map[string]script{
		"build": {spawnErr: spawnErr},
		"test":  {},
	})

	if err := h.engine.StartSequence([]Entry{entry(1, 1, "build"), entry(2, 2, "test")}); err != nil {
		t.Fatal(err)
	}
	h.settle()

	if got := h.engine.Status(1); got != (Status{Phase: PhaseFailed, Step: 1, Code: -1}) {
		t.Errorf("build = %v, want failed(1, code -1)", got)
	}
	if got := h.engine.Status(2); got != Idle {
		t.Errorf("test = %v, want idle", got)
	}
	if out := h.engine.Session().Outcome; !errors.Is(out.Err, errors.ErrSpawnFailure) {
		t.Errorf("Outcome.Err = %v, want ErrSpawnFailure", out.Err)
	}
}

func TestStop(t *testing.T) {
	h := newHarness(t, map[string]script{
		"build": {},
		"serve": {lines: []Line{{Stdout, "listening"}}, block: true},
		"after": {},
	})

	queue := []Entry{entry(1, 1, "build"), entry(2, 2, "serve"), entry(3, 3, "after")}
	if err := h.engine.StartSequence(queue); err != nil {
		t.Fatal(err)
	}
	h.pump(func() bool {
		v := h.engine.Session()
		return v.Output.Len() > 0 && v.Current.Path == "serve"
	})

	if got := h.engine.Status(2); got != (Status{Phase: PhaseRunning, Step: 2}) {
		t.Fatalf("serve = %v, want running(2)", got)
	}
	if !h.engine.Stop() {
		t.Fatal("Stop() should issue a stop while running")
	}
	if got := h.engine.State(); got != StateCancelling {
		t.Errorf("State() = %v, want cancelling until the process exits", got)
	}
	if got := h.engine.Status(2); got.Phase != PhaseRunning {
		t.Errorf("serve = %v, should stay running until exit", got)
	}
	if h.engine.Stop() {
		t.Error("second Stop() should be a no-op")
	}

	h.settle()

	if got := h.engine.State(); got != StateCancelled {
		t.Errorf("State() = %v, want cancelled", got)
	}
	if got := h.engine.Status(2); got != (Status{Phase: PhaseCancelled, Step: 2}) {
		t.Errorf("serve = %v, want cancelled(2)", got)
	}
	if got := h.engine.Status(3); got != Idle {
		t.Errorf("after = %v, want idle", got)
	}
	if got := h.engine.Status(1); got != (Status{Phase: PhaseSucceeded, Step: 1}) {
		t.Errorf("build = %v, want succeeded(1)", got)
	}
}

func TestStop_ExitAfterStopIsCancelled(t *testing.T) {
	tests := []struct {
		name string
		exit exitReport
	}{
		{name: "clean exit", exit: exitReport{code: 0}},
		{name: "nonzero exit", exit: exitReport{code: 1}},
		{name: "runner error", exit: exitReport{code: -1, err: errors.ErrSpawnFailure}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exit := tt.exit
			h := newHarness(t, map[string]script{
				"serve": {block: true, stopExit: &exit},
				"after": {},
			})
			if err := h.engine.StartSequence([]Entry{entry(1, 1, "serve"), entry(2, 2, "after")}); err != nil {
				t.Fatal(err)
			}
			if !h.engine.Stop() {
				t.Fatal("Stop() should issue a stop while running")
			}
			h.settle()

			if got := h.engine.State(); got != StateCancelled {
				t.Errorf("State() = %v, want cancelled", got)
			}
			if got := h.engine.Status(1); got != (Status{Phase: PhaseCancelled, Step: 1}) {
				t.Errorf("serve = %v, want cancelled(1)", got)
			}
			if got := h.engine.Status(2); got != Idle {
				t.Errorf("after = %v, want idle", got)
			}
			if got := h.runner.Started(); len(got) != 1 {
				t.Errorf("started = %v, want only serve", got)
			}
			if out := h.engine.Session().Outcome; !errors.Is(out.Err, errors.ErrCancelled) {
				t.Errorf("Outcome.Err = %v, want ErrCancelled", out.Err)
			}
		})
	}
}

func TestRelabel(t *testing.T) {
	h := newHarness(t, map[string]script{
		"build": {block: true},
	})
	if err := h.engine.StartSequence([]Entry{entry(1, 1, "build"), entry(2, 2, "deploy")}); err != nil {
		t.Fatal(err)
	}

	h.engine.Relabel(func(id catalog.NodeID) (string, string, bool) {
		switch id {
		case 1:
			return "compile", "compile", true
		case 2:
			return "ship", "ship", true
		}
		return "", "", false
	})

	q := h.engine.session.Queue
	if q[0].Ref != "build" || q[0].Path != "compile" {
		t.Errorf("running entry = %+v, want Ref build and Path compile", q[0])
	}
	if q[1].Ref != "ship" || q[1].Path != "ship" {
		t.Errorf("queued entry = %+v, want ship", q[1])
	}

	h.engine.Stop()
	h.settle()
	if out := h.engine.Session().Outcome; out.Task != "compile" {
		t.Errorf("Outcome.Task = %q, want the renamed path", out.Task)
	}
}

func TestStop_WhenIdle(t *testing.T) {
	h := newHarness(t, nil)
	if h.engine.Stop() {
		t.Error("Stop() on an idle engine should be a no-op")
	}
}

func TestBusyRejectsStart(t *testing.T) {
	h := newHarness(t, map[string]script{
		"serve": {block: true},
		"build": {},
	})

	if err := h.engine.StartSequence([]Entry{entry(1, 1, "serve"), entry(2, 2, "build")}); err != nil {
		t.Fatal(err)
	}
	before := h.engine.Statuses()
	sessionID := h.engine.Session().ID

	err := h.engine.StartSequence([]Entry{entry(1, 2, "build")})
	if !errors.Is(err, errors.ErrBusy) {
		t.Fatalf("StartSequence err = %v, want ErrBusy", err)
	}
	if err := h.engine.StartSingle(entry(0, 2, "build")); !errors.Is(err, errors.ErrBusy) {
		t.Fatalf("StartSingle err = %v, want ErrBusy", err)
	}
	if err := h.engine.Dismiss(); !errors.Is(err, errors.ErrBusy) {
		t.Fatalf("Dismiss err = %v, want ErrBusy", err)
	}

	if !maps.Equal(before, h.engine.Statuses()) {
		t.Errorf("statuses changed: %v -> %v", before, h.engine.Statuses())
	}
	if h.engine.Session().ID != sessionID {
		t.Error("session replaced by a rejected start")
	}

	h.engine.Stop()
	h.settle()
}

func TestStartSingle(t *testing.T) {
	h := newHarness(t, map[string]script{"lint": {code: 2}})

	if err := h.engine.StartSingle(entry(3, 7, "lint")); err != nil {
		t.Fatal(err)
	}
	h.settle()

	if got := h.engine.Status(7); got != (Status{Phase: PhaseFailed, Step: 0, Code: 2}) {
		t.Errorf("lint = %v, want failed(0, code 2)", got)
	}
	if k := h.engine.Session().Kind; k != KindSingle {
		t.Errorf("Kind = %v, want single", k)
	}
}

func TestNewRunResetsStatuses(t *testing.T) {
	h := newHarness(t, map[string]script{"build": {}, "test": {}})

	_ = h.engine.StartSequence([]Entry{entry(1, 1, "build")})
	h.settle()
	_ = h.engine.StartSingle(entry(0, 2, "test"))
	h.settle()

	if got := h.engine.Status(1); got != Idle {
		t.Errorf("build = %v, want idle after a new run", got)
	}
	if got := h.engine.Status(2); got.Phase != PhaseSucceeded {
		t.Errorf("test = %v, want succeeded", got)
	}
}

func TestDismiss(t *testing.T) {
	h := newHarness(t, map[string]script{"build": {}})
	_ = h.engine.StartSequence([]Entry{entry(1, 1, "build")})
	h.settle()

	if err := h.engine.Dismiss(); err != nil {
		t.Fatalf("Dismiss: %v", err)
	}
	if h.engine.Session() != nil || h.engine.State() != StateIdle {
		t.Error("session should be gone after dismiss")
	}
	if got := h.engine.Status(1); got.Phase != PhaseSucceeded {
		t.Errorf("statuses should survive dismiss, got %v", got)
	}
}

func TestNothingToRun(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.engine.StartSequence(nil); !errors.Is(err, errors.ErrNothingToRun) {
		t.Errorf("err = %v, want ErrNothingToRun", err)
	}
	if h.engine.State() != StateIdle {
		t.Error("rejected start should leave the engine idle")
	}
}

func TestStaleMessagesIgnored(t *testing.T) {
	h := newHarness(t, map[string]script{"serve": {block: true}})
	_ = h.engine.StartSequence([]Entry{entry(1, 1, "serve")})
	id := h.engine.Session().ID

	if h.engine.Handle(ExitMessage{Session: "other", Seq: 1, Code: 0}) {
		t.Error("message from another session should be ignored")
	}
	if h.engine.Handle(LineMessage{Session: id, Seq: 99, Line: Line{Text: "x"}}) {
		t.Error("message from another task should be ignored")
	}
	if h.engine.State() != StateRunning {
		t.Errorf("State() = %v, want running", h.engine.State())
	}

	h.engine.Stop()
	h.settle()
}

func TestEventsPublished(t *testing.T) {
	h := newHarness(t, map[string]script{"build": {lines: []Line{{Stdout, "hi"}}}})
	_ = h.engine.StartSequence([]Entry{entry(1, 1, "build")})
	h.settle()

	var types []string
	for _, e := range h.events {
		types = append(types, e.EventType())
	}
	want := []string{
		event.TypeRunStarted,
		event.TypeTaskStarted,
		event.TypeOutputAppended,
		event.TypeTaskFinished,
		event.TypeRunFinished,
	}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestRemap(t *testing.T) {
	h := newHarness(t, map[string]script{"a": {}, "b": {}})
	_ = h.engine.StartSequence([]Entry{entry(1, 1, "a"), entry(1, 2, "b")})
	h.settle()

	h.engine.Remap(func(old catalog.NodeID) (catalog.NodeID, bool) {
		if old == 1 {
			return 10, true
		}
		return 0, false
	})

	if got := h.engine.Status(10); got.Phase != PhaseSucceeded {
		t.Errorf("remapped status = %v", got)
	}
	if got := h.engine.Status(2); got != Idle {
		t.Errorf("dropped task status = %v, want idle", got)
	}
}
