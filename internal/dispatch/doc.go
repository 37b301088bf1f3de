// Package dispatch serializes every change to miseq's state.
//
// A Dispatcher owns the catalog tree, its navigation index, the sequence
// assignment table, the execution engine and the selection. All of them are
// touched only by the dispatcher's goroutine. Public methods post a closure
// to its inbox and wait for the result; task workers post their output and
// exit reports to a separate channel.
//
// After every applied change the dispatcher stores an immutable Snapshot and
// publishes an event.StateChangedEvent on the bus. Readers call Snapshot at
// any time without blocking the dispatcher.
//
// Blocking mise calls that only read (listing and describing tasks) run on
// the caller's goroutine. Calls that write task definitions run inside the
// dispatcher so their precondition checks and the write are one step.
package dispatch
