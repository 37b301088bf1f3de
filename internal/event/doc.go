// Package event provides a pub-sub event bus that decouples the dispatcher
// from the surfaces that render its state.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Categories
//
// Run lifecycle:
//   - [RunStartedEvent]: a sequence or single-task run began
//   - [RunFinishedEvent]: a run reached Completed, Failed or Cancelled
//
// Tasks:
//   - [TaskStartedEvent]: a task process was launched
//   - [TaskFinishedEvent]: a task process exited or failed to spawn
//   - [OutputAppendedEvent]: a task wrote a line to stdout or stderr
//
// Catalog and state:
//   - [CatalogChangedEvent]: the task tree was reloaded, renamed or edited
//   - [StateChangedEvent]: a new dispatcher snapshot is available
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
// Handlers must not block: the dispatcher publishes from its event loop.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeRunFinished, func(e event.Event) {
//	    done := e.(event.RunFinishedEvent)
//	    fmt.Println(done.Outcome)
//	})
//
//	id := bus.SubscribeAll(func(e event.Event) {
//	    logger.Debug("event", "type", e.EventType())
//	})
//	bus.Unsubscribe(id)
package event
