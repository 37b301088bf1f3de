package dispatch

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/engine"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/event"
	"github.com/Iron-Ham/miseq/internal/logging"
	"github.com/Iron-Ham/miseq/internal/mise"
	"github.com/Iron-Ham/miseq/internal/sequence"
)

// TaskSource discovers and edits mise task definitions.
// *mise.Client implements it.
type TaskSource interface {
	Names(ctx context.Context) ([]string, error)
	Describe(ctx context.Context, name string) (mise.Info, error)
	Delete(ctx context.Context, name string) error
	Rename(ctx context.Context, oldName, newName string) error
	AddTask(ctx context.Context, name, command string) (string, error)
}

var _ TaskSource = (*mise.Client)(nil)

// Config holds required dependencies for creating a Dispatcher.
type Config struct {
	Source TaskSource
	Runner engine.Runner
	// Bus receives state, run and catalog events. A private bus is created
	// when nil.
	Bus *event.Bus
}

// request is a closure run on the loop goroutine. Its error is sent on reply
// after the resulting snapshot has been published.
type request struct {
	fn    func() error
	reply chan error
}

// Dispatcher linearizes every mutation of miseq's state on one goroutine.
type Dispatcher struct {
	cfg    dispatcherConfig
	source TaskSource
	bus    *event.Bus
	logger *logging.Logger

	inbox chan request
	msgs  chan engine.Message
	quit  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool

	running  atomic.Bool
	snapshot atomic.Pointer[Snapshot]
	// background tracks reloads started by the loop itself; they use ctx,
	// which Close cancels.
	background conc.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc

	// Owned by the loop goroutine.
	tree          *catalog.Tree
	index         *catalog.Index
	table         *sequence.Table
	engine        *engine.Engine
	selected      catalog.NodeID
	pendingReload bool
	version       uint64
	dirty         bool
	itemsDirty    bool
	items         []Item
}

// New creates a Dispatcher with an empty catalog. Call Start to begin
// processing and load the task list.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	if cfg.Source == nil {
		return nil, errors.New("dispatch: Source is required")
	}
	if cfg.Runner == nil {
		return nil, errors.New("dispatch: Runner is required")
	}

	dc := defaultConfig()
	for _, opt := range opts {
		opt(&dc)
	}
	logger := dc.logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := cfg.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}

	d := &Dispatcher{
		cfg:    dc,
		source: cfg.Source,
		bus:    bus,
		logger: logger.WithComponent("dispatch"),
		inbox:  make(chan request),
		msgs:   make(chan engine.Message, 256),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		tree:   catalog.Build(nil),
		table:  sequence.NewTable(dc.steps),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.index = catalog.NewIndex(d.tree)
	d.engine = engine.New(cfg.Runner, d.post, engine.Options{
		MaxLines: dc.maxLines,
		Bus:      bus,
		Logger:   logger,
	})
	d.itemsDirty = true
	d.snapshot.Store(d.buildSnapshot())
	return d, nil
}

// Bus returns the bus the dispatcher publishes on.
func (d *Dispatcher) Bus() *event.Bus {
	return d.bus
}

// Start begins processing and loads the task list. The dispatcher keeps
// running when the initial load fails; the error is returned so the caller
// can report it.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.started || d.closed {
		d.mu.Unlock()
		return errors.New("dispatch: dispatcher already started")
	}
	d.started = true
	d.running.Store(true)
	d.mu.Unlock()

	go d.loop()
	return d.Reload(ctx)
}

// Close stops the dispatcher. A running task is cancelled but not waited
// for. Close is idempotent.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	started := d.started
	d.mu.Unlock()

	close(d.quit)
	d.cancel()
	if started {
		<-d.done
	}
	d.background.Wait()
}

// Snapshot returns the latest published state. It never blocks.
func (d *Dispatcher) Snapshot() *Snapshot {
	return d.snapshot.Load()
}

// post delivers a worker message to the loop. It is called from task
// worker goroutines.
func (d *Dispatcher) post(m engine.Message) {
	select {
	case d.msgs <- m:
	case <-d.quit:
	}
}

// do runs fn on the loop goroutine and returns its error. It must not be
// called from the loop itself.
func (d *Dispatcher) do(fn func() error) error {
	if !d.running.Load() {
		return errors.ErrClosed
	}
	req := request{fn: fn, reply: make(chan error, 1)}
	select {
	case d.inbox <- req:
	case <-d.quit:
		return errors.ErrClosed
	}
	return <-req.reply
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	defer d.running.Store(false)

	for {
		select {
		case <-d.quit:
			d.engine.Shutdown()
			return

		case req := <-d.inbox:
			err := req.fn()
			if d.dirty {
				d.publish()
			}
			req.reply <- err
			continue

		case m := <-d.msgs:
			if !d.engine.Handle(m) {
				continue
			}
			d.dirty = true
			if _, ok := m.(engine.ExitMessage); ok {
				d.itemsDirty = true
				d.afterRunStep()
			}
		}

		if d.dirty {
			d.publish()
		}
	}
}

// afterRunStep starts a deferred reload once the slot is free.
func (d *Dispatcher) afterRunStep() {
	if d.engine.Busy() || !d.pendingReload {
		return
	}
	d.pendingReload = false
	d.logger.Info("running deferred reload")
	d.background.Go(func() {
		if err := d.Reload(d.ctx); err != nil && !errors.Is(err, errors.ErrClosed) && d.ctx.Err() == nil {
			d.logger.Warn("deferred reload failed", "error", err.Error())
		}
	})
}

// changed marks state as modified. Catalog, assignment and status changes
// pass items=true so the item list is rebuilt.
func (d *Dispatcher) changed(items bool) {
	d.dirty = true
	if items {
		d.itemsDirty = true
	}
}

func (d *Dispatcher) publish() {
	d.version++
	d.snapshot.Store(d.buildSnapshot())
	d.dirty = false
	d.bus.Publish(event.NewStateChangedEvent(d.version))
}

func (d *Dispatcher) buildSnapshot() *Snapshot {
	if d.itemsDirty {
		ids := d.index.IDs()
		paths := d.index.Flatten()
		items := make([]Item, len(ids))
		for i, id := range ids {
			n, _ := d.tree.Node(id)
			it := Item{
				ID:    id,
				Path:  paths[i],
				Name:  n.Name,
				Kind:  n.Kind,
				Depth: paths[i].Depth(),
				Steps: d.table.AssignedSteps(id),
			}
			if n.IsTask() {
				it.Ref = n.Ref
				it.Status = d.engine.Status(id)
			}
			items[i] = it
		}
		d.items = items
		d.itemsDirty = false
	}

	selected := -1
	if i, ok := d.index.PositionOf(d.selected); ok {
		selected = i
	}
	return &Snapshot{
		Version:       d.version,
		Items:         d.items,
		Selected:      selected,
		Steps:         d.table.Steps(),
		State:         d.engine.State(),
		Session:       d.engine.Session(),
		PendingReload: d.pendingReload,
	}
}

// resolve returns the node at p, rejecting the root and unknown paths.
func (d *Dispatcher) resolve(op string, p catalog.Path) (catalog.Node, error) {
	id, ok := d.tree.Resolve(p)
	if !ok || id == catalog.RootID {
		return catalog.Node{}, errors.NewPathError(op, p.String(), errors.ErrInvalidPath)
	}
	n, _ := d.tree.Node(id)
	return n, nil
}

// resolveTask is resolve restricted to tasks.
func (d *Dispatcher) resolveTask(op string, p catalog.Path) (catalog.Node, error) {
	n, err := d.resolve(op, p)
	if err != nil {
		return n, err
	}
	if !n.IsTask() {
		return catalog.Node{}, errors.NewPathError(op, p.String(), errors.ErrNotTask)
	}
	return n, nil
}
