package dispatch

import (
	"context"
	"strings"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/engine"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/event"
)

// Select moves the selection to p.
func (d *Dispatcher) Select(p catalog.Path) error {
	return d.do(func() error {
		n, err := d.resolve("select", p)
		if err != nil {
			return err
		}
		if n.ID != d.selected {
			d.selected = n.ID
			d.changed(false)
		}
		return nil
	})
}

// MoveNext selects the next item. It reports false at the end of the list.
// With nothing selected it selects the first item.
func (d *Dispatcher) MoveNext() (bool, error) {
	return d.move(true)
}

// MovePrevious selects the previous item. It reports false at the start of
// the list.
func (d *Dispatcher) MovePrevious() (bool, error) {
	return d.move(false)
}

func (d *Dispatcher) move(forward bool) (bool, error) {
	var moved bool
	err := d.do(func() error {
		var (
			target catalog.Path
			ok     bool
		)
		cur, valid := d.tree.PathOf(d.selected)
		switch {
		case !valid || d.selected == catalog.RootID:
			target, ok = d.index.First()
		case forward:
			target, ok = d.index.Next(cur)
		default:
			target, ok = d.index.Previous(cur)
		}
		if !ok {
			return nil
		}
		d.selected, _ = d.tree.Resolve(target)
		moved = true
		d.changed(false)
		return nil
	})
	return moved, err
}

// ToggleStep adds the item at p to step, or removes it if already there.
func (d *Dispatcher) ToggleStep(p catalog.Path, step int) error {
	return d.do(func() error {
		n, err := d.resolve("toggle", p)
		if err != nil {
			return err
		}
		if err := d.table.Toggle(n.ID, step); err != nil {
			return err
		}
		d.changed(true)
		return nil
	})
}

// ClearAssignments removes every item from every step.
func (d *Dispatcher) ClearAssignments() error {
	return d.do(func() error {
		if d.table.Empty() {
			return nil
		}
		d.table.Clear()
		d.changed(true)
		return nil
	})
}

// CommandLine renders the current sequence as one shell command line.
// It returns errors.ErrNothingToRun when no task is assigned.
func (d *Dispatcher) CommandLine() (string, error) {
	var line string
	err := d.do(func() error {
		line = d.table.CommandLine(d.tree, d.cfg.binary)
		if line == "" {
			return errors.ErrNothingToRun
		}
		return nil
	})
	return line, err
}

// StartSequence runs every assigned task, step by step.
func (d *Dispatcher) StartSequence() error {
	return d.do(func() error {
		var queue []engine.Entry
		for step := 1; step <= d.table.Steps(); step++ {
			ids, err := d.table.ExpandForStep(d.tree, step)
			if err != nil {
				return err
			}
			for _, id := range ids {
				queue = append(queue, d.entry(step, id))
			}
		}
		if err := d.engine.StartSequence(queue); err != nil {
			return err
		}
		d.changed(true)
		return nil
	})
}

// StartSingle runs the task at p on its own, outside the sequence.
func (d *Dispatcher) StartSingle(p catalog.Path) error {
	return d.do(func() error {
		n, err := d.resolveTask("run", p)
		if err != nil {
			return err
		}
		if err := d.engine.StartSingle(d.entry(0, n.ID)); err != nil {
			return err
		}
		d.changed(true)
		return nil
	})
}

func (d *Dispatcher) entry(step int, id catalog.NodeID) engine.Entry {
	n, _ := d.tree.Node(id)
	p, _ := d.tree.PathOf(id)
	return engine.Entry{Step: step, Task: id, Ref: n.Ref, Path: p.String()}
}

// Stop cancels the running task. It reports whether a stop was issued.
func (d *Dispatcher) Stop() (bool, error) {
	var stopped bool
	err := d.do(func() error {
		stopped = d.engine.Stop()
		if stopped {
			d.changed(false)
		}
		return nil
	})
	return stopped, err
}

// Dismiss clears a finished session.
func (d *Dispatcher) Dismiss() error {
	return d.do(func() error {
		if d.engine.Session() == nil {
			return nil
		}
		if err := d.engine.Dismiss(); err != nil {
			return err
		}
		d.changed(false)
		return nil
	})
}

// Rename gives the item at p a new name. Assignments and statuses follow
// the item. With write-through renames enabled, renaming a task first
// renames its mise definition; if that fails nothing changes.
func (d *Dispatcher) Rename(ctx context.Context, p catalog.Path, newName string) error {
	return d.do(func() error {
		n, err := d.resolve("rename", p)
		if err != nil {
			return err
		}
		if err := catalog.ValidateName(newName); err != nil {
			return errors.NewPathError("rename", p.String(), err)
		}
		if n.Name == newName {
			return nil
		}
		if _, taken := d.tree.Resolve(p.Parent().Child(newName)); taken {
			return errors.NewPathError("rename", p.String(), errors.ErrDuplicateName)
		}

		newRef := ""
		if d.cfg.writeRenames && n.IsTask() {
			newRef = renamedRef(n.Ref, newName)
			if err := d.source.Rename(ctx, n.Ref, newRef); err != nil {
				return err
			}
		}

		res, err := d.tree.Rename(p, newName)
		if err != nil {
			return err
		}
		if newRef != "" {
			if err := d.tree.SetRef(n.ID, newRef); err != nil {
				return err
			}
		}

		// Queued entries were captured with the old name.
		d.engine.Relabel(func(id catalog.NodeID) (string, string, bool) {
			n, ok := d.tree.Node(id)
			if !ok {
				return "", "", false
			}
			path, _ := d.tree.PathOf(id)
			return n.Ref, path.String(), true
		})

		d.logger.Info("renamed item", "from", p.String(), "to", res.Moves[0].New.String(), "moved", len(res.Moves))
		d.bus.Publish(event.NewCatalogChangedEvent("rename", len(d.tree.Tasks())))
		d.changed(true)
		return nil
	})
}

// renamedRef replaces the last segment of a mise task name.
func renamedRef(ref, name string) string {
	i := strings.LastIndex(ref, catalog.Delimiter)
	if i < 0 {
		return name
	}
	return ref[:i+1] + name
}

// Reload re-reads the task list and rebuilds the catalog. Assignments,
// statuses and the selection carry over to the items that still exist.
// While a run is active the rebuild is deferred until it ends.
func (d *Dispatcher) Reload(ctx context.Context) error {
	names, err := d.source.Names(ctx)
	if err != nil {
		return err
	}
	return d.do(func() error {
		if d.engine.Busy() {
			if !d.pendingReload {
				d.pendingReload = true
				d.logger.Info("reload deferred until the run ends")
				d.changed(false)
			}
			return nil
		}
		d.pendingReload = false
		d.apply(names)
		return nil
	})
}

// apply swaps in a catalog built from names.
func (d *Dispatcher) apply(names []string) {
	oldTree := d.tree
	oldOrder := d.index.Flatten()
	oldSelected, hadSelection := oldTree.PathOf(d.selected)
	hadSelection = hadSelection && d.selected != catalog.RootID

	tree := catalog.Build(names)
	index := catalog.NewIndex(tree)

	// Tasks are matched by mise name so that in-memory renames do not lose
	// their assignments; groups are matched by path.
	byRef := make(map[string]catalog.NodeID)
	for _, id := range tree.Tasks() {
		n, _ := tree.Node(id)
		byRef[n.Ref] = id
	}
	remap := func(old catalog.NodeID) (catalog.NodeID, bool) {
		n, ok := oldTree.Node(old)
		if !ok || old == catalog.RootID {
			return 0, false
		}
		if n.IsTask() {
			id, ok := byRef[n.Ref]
			return id, ok
		}
		p, _ := oldTree.PathOf(old)
		id, ok := tree.Resolve(p)
		if !ok {
			return 0, false
		}
		if nn, _ := tree.Node(id); nn.IsTask() {
			return 0, false
		}
		return id, true
	}

	d.table.Remap(remap)
	d.engine.Remap(remap)

	prev := d.selected
	d.tree, d.index = tree, index
	d.selected = catalog.RootID
	if id, ok := remap(prev); ok && hadSelection {
		d.selected = id
	} else if p, ok := index.Fallback(oldSelected, oldOrder); ok {
		d.selected, _ = tree.Resolve(p)
	}

	d.logger.Info("catalog loaded", "tasks", len(tree.Tasks()), "items", index.Len())
	d.bus.Publish(event.NewCatalogChangedEvent("reload", len(tree.Tasks())))
	d.changed(true)
}
