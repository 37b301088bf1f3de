package dispatch

import (
	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/engine"
)

// Item is one row of the navigation order.
type Item struct {
	ID     catalog.NodeID
	Path   catalog.Path
	Name   string
	Kind   catalog.Kind
	Depth  int
	Ref    string        // mise task name; empty for groups
	Steps  []int         // steps this item is directly assigned to
	Status engine.Status // always Idle for groups
}

// IsTask reports whether the item is a runnable task.
func (it Item) IsTask() bool { return it.Kind == catalog.KindTask }

// Snapshot is an immutable copy of the dispatcher's state. Nothing reachable
// from a Snapshot is modified after it is published.
type Snapshot struct {
	Version       uint64
	Items         []Item
	Selected      int // index into Items, -1 when the catalog is empty
	Steps         int
	State         engine.State
	Session       *engine.SessionView // nil when no session exists
	PendingReload bool                // a reload is waiting for the run to end
}

// Busy reports whether a run holds the execution slot.
func (s *Snapshot) Busy() bool {
	return s.State.Active()
}

// SelectedItem returns the selected item.
func (s *Snapshot) SelectedItem() (Item, bool) {
	if s.Selected < 0 || s.Selected >= len(s.Items) {
		return Item{}, false
	}
	return s.Items[s.Selected], true
}

// Find returns the item at path.
func (s *Snapshot) Find(p catalog.Path) (Item, bool) {
	for _, it := range s.Items {
		if it.Path.Equal(p) {
			return it, true
		}
	}
	return Item{}, false
}

// Tasks returns the number of task items.
func (s *Snapshot) Tasks() int {
	n := 0
	for _, it := range s.Items {
		if it.IsTask() {
			n++
		}
	}
	return n
}

// AssignedCount returns how many items are assigned to step.
func (s *Snapshot) AssignedCount(step int) int {
	n := 0
	for _, it := range s.Items {
		for _, st := range it.Steps {
			if st == step {
				n++
				break
			}
		}
	}
	return n
}
