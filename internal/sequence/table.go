// Package sequence holds the step assignments of a sequence: which catalog
// nodes run in which numbered step.
package sequence

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/errors"
)

// Table maps each step (1..Steps) to the set of nodes enabled for it.
// Groups are stored as themselves and expanded to their tasks only when a
// step is resolved, so catalog edits never require rewriting the table.
type Table struct {
	steps []map[catalog.NodeID]struct{}
}

// NewTable returns an empty table with n steps.
func NewTable(n int) *Table {
	t := &Table{steps: make([]map[catalog.NodeID]struct{}, n)}
	for i := range t.steps {
		t.steps[i] = make(map[catalog.NodeID]struct{})
	}
	return t
}

// Steps returns the number of steps.
func (t *Table) Steps() int {
	return len(t.steps)
}

func (t *Table) checkStep(step int) error {
	if step < 1 || step > len(t.steps) {
		return errors.NewValidationError(fmt.Sprintf("step must be between 1 and %d", len(t.steps))).
			WithField("step").WithValue(step).WithCause(errors.ErrInvalidStep)
	}
	return nil
}

// Toggle flips the membership of id in step.
func (t *Table) Toggle(id catalog.NodeID, step int) error {
	if err := t.checkStep(step); err != nil {
		return err
	}
	set := t.steps[step-1]
	if _, ok := set[id]; ok {
		delete(set, id)
	} else {
		set[id] = struct{}{}
	}
	return nil
}

// Has reports whether id itself is assigned to step.
func (t *Table) Has(id catalog.NodeID, step int) bool {
	if t.checkStep(step) != nil {
		return false
	}
	_, ok := t.steps[step-1][id]
	return ok
}

// AssignedSteps returns the steps id is directly assigned to, ascending.
func (t *Table) AssignedSteps(id catalog.NodeID) []int {
	var out []int
	for i, set := range t.steps {
		if _, ok := set[id]; ok {
			out = append(out, i+1)
		}
	}
	return out
}

// Assigned returns the nodes directly assigned to step, sorted by ID.
func (t *Table) Assigned(step int) []catalog.NodeID {
	if t.checkStep(step) != nil {
		return nil
	}
	out := make([]catalog.NodeID, 0, len(t.steps[step-1]))
	for id := range t.steps[step-1] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// ExpandForStep resolves step into the tasks that should run: directly
// assigned tasks plus every task under an assigned group, each once, in
// catalog pre-order.
func (t *Table) ExpandForStep(tree *catalog.Tree, step int) ([]catalog.NodeID, error) {
	if err := t.checkStep(step); err != nil {
		return nil, err
	}
	set := t.steps[step-1]
	if len(set) == 0 {
		return nil, nil
	}

	wanted := make(map[catalog.NodeID]struct{})
	for id := range set {
		for _, task := range tree.TasksUnder(id) {
			wanted[task] = struct{}{}
		}
	}

	var out []catalog.NodeID
	for _, task := range tree.Tasks() {
		if _, ok := wanted[task]; ok {
			out = append(out, task)
		}
	}
	return out, nil
}

// Clear empties every step.
func (t *Table) Clear() {
	for i := range t.steps {
		clear(t.steps[i])
	}
}

// Empty reports whether no step has any assignment.
func (t *Table) Empty() bool {
	for _, set := range t.steps {
		if len(set) > 0 {
			return false
		}
	}
	return true
}

// Remap rewrites every assignment through fn, dropping entries for which fn
// reports false. Used when the catalog is rebuilt with new IDs.
func (t *Table) Remap(fn func(old catalog.NodeID) (catalog.NodeID, bool)) {
	for i, set := range t.steps {
		next := make(map[catalog.NodeID]struct{}, len(set))
		for id := range set {
			if nid, ok := fn(id); ok {
				next[nid] = struct{}{}
			}
		}
		t.steps[i] = next
	}
}

// CommandLine renders the expanded sequence as a single shell command,
// "mise run a && mise run b", for copying or saving as a mise task.
func (t *Table) CommandLine(tree *catalog.Tree, binary string) string {
	var parts []string
	for step := 1; step <= len(t.steps); step++ {
		ids, _ := t.ExpandForStep(tree, step)
		for _, id := range ids {
			n, ok := tree.Node(id)
			if !ok {
				continue
			}
			parts = append(parts, binary+" run "+shellQuote(n.Ref))
		}
	}
	return strings.Join(parts, " && ")
}

func shellQuote(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]{}!#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
