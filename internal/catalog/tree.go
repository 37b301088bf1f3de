package catalog

import (
	"slices"
	"strings"

	"github.com/Iron-Ham/miseq/internal/errors"
)

// NodeID identifies a node for the lifetime of a Tree. IDs are never reused.
type NodeID int

// RootID is the implicit unnamed group that owns the top-level items.
const RootID NodeID = 0

// Kind distinguishes executable tasks from namespace groups.
type Kind int

const (
	KindGroup Kind = iota
	KindTask
)

func (k Kind) String() string {
	if k == KindTask {
		return "task"
	}
	return "group"
}

// Node is one catalog item.
type Node struct {
	ID       NodeID
	Name     string
	Kind     Kind
	Parent   NodeID
	Children []NodeID
	// Ref is the undivided mise task name passed to the runner. Empty for groups.
	Ref string
}

// IsTask reports whether the node is an executable leaf.
func (n Node) IsTask() bool { return n.Kind == KindTask }

// Tree is an arena of catalog nodes.
type Tree struct {
	nodes   []*Node
	version uint64
}

// Build constructs a tree from mise task names in the order given.
//
// Each non-final segment becomes or reuses a group and the final segment
// becomes a task whose Ref is the full name. When a name is both a task and
// a prefix of other tasks ("build" and "build:dev"), the node is a group
// whose first child is a task with the same name. Duplicate names keep the
// first occurrence.
func Build(names []string) *Tree {
	t := &Tree{
		nodes: []*Node{{ID: RootID, Kind: KindGroup, Parent: RootID}},
	}
	for _, name := range names {
		t.insert(name)
	}
	return t
}

func (t *Tree) insert(name string) {
	segs := ParsePath(name)
	if len(segs) == 0 {
		return
	}

	cur := RootID
	for _, seg := range segs[:len(segs)-1] {
		id, ok := t.child(cur, seg)
		switch {
		case !ok:
			id = t.add(cur, seg, KindGroup, "", false)
		case t.nodes[id].Kind == KindTask:
			t.promote(id)
		}
		cur = id
	}

	last := segs[len(segs)-1]
	id, ok := t.child(cur, last)
	if !ok {
		t.add(cur, last, KindTask, name, false)
		return
	}
	n := t.nodes[id]
	if n.Kind == KindGroup {
		if _, dup := t.child(id, last); !dup {
			t.add(id, last, KindTask, name, true)
		}
	}
}

// promote turns a task into a group in place, keeping its ID and position,
// and re-adds the task as the group's first child.
func (t *Tree) promote(id NodeID) {
	n := t.nodes[id]
	ref := n.Ref
	n.Kind = KindGroup
	n.Ref = ""
	t.add(id, n.Name, KindTask, ref, true)
}

func (t *Tree) add(parent NodeID, name string, kind Kind, ref string, first bool) NodeID {
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, &Node{ID: id, Name: name, Kind: kind, Parent: parent, Ref: ref})
	p := t.nodes[parent]
	if first {
		p.Children = slices.Insert(p.Children, 0, id)
	} else {
		p.Children = append(p.Children, id)
	}
	return id
}

func (t *Tree) child(parent NodeID, name string) (NodeID, bool) {
	for _, id := range t.nodes[parent].Children {
		if t.nodes[id].Name == name {
			return id, true
		}
	}
	return 0, false
}

func (t *Tree) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}

// Version increases whenever names or shape change.
func (t *Tree) Version() uint64 {
	return t.version
}

// Node returns a copy of the node with the given ID.
func (t *Tree) Node(id NodeID) (Node, bool) {
	if !t.valid(id) {
		return Node{}, false
	}
	n := *t.nodes[id]
	n.Children = slices.Clone(n.Children)
	return n, true
}

// Children returns the ordered child IDs of a node.
func (t *Tree) Children(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	return slices.Clone(t.nodes[id].Children)
}

// Resolve returns the node addressed by p. The empty path resolves to the root.
func (t *Tree) Resolve(p Path) (NodeID, bool) {
	cur := RootID
	for _, seg := range p {
		id, ok := t.child(cur, seg)
		if !ok {
			return 0, false
		}
		cur = id
	}
	return cur, true
}

// PathOf composes the current path of a node from its ancestors' names.
func (t *Tree) PathOf(id NodeID) (Path, bool) {
	if !t.valid(id) {
		return nil, false
	}
	var rev []string
	for cur := id; cur != RootID; cur = t.nodes[cur].Parent {
		rev = append(rev, t.nodes[cur].Name)
	}
	slices.Reverse(rev)
	return Path(rev), true
}

// Descendants returns every node below id in pre-order, excluding id itself.
func (t *Tree) Descendants(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	var out []NodeID
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, c := range t.nodes[n].Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// TasksUnder returns the task IDs at or below id in pre-order.
// A task returns itself.
func (t *Tree) TasksUnder(id NodeID) []NodeID {
	if !t.valid(id) {
		return nil
	}
	if t.nodes[id].Kind == KindTask {
		return []NodeID{id}
	}
	var out []NodeID
	for _, d := range t.Descendants(id) {
		if t.nodes[d].Kind == KindTask {
			out = append(out, d)
		}
	}
	return out
}

// Tasks returns every task in the tree in pre-order.
func (t *Tree) Tasks() []NodeID {
	return t.TasksUnder(RootID)
}

// Len returns the number of nodes, not counting the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// FindRef returns the task whose Ref equals name.
func (t *Tree) FindRef(name string) (NodeID, bool) {
	for _, n := range t.nodes[1:] {
		if n.Kind == KindTask && n.Ref == name {
			return n.ID, true
		}
	}
	return 0, false
}

// Move records the path change of one node caused by a rename.
type Move struct {
	ID  NodeID
	Old Path
	New Path
}

// Rename is the result of renaming a node: the node itself first, then each
// descendant whose composed path changed.
type Rename struct {
	ID    NodeID
	Moves []Move
}

// ValidateName checks that name can be used as a single path segment.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.NewValidationError("name must not be empty").WithCause(errors.ErrInvalidName)
	}
	if strings.Contains(name, Delimiter) {
		return errors.NewValidationError("name must not contain " + Delimiter).
			WithValue(name).WithCause(errors.ErrInvalidName)
	}
	if strings.TrimSpace(name) != name {
		return errors.NewValidationError("name must not start or end with whitespace").
			WithValue(name).WithCause(errors.ErrInvalidName)
	}
	return nil
}

// Rename changes the name of the node at p. Topology is unchanged. On error
// the tree is left as it was.
func (t *Tree) Rename(p Path, newName string) (Rename, error) {
	id, ok := t.Resolve(p)
	if !ok || id == RootID {
		return Rename{}, errors.NewPathError("rename", p.String(), errors.ErrInvalidPath)
	}
	if err := ValidateName(newName); err != nil {
		return Rename{}, errors.NewPathError("rename", p.String(), err)
	}
	n := t.nodes[id]
	if n.Name == newName {
		return Rename{ID: id}, nil
	}
	if _, taken := t.child(n.Parent, newName); taken {
		return Rename{}, errors.NewPathError("rename", p.String(), errors.ErrDuplicateName)
	}

	affected := append([]NodeID{id}, t.Descendants(id)...)
	moves := make([]Move, 0, len(affected))
	for _, a := range affected {
		old, _ := t.PathOf(a)
		moves = append(moves, Move{ID: a, Old: old})
	}

	n.Name = newName
	t.version++

	for i := range moves {
		moves[i].New, _ = t.PathOf(moves[i].ID)
	}
	return Rename{ID: id, Moves: moves}, nil
}

// SetRef changes the mise task name a task executes.
func (t *Tree) SetRef(id NodeID, ref string) error {
	if !t.valid(id) || t.nodes[id].Kind != KindTask {
		return errors.ErrNotTask
	}
	t.nodes[id].Ref = ref
	return nil
}
