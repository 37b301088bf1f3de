package catalog

import "iter"

// Index is the cached pre-order flattening of a Tree. It rebuilds itself
// lazily whenever the tree's version moves.
type Index struct {
	tree    *Tree
	version uint64
	built   bool
	order   []Path
	ids     []NodeID
	pos     map[NodeID]int
}

// NewIndex returns an index over t.
func NewIndex(t *Tree) *Index {
	return &Index{tree: t}
}

// Tree returns the indexed tree.
func (x *Index) Tree() *Tree {
	return x.tree
}

func (x *Index) ensure() {
	if x.built && x.version == x.tree.Version() {
		return
	}
	x.order = x.order[:0:0]
	x.ids = x.ids[:0:0]
	x.pos = make(map[NodeID]int, x.tree.Len())

	var walk func(id NodeID, prefix Path)
	walk = func(id NodeID, prefix Path) {
		for _, c := range x.tree.nodes[id].Children {
			p := prefix.Child(x.tree.nodes[c].Name)
			x.pos[c] = len(x.ids)
			x.ids = append(x.ids, c)
			x.order = append(x.order, p)
			walk(c, p)
		}
	}
	walk(RootID, nil)

	x.version = x.tree.Version()
	x.built = true
}

// Flatten returns every node path in pre-order: groups before their
// children, siblings in catalog order. The slice is rebuilt rather than
// modified on change, so callers may keep it but must not write to it.
func (x *Index) Flatten() []Path {
	x.ensure()
	return x.order
}

// IDs returns the node IDs in the same order as Flatten.
func (x *Index) IDs() []NodeID {
	x.ensure()
	return x.ids
}

// All yields the navigation order. Each call restarts from the beginning.
func (x *Index) All() iter.Seq[Path] {
	return func(yield func(Path) bool) {
		for _, p := range x.Flatten() {
			if !yield(p) {
				return
			}
		}
	}
}

// Len returns the number of navigable items.
func (x *Index) Len() int {
	x.ensure()
	return len(x.ids)
}

// Position returns the index of p in the navigation order.
func (x *Index) Position(p Path) (int, bool) {
	id, ok := x.tree.Resolve(p)
	if !ok || id == RootID {
		return 0, false
	}
	return x.PositionOf(id)
}

// PositionOf returns the index of a node in the navigation order.
func (x *Index) PositionOf(id NodeID) (int, bool) {
	x.ensure()
	i, ok := x.pos[id]
	return i, ok
}

// Next returns the item after p. It does not wrap.
func (x *Index) Next(p Path) (Path, bool) {
	i, ok := x.Position(p)
	if !ok || i+1 >= len(x.order) {
		return nil, false
	}
	return x.order[i+1], true
}

// Previous returns the item before p. It does not wrap.
func (x *Index) Previous(p Path) (Path, bool) {
	i, ok := x.Position(p)
	if !ok || i == 0 {
		return nil, false
	}
	return x.order[i-1], true
}

// First returns the first item, if any.
func (x *Index) First() (Path, bool) {
	x.ensure()
	if len(x.order) == 0 {
		return nil, false
	}
	return x.order[0], true
}

// Fallback resolves a possibly stale path. A path that is still valid is
// returned as is. Otherwise the nearest predecessor of stale in oldOrder that
// still resolves is used, then the first item. It reports false only when
// the catalog is empty.
func (x *Index) Fallback(stale Path, oldOrder []Path) (Path, bool) {
	if _, ok := x.Position(stale); ok {
		return stale, true
	}

	at := -1
	for i, p := range oldOrder {
		if p.Equal(stale) {
			at = i
			break
		}
	}
	for i := at - 1; i >= 0; i-- {
		if _, ok := x.Position(oldOrder[i]); ok {
			return oldOrder[i], true
		}
	}
	return x.First()
}
