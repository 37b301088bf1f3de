package catalog

import (
	"slices"
	"strings"
)

// Delimiter separates namespace segments in a mise task name.
const Delimiter = ":"

// Path is the sequence of names from the root to a catalog node.
// The empty Path addresses the root.
type Path []string

// ParsePath splits a task name into a Path. Empty segments are dropped, so
// "a::b" and ":a:b" both parse to ["a", "b"].
func ParsePath(name string) Path {
	var p Path
	for seg := range strings.SplitSeq(name, Delimiter) {
		if seg = strings.TrimSpace(seg); seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// String joins the path with the namespace delimiter.
func (p Path) String() string {
	return strings.Join(p, Delimiter)
}

// Name returns the last segment, or "" for the root.
func (p Path) Name() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Parent returns the path without its last segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return slices.Clone(p[:len(p)-1])
}

// Depth is the number of segments; top-level items have depth 1.
func (p Path) Depth() int {
	return len(p)
}

// Equal reports whether both paths name the same node.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// HasPrefix reports whether prefix is p itself or one of its ancestors.
func (p Path) HasPrefix(prefix Path) bool {
	return len(prefix) <= len(p) && slices.Equal(p[:len(prefix)], prefix)
}

// Child returns a new path with name appended.
func (p Path) Child(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Clone returns a copy that shares no memory with p.
func (p Path) Clone() Path {
	return slices.Clone(p)
}
