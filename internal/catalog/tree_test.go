package catalog

import (
	"slices"
	"testing"

	"github.com/Iron-Ham/miseq/internal/errors"
)

var sampleNames = []string{
	"frontend:build:dev",
	"frontend:build:prod",
	"frontend:test:unit",
	"backend:api:start",
	"build",
	"test",
}

// shape renders each node as "kind path" in navigation order.
func shape(t *testing.T, tree *Tree) []string {
	t.Helper()
	idx := NewIndex(tree)
	var out []string
	for i, id := range idx.IDs() {
		n, _ := tree.Node(id)
		out = append(out, n.Kind.String()+" "+idx.Flatten()[i].String())
	}
	return out
}

func TestBuild(t *testing.T) {
	tree := Build(sampleNames)

	tests := []struct {
		path string
		kind Kind
		ref  string
	}{
		{"frontend", KindGroup, ""},
		{"frontend:build", KindGroup, ""},
		{"frontend:build:dev", KindTask, "frontend:build:dev"},
		{"backend:api:start", KindTask, "backend:api:start"},
		{"build", KindTask, "build"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := tree.Resolve(ParsePath(tt.path))
			if !ok {
				t.Fatalf("Resolve(%q) failed", tt.path)
			}
			n, _ := tree.Node(id)
			if n.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", n.Kind, tt.kind)
			}
			if n.Ref != tt.ref {
				t.Errorf("Ref = %q, want %q", n.Ref, tt.ref)
			}
		})
	}

	if _, ok := tree.Resolve(ParsePath("frontend:deploy")); ok {
		t.Error("Resolve should fail for a missing path")
	}
	if got := len(tree.Tasks()); got != 6 {
		t.Errorf("len(Tasks()) = %d, want 6", got)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	a := shape(t, Build(sampleNames))
	b := shape(t, Build(sampleNames))
	if !slices.Equal(a, b) {
		t.Errorf("rebuilds differ:\n%v\n%v", a, b)
	}
}

func TestBuild_EveryPrefixIsGroup(t *testing.T) {
	tree := Build(sampleNames)
	idx := NewIndex(tree)
	for _, p := range idx.Flatten() {
		for i := 1; i < len(p); i++ {
			id, ok := tree.Resolve(p[:i])
			if !ok {
				t.Fatalf("prefix %v of %v does not resolve", p[:i], p)
			}
			if n, _ := tree.Node(id); n.Kind != KindGroup {
				t.Errorf("prefix %v of %v is a %v", p[:i], p, n.Kind)
			}
		}
	}
}

func TestBuild_TaskThatIsAlsoNamespace(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"task first", []string{"build", "build:dev"}},
		{"namespace first", []string{"build:dev", "build"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := Build(tt.names)
			got := shape(t, tree)
			want := []string{"group build", "task build:build", "task build:dev"}
			if !slices.Equal(got, want) {
				t.Errorf("shape = %v, want %v", got, want)
			}

			id, _ := tree.Resolve(Path{"build", "build"})
			if n, _ := tree.Node(id); n.Ref != "build" {
				t.Errorf("Ref = %q, want build", n.Ref)
			}
		})
	}
}

func TestBuild_DuplicatesAndEmptySegments(t *testing.T) {
	tree := Build([]string{"lint", "lint", "", ":", "ci::check"})
	got := shape(t, tree)
	want := []string{"task lint", "group ci", "task ci:check"}
	if !slices.Equal(got, want) {
		t.Errorf("shape = %v, want %v", got, want)
	}
	id, _ := tree.Resolve(Path{"ci", "check"})
	if n, _ := tree.Node(id); n.Ref != "ci::check" {
		t.Errorf("Ref = %q, want the undivided name", n.Ref)
	}
}

func TestPathOf(t *testing.T) {
	tree := Build(sampleNames)
	p := ParsePath("frontend:test:unit")
	id, _ := tree.Resolve(p)
	got, ok := tree.PathOf(id)
	if !ok || !got.Equal(p) {
		t.Errorf("PathOf() = %v, want %v", got, p)
	}
	if root, ok := tree.PathOf(RootID); !ok || len(root) != 0 {
		t.Errorf("PathOf(root) = %v, %v", root, ok)
	}
	if _, ok := tree.PathOf(NodeID(999)); ok {
		t.Error("PathOf should fail for an unknown id")
	}
}

func TestTasksUnder(t *testing.T) {
	tree := Build(sampleNames)
	id, _ := tree.Resolve(Path{"frontend"})

	var got []string
	for _, task := range tree.TasksUnder(id) {
		p, _ := tree.PathOf(task)
		got = append(got, p.String())
	}
	want := []string{"frontend:build:dev", "frontend:build:prod", "frontend:test:unit"}
	if !slices.Equal(got, want) {
		t.Errorf("TasksUnder(frontend) = %v, want %v", got, want)
	}
}

func TestRename(t *testing.T) {
	t.Run("task keeps id and ref", func(t *testing.T) {
		tree := Build(sampleNames)
		before, _ := tree.Resolve(ParsePath("frontend:build:dev"))

		r, err := tree.Rename(ParsePath("frontend:build:dev"), "dev2")
		if err != nil {
			t.Fatalf("Rename: %v", err)
		}
		after, ok := tree.Resolve(ParsePath("frontend:build:dev2"))
		if !ok || after != before {
			t.Errorf("renamed node id = %v, want %v", after, before)
		}
		if _, ok := tree.Resolve(ParsePath("frontend:build:dev")); ok {
			t.Error("old path should no longer resolve")
		}
		if n, _ := tree.Node(after); n.Ref != "frontend:build:dev" {
			t.Errorf("Ref = %q, should be unchanged", n.Ref)
		}
		if len(r.Moves) != 1 || r.Moves[0].New.String() != "frontend:build:dev2" {
			t.Errorf("Moves = %+v", r.Moves)
		}
	})

	t.Run("group moves descendants", func(t *testing.T) {
		tree := Build(sampleNames)
		v := tree.Version()

		r, err := tree.Rename(Path{"frontend"}, "web")
		if err != nil {
			t.Fatalf("Rename: %v", err)
		}
		if tree.Version() == v {
			t.Error("Version should change after rename")
		}
		if len(r.Moves) != 6 {
			t.Fatalf("expected 6 moves, got %d", len(r.Moves))
		}
		if r.Moves[2].Old.String() != "frontend:build:dev" || r.Moves[2].New.String() != "web:build:dev" {
			t.Errorf("unexpected move: %+v", r.Moves[2])
		}
	})

	t.Run("rejections leave tree unchanged", func(t *testing.T) {
		tests := []struct {
			name    string
			path    Path
			newName string
			want    error
		}{
			{"sibling collision", ParsePath("frontend:build:dev"), "prod", errors.ErrDuplicateName},
			{"missing path", ParsePath("frontend:nope"), "x", errors.ErrInvalidPath},
			{"root", nil, "x", errors.ErrInvalidPath},
			{"empty name", Path{"build"}, "", errors.ErrInvalidName},
			{"delimiter", Path{"build"}, "a:b", errors.ErrInvalidName},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				tree := Build(sampleNames)
				before := shape(t, tree)
				v := tree.Version()

				_, err := tree.Rename(tt.path, tt.newName)
				if !errors.Is(err, tt.want) {
					t.Fatalf("err = %v, want %v", err, tt.want)
				}
				if tree.Version() != v || !slices.Equal(shape(t, tree), before) {
					t.Error("tree changed after rejected rename")
				}
			})
		}
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		tree := Build(sampleNames)
		v := tree.Version()
		if _, err := tree.Rename(Path{"test"}, "test"); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		if tree.Version() != v {
			t.Error("Version should not change")
		}
	})
}

func TestSetRef(t *testing.T) {
	tree := Build(sampleNames)
	id, _ := tree.Resolve(Path{"build"})
	if err := tree.SetRef(id, "compile"); err != nil {
		t.Fatalf("SetRef: %v", err)
	}
	if got, ok := tree.FindRef("compile"); !ok || got != id {
		t.Errorf("FindRef(compile) = %v, %v", got, ok)
	}
	group, _ := tree.Resolve(Path{"frontend"})
	if err := tree.SetRef(group, "x"); !errors.Is(err, errors.ErrNotTask) {
		t.Errorf("SetRef on group err = %v", err)
	}
}
