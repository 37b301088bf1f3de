package mise

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Iron-Ham/miseq/internal/errors"
)

func TestClient_NamesAndDescribe(t *testing.T) {
	bin, dir := newFakeMise(t, map[string]string{
		"ls.json":         lsJSON,
		"info-build.json": `{"name":"build","source":"/p/mise.toml","run":"go build ./...","description":"Build it"}`,
	})
	ctx := context.Background()

	client := NewClient(ClientConfig{Binary: bin, Dir: dir}, nil)
	names, err := client.Names(ctx)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if !slices.Equal(names, []string{"build", "frontend:test"}) {
		t.Errorf("Names() = %v", names)
	}

	hidden := NewClient(ClientConfig{Binary: bin, Dir: dir, ShowHidden: true}, nil)
	if names, _ := hidden.Names(ctx); len(names) != 3 {
		t.Errorf("Names() with hidden = %v", names)
	}

	info, err := client.Describe(ctx, "build")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if info.Description != "Build it" {
		t.Errorf("Description = %q", info.Description)
	}

	_, err = client.Describe(ctx, "nope")
	if !errors.Is(err, errors.ErrMiseFailed) {
		t.Fatalf("Describe(nope) err = %v, want ErrMiseFailed", err)
	}
	var mErr *errors.MiseError
	if !errors.As(err, &mErr) || mErr.Stderr == "" {
		t.Errorf("expected stderr to be captured, got %v", err)
	}
}

func TestClient_MissingBinary(t *testing.T) {
	client := NewClient(ClientConfig{Binary: filepath.Join(t.TempDir(), "no-such-mise")}, nil)
	if _, err := client.Names(context.Background()); !errors.Is(err, errors.ErrMiseFailed) {
		t.Errorf("err = %v, want ErrMiseFailed", err)
	}
}

func TestClient_ConfigTaskEdits(t *testing.T) {
	project := t.TempDir()
	tomlPath := filepath.Join(project, "mise.toml")
	if err := os.WriteFile(tomlPath, []byte(sampleToml), 0644); err != nil {
		t.Fatal(err)
	}
	ls := `[{"name":"build","source":"` + tomlPath + `"},{"name":"test","source":"` + tomlPath + `"}]`
	info := `{"name":"build","source":"` + tomlPath + `"}`
	bin, _ := newFakeMise(t, map[string]string{"ls.json": ls, "info-build.json": info})
	client := NewClient(ClientConfig{Binary: bin, Dir: project}, nil)
	ctx := context.Background()

	t.Run("rename rejects an existing name", func(t *testing.T) {
		err := client.Rename(ctx, "build", "test")
		if !errors.Is(err, errors.ErrDuplicateName) {
			t.Errorf("err = %v, want ErrDuplicateName", err)
		}
	})

	t.Run("rename rekeys the table", func(t *testing.T) {
		if err := client.Rename(ctx, "build", "compile"); err != nil {
			t.Fatalf("Rename: %v", err)
		}
		tasks := readTasks(t, tomlPath)
		if _, ok := tasks["compile"]; !ok {
			t.Errorf("tasks = %v", tasks)
		}
	})

	t.Run("add picks a unique name", func(t *testing.T) {
		name, err := client.AddTask(ctx, "test", "mise run compile")
		if err != nil {
			t.Fatalf("AddTask: %v", err)
		}
		if name != "test-1" {
			t.Errorf("name = %q, want test-1", name)
		}
		if got := readTasks(t, tomlPath)["test-1"]; got != "mise run compile" {
			t.Errorf("test-1 = %v", got)
		}
	})
}

func TestClient_FileTaskEdits(t *testing.T) {
	project := t.TempDir()
	script := filepath.Join(project, "mise-tasks", "frontend", "test")
	if err := os.MkdirAll(filepath.Dir(script), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(script, []byte("#!/bin/sh\nnpm test\n"), 0755); err != nil {
		t.Fatal(err)
	}
	ls := `[{"name":"frontend:test","source":"` + script + `"}]`
	info := `{"name":"frontend:test","source":"` + script + `","file":"` + script + `"}`
	bin, _ := newFakeMise(t, map[string]string{"ls.json": ls, "info-frontend:test.json": info})
	client := NewClient(ClientConfig{Binary: bin, Dir: project}, nil)
	ctx := context.Background()

	if err := client.Rename(ctx, "frontend:test", "frontend:unit"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	renamed := filepath.Join(project, "mise-tasks", "frontend", "unit")
	if _, err := os.Stat(renamed); err != nil {
		t.Fatalf("renamed script missing: %v", err)
	}

	// Point the fixture at the new file and delete it.
	info = `{"name":"frontend:unit","source":"` + renamed + `"}`
	bin2, _ := newFakeMise(t, map[string]string{"ls.json": ls, "info-frontend:unit.json": info})
	client = NewClient(ClientConfig{Binary: bin2, Dir: project}, nil)
	if err := client.Delete(ctx, "frontend:unit"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(renamed); !os.IsNotExist(err) {
		t.Error("script should be deleted")
	}
}

func TestClient_RenameValidation(t *testing.T) {
	client := NewClient(ClientConfig{}, nil)
	if err := client.Rename(context.Background(), "build", " "); !errors.Is(err, errors.ErrInvalidName) {
		t.Errorf("err = %v, want ErrInvalidName", err)
	}
	if err := client.Rename(context.Background(), "build", "build"); err != nil {
		t.Errorf("same-name rename should be a no-op, got %v", err)
	}
}
