package mise

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"
)

const sampleToml = `[tools]
go = "1.25"

[tasks.build]
run = "go build ./..."
description = "Build"

[tasks.test]
run = "go test ./..."
`

func writeToml(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mise.toml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func readTasks(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("written file is not valid toml: %v", err)
	}
	tasks, _ := doc["tasks"].(map[string]any)
	if _, ok := doc["tools"]; !ok {
		t.Error("unrelated tables should be preserved")
	}
	return tasks
}

func TestRemoveTomlTask(t *testing.T) {
	path := writeToml(t, sampleToml)

	if err := RemoveTomlTask(path, "build"); err != nil {
		t.Fatalf("RemoveTomlTask: %v", err)
	}
	tasks := readTasks(t, path)
	if _, ok := tasks["build"]; ok {
		t.Error("build should be removed")
	}
	if _, ok := tasks["test"]; !ok {
		t.Error("test should remain")
	}

	if err := RemoveTomlTask(path, "missing"); err == nil {
		t.Error("expected an error for a missing task")
	}
}

func TestRenameTomlTask(t *testing.T) {
	path := writeToml(t, sampleToml)

	if err := RenameTomlTask(path, "build", "compile"); err != nil {
		t.Fatalf("RenameTomlTask: %v", err)
	}
	tasks := readTasks(t, path)
	def, ok := tasks["compile"].(map[string]any)
	if !ok || def["run"] != "go build ./..." {
		t.Errorf("compile = %v", tasks["compile"])
	}

	if err := RenameTomlTask(path, "compile", "test"); err == nil {
		t.Error("expected an error when the target name exists")
	}

	st, _ := os.Stat(path)
	if st.Mode().Perm() != 0600 {
		t.Errorf("file mode = %v, want 0600", st.Mode().Perm())
	}
}

func TestAddTomlTask(t *testing.T) {
	t.Run("existing file", func(t *testing.T) {
		path := writeToml(t, sampleToml)
		if err := AddTomlTask(path, "sequence-1", "mise run build && mise run test"); err != nil {
			t.Fatalf("AddTomlTask: %v", err)
		}
		if got := readTasks(t, path)["sequence-1"]; got != "mise run build && mise run test" {
			t.Errorf("sequence-1 = %v", got)
		}
		if err := AddTomlTask(path, "build", "x"); err == nil {
			t.Error("expected an error for an existing task")
		}
	})

	t.Run("creates file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mise.toml")
		if err := AddTomlTask(path, "seq", "mise run a"); err != nil {
			t.Fatalf("AddTomlTask: %v", err)
		}
		data, _ := os.ReadFile(path)
		var doc struct {
			Tasks map[string]string `toml:"tasks"`
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			t.Fatal(err)
		}
		if doc.Tasks["seq"] != "mise run a" {
			t.Errorf("tasks = %v", doc.Tasks)
		}
	})
}

func TestTaskFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	target, err := RenameTaskFile(path, "ship")
	if err != nil {
		t.Fatalf("RenameTaskFile: %v", err)
	}
	if target != filepath.Join(dir, "ship.sh") {
		t.Errorf("target = %q", target)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("old file should be gone")
	}

	if err := DeleteTaskFile(target); err != nil {
		t.Fatalf("DeleteTaskFile: %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("file should be deleted")
	}
	if _, err := RenameTaskFile(target, "x"); err == nil {
		t.Error("expected an error renaming a missing file")
	}
}
