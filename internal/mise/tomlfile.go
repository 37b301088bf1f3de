package mise

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlDoc is a mise.toml loaded for editing. Comments and key order are not
// preserved on write.
type tomlDoc struct {
	path string
	mode os.FileMode
	root map[string]any
}

func loadToml(path string, create bool) (*tomlDoc, error) {
	doc := &tomlDoc{path: path, mode: 0644, root: make(map[string]any)}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err) && create:
		return doc, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if st, err := os.Stat(path); err == nil {
		doc.mode = st.Mode().Perm()
	}
	if err := toml.Unmarshal(data, &doc.root); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// tasks returns the [tasks] table, creating it when asked.
func (d *tomlDoc) tasks(create bool) (map[string]any, error) {
	raw, ok := d.root["tasks"]
	if !ok {
		if !create {
			return nil, fmt.Errorf("no [tasks] table in %s", d.path)
		}
		t := make(map[string]any)
		d.root["tasks"] = t
		return t, nil
	}
	t, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("tasks in %s is not a table", d.path)
	}
	return t, nil
}

func (d *tomlDoc) save() error {
	data, err := toml.Marshal(d.root)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", d.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), ".miseq-*.toml")
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	if err := tmp.Chmod(d.mode); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", d.path, err)
	}
	return os.Rename(tmp.Name(), d.path)
}

// RemoveTomlTask deletes a task from the [tasks] table of a mise.toml.
func RemoveTomlTask(path, name string) error {
	doc, err := loadToml(path, false)
	if err != nil {
		return err
	}
	tasks, err := doc.tasks(false)
	if err != nil {
		return err
	}
	if _, ok := tasks[name]; !ok {
		return fmt.Errorf("task %q not found in %s", name, path)
	}
	delete(tasks, name)
	return doc.save()
}

// RenameTomlTask moves a task definition to a new key in the [tasks] table.
func RenameTomlTask(path, oldName, newName string) error {
	doc, err := loadToml(path, false)
	if err != nil {
		return err
	}
	tasks, err := doc.tasks(false)
	if err != nil {
		return err
	}
	def, ok := tasks[oldName]
	if !ok {
		return fmt.Errorf("task %q not found in %s", oldName, path)
	}
	if _, taken := tasks[newName]; taken {
		return fmt.Errorf("task %q already exists in %s", newName, path)
	}
	delete(tasks, oldName)
	tasks[newName] = def
	return doc.save()
}

// AddTomlTask writes name = "command" into the [tasks] table, creating the
// file and table if needed.
func AddTomlTask(path, name, command string) error {
	doc, err := loadToml(path, true)
	if err != nil {
		return err
	}
	tasks, err := doc.tasks(true)
	if err != nil {
		return err
	}
	if _, taken := tasks[name]; taken {
		return fmt.Errorf("task %q already exists in %s", name, path)
	}
	tasks[name] = command
	return doc.save()
}

// RenameTaskFile renames a file task's script in place, keeping its
// extension.
func RenameTaskFile(path, newLeaf string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("task file %s: %w", path, err)
	}
	target := filepath.Join(filepath.Dir(path), newLeaf+filepath.Ext(path))
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("target file %s already exists", target)
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("failed to rename task file: %w", err)
	}
	return target, nil
}

// DeleteTaskFile removes a file task's script.
func DeleteTaskFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete task file: %w", err)
	}
	return nil
}
