package mise

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/logging"
)

// Client runs mise subcommands in a project directory.
type Client struct {
	binary     string
	dir        string
	showHidden bool
	logger     *logging.Logger
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Binary     string // mise executable (default "mise")
	Dir        string // project directory; empty means the current directory
	ShowHidden bool   // include tasks marked hide = true in Names
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig, logger *logging.Logger) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "mise"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Client{
		binary:     cfg.Binary,
		dir:        cfg.Dir,
		showHidden: cfg.ShowHidden,
		logger:     logger.WithComponent("mise"),
	}
}

// Dir returns the project directory, or "" for the current directory.
func (c *Client) Dir() string {
	return c.dir
}

func (c *Client) output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = c.dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running mise", "args", strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		mErr := errors.NewMiseError(strings.Join(args, " "), err).WithStderr(stderr.String())
		c.logger.Warn("mise command failed", "args", strings.Join(args, " "), "error", mErr.Error())
		return nil, mErr
	}
	return stdout.Bytes(), nil
}

// ListTasks returns every task mise knows about, hidden ones included.
func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	out, err := c.output(ctx, "tasks", "ls", "--json", "--hidden")
	if err != nil {
		return nil, err
	}
	tasks, err := ParseTasks(out)
	if err != nil {
		return nil, errors.NewMiseError("tasks ls", err)
	}
	c.logger.Debug("listed tasks", "count", len(tasks))
	return tasks, nil
}

// Names returns the task names to show, honouring the hidden-task setting.
func (c *Client) Names(ctx context.Context) ([]string, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	return Names(tasks, c.showHidden), nil
}

// Describe returns the detail of one task.
func (c *Client) Describe(ctx context.Context, name string) (Info, error) {
	out, err := c.output(ctx, "tasks", "info", name, "--json")
	if err != nil {
		return Info{}, err
	}
	info, err := ParseInfo(out)
	if err != nil {
		return Info{}, errors.NewMiseError("tasks info "+name, err)
	}
	return info, nil
}

func (c *Client) abs(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// Delete removes a task definition: its entry in a toml [tasks] table, or
// its script file.
func (c *Client) Delete(ctx context.Context, name string) error {
	info, err := c.Describe(ctx, name)
	if err != nil {
		return err
	}
	source := c.abs(info.Source)
	if info.IsConfigTask() {
		err = RemoveTomlTask(source, name)
	} else {
		err = DeleteTaskFile(source)
	}
	if err != nil {
		return errors.Wrapf(err, "delete task %s", name)
	}
	c.logger.Info("deleted task", "task", name, "source", source)
	return nil
}

// Rename gives a task a new full name. Config tasks are re-keyed in their
// toml file; file tasks have their script renamed to the new last segment.
func (c *Client) Rename(ctx context.Context, oldName, newName string) error {
	if strings.TrimSpace(newName) == "" {
		return errors.NewValidationError("new task name is empty").WithCause(errors.ErrInvalidName)
	}
	if oldName == newName {
		return nil
	}

	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return err
	}
	if slices.ContainsFunc(tasks, func(t Task) bool { return t.Name == newName }) {
		return errors.NewPathError("rename", oldName, errors.ErrDuplicateName)
	}

	info, err := c.Describe(ctx, oldName)
	if err != nil {
		return err
	}
	source := c.abs(info.Source)
	if info.IsConfigTask() {
		err = RenameTomlTask(source, oldName, newName)
	} else {
		leaf := newName[strings.LastIndex(newName, ":")+1:]
		_, err = RenameTaskFile(source, leaf)
	}
	if err != nil {
		return errors.Wrapf(err, "rename task %s", oldName)
	}
	c.logger.Info("renamed task", "from", oldName, "to", newName, "source", source)
	return nil
}

// AddTask writes a new task running command into the project's mise.toml.
// If name is taken, a numeric suffix is appended. It returns the name used.
func (c *Client) AddTask(ctx context.Context, name, command string) (string, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return "", err
	}
	existing := make([]string, len(tasks))
	for i, t := range tasks {
		existing[i] = t.Name
	}
	final := UniqueName(name, existing)

	path := filepath.Join(c.dir, "mise.toml")
	if err := AddTomlTask(path, final, command); err != nil {
		return "", errors.Wrapf(err, "add task %s", final)
	}
	c.logger.Info("added task", "task", final, "path", path)
	return final, nil
}

// UniqueName returns desired, or desired-1, desired-2, ... whichever is the
// first not present in existing.
func UniqueName(desired string, existing []string) string {
	candidate := desired
	for n := 1; slices.Contains(existing, candidate); n++ {
		candidate = fmt.Sprintf("%s-%d", desired, n)
	}
	return candidate
}
