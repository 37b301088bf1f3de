package dispatch

import (
	"context"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/mise"
)

// SequenceTaskPrefix starts the name of a sequence saved as a mise task.
const SequenceTaskPrefix = "sequence-"

// Describe returns the mise detail of the task at p.
func (d *Dispatcher) Describe(ctx context.Context, p catalog.Path) (mise.Info, error) {
	var ref string
	err := d.do(func() error {
		n, err := d.resolveTask("describe", p)
		ref = n.Ref
		return err
	})
	if err != nil {
		return mise.Info{}, err
	}
	return d.source.Describe(ctx, ref)
}

// Delete removes the mise definition of the task at p and reloads the
// catalog. It is rejected while a run is active.
func (d *Dispatcher) Delete(ctx context.Context, p catalog.Path) error {
	err := d.do(func() error {
		if d.engine.Busy() {
			return errors.NewSessionError("delete "+p.String(), errors.ErrBusy)
		}
		n, err := d.resolveTask("delete", p)
		if err != nil {
			return err
		}
		if err := d.source.Delete(ctx, n.Ref); err != nil {
			return err
		}
		d.logger.Info("deleted task", "task", n.Ref)
		return nil
	})
	if err != nil {
		return err
	}
	return d.Reload(ctx)
}

// AddSequenceAsTask saves the current sequence as a mise task named
// sequence-YYYYMMDD-HHMMSS whose body is the sequence command line, then
// reloads the catalog. It returns the name written.
func (d *Dispatcher) AddSequenceAsTask(ctx context.Context) (string, error) {
	line, err := d.CommandLine()
	if err != nil {
		return "", err
	}
	name := SequenceTaskPrefix + d.cfg.now().Format("20060102-150405")
	name, err = d.source.AddTask(ctx, name, line)
	if err != nil {
		return "", err
	}
	d.logger.Info("saved sequence as task", "task", name)
	return name, d.Reload(ctx)
}
