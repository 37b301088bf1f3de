package cmd

import (
	"context"
	"fmt"

	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/dispatch"
	"github.com/Iron-Ham/miseq/internal/logging"
	"github.com/Iron-Ham/miseq/internal/mise"
)

// runtime holds the components shared by the TUI and headless commands.
type runtime struct {
	cfg        *config.Config
	logger     *logging.Logger
	client     *mise.Client
	dispatcher *dispatch.Dispatcher
	watcher    *mise.Watcher
}

// newLogger returns the debug logger, or a discarding one when logging is
// disabled. Nothing is ever logged to the terminal.
func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLogger(cfg.Logging.ResolveDir(), cfg.Logging.Level)
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	client := mise.NewClient(mise.ClientConfig{
		Binary:     cfg.Runner.Binary,
		Dir:        cfg.Runner.Dir,
		ShowHidden: cfg.Catalog.ShowHidden,
	}, logger)
	runner := mise.NewRunner(mise.RunnerConfig{
		Binary:     cfg.Runner.Binary,
		Dir:        cfg.Runner.Dir,
		ForceColor: cfg.Runner.ForceColor,
		KillGrace:  cfg.Runner.KillGrace(),
	}, logger)

	d, err := dispatch.New(
		dispatch.Config{Source: client, Runner: runner},
		dispatch.WithSteps(cfg.Sequence.Steps),
		dispatch.WithMaxLines(cfg.Output.MaxLines),
		dispatch.WithBinary(cfg.Runner.Binary),
		dispatch.WithWriteRenames(cfg.Catalog.WriteRenames),
		dispatch.WithLogger(logger),
	)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	logger.Info("miseq starting", "dir", client.Dir(), "steps", cfg.Sequence.Steps)
	return &runtime{cfg: cfg, logger: logger, client: client, dispatcher: d}, nil
}

// start loads the task list.
func (rt *runtime) start(ctx context.Context) error {
	if err := rt.dispatcher.Start(ctx); err != nil {
		return fmt.Errorf("failed to load mise tasks: %w", err)
	}
	return nil
}

// watch reloads the catalog whenever task definitions change on disk.
func (rt *runtime) watch(ctx context.Context) error {
	w, err := mise.NewWatcher(rt.client.Dir(), rt.cfg.Catalog.WatchDebounce(), func() {
		if err := rt.dispatcher.Reload(ctx); err != nil {
			rt.logger.Warn("reload after file change failed", "error", err.Error())
		}
	}, rt.logger)
	if err != nil {
		return fmt.Errorf("failed to watch task files: %w", err)
	}
	w.Start()
	rt.watcher = w
	return nil
}

// Close stops the watcher and the dispatcher, then flushes the log.
func (rt *runtime) Close() {
	if rt.watcher != nil {
		rt.watcher.Stop()
	}
	rt.dispatcher.Close()
	_ = rt.logger.Close()
}
