package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/tui"
)

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if err := rt.start(ctx); err != nil {
		return err
	}
	if cfg.Catalog.Watch {
		// The UI works without live reload; r still refreshes by hand.
		if err := rt.watch(ctx); err != nil {
			rt.logger.Warn("file watching disabled", "error", err.Error())
		}
	}

	app := tui.New(ctx, rt.dispatcher, rt.dispatcher.Bus(), tui.Options{
		Theme:  cfg.TUI.Theme,
		Editor: cfg.Editor.ResolveCommand(),
	})
	return app.Run()
}
