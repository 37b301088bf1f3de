package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/miseq/internal/event"
)

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
	updates chan struct{}
}

// New creates a new TUI application. State changes published on bus wake
// the model; bus is normally the dispatcher's own.
func New(ctx context.Context, ctrl Controller, bus *event.Bus, opts Options) *App {
	updates := make(chan struct{}, 1)
	return &App{
		model:   NewModel(ctx, ctrl, updates, opts),
		bus:     bus,
		updates: updates,
	}
}

// notify wakes the model without blocking the publisher. Signals coalesce:
// the model always reads the latest snapshot.
func (a *App) notify(event.Event) {
	select {
	case a.updates <- struct{}{}:
	default:
	}
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	sub := a.bus.Subscribe(event.TypeStateChanged, a.notify)
	defer a.bus.Unsubscribe(sub)

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Quit cleanly on termination so the terminal is restored
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer func() {
		signal.Stop(sigChan)
		close(sigChan)
	}()

	go func() {
		if _, ok := <-sigChan; ok && a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	_, err := a.program.Run()
	return err
}
