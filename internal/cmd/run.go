package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/miseq/internal/catalog"
	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/event"
	"github.com/Iron-Ham/miseq/internal/tui/styles"
	"github.com/Iron-Ham/miseq/internal/util"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a sequence without the terminal UI",
	Long: `Run a sequence without the terminal UI.

Each --step flag assigns tasks or namespaces to a step as STEP=PATH[,PATH...].
Steps run in order; a namespace runs every task under it. Output is printed
as it arrives, tagged with the step and task. The command exits nonzero
unless every task succeeds.`,
	Example: `  miseq run --step 1=build --step 2=frontend:test
  miseq run --step 1=lint,fmt --step 2=test --no-color`,
	RunE: runHeadless,
}

var (
	runSteps   []string
	runNoColor bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runSteps, "step", "s", nil, "assign tasks to a step as STEP=PATH[,PATH...]")
	runCmd.Flags().BoolVar(&runNoColor, "no-color", false, "disable colored output")
}

// ExitError carries the process exit code of a failed headless run.
type ExitError struct {
	Code int
	msg  string
}

func (e *ExitError) Error() string { return e.msg }

// stepAssignment is one parsed --step value.
type stepAssignment struct {
	Step int
	Path catalog.Path
}

// parseSteps parses STEP=PATH[,PATH...] values. Repeated assignments of the
// same path to the same step are collapsed.
func parseSteps(values []string, maxSteps int) ([]stepAssignment, error) {
	var out []stepAssignment
	seen := make(map[string]bool)
	for _, v := range values {
		num, paths, ok := strings.Cut(v, "=")
		if !ok {
			return nil, errors.NewValidationError("expected STEP=PATH").WithField("--step").WithValue(v)
		}
		step, err := strconv.Atoi(strings.TrimSpace(num))
		if err != nil || step < 1 || step > maxSteps {
			return nil, errors.NewValidationError(fmt.Sprintf("step must be between 1 and %d", maxSteps)).
				WithField("--step").WithValue(v)
		}
		for raw := range strings.SplitSeq(paths, ",") {
			p := catalog.ParsePath(raw)
			if len(p) == 0 {
				return nil, errors.NewValidationError("empty task path").WithField("--step").WithValue(v)
			}
			key := strconv.Itoa(step) + "=" + p.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, stepAssignment{Step: step, Path: p})
		}
	}
	if len(out) == 0 {
		return nil, errors.NewValidationError("at least one --step is required").WithField("--step")
	}
	return out, nil
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	assignments, err := parseSteps(runSteps, cfg.Sequence.Steps)
	if err != nil {
		return err
	}

	// Ctrl+C stops the running task; the run then finishes as cancelled.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	out := cmd.OutOrStdout()
	return headless(cmd.Context(), cfg, assignments, newPrinter(out, colorEnabled(out, runNoColor)), sigChan)
}

// headless loads the catalog, applies assignments and runs the sequence to
// its end. A value on interrupt stops the running task.
func headless(ctx context.Context, cfg *config.Config, assignments []stepAssignment, p *printer, interrupt <-chan os.Signal) error {
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.start(ctx); err != nil {
		return err
	}
	d := rt.dispatcher

	for _, a := range assignments {
		if err := d.ToggleStep(a.Path, a.Step); err != nil {
			return err
		}
	}

	finished := make(chan event.RunFinishedEvent, 1)
	bus := d.Bus()
	subs := []string{
		bus.Subscribe(event.TypeTaskStarted, func(e event.Event) {
			p.taskStarted(e.(event.TaskStartedEvent))
		}),
		bus.Subscribe(event.TypeOutputAppended, func(e event.Event) {
			p.output(e.(event.OutputAppendedEvent))
		}),
		bus.Subscribe(event.TypeTaskFinished, func(e event.Event) {
			p.taskFinished(e.(event.TaskFinishedEvent))
		}),
		bus.Subscribe(event.TypeRunFinished, func(e event.Event) {
			select {
			case finished <- e.(event.RunFinishedEvent):
			default:
			}
		}),
	}
	defer func() {
		for _, id := range subs {
			bus.Unsubscribe(id)
		}
	}()

	if err := d.StartSequence(); err != nil {
		return err
	}

	for {
		select {
		case <-interrupt:
			if _, err := d.Stop(); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		case res := <-finished:
			p.runFinished(res)
			if res.Succeeded() {
				return nil
			}
			code := 1
			if res.Outcome == "cancelled" {
				code = 130
			}
			return &ExitError{Code: code, msg: "run " + res.Outcome}
		}
	}
}

// colorEnabled reports whether w is a terminal that should get colors.
func colorEnabled(w io.Writer, disabled bool) bool {
	if disabled || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printer writes run progress and tagged task output.
type printer struct {
	mu    sync.Mutex
	w     io.Writer
	out   *termenv.Output
	color bool
	steps []string
}

func newPrinter(w io.Writer, color bool) *printer {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	var steps []string
	for _, c := range styles.DefaultPalette().Steps {
		steps = append(steps, string(c))
	}
	return &printer{
		w:     w,
		out:   termenv.NewOutput(w, termenv.WithProfile(profile)),
		color: color,
		steps: steps,
	}
}

func (p *printer) tag(step int, task string) string {
	label := task
	if step > 0 {
		label = strconv.Itoa(step) + " " + task
	}
	s := p.out.String("[" + label + "]")
	if step > 0 && len(p.steps) > 0 {
		s = s.Foreground(p.out.Color(p.steps[(step-1)%len(p.steps)]))
	}
	return s.String()
}

func (p *printer) println(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, s)
}

func (p *printer) taskStarted(e event.TaskStartedEvent) {
	p.println(p.out.String("==>").Bold().String() + " " + p.tag(e.Step, e.Task) + " started")
}

func (p *printer) output(e event.OutputAppendedEvent) {
	text := e.Text
	if !p.color {
		text = util.StripANSI(text)
	}
	p.println(p.tag(e.Step, e.Task) + " " + text)
}

func (p *printer) taskFinished(e event.TaskFinishedEvent) {
	status := p.out.String(e.Outcome)
	switch e.Outcome {
	case "succeeded":
		status = status.Foreground(p.out.Color("2"))
	case "failed":
		status = status.Foreground(p.out.Color("1")).Bold()
	default:
		status = status.Foreground(p.out.Color("3"))
	}
	line := p.tag(e.Step, e.Task) + " " + status.String()
	if e.Outcome == "failed" {
		line += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	p.println(line)
}

func (p *printer) runFinished(e event.RunFinishedEvent) {
	msg := "run " + e.Outcome
	switch e.Outcome {
	case "completed":
		p.println(p.out.String(msg).Foreground(p.out.Color("2")).Bold().String())
		return
	case "failed":
		if e.Err != "" {
			msg += fmt.Sprintf(": %s could not start: %s", e.Task, e.Err)
		} else {
			msg += fmt.Sprintf(" at step %d: %s exited with %d", e.Step, e.Task, e.ExitCode)
		}
	case "cancelled":
		if e.Task != "" {
			msg += ": " + e.Task + " was stopped"
		}
	}
	p.println(p.out.String(msg).Foreground(p.out.Color("1")).Bold().String())
}
