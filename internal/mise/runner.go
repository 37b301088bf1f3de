package mise

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/Iron-Ham/miseq/internal/engine"
	"github.com/Iron-Ham/miseq/internal/errors"
	"github.com/Iron-Ham/miseq/internal/logging"
)

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	Binary     string        // mise executable (default "mise")
	Dir        string        // working directory
	ForceColor bool          // ask tasks to emit color even though output is piped
	KillGrace  time.Duration // time between SIGTERM and SIGKILL on cancellation
}

// Runner runs mise tasks with "mise run" and streams their output.
// It implements engine.Runner.
type Runner struct {
	cfg    RunnerConfig
	logger *logging.Logger
}

var _ engine.Runner = (*Runner)(nil)

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig, logger *logging.Logger) *Runner {
	if cfg.Binary == "" {
		cfg.Binary = "mise"
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Runner{cfg: cfg, logger: logger.WithComponent("runner")}
}

// Command returns the argv used to run task.
func (r *Runner) Command(task string) []string {
	return []string{r.cfg.Binary, "run", task}
}

// Run starts "mise run task", reports each output line, and waits for exit.
// Cancelling ctx sends SIGTERM to the task's process group and SIGKILL if it
// is still alive after the grace period.
func (r *Runner) Run(ctx context.Context, task string, onLine func(engine.Line)) (int, error) {
	argv := r.Command(task)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = r.cfg.Dir
	cmd.Env = os.Environ()
	if r.cfg.ForceColor {
		cmd.Env = append(cmd.Env, "FORCE_COLOR=1", "CLICOLOR_FORCE=1", "TERM=xterm-256color")
	}
	setProcessGroup(cmd)

	var exited atomic.Bool
	cmd.Cancel = func() error {
		err := signalGroup(cmd, sigTerm)
		if r.cfg.KillGrace > 0 {
			time.AfterFunc(r.cfg.KillGrace, func() {
				if !exited.Load() {
					r.logger.Warn("task ignored SIGTERM, killing", "task", task)
					_ = signalGroup(cmd, sigKill)
				}
			})
		}
		return err
	}
	// Pipes are force-closed this long after cancellation so a stray
	// grandchild holding them open cannot wedge Wait.
	cmd.WaitDelay = r.cfg.KillGrace + time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: %v", errors.ErrSpawnFailure, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return -1, fmt.Errorf("%w: %v", errors.ErrSpawnFailure, err)
	}

	if err := cmd.Start(); err != nil {
		r.logger.Warn("failed to start task", "task", task, "error", err.Error())
		return -1, fmt.Errorf("%w: %v", errors.ErrSpawnFailure, err)
	}
	r.logger.Debug("task process started", "task", task, "pid", cmd.Process.Pid)

	var wg conc.WaitGroup
	wg.Go(func() { readLines(stdout, engine.Stdout, onLine) })
	wg.Go(func() { readLines(stderr, engine.Stderr, onLine) })
	wg.Wait()

	err = cmd.Wait()
	exited.Store(true)

	code := exitCode(cmd, err)
	r.logger.Debug("task process exited", "task", task, "exit_code", code)
	if code == -1 && err != nil {
		return -1, fmt.Errorf("%w: %v", errors.ErrSpawnFailure, err)
	}
	return code, nil
}

// readLines reports each line of rd. Lines of any length are accepted;
// a trailing carriage return is dropped.
func readLines(rd io.Reader, stream engine.Stream, onLine func(engine.Line)) {
	br := bufio.NewReader(rd)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			onLine(engine.Line{Stream: stream, Text: line})
		}
		if err != nil {
			return
		}
	}
}
