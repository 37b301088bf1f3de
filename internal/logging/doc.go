// Package logging provides structured logging for miseq.
//
// It wraps log/slog with a JSON handler so that the TUI, which owns the
// terminal, never has log lines interleaved with its frames. Logs go to
// {dir}/miseq.log when a directory is configured and to stderr otherwise
// (the headless `miseq run` command).
//
// Child loggers carry persistent attributes:
//
//	logger := logging.NopLogger()
//	runLog := logger.WithSession(sessionID).WithTask("frontend:build:dev")
//	runLog.Info("task started", "step", 2)
//
// All types in this package are safe for concurrent use. Use [NopLogger] in
// tests.
package logging
