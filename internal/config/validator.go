package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sequence.steps")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Step bounds. Steps are toggled with the digit keys, so there are at most nine.
const (
	MinSteps = 1
	MaxSteps = 9
)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidThemes returns the list of built-in TUI themes
func ValidThemes() []string {
	return []string{"default", "mono"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateSequence()...)
	errors = append(errors, c.validateRunner()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateCatalog()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateTUI()...)

	return errors
}

func (c *Config) validateSequence() []ValidationError {
	var errors []ValidationError

	if c.Sequence.Steps < MinSteps || c.Sequence.Steps > MaxSteps {
		errors = append(errors, ValidationError{
			Field:   "sequence.steps",
			Value:   c.Sequence.Steps,
			Message: fmt.Sprintf("must be between %d and %d", MinSteps, MaxSteps),
		})
	}

	return errors
}

func (c *Config) validateRunner() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Runner.Binary) == "" {
		errors = append(errors, ValidationError{
			Field:   "runner.binary",
			Value:   c.Runner.Binary,
			Message: "must not be empty",
		})
	}

	const maxKillGrace = 60_000
	if c.Runner.KillGraceMs < 0 || c.Runner.KillGraceMs > maxKillGrace {
		errors = append(errors, ValidationError{
			Field:   "runner.kill_grace_ms",
			Value:   c.Runner.KillGraceMs,
			Message: fmt.Sprintf("must be between 0 and %dms", maxKillGrace),
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	var errors []ValidationError

	const minLines = 100
	const maxLines = 1_000_000
	if c.Output.MaxLines < minLines {
		errors = append(errors, ValidationError{
			Field:   "output.max_lines",
			Value:   c.Output.MaxLines,
			Message: fmt.Sprintf("must be at least %d", minLines),
		})
	}
	if c.Output.MaxLines > maxLines {
		errors = append(errors, ValidationError{
			Field:   "output.max_lines",
			Value:   c.Output.MaxLines,
			Message: fmt.Sprintf("exceeds maximum of %d", maxLines),
		})
	}

	return errors
}

func (c *Config) validateCatalog() []ValidationError {
	var errors []ValidationError

	if c.Catalog.WatchDebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.watch_debounce_ms",
			Value:   c.Catalog.WatchDebounceMs,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	if c.TUI.Theme != "" && !slices.Contains(ValidThemes(), c.TUI.Theme) {
		errors = append(errors, ValidationError{
			Field:   "tui.theme",
			Value:   c.TUI.Theme,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidThemes(), ", ")),
		})
	}

	return errors
}
