package dispatch

import (
	"time"

	"github.com/Iron-Ham/miseq/internal/logging"
)

// dispatcherConfig holds optional configuration for a Dispatcher.
type dispatcherConfig struct {
	steps        int
	maxLines     int
	binary       string
	writeRenames bool
	logger       *logging.Logger
	now          func() time.Time
}

func defaultConfig() dispatcherConfig {
	return dispatcherConfig{
		steps:    3,
		maxLines: 5000,
		binary:   "mise",
		now:      time.Now,
	}
}

// Option configures a Dispatcher.
type Option func(*dispatcherConfig)

// WithSteps sets the number of sequence steps. Values below 1 are ignored.
func WithSteps(n int) Option {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.steps = n
		}
	}
}

// WithMaxLines bounds the output buffer of each run.
func WithMaxLines(n int) Option {
	return func(c *dispatcherConfig) {
		if n > 0 {
			c.maxLines = n
		}
	}
}

// WithBinary sets the mise executable named in generated command lines.
func WithBinary(binary string) Option {
	return func(c *dispatcherConfig) {
		if binary != "" {
			c.binary = binary
		}
	}
}

// WithWriteRenames makes renaming a task also rename its mise definition.
func WithWriteRenames(enabled bool) Option {
	return func(c *dispatcherConfig) { c.writeRenames = enabled }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *logging.Logger) Option {
	return func(c *dispatcherConfig) { c.logger = logger }
}

// WithClock overrides the time source used to name saved sequences.
func WithClock(now func() time.Time) Option {
	return func(c *dispatcherConfig) {
		if now != nil {
			c.now = now
		}
	}
}
