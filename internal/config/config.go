package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete miseq configuration
type Config struct {
	Sequence SequenceConfig `mapstructure:"sequence" yaml:"sequence"`
	Runner   RunnerConfig   `mapstructure:"runner" yaml:"runner"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Catalog  CatalogConfig  `mapstructure:"catalog" yaml:"catalog"`
	Editor   EditorConfig   `mapstructure:"editor" yaml:"editor"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	TUI      TUIConfig      `mapstructure:"tui" yaml:"tui"`
}

// SequenceConfig controls the shape of the sequence builder
type SequenceConfig struct {
	// Steps is the number of step columns in a sequence (default: 3)
	Steps int `mapstructure:"steps" yaml:"steps"`
}

// RunnerConfig controls how tasks are launched
type RunnerConfig struct {
	// Binary is the mise executable to invoke (default: "mise")
	Binary string `mapstructure:"binary" yaml:"binary"`
	// Dir is the working directory for mise commands; empty means the current directory
	Dir string `mapstructure:"dir" yaml:"dir"`
	// ForceColor sets FORCE_COLOR/CLICOLOR_FORCE so tasks keep their colors when piped
	ForceColor bool `mapstructure:"force_color" yaml:"force_color"`
	// KillGraceMs is how long a stopped task gets after SIGTERM before SIGKILL
	KillGraceMs int `mapstructure:"kill_grace_ms" yaml:"kill_grace_ms"`
}

// OutputConfig controls the run output buffer
type OutputConfig struct {
	// MaxLines bounds the run output buffer; the oldest lines are dropped first
	MaxLines int `mapstructure:"max_lines" yaml:"max_lines"`
}

// CatalogConfig controls task discovery
type CatalogConfig struct {
	// ShowHidden includes tasks marked hide = true
	ShowHidden bool `mapstructure:"show_hidden" yaml:"show_hidden"`
	// Watch reloads the task list when mise config files change
	Watch bool `mapstructure:"watch" yaml:"watch"`
	// WatchDebounceMs coalesces bursts of file events
	WatchDebounceMs int `mapstructure:"watch_debounce_ms" yaml:"watch_debounce_ms"`
	// WriteRenames also renames the mise task on disk when a task is renamed
	WriteRenames bool `mapstructure:"write_renames" yaml:"write_renames"`
}

// EditorConfig controls the external editor used by the edit action
type EditorConfig struct {
	// Command overrides $VISUAL/$EDITOR. Empty falls back to those, then "code".
	Command string `mapstructure:"command" yaml:"command"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Enabled turns on the JSON debug log
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum level: debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is where miseq.log is written; empty means ConfigDir()/logs
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// Theme is the color theme: "default" or "mono"
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Sequence: SequenceConfig{
			Steps: 3,
		},
		Runner: RunnerConfig{
			Binary:      "mise",
			Dir:         "",
			ForceColor:  true,
			KillGraceMs: 3000,
		},
		Output: OutputConfig{
			MaxLines: 5000,
		},
		Catalog: CatalogConfig{
			ShowHidden:      false,
			Watch:           true,
			WatchDebounceMs: 250,
			WriteRenames:    false,
		},
		Editor: EditorConfig{
			Command: "",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
			Dir:     "",
		},
		TUI: TUIConfig{
			Theme: "default",
		},
	}
}

// KillGrace returns the SIGTERM-to-SIGKILL grace period as a time.Duration
func (c *RunnerConfig) KillGrace() time.Duration {
	return time.Duration(c.KillGraceMs) * time.Millisecond
}

// WatchDebounce returns the file watch debounce as a time.Duration
func (c *CatalogConfig) WatchDebounce() time.Duration {
	return time.Duration(c.WatchDebounceMs) * time.Millisecond
}

// ResolveCommand returns the editor to launch, consulting the environment
// when no command is configured.
func (c *EditorConfig) ResolveCommand() string {
	if c.Command != "" {
		return c.Command
	}
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return "code"
}

// ResolveDir returns the log directory, defaulting to ConfigDir()/logs
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir != "" {
		return c.Dir
	}
	return filepath.Join(ConfigDir(), "logs")
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("sequence.steps", defaults.Sequence.Steps)

	viper.SetDefault("runner.binary", defaults.Runner.Binary)
	viper.SetDefault("runner.dir", defaults.Runner.Dir)
	viper.SetDefault("runner.force_color", defaults.Runner.ForceColor)
	viper.SetDefault("runner.kill_grace_ms", defaults.Runner.KillGraceMs)

	viper.SetDefault("output.max_lines", defaults.Output.MaxLines)

	viper.SetDefault("catalog.show_hidden", defaults.Catalog.ShowHidden)
	viper.SetDefault("catalog.watch", defaults.Catalog.Watch)
	viper.SetDefault("catalog.watch_debounce_ms", defaults.Catalog.WatchDebounceMs)
	viper.SetDefault("catalog.write_renames", defaults.Catalog.WriteRenames)

	viper.SetDefault("editor.command", defaults.Editor.Command)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("tui.theme", defaults.TUI.Theme)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "miseq")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".miseq"
	}
	return filepath.Join(home, ".config", "miseq")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
