package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/miseq/internal/config"
	"github.com/Iron-Ham/miseq/internal/tui/styles"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify miseq configuration",
	Long: `View or modify miseq configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  miseq config set sequence.steps 5
  miseq config set runner.kill_grace_ms 5000
  miseq config set tui.theme mono

The new value is validated before the file is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/miseq/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configThemesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the built-in TUI themes",
	RunE:  runConfigThemes,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configThemesCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	// Show where config is being read from
	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// parseConfigValue converts value to the type of the key's default.
func parseConfigValue(key, value string) (any, error) {
	if !slices.Contains(viper.AllKeys(), key) || key == "config" {
		return nil, fmt.Errorf("unknown configuration key: %s\nRun 'miseq config show' to see valid keys", key)
	}
	switch viper.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case int:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	typedValue, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}

	// Validate the whole config with the new value before writing anything
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		return err
	}

	// Ensure config directory exists
	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %v\nConfig saved to %s\n", key, typedValue, configFile)
	return nil
}

// defaultConfigFile renders the commented config written by config init.
func defaultConfigFile() ([]byte, error) {
	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return nil, err
	}
	header := `# miseq configuration
#
# sequence.steps        number of step columns (1-9)
# runner.binary         mise executable
# runner.dir            project directory ("" = current directory)
# runner.force_color    keep task colors when output is captured
# runner.kill_grace_ms  SIGTERM to SIGKILL delay when stopping a task
# output.max_lines      run output kept in memory
# catalog.show_hidden   list tasks marked hide = true
# catalog.watch         reload when mise config files change
# catalog.write_renames rename the mise task on disk when renaming
# editor.command        editor for the edit action ("" = $VISUAL, $EDITOR, code)
# logging.enabled       write a JSON debug log
# tui.theme             default or mono

`
	return append([]byte(header), data...), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	// Check if config file already exists
	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'miseq config set' to modify values", configFile)
	}

	// Create config directory
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := defaultConfigFile()
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	// Also show config search paths
	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintf(out, "  2. $HOME/.config/miseq/config.yaml\n")
	fmt.Fprintln(out, "\nEnvironment variables: MISEQ_* (e.g., MISEQ_RUNNER_BINARY)")

	return nil
}

func runConfigThemes(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	current := viper.GetString("tui.theme")
	for _, name := range styles.BuiltinThemes() {
		marker := "  "
		if name == current {
			marker = "* "
		}
		p := styles.GetPalette(styles.ThemeName(name))
		var swatch strings.Builder
		for _, c := range p.Steps {
			swatch.WriteString(lipgloss.NewStyle().Foreground(c).Render("■"))
		}
		fmt.Fprintf(out, "%s%-8s %s\n", marker, name, swatch.String())
	}
	return nil
}
