package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/miseq/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "miseq",
	Short: "Sequence mise tasks into ordered steps",
	Long: `miseq shows the mise tasks of a project as a tree, lets you assign
tasks or whole namespaces to numbered steps, and runs the steps in order,
stopping at the first failure.

Run without a subcommand to open the terminal UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/miseq/config.yaml)")
	rootCmd.PersistentFlags().StringP("dir", "C", "", "project directory (default is the current directory)")
	rootCmd.PersistentFlags().Int("steps", 0, "number of sequence steps (1-9)")
	bindFlags()
}

// bindFlags routes the global flags into viper keys.
func bindFlags() {
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("runner.dir", rootCmd.PersistentFlags().Lookup("dir"))
	_ = viper.BindPFlag("sequence.steps", rootCmd.PersistentFlags().Lookup("steps"))
}

// configSearchPaths lists where config.yaml is looked up, in order.
func configSearchPaths() []string {
	return []string{config.ConfigDir(), "$HOME/.config/miseq", "."}
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		for _, dir := range configSearchPaths() {
			viper.AddConfigPath(dir)
		}
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MISEQ")
	// Replace dots with underscores for nested keys in env vars
	// e.g., MISEQ_RUNNER_BINARY for runner.binary
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
