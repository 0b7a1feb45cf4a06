// Package cmd wires the CLI surface. Commands stay thin: they parse
// flags, load config, and delegate to the session and vom packages.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/termpilot/termpilot/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "termpilot",
	Short: "Drive interactive terminal applications programmatically",
	Long: `Termpilot runs terminal applications inside pseudo-terminals and
exposes their screens as structured, addressable UI elements, so
automated agents can read, wait on, and interact with TUIs the way a
person would.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/termpilot/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/termpilot")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("TERMPILOT")
	// Replace dots with underscores for nested keys in env vars
	// e.g., TERMPILOT_SESSION_MAX_SESSIONS for session.max_sessions
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
