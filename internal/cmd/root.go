package cmd

import (
	"strings"

	"github.com/Iron-Ham/idecore/internal/config"
	"github.com/Iron-Ham/idecore/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "idecore",
	Short: "Inspect and maintain IDE project state",
	Long: `idecore opens projects the way the IDE does and inspects the state it
keeps between sessions: navigation history, unsaved drafts and the
recent-projects index.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/idecore/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("IDECORE")
	// e.g. IDECORE_HISTORY_MAX_ITEMS for history.max_items
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	_ = viper.ReadInConfig()
}

// loadConfig returns the validated configuration for a command.
func loadConfig() (*config.Config, error) {
	return config.Load()
}

// newLogger opens the file logger when logging is enabled.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	l, err := logging.NewLogger(cfg.LogDir(), cfg.Logging.Level)
	if err != nil {
		return logging.NopLogger()
	}
	return l
}
