// Package commands implements the CLI commands for recipescale.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/recipescale/internal/config"
	"github.com/jmylchreest/recipescale/internal/logger"
)

// v holds every setting; flags are bound into it by each command.
var v = config.New()

// configErr is set by initConfig and reported before a command runs.
var configErr error

var rootCmd = &cobra.Command{
	Use:   "recipescale",
	Short: "Scale a web recipe and build a shopping list",
	Long: `Recipescale reads a recipe from a web page, scales it to the number of
servings you need and writes a consolidated shopping list. It can also
look up matching products at a retailer.

Examples:
  # Scale a recipe to the default number of meals
  recipescale process "https://example.com/garlic-pasta"

  # Scale to 12 servings and print a chat-style summary
  recipescale process "https://example.com/garlic-pasta" 12 --stdout

  # Include retailer product matches
  recipescale process "https://example.com/garlic-pasta" --search

  # Re-run product matching on a saved result
  recipescale match shopping_list.json`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.Init(logger.Options{
			Debug: v.GetBool("debug"),
			Quiet: v.GetBool("quiet"),
			JSON:  v.GetBool("log_json"),
		})
		return configErr
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default $HOME/.recipescale.yaml)")
	flags.String("env-file", ".env", "dotenv file to load before reading the environment")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "suppress progress output")
	flags.Bool("log-json", false, "emit logs as JSON")

	_ = v.BindPFlag("config", flags.Lookup("config"))
	_ = v.BindPFlag("env_file", flags.Lookup("env-file"))
	_ = v.BindPFlag("debug", flags.Lookup("debug"))
	_ = v.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = v.BindPFlag("log_json", flags.Lookup("log-json"))
}

func initConfig() {
	if err := config.LoadDotEnv(v.GetString("env_file")); err != nil {
		configErr = err
		return
	}
	configErr = config.ReadFile(v, v.GetString("config"))
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logError("%v", err)
	}
	return err
}

// bindFlags binds flags of cmd to config keys. It runs when cmd is chosen so
// commands sharing a key do not overwrite each other's bindings.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, flag := range keys {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind --%s: %w", flag, err)
		}
	}
	return nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !v.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
