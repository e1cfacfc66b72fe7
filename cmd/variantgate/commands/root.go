package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	baseURL string
	apiKey  string
	env     string
	format  string
	quiet   bool
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "variantgate",
	Short: "CLI tool for managing flags and experiments",
	Long: `Variantgate is a command-line tool for managing feature flags and
experiments in the variantgate service.

It provides commands for creating, reading, and deleting flags and
experiments, testing assignments for a given user, and exporting
configurations.

Examples:
  variantgate list flags --env prod
  variantgate create flag checkout_cta --enabled --env prod
  variantgate get experiment new_layout --env prod
  variantgate evaluate --user user-1 --country US
  variantgate export --env prod --output configs.yaml`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the variantgate API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for authentication")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "Environment (dev, staging, prod)")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose output")
}
