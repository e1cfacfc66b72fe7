package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
)

var (
	deleteForce bool
)

var deleteCmd = &cobra.Command{
	Use:   "delete <flag|experiment> <key>",
	Short: "Delete a flag or experiment",
	Long: `Delete a flag or experiment from the specified environment.

Examples:
  variantgate delete flag checkout_cta --env prod
  variantgate delete experiment new_layout --env prod --force`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, key := args[0], args[1]
		if kind != "flag" && kind != "experiment" {
			return fmt.Errorf("unknown resource %q, expected 'flag' or 'experiment'", kind)
		}

		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// Confirm deletion unless --force
		if !deleteForce && !quiet {
			fmt.Printf("Are you sure you want to delete %s '%s' from environment '%s'? (y/N): ", kind, key, effectiveEnv)
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("failed to read confirmation: %w", err)
			}
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				fmt.Println("Deletion cancelled")
				return nil
			}
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		if kind == "flag" {
			err = c.DeleteFlag(ctx, key, effectiveEnv)
		} else {
			err = c.DeleteExperiment(ctx, key, effectiveEnv)
		}
		if err != nil {
			return fmt.Errorf("failed to delete %s: %w", kind, err)
		}

		if !quiet {
			fmt.Printf("Successfully deleted %s '%s' from environment '%s'\n", kind, key, effectiveEnv)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)

	deleteCmd.Flags().BoolVar(&deleteForce, "force", false, "Skip confirmation prompt")
}
