package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
)

var getCmd = &cobra.Command{
	Use:   "get <flag|experiment> <key>",
	Short: "Get a flag or experiment",
	Long: `Get details of a specific flag or experiment.

Examples:
  variantgate get flag checkout_cta --env prod
  variantgate get experiment new_layout --env prod --format json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, key := args[0], args[1]

		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		switch kind {
		case "flag":
			flag, err := c.GetFlag(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to get flag: %w", err)
			}
			if !quiet {
				return cli.PrintFlag(flag, cli.OutputFormat(format))
			}
		case "experiment":
			exp, err := c.GetExperiment(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to get experiment: %w", err)
			}
			if !quiet {
				return cli.PrintExperiment(exp, cli.OutputFormat(format))
			}
		default:
			return fmt.Errorf("unknown resource %q, expected 'flag' or 'experiment'", kind)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
