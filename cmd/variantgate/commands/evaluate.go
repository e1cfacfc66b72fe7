package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

var (
	evalUserID      string
	evalCountry     string
	evalLanguage    string
	evalAppVersion  string
	evalKeys        []string
	evalExperiments bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate flags or preview experiment assignments for a user",
	Long: `Evaluate flags for a synthetic user context, or preview which
experiment variation the user would be assigned. Previews never record
an exposure, so this is safe to run against production.

Examples:
  variantgate evaluate --user user-1 --country US --env prod
  variantgate evaluate --user user-1 --keys checkout_cta,promo_banner
  variantgate evaluate --user user-1 --experiments --app-version 2.4.1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if evalUserID == "" {
			return fmt.Errorf("--user is required")
		}

		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		user := targeting.Context{
			UserID:     evalUserID,
			Country:    evalCountry,
			Language:   evalLanguage,
			AppVersion: evalAppVersion,
		}

		if evalExperiments {
			resp, err := c.PreviewExperiments(ctx, user, evalKeys)
			if err != nil {
				return fmt.Errorf("failed to preview experiments: %w", err)
			}
			if !quiet {
				if len(resp.Assignments) == 0 {
					fmt.Println("No experiments found")
					return nil
				}
				return cli.PrintAssignments(resp.Assignments, cli.OutputFormat(format))
			}
			return nil
		}

		resp, err := c.EvaluateFlags(ctx, user, evalKeys)
		if err != nil {
			return fmt.Errorf("failed to evaluate flags: %w", err)
		}
		if !quiet {
			if len(resp.Flags) == 0 {
				fmt.Println("No flags found")
				return nil
			}
			return cli.PrintEvaluations(resp.Flags, cli.OutputFormat(format))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evalUserID, "user", "", "User ID to evaluate as (required)")
	evaluateCmd.Flags().StringVar(&evalCountry, "country", "", "User country code (ISO 3166-1 alpha-2)")
	evaluateCmd.Flags().StringVar(&evalLanguage, "language", "", "User language code (ISO 639)")
	evaluateCmd.Flags().StringVar(&evalAppVersion, "app-version", "", "User app version (semver)")
	evaluateCmd.Flags().StringSliceVar(&evalKeys, "keys", nil, "Restrict to specific keys")
	evaluateCmd.Flags().BoolVar(&evalExperiments, "experiments", false, "Preview experiment assignments instead of flags")
}
