package commands

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
	"github.com/anatolev-dev/variantgate/internal/store"
)

var (
	listEnabledOnly bool
	listRunningOnly bool
)

var listCmd = &cobra.Command{
	Use:   "list <flags|experiments>",
	Short: "List flags or experiments",
	Long: `List all flags or experiments served by the configured environment.

Examples:
  variantgate list flags --env prod
  variantgate list flags --env prod --enabled-only
  variantgate list experiments --env prod --format json`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"flags", "experiments"},
	RunE: func(cmd *cobra.Command, args []string) error {
		envCfg, _, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)

		ctx := context.Background()
		snap, err := c.Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch snapshot: %w", err)
		}

		switch args[0] {
		case "flags":
			flags := make([]store.Flag, 0, len(snap.Flags))
			for _, f := range snap.Flags {
				if listEnabledOnly && !f.Enabled {
					continue
				}
				flags = append(flags, f)
			}
			sort.Slice(flags, func(i, j int) bool { return flags[i].Key < flags[j].Key })

			if !quiet {
				if len(flags) == 0 {
					fmt.Println("No flags found")
					return nil
				}
				return cli.PrintFlags(flags, cli.OutputFormat(format))
			}
		case "experiments":
			exps := make([]store.Experiment, 0, len(snap.Experiments))
			for _, e := range snap.Experiments {
				if listRunningOnly && e.Status != store.StatusRunning {
					continue
				}
				exps = append(exps, e)
			}
			sort.Slice(exps, func(i, j int) bool { return exps[i].Key < exps[j].Key })

			if !quiet {
				if len(exps) == 0 {
					fmt.Println("No experiments found")
					return nil
				}
				return cli.PrintExperiments(exps, cli.OutputFormat(format))
			}
		default:
			return fmt.Errorf("unknown resource %q, expected 'flags' or 'experiments'", args[0])
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolVar(&listEnabledOnly, "enabled-only", false, "Show only enabled flags")
	listCmd.Flags().BoolVar(&listRunningOnly, "running-only", false, "Show only running experiments")
}
