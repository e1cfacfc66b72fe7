package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

var (
	createEnabled     bool
	createRollout     float64
	createValueA      string
	createValueB      string
	createDescription string
	createCountries   []string
	createInclude     []string
	createExclude     []string
	createFile        string
)

var createCmd = &cobra.Command{
	Use:   "create <flag|experiment> <key>",
	Short: "Create or update a flag or experiment",
	Long: `Create or update a flag or experiment with the specified key.

Flags are defined inline with command options. Experiments carry
variations and a traffic split, so they are defined in a YAML or JSON
file passed with --file.

Examples:
  variantgate create flag checkout_cta --enabled --rollout 50 --env prod
  variantgate create flag promo --value-a '"blue"' --value-b '"gray"' --countries US,CA
  variantgate create experiment new_layout --file new_layout.yaml --env prod`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, key := args[0], args[1]

		envCfg, effectiveEnv, err := cli.GetEnvConfig(env, baseURL, apiKey)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		c := client.NewClient(envCfg.BaseURL, envCfg.APIKey)
		ctx := context.Background()

		switch kind {
		case "flag":
			flag := store.Flag{
				Key:         key,
				Description: createDescription,
				Enabled:     createEnabled,
				Env:         effectiveEnv,
			}
			if flag.ValueA, err = parseJSONValue(createValueA); err != nil {
				return fmt.Errorf("invalid --value-a: %w", err)
			}
			if flag.ValueB, err = parseJSONValue(createValueB); err != nil {
				return fmt.Errorf("invalid --value-b: %w", err)
			}
			if cmd.Flags().Changed("rollout") {
				rollout := createRollout
				flag.RolloutPercentage = &rollout
			}
			for _, country := range createCountries {
				flag.Targeting.Countries = append(flag.Targeting.Countries, targeting.CountryTarget{Country: country})
			}
			flag.Targeting.ForceIncludeUsers = createInclude
			flag.Targeting.ForceExcludeUsers = createExclude

			if err := c.UpsertFlag(ctx, flag); err != nil {
				return fmt.Errorf("failed to create flag: %w", err)
			}

			if !quiet {
				fmt.Printf("Successfully created flag '%s' in environment '%s'\n", key, effectiveEnv)
			}
		case "experiment":
			if createFile == "" {
				return fmt.Errorf("--file is required when creating an experiment")
			}
			exp, err := loadExperimentFile(createFile)
			if err != nil {
				return err
			}
			exp.Key = key
			exp.Env = effectiveEnv

			if err := c.UpsertExperiment(ctx, *exp); err != nil {
				return fmt.Errorf("failed to create experiment: %w", err)
			}

			if !quiet {
				fmt.Printf("Successfully created experiment '%s' in environment '%s'\n", key, effectiveEnv)
			}
		default:
			return fmt.Errorf("unknown resource %q, expected 'flag' or 'experiment'", kind)
		}

		return nil
	},
}

// parseJSONValue parses an optional JSON literal. An empty string yields nil.
func parseJSONValue(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// loadExperimentFile reads an experiment definition from a YAML or JSON file.
// YAML is the superset parser here, so a single decode path covers both.
func loadExperimentFile(path string) (*store.Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiment file: %w", err)
	}

	var exp store.Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("failed to parse experiment file: %w", err)
	}
	return &exp, nil
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().BoolVar(&createEnabled, "enabled", false, "Enable the flag")
	createCmd.Flags().Float64Var(&createRollout, "rollout", 100, "Rollout percentage for the A value (0-100)")
	createCmd.Flags().StringVar(&createValueA, "value-a", "", "Flag A value as JSON")
	createCmd.Flags().StringVar(&createValueB, "value-b", "", "Flag B value as JSON")
	createCmd.Flags().StringVar(&createDescription, "description", "", "Description")
	createCmd.Flags().StringSliceVar(&createCountries, "countries", nil, "Targeted country codes")
	createCmd.Flags().StringSliceVar(&createInclude, "include", nil, "Force-included user IDs")
	createCmd.Flags().StringSliceVar(&createExclude, "exclude", nil, "Force-excluded user IDs")
	createCmd.Flags().StringVarP(&createFile, "file", "f", "", "Experiment definition file (YAML or JSON)")
}
