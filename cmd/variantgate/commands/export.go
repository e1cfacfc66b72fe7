package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anatolev-dev/variantgate/internal/cli"
	"github.com/anatolev-dev/variantgate/internal/client"
	"github.com/anatolev-dev/variantgate/internal/store"
)

var (
	exportOutput string
)

// ExportFormat is the file layout produced by the export command.
type ExportFormat struct {
	Flags       []store.Flag       `yaml:"flags" json:"flags"`
	Experiments []store.Experiment `yaml:"experiments" json:"experiments"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export flags and experiments to a file",
	Long: `Export all flags and experiments from the configured environment to
a YAML or JSON file.

Examples:
  variantgate export --env prod --output configs.yaml
  variantgate export --env prod --output configs.json --format json
  variantgate export --env prod > backup.yaml`,
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

		exportData := ExportFormat{
			Flags:       make([]store.Flag, 0, len(snap.Flags)),
			Experiments: make([]store.Experiment, 0, len(snap.Experiments)),
		}
		for _, f := range snap.Flags {
			exportData.Flags = append(exportData.Flags, f)
		}
		for _, e := range snap.Experiments {
			exportData.Experiments = append(exportData.Experiments, e)
		}
		sort.Slice(exportData.Flags, func(i, j int) bool {
			return exportData.Flags[i].Key < exportData.Flags[j].Key
		})
		sort.Slice(exportData.Experiments, func(i, j int) bool {
			return exportData.Experiments[i].Key < exportData.Experiments[j].Key
		})

		// Determine output destination
		var output *os.File
		if exportOutput == "" || exportOutput == "-" {
			output = os.Stdout
		} else {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		switch format {
		case "json":
			encoder := json.NewEncoder(output)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode JSON: %w", err)
			}
		case "yaml", "table":
			// Default to YAML for export
			encoder := yaml.NewEncoder(output)
			defer encoder.Close()
			encoder.SetIndent(2)
			if err := encoder.Encode(exportData); err != nil {
				return fmt.Errorf("failed to encode YAML: %w", err)
			}
		default:
			return fmt.Errorf("unsupported export format: %s", format)
		}

		if exportOutput != "" && exportOutput != "-" && !quiet {
			fmt.Fprintf(os.Stderr, "Successfully exported %d flag(s) and %d experiment(s) to %s\n",
				len(exportData.Flags), len(exportData.Experiments), exportOutput)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}
