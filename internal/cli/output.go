package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/anatolev-dev/variantgate/internal/evaluation"
	"github.com/anatolev-dev/variantgate/internal/experiments"
	"github.com/anatolev-dev/variantgate/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// PrintFlags outputs flags in the specified format
func PrintFlags(flags []store.Flag, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]store.Flag{"flags": flags})
	case FormatYAML:
		return printYAML(flags)
	case FormatTable:
		return printFlagTable(flags)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintFlag outputs a single flag in the specified format
func PrintFlag(flag *store.Flag, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(flag)
	case FormatYAML:
		return printYAML(flag)
	case FormatTable:
		return printFlagTable([]store.Flag{*flag})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintExperiments outputs experiments in the specified format
func PrintExperiments(exps []store.Experiment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]store.Experiment{"experiments": exps})
	case FormatYAML:
		return printYAML(exps)
	case FormatTable:
		return printExperimentTable(exps)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintExperiment outputs a single experiment in the specified format
func PrintExperiment(exp *store.Experiment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(exp)
	case FormatYAML:
		return printYAML(exp)
	case FormatTable:
		return printExperimentTable([]store.Experiment{*exp})
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintEvaluations outputs flag evaluation results in the specified format
func PrintEvaluations(results []evaluation.Result, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string][]evaluation.Result{"flags": results})
	case FormatYAML:
		return printYAML(results)
	case FormatTable:
		return printEvaluationTable(results)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// PrintAssignments outputs experiment assignments in the specified format.
// Keys without a served assignment are printed with a "-" variation.
func PrintAssignments(assignments map[string]*experiments.Assignment, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return printJSON(map[string]any{"assignments": assignments})
	case FormatYAML:
		return printYAML(assignments)
	case FormatTable:
		return printAssignmentTable(assignments)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func printJSON(data interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(os.Stdout)
	defer encoder.Close()
	encoder.SetIndent(2)
	return encoder.Encode(data)
}

func printFlagTable(flags []store.Flag) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Enabled", "Rollout", "Env", "Description", "Updated At")

	for _, flag := range flags {
		enabled := "false"
		if flag.Enabled {
			enabled = "true"
		}

		rollout := "100%"
		if flag.RolloutPercentage != nil {
			rollout = fmt.Sprintf("%g%%", *flag.RolloutPercentage)
		}

		table.Append(
			flag.Key,
			enabled,
			rollout,
			flag.Env,
			truncate(flag.Description, 40),
			flag.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

func printExperimentTable(exps []store.Experiment) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Key", "Status", "Variations", "Allocation", "Env", "Updated At")

	for _, exp := range exps {
		keys := make([]string, len(exp.Variations))
		for i, v := range exp.Variations {
			keys[i] = v.Key
		}
		alloc := make([]string, len(exp.TrafficAllocation))
		for i, a := range exp.TrafficAllocation {
			alloc[i] = fmt.Sprintf("%s=%g%%", a.VariationKey, a.Percentage)
		}

		table.Append(
			exp.Key,
			string(exp.Status),
			strings.Join(keys, ","),
			strings.Join(alloc, " "),
			exp.Env,
			exp.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}

	return table.Render()
}

func printEvaluationTable(results []evaluation.Result) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Flag", "Served", "Value", "Reason")

	for _, r := range results {
		table.Append(
			r.FlagKey,
			string(r.ServedValue),
			formatValue(r.Value),
			string(r.Reason),
		)
	}

	return table.Render()
}

func printAssignmentTable(assignments map[string]*experiments.Assignment) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Experiment", "Variation", "Control", "Value", "Reason")

	for key, a := range assignments {
		if a == nil {
			table.Append(key, "-", "-", "-", "NOT_SERVED")
			continue
		}
		control := "false"
		if a.IsControl {
			control = "true"
		}
		table.Append(
			a.ExperimentKey,
			a.VariationKey,
			control,
			formatValue(a.Value),
			a.Reason,
		)
	}

	return table.Render()
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return truncate(val, 40)
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return truncate(string(encoded), 40)
	}
}

// truncate shortens s to at most max runes, never cutting a multibyte
// sequence in half.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
