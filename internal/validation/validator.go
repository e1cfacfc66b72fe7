// Package validation enforces the construction-time invariants the
// evaluators assume. Definitions that pass here can be evaluated without
// defensive checks firing: allocation keys reference real variations, the
// split sums to 100, the control exists.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/anatolev-dev/variantgate/internal/store"
)

const (
	// MaxKeyLength is the maximum length for flag and experiment keys.
	MaxKeyLength = 64
	// MaxDescriptionLength is the maximum length for descriptions.
	MaxDescriptionLength = 500
	// AllocationTolerance is how far the traffic-allocation sum may drift
	// from 100 before the definition is rejected.
	AllocationTolerance = 0.01
)

// keyPattern matches alphanumeric characters, underscores, and hyphens.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Result holds field-level validation errors.
type Result struct {
	Valid  bool
	Errors map[string]string
}

// NewResult creates a passing validation result.
func NewResult() *Result {
	return &Result{Valid: true, Errors: make(map[string]string)}
}

// AddError records a field error and marks the result invalid.
func (r *Result) AddError(field, message string) {
	r.Valid = false
	r.Errors[field] = message
}

// Merge combines another validation result into this one.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	for field, message := range other.Errors {
		r.AddError(field, message)
	}
}

// ValidateFlag checks a flag definition.
func ValidateFlag(flag store.Flag) *Result {
	result := NewResult()
	result.Merge(validateKey("key", flag.Key))
	result.Merge(validateDescription(flag.Description))

	if flag.RolloutPercentage != nil {
		if *flag.RolloutPercentage < 0 || *flag.RolloutPercentage > 100 {
			result.AddError("rolloutPercentage", "must be between 0 and 100")
		}
	}
	return result
}

// ValidateExperiment checks an experiment definition against every
// invariant the assignment engine relies on.
func ValidateExperiment(exp store.Experiment) *Result {
	result := NewResult()
	result.Merge(validateKey("key", exp.Key))
	result.Merge(validateDescription(exp.Description))

	switch exp.Status {
	case store.StatusDraft, store.StatusRunning, store.StatusPaused,
		store.StatusCompleted, store.StatusArchived:
	default:
		result.AddError("status", fmt.Sprintf("unknown status %q", exp.Status))
	}

	if exp.ScheduledStartAt != nil && exp.ScheduledEndAt != nil &&
		!exp.ScheduledStartAt.Before(*exp.ScheduledEndAt) {
		result.AddError("scheduledEndAt", "scheduled end must be after scheduled start")
	}

	if len(exp.Variations) < 2 {
		result.AddError("variations", "at least 2 variations are required")
	}
	seen := make(map[string]bool, len(exp.Variations))
	for i, v := range exp.Variations {
		if strings.TrimSpace(v.Key) == "" {
			result.AddError(fmt.Sprintf("variations[%d].key", i), "variation key is required")
			continue
		}
		if seen[v.Key] {
			result.AddError("variations", fmt.Sprintf("duplicate variation key %q", v.Key))
		}
		seen[v.Key] = true
	}

	if exp.ControlVariation != "" && !seen[exp.ControlVariation] {
		result.AddError("controlVariation", fmt.Sprintf("control variation %q is not in variations", exp.ControlVariation))
	}

	total := 0.0
	for i, a := range exp.TrafficAllocation {
		if a.Percentage < 0 || a.Percentage > 100 {
			result.AddError(fmt.Sprintf("trafficAllocation[%d].percentage", i), "must be between 0 and 100")
		}
		if !seen[a.VariationKey] {
			result.AddError(fmt.Sprintf("trafficAllocation[%d].variationKey", i),
				fmt.Sprintf("references unknown variation %q", a.VariationKey))
		}
		total += a.Percentage
	}
	if len(exp.TrafficAllocation) == 0 {
		result.AddError("trafficAllocation", "traffic allocation is required")
	} else if math.Abs(total-100) > AllocationTolerance {
		result.AddError("trafficAllocation", fmt.Sprintf("percentages must sum to 100, got %.2f", total))
	}

	return result
}

func validateKey(field, key string) *Result {
	result := NewResult()
	key = strings.TrimSpace(key)

	if key == "" {
		result.AddError(field, "key is required")
		return result
	}
	if len(key) > MaxKeyLength {
		result.AddError(field, fmt.Sprintf("key must be at most %d characters", MaxKeyLength))
	}
	if !keyPattern.MatchString(key) {
		result.AddError(field, "key may only contain letters, digits, underscores, and hyphens")
	}
	return result
}

func validateDescription(description string) *Result {
	result := NewResult()
	if len(description) > MaxDescriptionLength {
		result.AddError("description", fmt.Sprintf("description must be at most %d characters", MaxDescriptionLength))
	}
	return result
}
