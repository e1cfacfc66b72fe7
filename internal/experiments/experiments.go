// Package experiments assigns user contexts to experiment variations.
//
// Like flag evaluation, assignment is pure and synchronous: the caller
// hands in an immutable experiment snapshot and a context, and gets back an
// Assignment or nil. A nil result means not assigned: the experiment is not
// running, not yet started, already ended, or the user is outside the
// targeting rule. The evaluator records nothing; exposure logging is the
// stats collector's job downstream.
package experiments

import (
	"time"

	"github.com/anatolev-dev/variantgate/internal/bucketing"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

// ReasonHashAssignment is the reason attached to every successful
// assignment. The string is part of the wire contract with SDKs.
const ReasonHashAssignment = "HASH_ASSIGNMENT"

// Assignment is the result of resolving a user to an experiment variation.
// Ephemeral: callers may log it downstream, the evaluator never does.
type Assignment struct {
	ExperimentKey string `json:"experimentKey"`
	VariationKey  string `json:"variationKey"`
	Value         any    `json:"value"`
	IsControl     bool   `json:"isControl"`
	Reason        string `json:"reason"`
}

// AssignVariation resolves ctx to a variation of exp against the wall
// clock. Returns nil when the user is not assigned.
func AssignVariation(exp store.Experiment, ctx targeting.Context) *Assignment {
	return AssignVariationAt(exp, ctx, time.Now().UTC())
}

// AssignVariationAt is AssignVariation with an explicit evaluation time,
// used by tests and the admin preview tool. Gates run in strict order and
// short-circuit on the first ineligible condition:
//
//  1. status must be running
//  2. scheduledStartAt must not be in the future
//  3. scheduledEndAt must not be in the past
//  4. targeting must not exclude the user (force-exclude beats
//     force-include; force-include skips the geo gates)
//  5. cumulative traffic-allocation walk over the user's bucket
//
// The bucket hashes the experiment key, so each experiment (and each flag)
// buckets users in an independent namespace.
func AssignVariationAt(exp store.Experiment, ctx targeting.Context, now time.Time) *Assignment {
	if exp.Status != store.StatusRunning {
		return nil
	}
	if exp.ScheduledStartAt != nil && exp.ScheduledStartAt.After(now) {
		return nil
	}
	if exp.ScheduledEndAt != nil && exp.ScheduledEndAt.Before(now) {
		return nil
	}

	switch targeting.Match(exp.Targeting, ctx) {
	case targeting.ForceExcluded, targeting.NotMatched:
		return nil
	}

	pct := bucketing.BucketPercentage(exp.Key, ctx.UserID)

	variationKey := ""
	cumulative := 0.0
	for _, allocation := range exp.TrafficAllocation {
		cumulative += allocation.Percentage
		if pct < cumulative {
			variationKey = allocation.VariationKey
			break
		}
	}
	if variationKey == "" {
		// Rounding overshoot: allocations summing below 100 after float
		// accumulation can leave pct past the final range. Fall back to the
		// last entry of Variations (not the last allocation) to match the
		// deployed SDKs.
		if len(exp.Variations) == 0 {
			return nil
		}
		variationKey = exp.Variations[len(exp.Variations)-1].Key
	}

	variation, ok := findVariation(exp.Variations, variationKey)
	if !ok {
		// Allocation references a variation that does not exist. Schema
		// validation upstream should prevent this; return no assignment
		// rather than a malformed one.
		return nil
	}

	return &Assignment{
		ExperimentKey: exp.Key,
		VariationKey:  variation.Key,
		Value:         variation.Value,
		IsControl:     variation.IsControl,
		Reason:        ReasonHashAssignment,
	}
}

// AssignMultiple evaluates each experiment independently in input order.
// Experiments that do not assign are omitted from the map.
func AssignMultiple(exps []store.Experiment, ctx targeting.Context) map[string]*Assignment {
	return AssignMultipleAt(exps, ctx, time.Now().UTC())
}

// AssignMultipleAt is AssignMultiple with an explicit evaluation time.
func AssignMultipleAt(exps []store.Experiment, ctx targeting.Context, now time.Time) map[string]*Assignment {
	assignments := make(map[string]*Assignment, len(exps))
	for _, exp := range exps {
		if a := AssignVariationAt(exp, ctx, now); a != nil {
			assignments[exp.Key] = a
		}
	}
	return assignments
}

// PreviewVariation computes the assignment ctx would receive without the
// call counting as an exposure. The computation is identical to
// AssignVariation; callers must not report preview results to the stats
// collector. Used by the admin "test evaluation" tooling.
func PreviewVariation(exp store.Experiment, ctx targeting.Context, now time.Time) *Assignment {
	return AssignVariationAt(exp, ctx, now)
}

func findVariation(variations []store.Variation, key string) (store.Variation, bool) {
	for _, v := range variations {
		if v.Key == key {
			return v, true
		}
	}
	return store.Variation{}, false
}
