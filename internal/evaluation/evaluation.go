// Package evaluation resolves two-value feature flags for a user context.
//
// Evaluation is pure: no I/O, no shared state, safe to call concurrently.
// The caller passes an immutable flag snapshot; how that snapshot is
// obtained or refreshed is the store/snapshot layer's concern.
//
// The check order is a contract shared with every SDK, first match wins:
//
//  1. Flag disabled               -> B, FLAG_DISABLED
//  2. User force-excluded         -> B, FORCE_EXCLUDED
//  3. User force-included         -> A, FORCE_INCLUDED
//  4. Targeting not matched       -> B, NOT_IN_TARGET
//  5. Bucket >= rollout threshold -> B, NOT_IN_ROLLOUT
//  6. Everything passed           -> A, HASH_ASSIGNMENT
package evaluation

import (
	"github.com/anatolev-dev/variantgate/internal/bucketing"
	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

// ServedValue identifies which side of a two-value flag was served.
type ServedValue string

const (
	ServedA ServedValue = "A"
	ServedB ServedValue = "B"
)

// Reason explains an evaluation outcome. The string values are part of the
// wire contract with SDKs and the admin preview tool.
type Reason string

const (
	ReasonFlagDisabled   Reason = "FLAG_DISABLED"
	ReasonForceExcluded  Reason = "FORCE_EXCLUDED"
	ReasonForceIncluded  Reason = "FORCE_INCLUDED"
	ReasonNotInTarget    Reason = "NOT_IN_TARGET"
	ReasonNotInRollout   Reason = "NOT_IN_ROLLOUT"
	ReasonHashAssignment Reason = "HASH_ASSIGNMENT"
)

// Result is the outcome of evaluating a single flag.
type Result struct {
	FlagKey     string      `json:"flagKey"`
	ServedValue ServedValue `json:"servedValue"`
	Value       any         `json:"value"`
	Reason      Reason      `json:"reason"`
}

// EvaluateFlag evaluates one flag for the given context. It never fails:
// malformed or missing optional context fields degrade to serving B rather
// than raising.
func EvaluateFlag(flag store.Flag, ctx targeting.Context) Result {
	if !flag.Enabled {
		return serveB(flag, ReasonFlagDisabled)
	}

	switch targeting.Match(flag.Targeting, ctx) {
	case targeting.ForceExcluded:
		return serveB(flag, ReasonForceExcluded)
	case targeting.ForceIncluded:
		return serveA(flag, ReasonForceIncluded)
	case targeting.NotMatched:
		return serveB(flag, ReasonNotInTarget)
	}

	// Rollout gate. No explicit percentage means every eligible user gets A;
	// the bucket is still deterministic per (flagKey, userId) so dialing a
	// percentage up later only adds users, never reshuffles them.
	if flag.RolloutPercentage != nil {
		pct := bucketing.BucketPercentage(flag.Key, ctx.UserID)
		if pct >= *flag.RolloutPercentage {
			return serveB(flag, ReasonNotInRollout)
		}
	}

	return serveA(flag, ReasonHashAssignment)
}

// EvaluateAll evaluates flags for the given context. When keys is non-empty
// it acts as a filter; keys that do not exist in the map are silently
// skipped. Result order follows keys when filtering, map order otherwise.
func EvaluateAll(flags map[string]store.Flag, ctx targeting.Context, keys []string) []Result {
	var results []Result
	if len(keys) > 0 {
		results = make([]Result, 0, len(keys))
		for _, key := range keys {
			if flag, exists := flags[key]; exists {
				results = append(results, EvaluateFlag(flag, ctx))
			}
		}
		return results
	}

	results = make([]Result, 0, len(flags))
	for _, flag := range flags {
		results = append(results, EvaluateFlag(flag, ctx))
	}
	return results
}

func serveA(flag store.Flag, reason Reason) Result {
	return Result{FlagKey: flag.Key, ServedValue: ServedA, Value: flag.ValueA, Reason: reason}
}

func serveB(flag store.Flag, reason Reason) Result {
	return Result{FlagKey: flag.Key, ServedValue: ServedB, Value: flag.ValueB, Reason: reason}
}
