package evaluation

import (
	"strconv"
	"testing"

	"github.com/anatolev-dev/variantgate/internal/store"
	"github.com/anatolev-dev/variantgate/internal/targeting"
)

func enabledFlag() store.Flag {
	return store.Flag{
		Key:     "new_header",
		Enabled: true,
		ValueA:  "treatment",
		ValueB:  "default",
	}
}

func TestEvaluateFlag_DisabledAlwaysServesB(t *testing.T) {
	flag := enabledFlag()
	flag.Enabled = false
	flag.Targeting.ForceIncludeUsers = []string{"u1"}

	result := EvaluateFlag(flag, targeting.Context{UserID: "u1"})
	if result.ServedValue != ServedB || result.Reason != ReasonFlagDisabled {
		t.Errorf("expected B/FLAG_DISABLED, got %s/%s", result.ServedValue, result.Reason)
	}
	if result.Value != "default" {
		t.Errorf("expected B value, got %v", result.Value)
	}
}

func TestEvaluateFlag_ExcludeWinsOverInclude(t *testing.T) {
	flag := enabledFlag()
	flag.Targeting.ForceExcludeUsers = []string{"u1"}
	flag.Targeting.ForceIncludeUsers = []string{"u1"}

	result := EvaluateFlag(flag, targeting.Context{UserID: "u1"})
	if result.ServedValue != ServedB || result.Reason != ReasonForceExcluded {
		t.Errorf("expected B/FORCE_EXCLUDED, got %s/%s", result.ServedValue, result.Reason)
	}
}

func TestEvaluateFlag_ForceIncludeOverridesGeo(t *testing.T) {
	flag := enabledFlag()
	flag.Targeting.ForceIncludeUsers = []string{"u1"}
	flag.Targeting.Countries = []targeting.CountryTarget{{Country: "US"}}

	// No country in context, but the allow list wins.
	result := EvaluateFlag(flag, targeting.Context{UserID: "u1"})
	if result.ServedValue != ServedA || result.Reason != ReasonForceIncluded {
		t.Errorf("expected A/FORCE_INCLUDED, got %s/%s", result.ServedValue, result.Reason)
	}
}

func TestEvaluateFlag_MissingCountryFailsClosed(t *testing.T) {
	flag := enabledFlag()
	flag.Targeting.Countries = []targeting.CountryTarget{{Country: "US"}}

	result := EvaluateFlag(flag, targeting.Context{UserID: "u2"})
	if result.ServedValue != ServedB || result.Reason != ReasonNotInTarget {
		t.Errorf("expected B/NOT_IN_TARGET, got %s/%s", result.ServedValue, result.Reason)
	}
}

func TestEvaluateFlag_NoRolloutServesAToAllEligible(t *testing.T) {
	flag := enabledFlag()
	for i := 0; i < 100; i++ {
		result := EvaluateFlag(flag, targeting.Context{UserID: "user-" + strconv.Itoa(i)})
		if result.ServedValue != ServedA || result.Reason != ReasonHashAssignment {
			t.Fatalf("expected A/HASH_ASSIGNMENT for every user, got %s/%s", result.ServedValue, result.Reason)
		}
	}
}

func TestEvaluateFlag_RolloutThreshold(t *testing.T) {
	flag := enabledFlag()
	rollout := 50.0
	flag.RolloutPercentage = &rollout

	// Precomputed buckets for flagKey "new_header":
	// user-4 -> 37.94 (inside 50%), user-1 -> 85.94 (outside).
	in := EvaluateFlag(flag, targeting.Context{UserID: "user-4"})
	if in.ServedValue != ServedA || in.Reason != ReasonHashAssignment {
		t.Errorf("user-4: expected A/HASH_ASSIGNMENT, got %s/%s", in.ServedValue, in.Reason)
	}

	out := EvaluateFlag(flag, targeting.Context{UserID: "user-1"})
	if out.ServedValue != ServedB || out.Reason != ReasonNotInRollout {
		t.Errorf("user-1: expected B/NOT_IN_ROLLOUT, got %s/%s", out.ServedValue, out.Reason)
	}
}

func TestEvaluateFlag_RolloutZeroServesBToAll(t *testing.T) {
	flag := enabledFlag()
	rollout := 0.0
	flag.RolloutPercentage = &rollout

	for i := 0; i < 100; i++ {
		result := EvaluateFlag(flag, targeting.Context{UserID: "user-" + strconv.Itoa(i)})
		if result.ServedValue != ServedB {
			t.Fatalf("expected B for every user at 0%% rollout, got A for user-%d", i)
		}
	}
}

func TestEvaluateFlag_RolloutDistribution(t *testing.T) {
	flag := enabledFlag()
	rollout := 30.0
	flag.RolloutPercentage = &rollout

	servedA := 0
	for i := 0; i < 10000; i++ {
		result := EvaluateFlag(flag, targeting.Context{UserID: "user-" + strconv.Itoa(i)})
		if result.ServedValue == ServedA {
			servedA++
		}
	}
	// Expect ~30% (3000), 5% tolerance.
	if servedA < 2500 || servedA > 3500 {
		t.Errorf("expected ~3000 users on A at 30%% rollout, got %d", servedA)
	}
}

func TestEvaluateFlag_Deterministic(t *testing.T) {
	flag := enabledFlag()
	rollout := 50.0
	flag.RolloutPercentage = &rollout
	ctx := targeting.Context{UserID: "user-123"}

	first := EvaluateFlag(flag, ctx)
	for i := 0; i < 50; i++ {
		if got := EvaluateFlag(flag, ctx); got != first {
			t.Fatalf("evaluation not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestEvaluateFlag_GeoAndLanguage(t *testing.T) {
	flag := enabledFlag()
	flag.Targeting.Countries = []targeting.CountryTarget{
		{Country: "BR", Languages: []string{"pt"}},
		{Country: "US"},
	}

	matched := EvaluateFlag(flag, targeting.Context{UserID: "u1", Country: "br", Language: "PT"})
	if matched.ServedValue != ServedA {
		t.Errorf("expected A for matching country+language, got %s/%s", matched.ServedValue, matched.Reason)
	}

	wrongLang := EvaluateFlag(flag, targeting.Context{UserID: "u1", Country: "BR", Language: "es"})
	if wrongLang.ServedValue != ServedB || wrongLang.Reason != ReasonNotInTarget {
		t.Errorf("expected B/NOT_IN_TARGET for wrong language, got %s/%s", wrongLang.ServedValue, wrongLang.Reason)
	}
}

func TestEvaluateAll_KeyFilter(t *testing.T) {
	flags := map[string]store.Flag{
		"one": {Key: "one", Enabled: true, ValueA: 1, ValueB: 0},
		"two": {Key: "two", Enabled: false, ValueA: 1, ValueB: 0},
	}
	ctx := targeting.Context{UserID: "u1"}

	results := EvaluateAll(flags, ctx, []string{"two", "missing"})
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].FlagKey != "two" || results[0].Reason != ReasonFlagDisabled {
		t.Errorf("unexpected result: %+v", results[0])
	}

	all := EvaluateAll(flags, ctx, nil)
	if len(all) != 2 {
		t.Errorf("expected 2 results without filter, got %d", len(all))
	}
}

func TestEvaluateAll_EmptyMap(t *testing.T) {
	results := EvaluateAll(nil, targeting.Context{UserID: "u1"}, nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", results)
	}
}
