// Package targeting decides whether a user context is eligible for a flag or
// experiment. The same rule shape gates both: explicit force lists, then
// country/language matching, then optional version and expression gates.
// Force-exclude always wins. Everything here is pure and allocation-light;
// both evaluators call Match on the hot path.
package targeting

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/diegoholiveira/jsonlogic/v3"
)

// Context carries the caller-supplied user attributes for one evaluation.
// Country and language always come from the request payload, never from
// network headers: IP geolocation is unreliable for VPN users, so geography
// is the caller's statement, not ours.
type Context struct {
	UserID     string `json:"userId"`
	Country    string `json:"country,omitempty"`    // ISO 3166-1 alpha-2, e.g. "US"
	Language   string `json:"language,omitempty"`   // ISO 639, e.g. "en", "pt"
	AppVersion string `json:"appVersion,omitempty"` // semver, e.g. "2.4.1"
}

// CountryTarget matches a single country, optionally narrowed to languages.
// An empty Languages list means any language in that country matches.
type CountryTarget struct {
	Country   string   `json:"country"`
	Languages []string `json:"languages,omitempty"`
}

// Rule is the targeting rule embedded in both flag and experiment
// definitions. Countries are OR-ed; force lists bypass them entirely.
type Rule struct {
	ForceIncludeUsers []string        `json:"forceIncludeUsers,omitempty"`
	ForceExcludeUsers []string        `json:"forceExcludeUsers,omitempty"`
	Countries         []CountryTarget `json:"countries,omitempty"`
	MinAppVersion     string          `json:"minAppVersion,omitempty"`
	MaxAppVersion     string          `json:"maxAppVersion,omitempty"`
	Expression        string          `json:"expression,omitempty"` // JSON Logic, optional
}

// Decision is the outcome of matching a rule against a context.
type Decision int

const (
	// ForceExcluded: the user is on the deny list. Wins over everything.
	ForceExcluded Decision = iota
	// ForceIncluded: the user is on the allow list and not denied. Skips
	// geo, version, and expression checks.
	ForceIncluded
	// Matched: all configured gates passed.
	Matched
	// NotMatched: a configured gate failed, or a required context field was
	// missing (fail closed).
	NotMatched
)

// Match evaluates rule against ctx. Missing optional context fields degrade
// to NotMatched when the corresponding gate is configured; no gate
// configured means the gate passes.
func Match(rule Rule, ctx Context) Decision {
	if containsUser(rule.ForceExcludeUsers, ctx.UserID) {
		return ForceExcluded
	}
	if containsUser(rule.ForceIncludeUsers, ctx.UserID) {
		return ForceIncluded
	}
	if !matchesCountries(rule.Countries, ctx) {
		return NotMatched
	}
	if !matchesVersion(rule, ctx) {
		return NotMatched
	}
	if !matchesExpression(rule.Expression, ctx) {
		return NotMatched
	}
	return Matched
}

func containsUser(users []string, userID string) bool {
	if userID == "" {
		return false
	}
	for _, u := range users {
		if u == userID {
			return true
		}
	}
	return false
}

// matchesCountries implements the OR-across-countries semantics. A country
// entry with languages additionally requires a language match. Both sides
// are compared case-insensitively; upstream data is not pre-normalized.
func matchesCountries(countries []CountryTarget, ctx Context) bool {
	if len(countries) == 0 {
		return true
	}
	if ctx.Country == "" {
		return false
	}
	for _, target := range countries {
		if !strings.EqualFold(target.Country, ctx.Country) {
			continue
		}
		if len(target.Languages) == 0 {
			return true
		}
		if ctx.Language == "" {
			return false
		}
		for _, lang := range target.Languages {
			if strings.EqualFold(lang, ctx.Language) {
				return true
			}
		}
		return false
	}
	return false
}

// matchesVersion applies inclusive min/max semver bounds. A configured bound
// with a missing or unparsable context version fails closed, as does an
// unparsable bound itself.
func matchesVersion(rule Rule, ctx Context) bool {
	if rule.MinAppVersion == "" && rule.MaxAppVersion == "" {
		return true
	}
	current, err := semver.NewVersion(ctx.AppVersion)
	if err != nil {
		return false
	}
	if rule.MinAppVersion != "" {
		min, err := semver.NewVersion(rule.MinAppVersion)
		if err != nil || current.LessThan(min) {
			return false
		}
	}
	if rule.MaxAppVersion != "" {
		max, err := semver.NewVersion(rule.MaxAppVersion)
		if err != nil || current.GreaterThan(max) {
			return false
		}
	}
	return true
}

// matchesExpression evaluates an optional JSON Logic expression against the
// context attributes. Invalid expressions and falsy results both exclude.
func matchesExpression(expression string, ctx Context) bool {
	if strings.TrimSpace(expression) == "" {
		return true
	}

	data, err := json.Marshal(map[string]any{
		"userId":     ctx.UserID,
		"country":    ctx.Country,
		"language":   ctx.Language,
		"appVersion": ctx.AppVersion,
	})
	if err != nil {
		return false
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(strings.NewReader(expression), bytes.NewReader(data), &result); err != nil {
		return false
	}

	var v any
	if err := json.Unmarshal(result.Bytes(), &v); err != nil {
		return false
	}
	return isTruthy(v)
}

// isTruthy follows JavaScript-like truthiness so expressions behave the same
// here and in the browser SDK.
func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		return true
	}
}
