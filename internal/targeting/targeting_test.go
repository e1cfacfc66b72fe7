package targeting

import "testing"

func TestMatch_ForceExcludeWinsOverInclude(t *testing.T) {
	rule := Rule{
		ForceIncludeUsers: []string{"u1"},
		ForceExcludeUsers: []string{"u1"},
	}
	if got := Match(rule, Context{UserID: "u1"}); got != ForceExcluded {
		t.Errorf("expected ForceExcluded, got %v", got)
	}
}

func TestMatch_ForceIncludeBypassesGeo(t *testing.T) {
	rule := Rule{
		ForceIncludeUsers: []string{"u1"},
		Countries:         []CountryTarget{{Country: "US"}},
	}
	// u1 has no country at all and would fail geo targeting.
	if got := Match(rule, Context{UserID: "u1"}); got != ForceIncluded {
		t.Errorf("expected ForceIncluded, got %v", got)
	}
}

func TestMatch_EmptyRuleMatchesEveryone(t *testing.T) {
	if got := Match(Rule{}, Context{UserID: "anyone"}); got != Matched {
		t.Errorf("expected Matched, got %v", got)
	}
}

func TestMatch_MissingCountryFailsClosed(t *testing.T) {
	rule := Rule{Countries: []CountryTarget{{Country: "US"}}}
	if got := Match(rule, Context{UserID: "u2"}); got != NotMatched {
		t.Errorf("expected NotMatched for missing country, got %v", got)
	}
}

func TestMatch_CountryCaseInsensitive(t *testing.T) {
	rule := Rule{Countries: []CountryTarget{{Country: "us"}}}
	if got := Match(rule, Context{UserID: "u1", Country: "US"}); got != Matched {
		t.Errorf("expected Matched for case-insensitive country, got %v", got)
	}
}

func TestMatch_CountryOrSemantics(t *testing.T) {
	rule := Rule{Countries: []CountryTarget{{Country: "US"}, {Country: "CA"}}}
	if got := Match(rule, Context{UserID: "u1", Country: "CA"}); got != Matched {
		t.Errorf("expected Matched for second country entry, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", Country: "BR"}); got != NotMatched {
		t.Errorf("expected NotMatched for unlisted country, got %v", got)
	}
}

func TestMatch_LanguageNarrowsCountry(t *testing.T) {
	rule := Rule{Countries: []CountryTarget{{Country: "CA", Languages: []string{"fr"}}}}

	if got := Match(rule, Context{UserID: "u1", Country: "CA", Language: "FR"}); got != Matched {
		t.Errorf("expected Matched for case-insensitive language, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", Country: "CA", Language: "en"}); got != NotMatched {
		t.Errorf("expected NotMatched for wrong language, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", Country: "CA"}); got != NotMatched {
		t.Errorf("expected NotMatched for missing language, got %v", got)
	}
}

func TestMatch_CountryWithoutLanguagesAcceptsAny(t *testing.T) {
	rule := Rule{Countries: []CountryTarget{{Country: "US"}}}
	if got := Match(rule, Context{UserID: "u1", Country: "us", Language: "xx"}); got != Matched {
		t.Errorf("expected Matched, got %v", got)
	}
}

func TestMatch_VersionBounds(t *testing.T) {
	rule := Rule{MinAppVersion: "2.0.0", MaxAppVersion: "3.0.0"}

	if got := Match(rule, Context{UserID: "u1", AppVersion: "2.4.1"}); got != Matched {
		t.Errorf("expected Matched inside bounds, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", AppVersion: "2.0.0"}); got != Matched {
		t.Errorf("expected Matched at inclusive lower bound, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", AppVersion: "1.9.9"}); got != NotMatched {
		t.Errorf("expected NotMatched below min, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", AppVersion: "3.0.1"}); got != NotMatched {
		t.Errorf("expected NotMatched above max, got %v", got)
	}
}

func TestMatch_VersionMissingFailsClosed(t *testing.T) {
	rule := Rule{MinAppVersion: "1.0.0"}
	if got := Match(rule, Context{UserID: "u1"}); got != NotMatched {
		t.Errorf("expected NotMatched for missing appVersion, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", AppVersion: "not-a-version"}); got != NotMatched {
		t.Errorf("expected NotMatched for invalid appVersion, got %v", got)
	}
}

func TestMatch_Expression(t *testing.T) {
	rule := Rule{Expression: `{"==": [{"var": "country"}, "US"]}`}

	if got := Match(rule, Context{UserID: "u1", Country: "US"}); got != Matched {
		t.Errorf("expected Matched for truthy expression, got %v", got)
	}
	if got := Match(rule, Context{UserID: "u1", Country: "BR"}); got != NotMatched {
		t.Errorf("expected NotMatched for falsy expression, got %v", got)
	}
}

func TestMatch_InvalidExpressionFailsClosed(t *testing.T) {
	rule := Rule{Expression: `{"bogus`}
	if got := Match(rule, Context{UserID: "u1"}); got != NotMatched {
		t.Errorf("expected NotMatched for invalid expression, got %v", got)
	}
}
