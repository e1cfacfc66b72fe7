package auth

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey_PrefixAndUniqueness(t *testing.T) {
	a, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if !strings.HasPrefix(a, KeyPrefix) {
		t.Errorf("key %q missing prefix %q", a, KeyPrefix)
	}
	if a == b {
		t.Error("two generated keys should not collide")
	}
}

func TestHashAndVerifyAPIKey(t *testing.T) {
	key, _ := GenerateAPIKey()
	hash, err := HashAPIKey(key)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if !VerifyAPIKey(key, hash) {
		t.Error("expected key to verify against its own hash")
	}
	if VerifyAPIKey(key+"x", hash) {
		t.Error("expected tampered key to fail verification")
	}
}

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer vgk_abc", "vgk_abc"},
		{"bearer vgk_abc", "vgk_abc"},
		{"  Bearer   vgk_abc  ", "vgk_abc"},
		{"vgk_abc", ""},       // no scheme
		{"Bearervgk_abc", ""}, // scheme glued to token
		{"Basic dXNlcg==", ""},
		{"Bearer ", ""},
		{"", ""},
	}
	for _, c := range cases {
		if got := ExtractBearerToken(c.header); got != c.want {
			t.Errorf("ExtractBearerToken(%q) = %q, want %q", c.header, got, c.want)
		}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	if !ConstantTimeEqual("secret", "secret") {
		t.Error("expected equal strings to match")
	}
	if ConstantTimeEqual("secret", "Secret") {
		t.Error("expected different strings not to match")
	}
}
