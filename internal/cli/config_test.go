package cli

import (
	"testing"
)

// pointConfigAtTempHome isolates the test from the real user config and
// from ambient override variables.
func pointConfigAtTempHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv(envBaseURLVar, "")
	t.Setenv(envAPIKeyVar, "")
}

func TestLoadConfig_MissingFileIsEmpty(t *testing.T) {
	pointConfigAtTempHome(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DefaultEnv != "" || len(cfg.Environments) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestSaveAndLoadConfig_RoundTrip(t *testing.T) {
	pointConfigAtTempHome(t)

	in := &Config{
		DefaultEnv: "staging",
		Environments: map[string]EnvConfig{
			"staging": {BaseURL: "https://staging.example.com", APIKey: "vgk_s"},
		},
	}
	if err := SaveConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.DefaultEnv != "staging" {
		t.Errorf("default env = %q, want staging", out.DefaultEnv)
	}
	if out.Environments["staging"].BaseURL != "https://staging.example.com" {
		t.Errorf("unexpected staging config: %+v", out.Environments["staging"])
	}
}

func TestGetEnvConfig_NoEnvironmentSelected(t *testing.T) {
	pointConfigAtTempHome(t)

	if _, _, err := GetEnvConfig("", "http://localhost:8080", "vgk_x"); err == nil {
		t.Error("expected an error when no env name and no default_env exist")
	}
}

func TestGetEnvConfig_FlagsAloneSuffice(t *testing.T) {
	pointConfigAtTempHome(t)

	// No config file at all: flags plus an explicit env name must work.
	envCfg, name, err := GetEnvConfig("dev", "http://localhost:8080", "vgk_x")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "dev" || envCfg.BaseURL != "http://localhost:8080" || envCfg.APIKey != "vgk_x" {
		t.Errorf("unexpected resolution: name=%q cfg=%+v", name, envCfg)
	}
}

func TestGetEnvConfig_LayeringOrder(t *testing.T) {
	pointConfigAtTempHome(t)

	seed := &Config{
		DefaultEnv: "prod",
		Environments: map[string]EnvConfig{
			"prod": {BaseURL: "https://file.example.com", APIKey: "vgk_file"},
		},
	}
	if err := SaveConfig(seed); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Env var beats the file.
	t.Setenv(envBaseURLVar, "https://envvar.example.com")
	envCfg, name, err := GetEnvConfig("", "", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if name != "prod" {
		t.Errorf("expected default_env to select prod, got %q", name)
	}
	if envCfg.BaseURL != "https://envvar.example.com" || envCfg.APIKey != "vgk_file" {
		t.Errorf("env var should override file base URL only: %+v", envCfg)
	}

	// Flag beats the env var.
	envCfg, _, err = GetEnvConfig("", "https://flag.example.com", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if envCfg.BaseURL != "https://flag.example.com" {
		t.Errorf("flag should override env var, got %+v", envCfg)
	}
}

func TestGetEnvConfig_MissingAPIKey(t *testing.T) {
	pointConfigAtTempHome(t)

	if _, _, err := GetEnvConfig("dev", "http://localhost:8080", ""); err == nil {
		t.Error("expected an error when no API key is resolvable")
	}
}
