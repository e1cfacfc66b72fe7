package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CLI settings live in ~/.variantgate/config.yaml, one entry per server
// environment. Connection parameters resolve in layers: the config file is
// the base, VARIANTGATE_BASE_URL / VARIANTGATE_API_KEY override it, and
// --base-url / --api-key flags override everything.

const (
	configDirName  = ".variantgate"
	configFileName = "config.yaml"

	envBaseURLVar = "VARIANTGATE_BASE_URL"
	envAPIKeyVar  = "VARIANTGATE_API_KEY"
)

// Config is the on-disk CLI configuration.
type Config struct {
	DefaultEnv   string               `yaml:"default_env"`
	Environments map[string]EnvConfig `yaml:"environments"`
}

// EnvConfig holds the connection parameters for one server environment.
type EnvConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// GetConfigPath returns the config file location under the user's home.
func GetConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName, configFileName), nil
}

// LoadConfig reads the config file. A missing file is not an error; it
// behaves like an empty config so flags and env vars still work.
func LoadConfig() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Config{Environments: map[string]EnvConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Environments == nil {
		cfg.Environments = map[string]EnvConfig{}
	}
	return cfg, nil
}

// SaveConfig writes the config file, creating the directory on first use.
func SaveConfig(cfg *Config) error {
	path, err := GetConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// 0600: the file holds API keys.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// GetEnvConfig resolves the connection parameters for a command invocation.
// The returned name is the environment actually selected, which commands
// echo back to the user. Missing pieces produce errors that name the flag,
// the variable, and the file, in that order.
func GetEnvConfig(envName, baseURLFlag, apiKeyFlag string) (*EnvConfig, string, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, "", err
	}

	if envName == "" {
		envName = cfg.DefaultEnv
	}
	if envName == "" {
		return nil, "", errors.New("no environment selected: pass --env or set default_env in the config file")
	}

	// Layer the overrides on top of whatever the file has for this env.
	// An env absent from the file is fine as long as the overrides fill
	// in both fields.
	resolved := cfg.Environments[envName]
	if v := os.Getenv(envBaseURLVar); v != "" {
		resolved.BaseURL = v
	}
	if v := os.Getenv(envAPIKeyVar); v != "" {
		resolved.APIKey = v
	}
	if baseURLFlag != "" {
		resolved.BaseURL = baseURLFlag
	}
	if apiKeyFlag != "" {
		resolved.APIKey = apiKeyFlag
	}

	if resolved.BaseURL == "" {
		return nil, "", fmt.Errorf("no base URL for environment %q: pass --base-url, set %s, or add base_url to the config file", envName, envBaseURLVar)
	}
	if resolved.APIKey == "" {
		return nil, "", fmt.Errorf("no API key for environment %q: pass --api-key, set %s, or add api_key to the config file", envName, envAPIKeyVar)
	}
	return &resolved, envName, nil
}

// InitConfig seeds a minimal config pointing at a local server. Real
// environments get added with `config set`; shipping placeholder keys for
// staging and prod only invites copy-paste accidents.
func InitConfig() error {
	return SaveConfig(&Config{
		DefaultEnv: "dev",
		Environments: map[string]EnvConfig{
			"dev": {BaseURL: "http://localhost:8080"},
		},
	})
}
