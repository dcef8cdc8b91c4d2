// Package config loads the client configuration from a YAML file with
// sensible defaults for every field, so a missing file is a valid
// (offline-only, local-database) setup.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration with YAML support for the usual
// "30s" / "5m" string form, which yaml.v3 does not decode natively.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full client configuration.
type Config struct {
	// Database is the path to the local SQLite file.
	Database string `yaml:"database"`

	// Remote configures the gateway to the remote catalog/transaction
	// service. An empty BaseURL means no remote is configured.
	Remote RemoteConfig `yaml:"remote"`

	// TaxRate is the sales tax as a decimal fraction string, e.g. "0.10".
	TaxRate string `yaml:"tax_rate"`

	// Sync configures the controller's retry policy.
	Sync SyncConfig `yaml:"sync"`
}

// RemoteConfig is the remote service endpoint.
type RemoteConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

// SyncConfig is the push retry policy.
type SyncConfig struct {
	MaxRetries int      `yaml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Database: "possum.db",
		Remote: RemoteConfig{
			Timeout: Duration(15 * time.Second),
		},
		TaxRate: "0.10",
		Sync: SyncConfig{
			MaxRetries: 3,
			RetryDelay: Duration(5 * time.Second),
		},
	}
}

// Load reads the configuration at path, layering it over the defaults.
// A missing file returns the defaults; a malformed file is an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.Database == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Sync.MaxRetries < 1 {
		return fmt.Errorf("sync.max_retries must be at least 1, got %d", c.Sync.MaxRetries)
	}
	if c.Sync.RetryDelay < 0 {
		return fmt.Errorf("sync.retry_delay must not be negative")
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive")
	}
	if _, err := decimal.NewFromString(c.TaxRate); err != nil {
		return fmt.Errorf("tax_rate %q is not a decimal: %w", c.TaxRate, err)
	}
	return nil
}
