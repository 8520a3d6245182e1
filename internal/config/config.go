package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file inside a ledger directory.
const FileName = "financeflow.yaml"

// Config represents the top-level financeflow.yaml configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger"`
	Logging LoggingConfig `yaml:"logging"`
}

// LedgerConfig holds the defaults applied to new ledger entries.
type LedgerConfig struct {
	// Currency is the ISO 4217 code used when a command does not name one.
	Currency string `yaml:"currency"`
	// HorizonMonths is how far ahead planned payments are materialized.
	HorizonMonths int `yaml:"horizon_months"`
}

// LoggingConfig controls diagnostic output.
type LoggingConfig struct {
	Level string `yaml:"level"` // trace, debug, info, warn, error
}

// Load reads a financeflow.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.Ledger.HorizonMonths <= 0 {
		cfg.Ledger.HorizonMonths = 12
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new ledger.
func Default(currency string) *Config {
	return &Config{
		Ledger: LedgerConfig{
			Currency:      currency,
			HorizonMonths: 12,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}
