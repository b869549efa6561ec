// Package config provides configuration management for the quote engine CLI.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"

	"quote-engine/internal/errors"
	"quote-engine/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Engine contains pricing engine settings
	Engine EngineConfig `json:"engine"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Display contains presentation settings applied after pricing
	Display DisplayConfig `json:"display"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// EngineConfig contains pricing engine settings
type EngineConfig struct {
	// StrictDerivations surfaces derivation rule failures as validation issues
	// instead of skipping them
	StrictDerivations bool `json:"strict_derivations"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (cli, json)
	DefaultFormat string `json:"default_format"`

	// ShowBreakdown prints one line per breakdown entry
	ShowBreakdown bool `json:"show_breakdown"`

	// ShowSelections prints the resolved selections
	ShowSelections bool `json:"show_selections"`
}

// DisplayConfig contains presentation settings
type DisplayConfig struct {
	// ApplyMultiplier applies the schema's displayMultiplier to deltas
	ApplyMultiplier bool `json:"apply_multiplier"`

	// FxRate converts amounts when set (quote units per schema unit)
	FxRate string `json:"fx_rate,omitempty"`

	// QuoteCurrency labels converted amounts
	QuoteCurrency string `json:"quote_currency,omitempty"`
}

// Rate parses FxRate. ok is false when no conversion is configured.
func (d DisplayConfig) Rate() (rate decimal.Decimal, ok bool, err error) {
	if d.FxRate == "" {
		return decimal.Zero, false, nil
	}
	rate, err = decimal.NewFromString(d.FxRate)
	if err != nil {
		return decimal.Zero, false, errors.Config("invalid display.fx_rate", err)
	}
	if !rate.IsPositive() {
		return decimal.Zero, false, errors.New(errors.TypeConfig, "display.fx_rate must be positive")
	}
	return rate, true, nil
}

// DefaultPath returns $HOME/.quote-engine.json
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".quote-engine.json")
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Engine: EngineConfig{
			StrictDerivations: false,
		},
		Output: OutputConfig{
			DefaultFormat:  "cli",
			ShowBreakdown:  true,
			ShowSelections: false,
		},
		Display: DisplayConfig{
			ApplyMultiplier: true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, errors.Config("read config", err).WithContext("path", path)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Config("parse config", err).WithContext("path", path)
	}
	if _, _, err := config.Display.Rate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance, used only by the CLI
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
