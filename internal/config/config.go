// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Source types a deployment can configure.
const (
	SourceTypeFeed      = "feed"
	SourceTypePage      = "page"
	SourceTypeSynthetic = "synthetic"
)

// SourceConfig describes one collection source.
type SourceConfig struct {
	ID       string `json:"id"`
	Type     string `json:"type"`               // feed | page | synthetic
	URL      string `json:"url,omitempty"`      // feed/page endpoint
	Selector string `json:"selector,omitempty"` // page only: CSS selector for posts
	Seed     int64  `json:"seed,omitempty"`     // synthetic only
}

// Config represents the application configuration that can be loaded from a
// JSON file. All fields are optional; missing values use defaults or must be
// provided via CLI flags or environment variables.
type Config struct {
	// Oracle
	APIKey        string `json:"api_key,omitempty"`                // Gemini API key
	OracleEnabled bool   `json:"oracle_enabled,omitempty"`         // consult the oracle for triage-band items
	TextModel     string `json:"text_model,omitempty"`             // Gemini text model name
	VisionModel   string `json:"vision_model,omitempty"`           // Gemini vision model name
	OracleTimeout int    `json:"oracle_timeout_seconds,omitempty"` // per-call deadline

	// Scoring
	MaxShift       float64 `json:"max_shift,omitempty"`       // bound on one oracle's score influence (0.0-1.0)
	TriageLow      float64 `json:"triage_low,omitempty"`      // inclusive lower triage bound
	TriageHigh     float64 `json:"triage_high,omitempty"`     // inclusive upper triage bound
	PrefilterFloor float64 `json:"prefilter_floor,omitempty"` // skip oracle below this rule score
	RulesPath      string  `json:"rules,omitempty"`           // optional YAML rule-table overrides

	// Enrichment
	Concurrency int64 `json:"concurrency,omitempty"` // simultaneous oracle calls

	// Collection
	Sources       []SourceConfig `json:"sources,omitempty"`
	RatePerSecond float64        `json:"rate_per_second,omitempty"` // source fetch refill rate
	RateBurst     int            `json:"rate_burst,omitempty"`      // source fetch burst capacity
	RatePerMinute int            `json:"rate_per_minute,omitempty"` // sliding-window cap per source

	// Jobs
	RetentionMinutes int `json:"retention_minutes,omitempty"` // terminal job retention before sweep

	// Server
	Port    int  `json:"port,omitempty"`
	Verbose bool `json:"verbose,omitempty"` // print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv overlays environment variables onto the configuration. A value
// already present in the file wins over the environment.
func (c *Config) FromEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate numeric ranges
	if c.MaxShift < 0 || c.MaxShift > 1 {
		return fmt.Errorf("config error: 'max_shift' must be between 0 and 1")
	}
	if c.TriageLow < 0 || c.TriageHigh > 1 {
		return fmt.Errorf("config error: triage bounds must be between 0 and 1")
	}
	if c.TriageHigh != 0 && c.TriageLow > c.TriageHigh {
		return fmt.Errorf("config error: 'triage_low' must not exceed 'triage_high'")
	}
	if c.PrefilterFloor < 0 || c.PrefilterFloor > 1 {
		return fmt.Errorf("config error: 'prefilter_floor' must be between 0 and 1")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("config error: 'concurrency' must be non-negative")
	}
	if c.OracleTimeout < 0 {
		return fmt.Errorf("config error: 'oracle_timeout_seconds' must be non-negative")
	}
	if c.RetentionMinutes < 0 {
		return fmt.Errorf("config error: 'retention_minutes' must be non-negative")
	}

	// Validate file paths exist (if specified)
	if c.RulesPath != "" {
		if _, err := os.Stat(c.RulesPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: rules file not found: %s", c.RulesPath)
		}
	}

	// Validate sources
	seen := make(map[string]bool)
	for _, src := range c.Sources {
		if src.ID == "" {
			return fmt.Errorf("config error: source missing 'id'")
		}
		if seen[src.ID] {
			return fmt.Errorf("config error: duplicate source id %q", src.ID)
		}
		seen[src.ID] = true
		switch src.Type {
		case SourceTypeFeed, SourceTypePage:
			if src.URL == "" {
				return fmt.Errorf("config error: source %q requires a 'url'", src.ID)
			}
		case SourceTypeSynthetic:
		default:
			return fmt.Errorf("config error: source %q has unknown type %q", src.ID, src.Type)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.TextModel == "" {
		result.TextModel = defaults.TextModel
	}
	if result.VisionModel == "" {
		result.VisionModel = defaults.VisionModel
	}
	if result.RulesPath == "" {
		result.RulesPath = defaults.RulesPath
	}

	// Numeric fields: use default if zero
	if result.OracleTimeout == 0 {
		result.OracleTimeout = defaults.OracleTimeout
	}
	if result.MaxShift == 0 {
		result.MaxShift = defaults.MaxShift
	}
	if result.TriageLow == 0 {
		result.TriageLow = defaults.TriageLow
	}
	if result.TriageHigh == 0 {
		result.TriageHigh = defaults.TriageHigh
	}
	if result.PrefilterFloor == 0 {
		result.PrefilterFloor = defaults.PrefilterFloor
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}
	if result.RatePerSecond == 0 {
		result.RatePerSecond = defaults.RatePerSecond
	}
	if result.RateBurst == 0 {
		result.RateBurst = defaults.RateBurst
	}
	if result.RatePerMinute == 0 {
		result.RatePerMinute = defaults.RatePerMinute
	}
	if result.RetentionMinutes == 0 {
		result.RetentionMinutes = defaults.RetentionMinutes
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if len(result.Sources) == 0 {
		result.Sources = defaults.Sources
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
