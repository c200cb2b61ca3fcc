// Package config provides configuration loading for the recipe extractor.
// Supports a YAML file, environment variables, and per-stage overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spherical/recipe-extractor/internal/domain"
)

const (
	// DefaultEndpoint is the chat-completions endpoint used when no
	// override is configured.
	DefaultEndpoint = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultModel is the vision model used when no override is configured.
	DefaultModel = "google/gemini-2.5-flash-preview-09-2025"

	// StageCount is the number of pipeline stages. Stages 1-4 invoke the
	// model and accept per-stage overrides; stage 5 is pure assembly.
	StageCount = 5
)

// EnvAPIKey is the environment variable holding the default credential.
const EnvAPIKey = "RECIPE_EXTRACTOR_API_KEY"

// Config holds all configuration for a batch run. Built once at startup,
// read-only thereafter.
type Config struct {
	Endpoint   string `yaml:"endpoint"`
	Model      string `yaml:"model"`
	Credential string `yaml:"-"`

	// MaxStage halts the pipeline after the given stage. Anything below
	// StageCount means no record is produced.
	MaxStage int `yaml:"max_stage"`

	// SkipRegionDetection disables stage 2; instruction and ingredient
	// extraction then operate on the full page image.
	SkipRegionDetection bool `yaml:"skip_region_detection"`

	Stages map[int]StageOverride `yaml:"stages"`

	Log LogSettings `yaml:"log"`
}

// StageOverride selectively replaces parts of the default stage config.
type StageOverride struct {
	Endpoint   string `yaml:"endpoint"`
	Credential string `yaml:"credential"`
	Model      string `yaml:"model"`
}

// LogSettings holds logger configuration.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Model:    DefaultModel,
		MaxStage: StageCount,
		Log: LogSettings{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path yields the defaults. The credential always comes from the
// environment unless a stage override supplies its own.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("read config file %s", path), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, domain.ConfigError(fmt.Sprintf("parse config file %s", path), err)
		}
	}

	if v := os.Getenv("RECIPE_EXTRACTOR_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("RECIPE_EXTRACTOR_MODEL"); v != "" {
		cfg.Model = v
	}
	cfg.Credential = os.Getenv(EnvAPIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can drive a batch run.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return domain.ConfigError("endpoint must not be empty", nil)
	}
	if c.Model == "" {
		return domain.ConfigError("model must not be empty", nil)
	}
	if c.Credential == "" && !c.stagesCoverCredential() {
		return domain.ConfigError(EnvAPIKey+" not set", nil)
	}
	if c.MaxStage < 1 || c.MaxStage > StageCount {
		return domain.ConfigError(fmt.Sprintf("max_stage must be between 1 and %d, got %d", StageCount, c.MaxStage), nil)
	}
	for n := range c.Stages {
		if n < 1 || n > StageCount-1 {
			return domain.ConfigError(fmt.Sprintf("stage override %d out of range, model stages are 1-%d", n, StageCount-1), nil)
		}
	}
	return nil
}

func (c *Config) stagesCoverCredential() bool {
	for n := 1; n < StageCount; n++ {
		if c.Stages[n].Credential == "" {
			return false
		}
	}
	return len(c.Stages) > 0
}

// Stage resolves the invocation config for one stage: the default triple
// overlaid with any per-stage override.
func (c *Config) Stage(n int) domain.StageConfig {
	resolved := domain.StageConfig{
		Endpoint:   c.Endpoint,
		Credential: c.Credential,
		Model:      c.Model,
	}
	override, ok := c.Stages[n]
	if !ok {
		return resolved
	}
	if override.Endpoint != "" {
		resolved.Endpoint = override.Endpoint
	}
	if override.Credential != "" {
		resolved.Credential = override.Credential
	}
	if override.Model != "" {
		resolved.Model = override.Model
	}
	return resolved
}
