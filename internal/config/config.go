// Package config holds all clauseguard configuration, split one file per
// concern. Every section has a Default*Config constructor; Load overlays
// .clauseguard/config.json and then environment variables on top of the
// defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config is the root configuration for clauseguard.
type Config struct {
	LLM       LLMConfig       `json:"llm" yaml:"llm"`
	Quota     QuotaConfig     `json:"quota" yaml:"quota"`
	Retrieval RetrievalConfig `json:"retrieval" yaml:"retrieval"`
	Batch     BatchConfig     `json:"batch" yaml:"batch"`
	Embedding EmbeddingConfig `json:"embedding" yaml:"embedding"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// Default returns the full default configuration.
func Default() *Config {
	return &Config{
		LLM:       DefaultLLMConfig(),
		Quota:     DefaultQuotaConfig(),
		Retrieval: DefaultRetrievalConfig(),
		Batch:     DefaultBatchConfig(),
		Embedding: DefaultEmbeddingConfig(),
		Logging:   DefaultLoggingConfig(),
	}
}

// Load reads configuration for the given workspace. Missing config file is
// not an error; defaults apply. Environment variables override file values.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	path := filepath.Join(workspace, ".clauseguard", "config.json")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables. CLAUSEGUARD_API_KEY wins over
// GEMINI_API_KEY.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("CLAUSEGUARD_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if model := os.Getenv("CLAUSEGUARD_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if region := os.Getenv("CLAUSEGUARD_REGION"); region != "" {
		c.Retrieval.Region = region
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("quota: %w", err)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := c.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval: %w", err)
	}
	return nil
}
