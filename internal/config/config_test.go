package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Batch.CharsPerToken != 4 {
		t.Errorf("Expected chars_per_token 4, got %d", cfg.Batch.CharsPerToken)
	}
	if cfg.Batch.SafetyFraction != 0.85 {
		t.Errorf("Expected safety_fraction 0.85, got %g", cfg.Batch.SafetyFraction)
	}
	if cfg.Batch.PerClauseTokenCost != 450 {
		t.Errorf("Expected per_clause_token_cost 450, got %d", cfg.Batch.PerClauseTokenCost)
	}
	if cfg.Batch.MinChunkSize != 5 {
		t.Errorf("Expected min_chunk_size 5, got %d", cfg.Batch.MinChunkSize)
	}
	if cfg.Retrieval.RegionalWeightMultiplier != 1.1 {
		t.Errorf("Expected regional multiplier 1.1, got %g", cfg.Retrieval.RegionalWeightMultiplier)
	}
	if cfg.Quota.MaxRetries != 3 {
		t.Errorf("Expected max_retries 3, got %d", cfg.Quota.MaxRetries)
	}
	if cfg.Quota.BaseBackoff != 2*time.Second {
		t.Errorf("Expected base_backoff 2s, got %v", cfg.Quota.BaseBackoff)
	}
	if cfg.Quota.MaxBackoff != 60*time.Second {
		t.Errorf("Expected max_backoff 60s, got %v", cfg.Quota.MaxBackoff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load with no config file should use defaults: %v", err)
	}
	if cfg.LLM.Model != DefaultLLMConfig().Model {
		t.Errorf("Expected default model, got %s", cfg.LLM.Model)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, ".clauseguard")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := `{"llm": {"model": "gemini-2.5-pro"}, "retrieval": {"region": "eu"}}`
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "gemini-2.5-pro" {
		t.Errorf("Expected model from file, got %s", cfg.LLM.Model)
	}
	if cfg.Retrieval.Region != "eu" {
		t.Errorf("Expected region eu, got %q", cfg.Retrieval.Region)
	}
	// Untouched sections keep defaults
	if cfg.Quota.MaxRetries != 3 {
		t.Errorf("Expected default max_retries, got %d", cfg.Quota.MaxRetries)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("CLAUSEGUARD_API_KEY", "clauseguard-key")
	t.Setenv("CLAUSEGUARD_REGION", "us")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "clauseguard-key" {
		t.Errorf("Expected CLAUSEGUARD_API_KEY to win, got %q", cfg.LLM.APIKey)
	}
	if cfg.Retrieval.Region != "us" {
		t.Errorf("Expected region from env, got %q", cfg.Retrieval.Region)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero max_retries", func(c *Config) { c.Quota.MaxRetries = 0 }},
		{"negative rpm", func(c *Config) { c.Quota.RequestsPerMinute = -1 }},
		{"safety fraction > 1", func(c *Config) { c.Batch.SafetyFraction = 1.5 }},
		{"zero chars_per_token", func(c *Config) { c.Batch.CharsPerToken = 0 }},
		{"multiplier < 1", func(c *Config) { c.Retrieval.RegionalWeightMultiplier = 0.9 }},
		{"max backoff below base", func(c *Config) { c.Quota.MaxBackoff = time.Second }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoggingCategoryEnabled(t *testing.T) {
	lc := LoggingConfig{DebugMode: true, Categories: map[string]bool{"api": false}}
	if lc.IsCategoryEnabled("api") {
		t.Error("Expected api disabled")
	}
	if !lc.IsCategoryEnabled("batch") {
		t.Error("Expected unlisted category enabled")
	}
	lc.DebugMode = false
	if lc.IsCategoryEnabled("batch") {
		t.Error("Expected everything disabled without debug mode")
	}
}
