package config

import "time"

// LLMConfig configures the analysis model provider.
type LLMConfig struct {
	// APIKey for the provider. Usually set via CLAUSEGUARD_API_KEY or
	// GEMINI_API_KEY rather than the config file.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL of the provider API.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Model identifier used for clause analysis.
	Model string `json:"model" yaml:"model"`

	// Timeout applied per provider call when the caller's context carries
	// no deadline.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxOutputTokens caps the model's response length.
	MaxOutputTokens int `json:"max_output_tokens" yaml:"max_output_tokens"`

	// ContextWindow is the model's total token capacity, shared between
	// prompt and response. The planner budgets against this.
	ContextWindow int `json:"context_window" yaml:"context_window"`
}

// DefaultLLMConfig returns provider defaults targeting Gemini.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Model:           "gemini-2.5-flash",
		Timeout:         120 * time.Second,
		MaxOutputTokens: 65536,
		ContextWindow:   1048576,
	}
}
