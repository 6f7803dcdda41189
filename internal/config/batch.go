package config

import "fmt"

// BatchConfig controls token budgeting and chunking for batch analysis.
type BatchConfig struct {
	// CharsPerToken is the character-to-token estimation ratio.
	CharsPerToken int `json:"chars_per_token" yaml:"chars_per_token"`

	// SafetyFraction of the context window actually budgeted for the
	// prompt; the rest absorbs estimation error and the response.
	SafetyFraction float64 `json:"safety_fraction" yaml:"safety_fraction"`

	// PerClauseTokenCost is the estimated prompt token cost per clause,
	// including its share of instructions and policy context.
	PerClauseTokenCost int `json:"per_clause_token_cost" yaml:"per_clause_token_cost"`

	// MinChunkSize is the floor on clauses per chunk. Below this the
	// per-call overhead dominates.
	MinChunkSize int `json:"min_chunk_size" yaml:"min_chunk_size"`

	// PolicyTokenReservation is how much of the budget the policy context
	// may occupy before it is truncated.
	PolicyTokenReservation int `json:"policy_token_reservation" yaml:"policy_token_reservation"`

	// TruncationTokensPerClause sizes the recommended max_output_tokens
	// hint reported when a response comes back truncated.
	TruncationTokensPerClause int `json:"truncation_tokens_per_clause" yaml:"truncation_tokens_per_clause"`
}

// DefaultBatchConfig returns budgeting defaults.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		CharsPerToken:             4,
		SafetyFraction:            0.85,
		PerClauseTokenCost:        450,
		MinChunkSize:              5,
		PolicyTokenReservation:    500000,
		TruncationTokensPerClause: 500,
	}
}

// Validate checks budgeting settings.
func (b BatchConfig) Validate() error {
	if b.CharsPerToken < 1 {
		return fmt.Errorf("chars_per_token must be at least 1, got %d", b.CharsPerToken)
	}
	if b.SafetyFraction <= 0 || b.SafetyFraction > 1 {
		return fmt.Errorf("safety_fraction must be in (0, 1], got %g", b.SafetyFraction)
	}
	if b.PerClauseTokenCost < 1 {
		return fmt.Errorf("per_clause_token_cost must be at least 1, got %d", b.PerClauseTokenCost)
	}
	if b.MinChunkSize < 1 {
		return fmt.Errorf("min_chunk_size must be at least 1, got %d", b.MinChunkSize)
	}
	return nil
}
