package config

import "fmt"

// RetrievalConfig controls policy document retrieval and ranking.
type RetrievalConfig struct {
	// TopK results returned per similarity query.
	TopK int `json:"top_k" yaml:"top_k"`

	// Region selects the regional policy collection ("eu", "us", ...).
	// Empty means no regional collection is queried.
	Region string `json:"region" yaml:"region"`

	// RegionalWeightMultiplier boosts similarity scores of documents from
	// the regional collection so local regulation outranks a near-tied
	// global policy.
	RegionalWeightMultiplier float64 `json:"regional_weight_multiplier" yaml:"regional_weight_multiplier"`

	// FailOpenClassification makes contract-type classification failures
	// fall back to retrieving across every policy type instead of
	// aborting the batch.
	FailOpenClassification bool `json:"fail_open_classification" yaml:"fail_open_classification"`

	// MaxDocsPerType caps retained documents per policy type when the
	// policy context must be truncated to fit the token reservation.
	MaxDocsPerType int `json:"max_docs_per_type" yaml:"max_docs_per_type"`
}

// DefaultRetrievalConfig returns retrieval defaults.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		TopK:                     5,
		RegionalWeightMultiplier: 1.1,
		FailOpenClassification:   true,
		MaxDocsPerType:           2,
	}
}

// Validate checks retrieval settings.
func (r RetrievalConfig) Validate() error {
	if r.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1, got %d", r.TopK)
	}
	if r.RegionalWeightMultiplier < 1.0 {
		return fmt.Errorf("regional_weight_multiplier must be >= 1.0, got %g", r.RegionalWeightMultiplier)
	}
	if r.MaxDocsPerType < 1 {
		return fmt.Errorf("max_docs_per_type must be at least 1, got %d", r.MaxDocsPerType)
	}
	return nil
}
