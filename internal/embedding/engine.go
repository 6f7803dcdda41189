// Package embedding generates vector embeddings for policy retrieval.
// Supports a cloud backend (Google GenAI) and a local one (Ollama).
package embedding

import (
	"context"
	"fmt"
	"math"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
)

// Engine generates vector embeddings for text.
type Engine interface {
	// Embed generates an embedding for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of embeddings
	Dimensions() int

	// Name returns the engine name
	Name() string
}

// NewEngine creates an embedding engine from configuration. The apiKey is
// only used by the genai backend.
func NewEngine(cfg config.EmbeddingConfig, apiKey string) (Engine, error) {
	logging.Embedding("Creating embedding engine: backend=%s, model=%s", cfg.Backend, cfg.Model)

	var engine Engine
	var err error

	switch cfg.Backend {
	case "genai", "":
		engine, err = NewGenAIEngine(apiKey, cfg.Model, cfg.Dimensions)
	case "ollama":
		engine, err = NewOllamaEngine(cfg.OllamaURL, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding backend: %s (use 'genai' or 'ollama')", cfg.Backend)
	}

	if err != nil {
		logging.Get(logging.CategoryEmbedding).Error("Failed to create embedding engine: %v", err)
		return nil, err
	}

	logging.Embedding("Embedding engine ready: name=%s, dimensions=%d", engine.Name(), engine.Dimensions())
	return engine, nil
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dot, aMag, bMag float64
	for i := 0; i < len(a); i++ {
		dot += float64(a[i] * b[i])
		aMag += float64(a[i] * a[i])
		bMag += float64(b[i] * b[i])
	}

	if aMag == 0 || bMag == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(aMag) * math.Sqrt(bMag)), nil
}
