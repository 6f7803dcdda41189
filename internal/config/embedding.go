package config

// EmbeddingConfig configures the embedding backend used for policy
// retrieval.
type EmbeddingConfig struct {
	// Backend selects the engine: "genai" or "ollama".
	Backend string `json:"backend" yaml:"backend"`

	// Model is the embedding model identifier.
	Model string `json:"model" yaml:"model"`

	// Dimensions of the embedding vectors. Must match the store schema.
	Dimensions int `json:"dimensions" yaml:"dimensions"`

	// OllamaURL is the base URL of a local Ollama server (ollama backend
	// only).
	OllamaURL string `json:"ollama_url,omitempty" yaml:"ollama_url,omitempty"`
}

// DefaultEmbeddingConfig returns embedding defaults targeting the GenAI
// backend.
func DefaultEmbeddingConfig() EmbeddingConfig {
	return EmbeddingConfig{
		Backend:    "genai",
		Model:      "gemini-embedding-001",
		Dimensions: 768,
		OllamaURL:  "http://localhost:11434",
	}
}
