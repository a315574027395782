// Package embedder provides interfaces and implementations for text embedding.
package embedder

import "context"

// Embedder defines the interface for text embedding services.
type Embedder interface {
	// Embed generates an embedding vector for a single text input.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embedding vectors for multiple text inputs.
	// Returns a slice of embeddings in the same order as the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the dimensionality of the embedding vectors.
	Dimension() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string
}

// ModelConfig holds configuration for a specific embedding model.
type ModelConfig struct {
	Dimension     int // Embedding dimension
	ContextLength int // Max tokens the model can process
}

// KnownModels maps embedding model names to their configurations.
// ko-sroberta-multitask is the default: the corpus is Korean-language ESG
// reports and English general-purpose models retrieve noticeably worse on it.
var KnownModels = map[string]ModelConfig{
	"jhgan/ko-sroberta-multitask": {
		Dimension:     768,
		ContextLength: 512,
	},
	"nomic-embed-text": {
		Dimension:     768,
		ContextLength: 8192,
	},
	"all-minilm": {
		Dimension:     384,
		ContextLength: 256,
	},
}

// GetModelConfig returns the configuration for a model, or defaults if unknown.
func GetModelConfig(modelName string) ModelConfig {
	if cfg, ok := KnownModels[modelName]; ok {
		return cfg
	}
	return ModelConfig{
		Dimension:     768,
		ContextLength: 512,
	}
}
