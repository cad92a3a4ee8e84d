package lectern

import "context"

// EmbeddingProvider abstracts text embedding. Implementations live under
// provider/ (openaiembed for OpenAI-compatible APIs, hash for a
// deterministic local embedder).
type EmbeddingProvider interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name (e.g. "openai", "hash").
	Name() string
}
