package providers

import "context"

// EmbeddingProvider turns text into a fixed-dimension embedding (spec
// §6, external collaborator). The engine never assumes a dimension; it
// asks the provider and validates every returned vector against it.
type EmbeddingProvider interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions reports the fixed vector length this provider returns.
	Dimensions() int
}

// LLMProvider turns a prompt into synthesized prose, used by the Client
// Facade's optional response-synthesis helper (spec §6). It is never on
// a core storage/retrieval contract path.
type LLMProvider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
