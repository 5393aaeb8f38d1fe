package types

import "context"

// Embedder is implemented by generators that can turn text into a vector,
// used by the grader's optional semantic-match stage.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float64, error)
}
