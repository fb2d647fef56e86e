package selection

import "context"

// Reranker scores candidate texts against a query with a cross-encoder.
// Returned scores are positional: scores[i] belongs to texts[i].
type Reranker interface {
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)
}
