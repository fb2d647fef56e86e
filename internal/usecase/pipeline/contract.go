package pipeline

import (
	"context"

	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/document"
	"github.com/scholarlab/paperqa/internal/domain/ranking"
)

// DocumentSearcher runs document-level searches over the corpus index.
type DocumentSearcher interface {
	// SearchSemantic returns documents by summary-embedding similarity,
	// best first.
	SearchSemantic(ctx context.Context, vector []float32, topK int) ([]ranking.Candidate, error)

	// SearchLexical returns documents by BM25 relevance over title and
	// summary text, best first.
	SearchLexical(ctx context.Context, query string, topK int) ([]ranking.Candidate, error)

	// SupportsTextSearch reports whether the backend can serve lexical
	// queries. When false the pipeline fuses the semantic ranking alone.
	SupportsTextSearch(ctx context.Context) bool
}

// CorpusReader loads papers and their chunks from the stored corpus.
type CorpusReader interface {
	// GetMulti returns the papers for the given IDs, skipping absent ones.
	GetMulti(ctx context.Context, ids []string) ([]document.Document, error)

	// ListByDocument returns a paper's chunks in their original order.
	ListByDocument(ctx context.Context, docID string) ([]chunk.Chunk, error)
}

// Selector picks the final document set from a fused ranking.
type Selector interface {
	Select(ctx context.Context, query string, candidates []ranking.Document) ([]ranking.Document, error)
}

// Generator synthesizes an answer from the query and evidence passages.
// An empty passage list is valid: the model answers from its own knowledge.
type Generator interface {
	Generate(ctx context.Context, query string, passages []string) (string, error)
}
