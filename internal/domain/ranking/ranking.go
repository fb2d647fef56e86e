package ranking

import "github.com/scholarlab/paperqa/internal/domain/chunk"

// Candidate is a document hit from a single search source, in rank order.
// Score is the source-native relevance (cosine similarity or BM25) and is
// kept for diagnostics only; fusion works on rank positions.
type Candidate struct {
	ID      string
	Title   string
	Summary string
	Score   float64
}

// Document is a query-scoped ranked document. Score fields accumulate as the
// pipeline advances: fusion fills the ranks and FusedScore, selection fills
// RerankScore and Weight. Ranks are 1-based; 0 means absent from that source.
type Document struct {
	ID           string
	Title        string
	Summary      string
	SemanticRank int
	LexicalRank  int
	FusedScore   float64
	RerankScore  float64
	// Weight is the document's confidence carried into chunk scoring. Equal
	// to RerankScore after selection, possibly rescaled by the pipeline's
	// weight normalization policy.
	Weight float64
}

// ScoredChunk is a chunk with its query-scoped relevance score. DocRank is
// the owning document's position in the kept set (0-based) and, with the
// chunk's original order, breaks score ties deterministically.
type ScoredChunk struct {
	Chunk   chunk.Chunk
	Score   float64
	DocRank int
}
