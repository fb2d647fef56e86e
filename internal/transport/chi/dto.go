package chi

import "github.com/scholarlab/paperqa/internal/domain/ranking"

// errorCode identifies an API error class in the response body.
type errorCode string

const (
	codeBadRequest          errorCode = "bad_request"
	codeValidationFailed    errorCode = "validation_failed"
	codeDocumentNotFound    errorCode = "document_not_found"
	codeProviderUnavailable errorCode = "provider_unavailable"
	codeGenerationFailed    errorCode = "generation_failed"
	codeSearchUnavailable   errorCode = "search_unavailable"
	codeInternalError       errorCode = "internal_error"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// RetrieveDocumentsRequest is the body of POST /v1/retrieve/documents.
type RetrieveDocumentsRequest struct {
	Query      string `json:"query"`
	Candidates int    `json:"candidates,omitempty"`
}

// DocumentItem is a ranked document in a retrieval response. Ranks are
// 1-based; 0 means the document was absent from that search source.
type DocumentItem struct {
	ID           string  `json:"id"`
	Title        string  `json:"title,omitempty"`
	Summary      string  `json:"summary,omitempty"`
	SemanticRank int     `json:"semantic_rank,omitempty"`
	LexicalRank  int     `json:"lexical_rank,omitempty"`
	FusedScore   float64 `json:"fused_score"`
	RerankScore  float64 `json:"rerank_score"`
	Weight       float64 `json:"weight"`
}

// RetrieveDocumentsResponse is the result of POST /v1/retrieve/documents.
type RetrieveDocumentsResponse struct {
	State     string         `json:"state"`
	Degraded  bool           `json:"degraded"`
	Documents []DocumentItem `json:"documents"`
}

// WeightedDocument names a document and its confidence weight for chunk
// scoring.
type WeightedDocument struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// RetrieveChunksRequest is the body of POST /v1/retrieve/chunks.
type RetrieveChunksRequest struct {
	Query     string             `json:"query"`
	Documents []WeightedDocument `json:"documents"`
	TopChunks int                `json:"top_chunks,omitempty"`
}

// ChunkItem is a scored evidence chunk.
type ChunkItem struct {
	DocID      string  `json:"doc_id"`
	Seq        int     `json:"seq"`
	Content    string  `json:"content"`
	Section    string  `json:"section,omitempty"`
	Subsection string  `json:"subsection,omitempty"`
	Score      float64 `json:"score"`
	DocRank    int     `json:"doc_rank"`
}

// RetrieveChunksResponse is the result of POST /v1/retrieve/chunks. The query
// is echoed so evidence sets stay self-describing when stored or forwarded.
type RetrieveChunksResponse struct {
	State  string      `json:"state"`
	Query  string      `json:"query"`
	Chunks []ChunkItem `json:"chunks"`
}

// AnswerRequest is the body of POST /v1/answer.
type AnswerRequest struct {
	Query      string `json:"query"`
	Candidates int    `json:"candidates,omitempty"`
	TopChunks  int    `json:"top_chunks,omitempty"`
}

// AnswerResponse is the result of POST /v1/answer.
type AnswerResponse struct {
	State     string         `json:"state"`
	Degraded  bool           `json:"degraded"`
	Answer    string         `json:"answer"`
	Documents []DocumentItem `json:"documents"`
	Chunks    []ChunkItem    `json:"chunks"`
}

// HealthResponse is the result of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func documentItems(docs []ranking.Document) []DocumentItem {
	items := make([]DocumentItem, len(docs))
	for i, d := range docs {
		items[i] = DocumentItem{
			ID:           d.ID,
			Title:        d.Title,
			Summary:      d.Summary,
			SemanticRank: d.SemanticRank,
			LexicalRank:  d.LexicalRank,
			FusedScore:   d.FusedScore,
			RerankScore:  d.RerankScore,
			Weight:       d.Weight,
		}
	}
	return items
}

func chunkItems(chunks []ranking.ScoredChunk) []ChunkItem {
	items := make([]ChunkItem, len(chunks))
	for i, c := range chunks {
		items[i] = ChunkItem{
			DocID:      c.Chunk.DocID(),
			Seq:        c.Chunk.Seq(),
			Content:    c.Chunk.Content(),
			Section:    c.Chunk.Section(),
			Subsection: c.Chunk.Subsection(),
			Score:      c.Score,
			DocRank:    c.DocRank,
		}
	}
	return items
}
