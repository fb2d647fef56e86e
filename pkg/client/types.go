package client

import "fmt"

// APIError is a non-200 response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("paperqa: %s (%d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("paperqa: status %d: %s", e.StatusCode, e.Message)
}

// RetrieveDocumentsRequest asks for a ranked document set.
type RetrieveDocumentsRequest struct {
	Query      string `json:"query"`
	Candidates int    `json:"candidates,omitempty"`
}

// Document is a ranked document in a retrieval response.
type Document struct {
	ID           string  `json:"id"`
	Title        string  `json:"title,omitempty"`
	Summary      string  `json:"summary,omitempty"`
	SemanticRank int     `json:"semantic_rank,omitempty"`
	LexicalRank  int     `json:"lexical_rank,omitempty"`
	FusedScore   float64 `json:"fused_score"`
	RerankScore  float64 `json:"rerank_score"`
	Weight       float64 `json:"weight"`
}

// RetrieveDocumentsResponse is the ranked document set.
type RetrieveDocumentsResponse struct {
	State     string     `json:"state"`
	Degraded  bool       `json:"degraded"`
	Documents []Document `json:"documents"`
}

// WeightedDocument names a document and its confidence weight.
type WeightedDocument struct {
	ID     string  `json:"id"`
	Weight float64 `json:"weight"`
}

// RetrieveChunksRequest asks for the top evidence chunks of the given
// weighted documents.
type RetrieveChunksRequest struct {
	Query     string             `json:"query"`
	Documents []WeightedDocument `json:"documents"`
	TopChunks int                `json:"top_chunks,omitempty"`
}

// Chunk is a scored evidence chunk.
type Chunk struct {
	DocID      string  `json:"doc_id"`
	Seq        int     `json:"seq"`
	Content    string  `json:"content"`
	Section    string  `json:"section,omitempty"`
	Subsection string  `json:"subsection,omitempty"`
	Score      float64 `json:"score"`
	DocRank    int     `json:"doc_rank"`
}

// RetrieveChunksResponse is the global top-k evidence set. Query echoes the
// request's question.
type RetrieveChunksResponse struct {
	State  string  `json:"state"`
	Query  string  `json:"query"`
	Chunks []Chunk `json:"chunks"`
}

// AnswerRequest asks for a grounded answer.
type AnswerRequest struct {
	Query      string `json:"query"`
	Candidates int    `json:"candidates,omitempty"`
	TopChunks  int    `json:"top_chunks,omitempty"`
}

// AnswerResponse is the generated answer with its evidence.
type AnswerResponse struct {
	State     string     `json:"state"`
	Degraded  bool       `json:"degraded"`
	Answer    string     `json:"answer"`
	Documents []Document `json:"documents"`
	Chunks    []Chunk    `json:"chunks"`
}

// HealthResponse is the server health report.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
