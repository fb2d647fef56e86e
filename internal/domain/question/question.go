package question

import (
	"fmt"
	"strings"

	"github.com/scholarlab/paperqa/internal/domain"
)

// Query parameter limits.
const (
	// MaxQueryLength is the maximum allowed question length.
	MaxQueryLength = 4096
	// DefaultCandidates is the fused-ranking prefix passed to the reranker.
	DefaultCandidates = 20
	MaxCandidates     = 100
	// DefaultTopChunks is the size of the final evidence set.
	DefaultTopChunks = 10
	MaxTopChunks     = 50
)

// Question is a validated retrieval query.
type Question struct {
	text       string
	candidates int
	topChunks  int
}

// New validates and normalizes query parameters.
// Defaults: candidates=20, topChunks=10. Whitespace-only text is rejected.
func New(text string, candidates, topChunks int) (Question, error) {
	if strings.TrimSpace(text) == "" {
		return Question{}, fmt.Errorf("%w: query text is required", domain.ErrInvalidQuery)
	}
	if len(text) > MaxQueryLength {
		return Question{}, fmt.Errorf("%w: query too long (max %d chars)", domain.ErrInvalidQuery, MaxQueryLength)
	}
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	if candidates > MaxCandidates {
		candidates = MaxCandidates
	}
	if topChunks <= 0 {
		topChunks = DefaultTopChunks
	}
	if topChunks > MaxTopChunks {
		topChunks = MaxTopChunks
	}

	return Question{text: text, candidates: candidates, topChunks: topChunks}, nil
}

// Text returns the raw question text.
func (q *Question) Text() string { return q.text }

// Candidates returns the number of fused candidates sent to the reranker.
func (q *Question) Candidates() int { return q.candidates }

// TopChunks returns the size of the final evidence set.
func (q *Question) TopChunks() int { return q.topChunks }
