// Package selection reranks fused candidates and applies an adaptive
// relative threshold to pick the final document set.
package selection

import (
	"context"
	"fmt"
	"sort"

	"github.com/scholarlab/paperqa/internal/domain/ranking"
)

// Defaults for a reranker scoring in [0,1] (Cohere-style relevance).
// Reasonable values depend on the reranker's score distribution, so both are
// constructor parameters, not constants.
const (
	// DefaultDelta is the margin below the best score within which a
	// candidate is still kept.
	DefaultDelta = 0.15
	// DefaultMinScore is the absolute floor below which a candidate is never
	// considered relevant, regardless of relative standing.
	DefaultMinScore = 0.35
)

// Service selects documents from a fused ranking.
type Service struct {
	reranker Reranker
	delta    float64
	minScore float64
}

// New creates a selection service. Non-positive delta falls back to
// DefaultDelta only when negative; delta=0 means "keep only documents tied
// with the maximum".
func New(reranker Reranker, delta, minScore float64) *Service {
	if delta < 0 {
		delta = DefaultDelta
	}
	return &Service{reranker: reranker, delta: delta, minScore: minScore}
}

// Select reranks candidates' summaries against the query and keeps every
// document scoring within delta of the best score and at or above the
// absolute floor. The kept set is variable-size: an off-topic query may keep
// nothing, a well-covered one may keep every candidate. Empty input returns
// empty without calling the reranker. Output is ordered by rerank score
// descending with Weight set equal to RerankScore.
func (s *Service) Select(ctx context.Context, query string, candidates []ranking.Document) ([]ranking.Document, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Summary
	}

	scores, err := s.reranker.Rerank(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("rerank candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("rerank returned %d scores for %d candidates", len(scores), len(candidates))
	}

	maxScore := scores[0]
	for _, sc := range scores[1:] {
		if sc > maxScore {
			maxScore = sc
		}
	}

	kept := make([]ranking.Document, 0, len(candidates))
	for i, c := range candidates {
		sc := scores[i]
		if sc < s.minScore || sc < maxScore-s.delta {
			continue
		}
		c.RerankScore = sc
		c.Weight = sc
		kept = append(kept, c)
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].RerankScore != kept[j].RerankScore {
			return kept[i].RerankScore > kept[j].RerankScore
		}
		return kept[i].ID < kept[j].ID
	})

	return kept, nil
}
