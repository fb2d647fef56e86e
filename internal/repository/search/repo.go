// Package search runs document-level searches over the paper index and maps
// hits into ranking candidates.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/scholarlab/paperqa/internal/db"
	"github.com/scholarlab/paperqa/internal/domain"
	"github.com/scholarlab/paperqa/internal/domain/ranking"
	"github.com/scholarlab/paperqa/internal/repository/corpus"
)

// paperPrefix strips hash keys down to the document ID.
const paperPrefix = domain.KeyPrefix + "paper:"

// returnFields are the hash fields a candidate needs beyond the score.
var returnFields = []string{"arxiv_id", "title", "summary"}

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchBM25(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements pipeline.DocumentSearcher.
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// SupportsTextSearch proxies the capability check from the store.
func (r *Repo) SupportsTextSearch(ctx context.Context) bool {
	return r.store.SupportsTextSearch(ctx)
}

// SearchSemantic returns papers by summary-embedding similarity, best first.
// Scores are cosine similarity in [0,1].
func (r *Repo) SearchSemantic(ctx context.Context, vector []float32, topK int) ([]ranking.Candidate, error) {
	q := &db.KNNQuery{
		IndexName:    corpus.IndexName,
		VectorField:  "summary_vector",
		Vector:       vector,
		K:            topK,
		ReturnFields: append(returnFields[:len(returnFields):len(returnFields)], "__vector_score"),
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	return parseResults(sr), nil
}

// SearchLexical returns papers by BM25 relevance over title and summary text,
// best first. Scores are unbounded BM25 values.
func (r *Repo) SearchLexical(ctx context.Context, query string, topK int) ([]ranking.Candidate, error) {
	q := &db.TextQuery{
		IndexName:    corpus.IndexName,
		Fields:       []string{"title", "summary"},
		Query:        query,
		TopK:         topK,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchBM25(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return parseResults(sr), nil
}

func parseResults(sr *db.SearchResult) []ranking.Candidate {
	if sr == nil || sr.Total == 0 {
		return nil
	}

	out := make([]ranking.Candidate, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		out = append(out, ranking.Candidate{
			ID:      strings.TrimPrefix(entry.Key, paperPrefix),
			Title:   entry.Fields["title"],
			Summary: entry.Fields["summary"],
			Score:   entry.Score,
		})
	}
	return out
}
