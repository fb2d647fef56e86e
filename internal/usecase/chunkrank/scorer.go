// Package chunkrank pools the kept documents' chunks into one global ranking
// weighted by document confidence.
package chunkrank

import (
	"math"
	"sort"

	"github.com/scholarlab/paperqa/internal/domain/chunk"
	"github.com/scholarlab/paperqa/internal/domain/ranking"
)

// WeightNorm selects how document weights are rescaled before chunk scoring.
type WeightNorm string

const (
	// WeightNormMax divides every weight by the maximum over the kept set,
	// so weights land in (0,1] with ratios preserved. Unlike min-max this
	// never zeroes out the lowest kept document.
	WeightNormMax WeightNorm = "max"
	// WeightNormNone passes weights through unchanged, for rerankers whose
	// scores are already calibrated to the similarity scale.
	WeightNormNone WeightNorm = "none"
)

// IsValid reports whether the normalization policy is known.
func (n WeightNorm) IsValid() bool {
	return n == WeightNormMax || n == WeightNormNone
}

// Normalize rescales document weights according to the policy. The input
// slice is not modified.
func Normalize(docs []ranking.Document, norm WeightNorm) []ranking.Document {
	if norm != WeightNormMax || len(docs) == 0 {
		return docs
	}

	maxWeight := docs[0].Weight
	for _, d := range docs[1:] {
		if d.Weight > maxWeight {
			maxWeight = d.Weight
		}
	}
	if maxWeight <= 0 {
		return docs
	}

	out := make([]ranking.Document, len(docs))
	copy(out, docs)
	for i := range out {
		out[i].Weight /= maxWeight
	}
	return out
}

// Score ranks every chunk of every kept document by
// weight(doc) * cosine(chunk, query) and returns the global top-k.
// docs must be in kept order (best rerank first); chunksByDoc maps document
// ID to its chunks. Chunks are pooled across documents, so a highly similar
// chunk from a lower-weighted document can outrank a weakly similar chunk
// from a higher-weighted one. Ties are broken by (document rank, chunk
// original order) for determinism.
func Score(docs []ranking.Document, chunksByDoc map[string][]chunk.Chunk, queryVector []float32, topK int) []ranking.ScoredChunk {
	var pooled []ranking.ScoredChunk

	for docRank, d := range docs {
		for _, c := range chunksByDoc[d.ID] {
			pooled = append(pooled, ranking.ScoredChunk{
				Chunk:   c,
				Score:   d.Weight * Cosine(c.Vector(), queryVector),
				DocRank: docRank,
			})
		}
	}

	sort.Slice(pooled, func(i, j int) bool {
		if pooled[i].Score != pooled[j].Score {
			return pooled[i].Score > pooled[j].Score
		}
		if pooled[i].DocRank != pooled[j].DocRank {
			return pooled[i].DocRank < pooled[j].DocRank
		}
		return pooled[i].Chunk.Seq() < pooled[j].Chunk.Seq()
	})

	if topK > 0 && len(pooled) > topK {
		pooled = pooled[:topK]
	}

	return pooled
}

// Cosine returns the cosine similarity of two vectors, 0 for mismatched or
// zero-magnitude inputs.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
