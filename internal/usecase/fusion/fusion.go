// Package fusion merges independently produced document rankings via
// Reciprocal Rank Fusion.
package fusion

import (
	"sort"

	"github.com/scholarlab/paperqa/internal/domain/ranking"
)

// DefaultK is the Reciprocal Rank Fusion constant (standard value from
// Cormack et al. 2009).
const DefaultK = 60

// Fuse merges the semantic and lexical rankings via RRF.
// score(d) = sum of 1/(k + rank_i(d)) for each ranking where d appears.
// A document absent from one ranking contributes no term for that source;
// a document absent from both is not a candidate at all. Ties are broken by
// document ID so the output is deterministic. When a document appears in
// both rankings the semantic copy is kept (it carries the summary text).
func Fuse(semantic, lexical []ranking.Candidate, k int) []ranking.Document {
	if k <= 0 {
		k = DefaultK
	}

	merged := make(map[string]*ranking.Document, len(semantic)+len(lexical))

	for i, c := range semantic {
		rank := i + 1
		merged[c.ID] = &ranking.Document{
			ID:           c.ID,
			Title:        c.Title,
			Summary:      c.Summary,
			SemanticRank: rank,
			FusedScore:   1.0 / float64(k+rank),
		}
	}

	for i, c := range lexical {
		rank := i + 1
		if existing, ok := merged[c.ID]; ok {
			existing.LexicalRank = rank
			existing.FusedScore += 1.0 / float64(k+rank)
			continue
		}
		merged[c.ID] = &ranking.Document{
			ID:          c.ID,
			Title:       c.Title,
			Summary:     c.Summary,
			LexicalRank: rank,
			FusedScore:  1.0 / float64(k+rank),
		}
	}

	fused := make([]ranking.Document, 0, len(merged))
	for _, d := range merged {
		fused = append(fused, *d)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return fused[i].ID < fused[j].ID
	})

	return fused
}
