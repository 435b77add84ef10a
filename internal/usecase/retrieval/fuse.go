// Package retrieval holds the rank-level logic behind hybrid search.
package retrieval

import (
	"sort"

	"rag-gateway/internal/domain"
)

// DefaultRRFK is the conventional reciprocal rank fusion constant.
const DefaultRRFK = 60.0

// FusedID pairs a hit id with its reciprocal-rank-fused score.
type FusedID struct {
	ID    string
	Score float64
}

// FuseRanked merges two ordered id rankings with Reciprocal Rank Fusion:
// each id accumulates 1/(k+rank) per list it appears in, with ranks starting
// at 1. An id absent from a list simply contributes nothing for that list, so
// an empty branch degrades fusion to the surviving ranking. Output is sorted
// by fused score descending; ties keep first-seen order (vector list first,
// then lexical).
func FuseRanked(vectorRanked, lexicalRanked []string, k float64) []FusedID {
	if k <= 0 {
		k = DefaultRRFK
	}

	scores := make(map[string]float64, len(vectorRanked)+len(lexicalRanked))
	var order []string
	accumulate := func(ranked []string) {
		for i, id := range ranked {
			if id == "" {
				continue
			}
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += 1.0 / (k + float64(i+1))
		}
	}
	accumulate(vectorRanked)
	accumulate(lexicalRanked)

	fused := make([]FusedID, 0, len(order))
	for _, id := range order {
		fused = append(fused, FusedID{ID: id, Score: scores[id]})
	}
	sort.SliceStable(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	return fused
}

// Fuse fuses two hit lists and resolves every fused id back to its source
// hit. When both branches returned the same id, the vector hit supplies text
// and metadata. Scores on the returned hits are the fused scores.
func Fuse(vectorHits, lexicalHits []domain.RetrievalHit, k float64) []domain.RetrievalHit {
	byID := make(map[string]domain.RetrievalHit, len(vectorHits)+len(lexicalHits))
	for _, h := range lexicalHits {
		if h.ID != "" {
			byID[h.ID] = h
		}
	}
	for _, h := range vectorHits {
		if h.ID != "" {
			byID[h.ID] = h
		}
	}

	fused := FuseRanked(idsOf(vectorHits), idsOf(lexicalHits), k)
	out := make([]domain.RetrievalHit, 0, len(fused))
	for _, f := range fused {
		src, ok := byID[f.ID]
		if !ok {
			continue
		}
		score := f.Score
		out = append(out, domain.RetrievalHit{
			ID:    f.ID,
			Score: &score,
			Text:  src.Text,
			Meta:  src.Meta,
		})
	}
	return out
}

func idsOf(hits []domain.RetrievalHit) []string {
	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	return ids
}
