package usecase

import (
	"crypto/sha256"
	"strings"

	"rag-gateway/internal/domain"
)

// NormalizeText trims the string and collapses internal whitespace runs
// (spaces, tabs, newlines) into single spaces.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CurateCitations converts raw retrieval hits into clean citations. Hits whose
// text normalizes to empty are dropped. When dedupe is set, citations whose
// normalized text hashes identically are collapsed to the first occurrence.
// When minScore is set, citations scoring below it are dropped, and so are
// unscored ones. Relative order is preserved throughout; empty input yields an
// empty slice, never an error.
func CurateCitations(hits []domain.RetrievalHit, dedupe bool, minScore *float64) []domain.Citation {
	citations := make([]domain.Citation, 0, len(hits))
	seen := make(map[[sha256.Size]byte]struct{}, len(hits))

	for _, hit := range hits {
		text := NormalizeText(hit.Text)
		if text == "" {
			continue
		}
		if dedupe {
			sum := sha256.Sum256([]byte(text))
			if _, dup := seen[sum]; dup {
				continue
			}
			seen[sum] = struct{}{}
		}
		if minScore != nil {
			if hit.Score == nil || *hit.Score < *minScore {
				continue
			}
		}
		meta := hit.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		citations = append(citations, domain.Citation{
			ID:    hit.ID,
			Score: hit.Score,
			Text:  text,
			Meta:  meta,
		})
	}
	return citations
}
