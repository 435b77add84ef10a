package usecase

import (
	"strings"

	"rag-gateway/internal/domain"
)

const (
	// perCitationMargin is the token overhead assumed per citation for its
	// numbering and source line in the rendered context block.
	perCitationMargin = 8
	// minPackTokens is the floor of the citation token budget, so packing
	// always has some room even on pathological window arithmetic.
	minPackTokens = 128
	// minClipRoom is the smallest leftover character budget worth clipping a
	// citation into; below it the citation is dropped instead.
	minClipRoom = 50
)

// EstimateTokens approximates the token count of s with a chars-per-token
// ratio. The estimate is never below 1, even for an empty string.
func EstimateTokens(s string, charsPerToken float64) int {
	if charsPerToken <= 0 {
		charsPerToken = 1
	}
	n := int(float64(len(s)) / charsPerToken)
	if n < 1 {
		return 1
	}
	return n
}

// AvailableContextTokens computes the token budget left for citation text
// after reserving the answer allowance, the prompt scaffold, and the question
// itself out of the generator's context window.
func AvailableContextTokens(ctxSize, answerMaxTokens, reserveTokens int, question string, charsPerToken float64) int {
	available := ctxSize - answerMaxTokens - reserveTokens - EstimateTokens(question, charsPerToken)
	if available < minPackTokens {
		return minPackTokens
	}
	return available
}

// PackByTokenBudget walks citations in order and keeps them while their
// estimated cost fits availableTokens. The first citation is always kept when
// any exist, so a non-empty input never packs down to an empty context.
func PackByTokenBudget(citations []domain.Citation, availableTokens int, charsPerToken float64) []domain.Citation {
	if len(citations) == 0 {
		return nil
	}
	if availableTokens <= 0 {
		return citations[:1:1]
	}

	packed := make([]domain.Citation, 0, len(citations))
	used := 0
	for _, c := range citations {
		need := EstimateTokens(c.Text, charsPerToken) + perCitationMargin
		if len(packed) > 0 && used+need > availableTokens {
			break
		}
		packed = append(packed, c)
		used += need
		if used >= availableTokens {
			break
		}
	}
	if len(packed) == 0 {
		packed = append(packed, citations[0])
	}
	return packed
}

// TruncateByCharBudget caps the aggregate character length of citation texts
// at maxChars. Citations are kept whole while they fit; the one at the cut
// point is clipped with a trailing ellipsis when more than minClipRoom
// characters remain, and dropped otherwise. Input citations are not mutated;
// a clipped citation is a fresh value. maxChars <= 0 disables the cap.
func TruncateByCharBudget(citations []domain.Citation, maxChars int) []domain.Citation {
	if maxChars <= 0 {
		return citations
	}

	out := make([]domain.Citation, 0, len(citations))
	total := 0
	for _, c := range citations {
		if c.Text == "" {
			continue
		}
		if total+len(c.Text) <= maxChars {
			out = append(out, c)
			total += len(c.Text)
			continue
		}
		remaining := maxChars - total
		if remaining > minClipRoom {
			clipped := strings.TrimRight(c.Text[:remaining-3], " ") + "..."
			out = append(out, domain.Citation{
				ID:    c.ID,
				Score: c.Score,
				Text:  clipped,
				Meta:  c.Meta,
			})
		}
		break
	}
	return out
}
