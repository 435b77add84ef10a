package usecase

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"rag-gateway/internal/domain"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 1, EstimateTokens("", 4.0))
	assert.Equal(t, 1, EstimateTokens("ab", 4.0))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100), 4.0))
	// Bad ratio falls back instead of dividing by zero.
	assert.Equal(t, 4, EstimateTokens("abcd", 0))
}

func TestAvailableContextTokens(t *testing.T) {
	got := AvailableContextTokens(4096, 400, 64, strings.Repeat("q", 40), 4.0)
	assert.Equal(t, 4096-400-64-10, got)

	// Oversized answer budget hits the floor.
	got = AvailableContextTokens(512, 2000, 64, "short question", 4.0)
	assert.Equal(t, minPackTokens, got)
}

func TestPackByTokenBudget_GreedyPrefix(t *testing.T) {
	citations := []domain.Citation{
		{ID: "a", Text: strings.Repeat("a", 400)}, // ~100 tokens + margin
		{ID: "b", Text: strings.Repeat("b", 400)},
		{ID: "c", Text: strings.Repeat("c", 400)},
	}

	got := PackByTokenBudget(citations, 230, 4.0)

	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestPackByTokenBudget_FirstAlwaysKept(t *testing.T) {
	citations := []domain.Citation{
		{ID: "huge", Text: strings.Repeat("x", 10_000)},
		{ID: "next", Text: "small"},
	}

	got := PackByTokenBudget(citations, 50, 4.0)
	assert.Len(t, got, 1)
	assert.Equal(t, "huge", got[0].ID)

	got = PackByTokenBudget(citations, 0, 4.0)
	assert.Len(t, got, 1)
	assert.Equal(t, "huge", got[0].ID)
}

func TestPackByTokenBudget_EmptyInput(t *testing.T) {
	assert.Empty(t, PackByTokenBudget(nil, 100, 4.0))
}

func TestTruncateByCharBudget_ClipsAtCutPoint(t *testing.T) {
	citations := []domain.Citation{
		{ID: "a", Text: strings.Repeat("a", 100)},
		{ID: "b", Text: strings.Repeat("b", 100)},
	}

	got := TruncateByCharBudget(citations, 160)

	assert.Len(t, got, 2)
	assert.Equal(t, strings.Repeat("a", 100), got[0].Text)
	assert.True(t, strings.HasSuffix(got[1].Text, "..."))
	assert.LessOrEqual(t, len(got[0].Text)+len(got[1].Text), 160)
	assert.Less(t, len(got[1].Text), 100)
}

func TestTruncateByCharBudget_DropsWhenRoomTooSmall(t *testing.T) {
	citations := []domain.Citation{
		{ID: "a", Text: strings.Repeat("a", 100)},
		{ID: "b", Text: strings.Repeat("b", 100)},
	}

	// 30 chars of room is below the clip threshold: b is dropped entirely.
	got := TruncateByCharBudget(citations, 130)

	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestTruncateByCharBudget_InputNotMutated(t *testing.T) {
	original := strings.Repeat("z", 200)
	citations := []domain.Citation{{ID: "a", Text: original}}

	got := TruncateByCharBudget(citations, 100)

	assert.Equal(t, original, citations[0].Text)
	assert.NotEqual(t, original, got[0].Text)
}

func TestTruncateByCharBudget_DisabledCap(t *testing.T) {
	citations := []domain.Citation{{ID: "a", Text: strings.Repeat("a", 500)}}
	got := TruncateByCharBudget(citations, 0)
	assert.Equal(t, citations, got)
}
