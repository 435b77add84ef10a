package domain

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_SplitsOnBlankLines(t *testing.T) {
	body := strings.Repeat("a", 100) + "\n\n" + strings.Repeat("b", 100)

	chunks, err := NewChunker().Chunk(body)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 0, chunks[0].Ordinal)
	assert.Equal(t, 1, chunks[1].Ordinal)
	assert.NotEqual(t, chunks[0].Hash, chunks[1].Hash)
}

func TestChunker_MergesShortParagraphs(t *testing.T) {
	short := "Short intro."
	long := strings.Repeat("content ", 20)
	body := short + "\n\n" + long

	chunks, err := NewChunker().Chunk(body)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Content, short)
	assert.Contains(t, chunks[0].Content, "content")
}

func TestChunker_TrailingShortMergesIntoPrevious(t *testing.T) {
	long := strings.Repeat("body text ", 15)
	body := long + "\n\nThe end."

	chunks, err := NewChunker().Chunk(body)

	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasSuffix(chunks[0].Content, "The end."))
}

func TestChunker_SplitsLongParagraphAtSentences(t *testing.T) {
	sentence := strings.Repeat("word ", 60) + "end. " // ~305 runes each
	body := strings.TrimSpace(strings.Repeat(sentence, 5))

	chunks, err := NewChunker().Chunk(body)

	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), MaxChunkLength)
	}
}

func TestChunker_NormalizesLineEndings(t *testing.T) {
	body := strings.Repeat("a", 100) + "\r\n\r\n" + strings.Repeat("b", 100)

	chunks, err := NewChunker().Chunk(body)

	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestChunker_EmptyBody(t *testing.T) {
	chunks, err := NewChunker().Chunk("   \n\n  ")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSourceHashPolicy(t *testing.T) {
	p := NewSourceHashPolicy()

	assert.Equal(t, p.Compute("title", "body"), p.Compute("  title  ", "body\n"))
	assert.NotEqual(t, p.Compute("ab", "c"), p.Compute("a", "bc"))
	assert.Len(t, p.Compute("t", "b"), 64)
}
