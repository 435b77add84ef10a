package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// ChunkerVersion identifies the chunking algorithm so reingestion can detect
// when stored chunks were produced by an older revision.
type ChunkerVersion string

// ChunkerVersionV1 is the paragraph chunker with min/max length constraints.
const ChunkerVersionV1 ChunkerVersion = "v1"

const (
	// MinChunkLength is the minimum chunk length in runes. Shorter paragraphs
	// are merged into a neighbor.
	MinChunkLength = 80
	// MaxChunkLength is the maximum chunk length in runes. Longer paragraphs
	// are split at sentence boundaries.
	MaxChunkLength = 1000
)

// Chunk is a single piece of a document produced by a Chunker.
type Chunk struct {
	Ordinal int
	Content string
	Hash    string // SHA-256 of the content
}

// Chunker splits document text into indexable chunks.
type Chunker interface {
	Chunk(body string) ([]Chunk, error)
	Version() ChunkerVersion
}

type paragraphChunker struct{}

// NewChunker returns the default paragraph-based Chunker.
func NewChunker() Chunker {
	return &paragraphChunker{}
}

func (c *paragraphChunker) Version() ChunkerVersion {
	return ChunkerVersionV1
}

// Chunk splits the body at blank lines, merges paragraphs shorter than
// MinChunkLength into their successor, and splits paragraphs longer than
// MaxChunkLength at sentence boundaries.
func (c *paragraphChunker) Chunk(body string) ([]Chunk, error) {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")

	var paragraphs []string
	for _, part := range strings.Split(normalized, "\n\n") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}

	pieces := splitLongParagraphs(mergeShortParagraphs(paragraphs))

	chunks := make([]Chunk, 0, len(pieces))
	for i, content := range pieces {
		sum := sha256.Sum256([]byte(content))
		chunks = append(chunks, Chunk{
			Ordinal: i,
			Content: content,
			Hash:    hex.EncodeToString(sum[:]),
		})
	}
	return chunks, nil
}

// mergeShortParagraphs folds paragraphs below MinChunkLength into the next
// paragraph, or into the previous one when they end the document.
func mergeShortParagraphs(paragraphs []string) []string {
	var result []string
	var pending string

	for _, para := range paragraphs {
		if pending != "" {
			para = pending + "\n" + para
			pending = ""
		}
		if utf8.RuneCountInString(para) < MinChunkLength {
			pending = para
			continue
		}
		result = append(result, para)
	}

	if pending != "" {
		if len(result) > 0 {
			result[len(result)-1] += "\n" + pending
		} else {
			result = append(result, pending)
		}
	}
	return result
}

// splitLongParagraphs breaks paragraphs above MaxChunkLength at sentence
// boundaries, packing sentences greedily up to the limit.
func splitLongParagraphs(paragraphs []string) []string {
	var result []string

	for _, para := range paragraphs {
		if utf8.RuneCountInString(para) <= MaxChunkLength {
			result = append(result, para)
			continue
		}

		var current string
		for _, sentence := range splitSentences(para) {
			currentLen := utf8.RuneCountInString(current)
			sentenceLen := utf8.RuneCountInString(sentence)
			if currentLen > 0 && currentLen+1+sentenceLen > MaxChunkLength {
				result = append(result, current)
				current = sentence
				continue
			}
			if current != "" {
				current += " "
			}
			current += sentence
		}
		if current != "" {
			result = append(result, current)
		}
	}
	return result
}

// splitSentences cuts text after . ! ? when followed by whitespace or EOF.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}
