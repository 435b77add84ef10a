package domain

import "context"

// Retriever returns ranked passages for a query.
type Retriever interface {
	SearchTopK(ctx context.Context, query string, topK int) ([]RetrievalHit, error)
}

// HybridRetriever is implemented by retrievers that can additionally serve an
// independent lexical ranking next to the dense one. The ask pipeline resolves
// this capability once per retriever instance; retrievers without it silently
// behave as plain top-k search when hybrid mode is requested.
type HybridRetriever interface {
	Retriever
	SearchLexical(ctx context.Context, query string, topK int) ([]RetrievalHit, error)
}

// Generator turns a prompt into text. Implementations must honor context
// cancellation and return an error matching ErrGenerateTimeout when the
// deadline is exceeded, with the underlying process already terminated.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
	Version() string
}

// VectorEncoder produces embeddings for a batch of texts.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
