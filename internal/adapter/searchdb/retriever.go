// Package searchdb serves retrieval queries from the doc_chunks table: dense
// ranking over the pgvector embedding column and lexical ranking over
// Postgres full-text search.
package searchdb

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"rag-gateway/internal/domain"
)

type chunkRetriever struct {
	pool    *pgxpool.Pool
	encoder domain.VectorEncoder
}

// NewChunkRetriever returns a retriever with both the dense and the lexical
// capability; callers that only need domain.Retriever see just the former.
func NewChunkRetriever(pool *pgxpool.Pool, encoder domain.VectorEncoder) domain.HybridRetriever {
	return &chunkRetriever{pool: pool, encoder: encoder}
}

// SearchTopK embeds the query and ranks chunks by cosine distance. Scores are
// reported as cosine similarity so higher is better.
func (r *chunkRetriever) SearchTopK(ctx context.Context, query string, topK int) ([]domain.RetrievalHit, error) {
	embeddings, err := r.encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed query: got %d embeddings, want 1", len(embeddings))
	}
	vec := pgvector.NewVector(embeddings[0])

	sql := `
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS score
		FROM doc_chunks
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, sql, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("knn query: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// SearchLexical ranks chunks with websearch_to_tsquery over the content
// column. Queries with no matching chunks return an empty slice.
func (r *chunkRetriever) SearchLexical(ctx context.Context, query string, topK int) ([]domain.RetrievalHit, error) {
	sql := `
		SELECT id, content, metadata,
			ts_rank_cd(to_tsvector('english', content), q) AS score
		FROM doc_chunks, websearch_to_tsquery('english', $1) q
		WHERE to_tsvector('english', content) @@ q
		ORDER BY score DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, sql, query, topK)
	if err != nil {
		return nil, fmt.Errorf("lexical query: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

func scanHits(rows pgx.Rows) ([]domain.RetrievalHit, error) {
	var hits []domain.RetrievalHit
	for rows.Next() {
		var (
			id       string
			content  string
			metadata []byte
			score    float64
		)
		if err := rows.Scan(&id, &content, &metadata, &score); err != nil {
			return nil, fmt.Errorf("scan hit: %w", err)
		}

		var meta map[string]any
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal hit metadata: %w", err)
			}
		}

		s := score
		hits = append(hits, domain.RetrievalHit{
			ID:    id,
			Score: &s,
			Text:  content,
			Meta:  meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hit rows: %w", err)
	}
	return hits, nil
}
