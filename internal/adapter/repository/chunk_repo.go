package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rag-gateway/internal/domain"
)

type chunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) domain.ChunkRepository {
	return &chunkRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *chunkRepository) getExecutor(ctx context.Context) dbExecutor {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *chunkRepository) DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `DELETE FROM doc_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

func (r *chunkRepository) BulkInsert(ctx context.Context, chunks []domain.DocChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	rows := make([][]any, len(chunks))
	for i, chunk := range chunks {
		metadata, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		rows[i] = []any{
			chunk.ID,
			chunk.DocumentID,
			chunk.Ordinal,
			chunk.Content,
			metadata,
			chunk.Embedding,
			chunk.CreatedAt,
		}
	}

	_, err := r.getExecutor(ctx).CopyFrom(
		ctx,
		pgx.Identifier{"doc_chunks"},
		[]string{"id", "document_id", "ordinal", "content", "metadata", "embedding", "created_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("bulk insert chunks: %w", err)
	}
	return nil
}
