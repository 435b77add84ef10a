package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rag-gateway/internal/domain"
)

type documentRepository struct {
	pool *pgxpool.Pool
}

func NewDocumentRepository(pool *pgxpool.Pool) domain.DocumentRepository {
	return &documentRepository{pool: pool}
}

func (r *documentRepository) getExecutor(ctx context.Context) interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
} {
	if tx := ExtractTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *documentRepository) GetBySourceID(ctx context.Context, sourceID string) (*domain.Document, error) {
	query := `
		SELECT id, source_id, title, url, source_hash, created_at, updated_at
		FROM documents
		WHERE source_id = $1
	`
	row := r.getExecutor(ctx).QueryRow(ctx, query, sourceID)

	var doc domain.Document
	err := row.Scan(&doc.ID, &doc.SourceID, &doc.Title, &doc.URL, &doc.SourceHash, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

func (r *documentRepository) Create(ctx context.Context, doc *domain.Document) error {
	query := `
		INSERT INTO documents (id, source_id, title, url, source_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query,
		doc.ID, doc.SourceID, doc.Title, doc.URL, doc.SourceHash, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *documentRepository) UpdateHash(ctx context.Context, id uuid.UUID, sourceHash string, updatedAt time.Time) error {
	query := `
		UPDATE documents
		SET source_hash = $1, updated_at = $2
		WHERE id = $3
	`
	_, err := r.getExecutor(ctx).Exec(ctx, query, sourceHash, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update document hash: %w", err)
	}
	return nil
}
