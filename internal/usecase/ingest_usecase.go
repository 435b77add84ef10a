package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"rag-gateway/internal/domain"
)

// IngestInput is one document to index.
type IngestInput struct {
	SourceID string
	Title    string
	URL      string
	Body     string
	Metadata map[string]any
}

// IngestDocumentUsecase chunks, embeds, and stores a source document.
type IngestDocumentUsecase interface {
	// Upsert indexes the document, replacing any previous chunks. Documents
	// whose content hash is unchanged are skipped.
	Upsert(ctx context.Context, in IngestInput) error
}

type ingestDocumentUsecase struct {
	docRepo    domain.DocumentRepository
	chunkRepo  domain.ChunkRepository
	txManager  domain.TransactionManager
	chunker    domain.Chunker
	hashPolicy domain.SourceHashPolicy
	encoder    domain.VectorEncoder
	logger     *slog.Logger
}

func NewIngestDocumentUsecase(
	docRepo domain.DocumentRepository,
	chunkRepo domain.ChunkRepository,
	txManager domain.TransactionManager,
	chunker domain.Chunker,
	hashPolicy domain.SourceHashPolicy,
	encoder domain.VectorEncoder,
	logger *slog.Logger,
) IngestDocumentUsecase {
	return &ingestDocumentUsecase{
		docRepo:    docRepo,
		chunkRepo:  chunkRepo,
		txManager:  txManager,
		chunker:    chunker,
		hashPolicy: hashPolicy,
		encoder:    encoder,
		logger:     logger,
	}
}

func (u *ingestDocumentUsecase) Upsert(ctx context.Context, in IngestInput) error {
	if in.SourceID == "" {
		return fmt.Errorf("source id is required")
	}
	if in.Body == "" {
		return fmt.Errorf("document body is empty: %s", in.SourceID)
	}

	sourceHash := u.hashPolicy.Compute(in.Title, in.Body)

	existing, err := u.docRepo.GetBySourceID(ctx, in.SourceID)
	if err != nil {
		return fmt.Errorf("lookup document %s: %w", in.SourceID, err)
	}
	if existing != nil && existing.SourceHash == sourceHash {
		u.logger.InfoContext(ctx, "ingest_unchanged_skip",
			slog.String("source_id", in.SourceID))
		return nil
	}

	chunks, err := u.chunker.Chunk(in.Body)
	if err != nil {
		return fmt.Errorf("chunk document %s: %w", in.SourceID, err)
	}
	if len(chunks) == 0 {
		return fmt.Errorf("document produced no chunks: %s", in.SourceID)
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}
	embeddings, err := u.encoder.Encode(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed document %s: %w", in.SourceID, err)
	}
	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch for %s: got %d, want %d",
			in.SourceID, len(embeddings), len(chunks))
	}

	now := time.Now().UTC()
	err = u.txManager.RunInTx(ctx, func(ctx context.Context) error {
		docID := uuid.New()
		if existing != nil {
			docID = existing.ID
			if err := u.docRepo.UpdateHash(ctx, docID, sourceHash, now); err != nil {
				return fmt.Errorf("update document hash: %w", err)
			}
			if err := u.chunkRepo.DeleteByDocumentID(ctx, docID); err != nil {
				return fmt.Errorf("delete stale chunks: %w", err)
			}
		} else {
			doc := &domain.Document{
				ID:         docID,
				SourceID:   in.SourceID,
				Title:      in.Title,
				URL:        in.URL,
				SourceHash: sourceHash,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := u.docRepo.Create(ctx, doc); err != nil {
				return fmt.Errorf("create document: %w", err)
			}
		}

		rows := make([]domain.DocChunk, len(chunks))
		for i, c := range chunks {
			rows[i] = domain.DocChunk{
				ID:         uuid.New(),
				DocumentID: docID,
				Ordinal:    c.Ordinal,
				Content:    c.Content,
				Metadata:   u.chunkMetadata(in, c),
				Embedding:  pgvector.NewVector(embeddings[i]),
				CreatedAt:  now,
			}
		}
		if err := u.chunkRepo.BulkInsert(ctx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.logger.InfoContext(ctx, "ingest_document_indexed",
		slog.String("source_id", in.SourceID),
		slog.Int("chunk_count", len(chunks)),
		slog.Bool("replaced", existing != nil))
	return nil
}

// chunkMetadata is stored per chunk and travels back on retrieval hits, where
// the prompt composer reads url/source/title for attribution.
func (u *ingestDocumentUsecase) chunkMetadata(in IngestInput, c domain.Chunk) map[string]any {
	meta := make(map[string]any, len(in.Metadata)+5)
	for k, v := range in.Metadata {
		meta[k] = v
	}
	meta["source"] = in.SourceID
	if in.Title != "" {
		meta["title"] = in.Title
	}
	if in.URL != "" {
		meta["url"] = in.URL
	}
	meta["ordinal"] = c.Ordinal
	meta["chunker_version"] = string(domain.ChunkerVersionV1)
	return meta
}
