package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// Document represents an ingested source document.
type Document struct {
	ID         uuid.UUID
	SourceID   string
	Title      string
	URL        string
	SourceHash string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocChunk is a persistable chunk of an ingested document.
type DocChunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Ordinal    int
	Content    string
	Metadata   map[string]any
	Embedding  pgvector.Vector
	CreatedAt  time.Time
}

// JobTypeIngestDocument is the only job type the worker currently handles.
const JobTypeIngestDocument = "ingest_document"

// IngestJob is a queued unit of ingestion work.
type IngestJob struct {
	ID           uuid.UUID
	JobType      string
	Payload      map[string]any
	Status       string // "new", "processing", "completed", "failed"
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DocumentRepository manages source documents.
type DocumentRepository interface {
	// GetBySourceID returns nil, nil when no document exists for the source.
	GetBySourceID(ctx context.Context, sourceID string) (*Document, error)
	Create(ctx context.Context, doc *Document) error
	UpdateHash(ctx context.Context, id uuid.UUID, sourceHash string, updatedAt time.Time) error
}

// ChunkRepository manages the searchable chunks of a document.
type ChunkRepository interface {
	DeleteByDocumentID(ctx context.Context, documentID uuid.UUID) error
	BulkInsert(ctx context.Context, chunks []DocChunk) error
}

// JobRepository is the persistent ingest queue.
type JobRepository interface {
	Enqueue(ctx context.Context, job *IngestJob) error
	// AcquireNext atomically claims the oldest new job, or returns nil, nil.
	AcquireNext(ctx context.Context) (*IngestJob, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, errorMessage *string) error
}

// TransactionManager executes a function within a database transaction.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
