package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-gateway/internal/domain"
)

type stubDocRepo struct {
	existing    *domain.Document
	created     *domain.Document
	updatedHash string
}

func (s *stubDocRepo) GetBySourceID(context.Context, string) (*domain.Document, error) {
	return s.existing, nil
}

func (s *stubDocRepo) Create(_ context.Context, doc *domain.Document) error {
	s.created = doc
	return nil
}

func (s *stubDocRepo) UpdateHash(_ context.Context, _ uuid.UUID, hash string, _ time.Time) error {
	s.updatedHash = hash
	return nil
}

type stubChunkRepo struct {
	deletedFor *uuid.UUID
	inserted   []domain.DocChunk
}

func (s *stubChunkRepo) DeleteByDocumentID(_ context.Context, id uuid.UUID) error {
	s.deletedFor = &id
	return nil
}

func (s *stubChunkRepo) BulkInsert(_ context.Context, chunks []domain.DocChunk) error {
	s.inserted = chunks
	return nil
}

type passthroughTx struct{}

func (passthroughTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type stubEncoder struct {
	err error
	// short vectors keep the tests readable; dimensionality is irrelevant here
	dim int
}

func (s *stubEncoder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, s.dim)
	}
	return out, nil
}

func (s *stubEncoder) Version() string { return "stub-encoder" }

func newIngestFixture(existing *domain.Document, encErr error) (IngestDocumentUsecase, *stubDocRepo, *stubChunkRepo) {
	docRepo := &stubDocRepo{existing: existing}
	chunkRepo := &stubChunkRepo{}
	u := NewIngestDocumentUsecase(
		docRepo, chunkRepo, passthroughTx{},
		domain.NewChunker(), domain.NewSourceHashPolicy(),
		&stubEncoder{err: encErr, dim: 3}, testLogger(),
	)
	return u, docRepo, chunkRepo
}

func longBody() string {
	return "This opening paragraph carries enough characters to clear the minimum chunk length on its own, no merging required.\n\n" +
		"A second paragraph follows with a similar amount of text so the chunker produces a second independent chunk for it."
}

func TestIngest_NewDocument(t *testing.T) {
	u, docRepo, chunkRepo := newIngestFixture(nil, nil)

	err := u.Upsert(context.Background(), IngestInput{
		SourceID: "doc-1",
		Title:    "Title",
		URL:      "https://example.com/doc-1",
		Body:     longBody(),
		Metadata: map[string]any{"lang": "en"},
	})

	require.NoError(t, err)
	require.NotNil(t, docRepo.created)
	assert.Equal(t, "doc-1", docRepo.created.SourceID)
	assert.NotEmpty(t, docRepo.created.SourceHash)

	require.Len(t, chunkRepo.inserted, 2)
	first := chunkRepo.inserted[0]
	assert.Equal(t, docRepo.created.ID, first.DocumentID)
	assert.Equal(t, 0, first.Ordinal)
	assert.Equal(t, "doc-1", first.Metadata["source"])
	assert.Equal(t, "https://example.com/doc-1", first.Metadata["url"])
	assert.Equal(t, "en", first.Metadata["lang"])
}

func TestIngest_UnchangedContentSkips(t *testing.T) {
	body := longBody()
	hash := domain.NewSourceHashPolicy().Compute("Title", body)
	existing := &domain.Document{ID: uuid.New(), SourceID: "doc-1", SourceHash: hash}

	u, docRepo, chunkRepo := newIngestFixture(existing, nil)

	err := u.Upsert(context.Background(), IngestInput{SourceID: "doc-1", Title: "Title", Body: body})

	require.NoError(t, err)
	assert.Nil(t, docRepo.created)
	assert.Empty(t, docRepo.updatedHash)
	assert.Nil(t, chunkRepo.deletedFor)
	assert.Empty(t, chunkRepo.inserted)
}

func TestIngest_ChangedContentReplacesChunks(t *testing.T) {
	existing := &domain.Document{ID: uuid.New(), SourceID: "doc-1", SourceHash: "stale"}

	u, docRepo, chunkRepo := newIngestFixture(existing, nil)

	err := u.Upsert(context.Background(), IngestInput{SourceID: "doc-1", Title: "Title", Body: longBody()})

	require.NoError(t, err)
	assert.Nil(t, docRepo.created)
	assert.NotEmpty(t, docRepo.updatedHash)
	require.NotNil(t, chunkRepo.deletedFor)
	assert.Equal(t, existing.ID, *chunkRepo.deletedFor)
	assert.NotEmpty(t, chunkRepo.inserted)
	for _, c := range chunkRepo.inserted {
		assert.Equal(t, existing.ID, c.DocumentID)
	}
}

func TestIngest_EncoderFailureAborts(t *testing.T) {
	u, docRepo, chunkRepo := newIngestFixture(nil, errors.New("encoder offline"))

	err := u.Upsert(context.Background(), IngestInput{SourceID: "doc-1", Body: longBody()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "encoder offline")
	assert.Nil(t, docRepo.created)
	assert.Empty(t, chunkRepo.inserted)
}

func TestIngest_ValidatesInput(t *testing.T) {
	u, _, _ := newIngestFixture(nil, nil)

	assert.Error(t, u.Upsert(context.Background(), IngestInput{SourceID: "", Body: "text"}))
	assert.Error(t, u.Upsert(context.Background(), IngestInput{SourceID: "doc-1", Body: ""}))
}
