package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"rag-gateway/internal/domain"
	"rag-gateway/internal/usecase/retrieval"
)

// RetrieveInput asks for curated passages without generation.
type RetrieveInput struct {
	Query      string
	TopK       int
	SearchMode string
}

// RetrieveContextUsecase exposes the retrieval and curation stages on their
// own, for clients that bring their own generator.
type RetrieveContextUsecase interface {
	Execute(ctx context.Context, in RetrieveInput) ([]domain.Citation, error)
}

type retrieveContextUsecase struct {
	retriever domain.Retriever
	lexical   domain.HybridRetriever
	settings  PipelineSettings
	logger    *slog.Logger
}

func NewRetrieveContextUsecase(retriever domain.Retriever, settings PipelineSettings, logger *slog.Logger) RetrieveContextUsecase {
	u := &retrieveContextUsecase{retriever: retriever, settings: settings, logger: logger}
	if hybrid, ok := retriever.(domain.HybridRetriever); ok {
		u.lexical = hybrid
	}
	return u
}

func (u *retrieveContextUsecase) Execute(ctx context.Context, in RetrieveInput) ([]domain.Citation, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ErrEmptyQuestion
	}
	topK := in.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	var hits []domain.RetrievalHit
	var err error
	if strings.EqualFold(in.SearchMode, SearchModeHybrid) && u.lexical != nil {
		// The ask pipeline owns the concurrent hybrid path; for bare retrieval
		// the lexical branch alone is not worth a fan-out, so run both in turn.
		dense, denseErr := u.retriever.SearchTopK(ctx, query, topK)
		lexical, lexErr := u.lexical.SearchLexical(ctx, query, topK)
		if denseErr != nil && lexErr != nil {
			return nil, fmt.Errorf("retrieval failed: %w", denseErr)
		}
		hits = retrieval.Fuse(dense, lexical, u.settings.RRFK)
		if len(hits) > topK {
			hits = hits[:topK]
		}
	} else {
		hits, err = u.retriever.SearchTopK(ctx, query, topK)
		if err != nil {
			return nil, fmt.Errorf("retrieval failed: %w", err)
		}
	}

	citations := CurateCitations(hits, u.settings.Dedupe, u.settings.MinScore)
	u.logger.InfoContext(ctx, "retrieve_context",
		slog.Int("hit_count", len(hits)),
		slog.Int("citation_count", len(citations)))
	return citations, nil
}
