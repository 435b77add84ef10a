// Package di wires the application graph from configuration.
package di

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"rag-gateway/internal/adapter/llamacli"
	"rag-gateway/internal/adapter/ollama"
	"rag-gateway/internal/adapter/repository"
	"rag-gateway/internal/adapter/searchdb"
	"rag-gateway/internal/domain"
	"rag-gateway/internal/infra/config"
	"rag-gateway/internal/infra/httpclient"
	"rag-gateway/internal/usecase"
	"rag-gateway/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	DocRepo   domain.DocumentRepository
	ChunkRepo domain.ChunkRepository
	JobRepo   domain.JobRepository

	Retriever domain.HybridRetriever
	Generator domain.Generator
	Encoder   domain.VectorEncoder

	AskUsecase      usecase.AskUsecase
	RetrieveUsecase usecase.RetrieveContextUsecase
	IngestUsecase   usecase.IngestDocumentUsecase

	Worker *worker.JobWorker
}

// NewApplicationComponents wires all dependencies from config and the
// database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) (*ApplicationComponents, error) {
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	txManager := repository.NewPostgresTransactionManager(pool)

	encoderHTTP := httpclient.NewPooledClient(30 * time.Second)
	encoder := ollama.NewEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, encoderHTTP)

	generator, err := buildGenerator(cfg, log)
	if err != nil {
		return nil, err
	}

	retriever := searchdb.NewChunkRetriever(pool, encoder)

	settings := usecase.DefaultPipelineSettings()
	settings.CtxSize = cfg.CtxSize
	settings.ReserveTokens = cfg.ReserveTokens
	settings.CharsPerToken = cfg.CharsPerToken
	settings.MaxContextChars = cfg.MaxContextChars
	settings.MinScore = cfg.MinScore
	settings.Dedupe = cfg.Dedupe
	settings.ShortCircuitOnEmpty = cfg.ShortCircuit
	settings.EnsureCitationsInOutput = cfg.EnsureCitations
	settings.RRFK = cfg.RRFK

	genTimeout := time.Duration(cfg.GenerateTimeoutMS) * time.Millisecond

	var askOpts []usecase.AskOption
	if cfg.AnswerCacheSize > 0 {
		askOpts = append(askOpts, usecase.WithAnswerCache(
			cfg.AnswerCacheSize,
			time.Duration(cfg.AnswerCacheTTLSec)*time.Second,
		))
		log.Info("answer_cache_enabled",
			slog.Int("size", cfg.AnswerCacheSize),
			slog.Int("ttl_sec", cfg.AnswerCacheTTLSec))
	}

	askUsecase := usecase.NewAskUsecase(retriever, generator, settings, genTimeout, log, askOpts...)
	retrieveUsecase := usecase.NewRetrieveContextUsecase(retriever, settings, log)

	hasher := domain.NewSourceHashPolicy()
	chunker := domain.NewChunker()
	ingestUsecase := usecase.NewIngestDocumentUsecase(
		docRepo, chunkRepo, txManager, chunker, hasher, encoder, log)

	jobWorker := worker.NewJobWorker(jobRepo, ingestUsecase, log,
		time.Duration(cfg.WorkerPollSec)*time.Second)

	return &ApplicationComponents{
		DocRepo:         docRepo,
		ChunkRepo:       chunkRepo,
		JobRepo:         jobRepo,
		Retriever:       retriever,
		Generator:       generator,
		Encoder:         encoder,
		AskUsecase:      askUsecase,
		RetrieveUsecase: retrieveUsecase,
		IngestUsecase:   ingestUsecase,
		Worker:          jobWorker,
	}, nil
}

func buildGenerator(cfg *config.Config, log *slog.Logger) (domain.Generator, error) {
	switch cfg.GeneratorBackend {
	case config.BackendLlamaCLI:
		gen, err := llamacli.NewGenerator(cfg.LlamaBinary, cfg.LlamaModelPath, cfg.LlamaGPULayers, log)
		if err != nil {
			return nil, fmt.Errorf("build llamacli generator: %w", err)
		}
		log.Info("generator_selected", slog.String("backend", gen.Version()))
		return gen, nil
	case config.BackendOllama:
		// Client timeout zero: the pipeline's context deadline governs.
		gen := ollama.NewGenerator(cfg.OllamaURL, cfg.ChatModel, cfg.ChatTemperature,
			httpclient.NewPooledClient(0))
		log.Info("generator_selected", slog.String("backend", gen.Version()))
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown generator backend: %s", cfg.GeneratorBackend)
	}
}
