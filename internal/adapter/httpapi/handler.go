// Package httpapi exposes the ask pipeline over Echo.
package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"rag-gateway/internal/domain"
	"rag-gateway/internal/usecase"
)

type Handler struct {
	askUsecase      usecase.AskUsecase
	retrieveUsecase usecase.RetrieveContextUsecase
	jobRepo         domain.JobRepository
	readyCheck      func(ctx echo.Context) error
}

func NewHandler(
	askUsecase usecase.AskUsecase,
	retrieveUsecase usecase.RetrieveContextUsecase,
	jobRepo domain.JobRepository,
	readyCheck func(ctx echo.Context) error,
) *Handler {
	return &Handler{
		askUsecase:      askUsecase,
		retrieveUsecase: retrieveUsecase,
		jobRepo:         jobRepo,
		readyCheck:      readyCheck,
	}
}

// Register mounts all routes on the Echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
	e.POST("/v1/ask", h.Ask)
	e.POST("/v1/retrieve", h.Retrieve)
	e.POST("/internal/ingest", h.EnqueueIngest)
}

type askRequest struct {
	Question        string `json:"question"`
	TopK            int    `json:"top_k,omitempty"`
	AnswerMaxTokens *int   `json:"answer_max_tokens,omitempty"`
	MaxTokens       *int   `json:"max_tokens,omitempty"` // legacy alias
	Style           string `json:"style,omitempty"`
	SearchMode      string `json:"search_mode,omitempty"`
	MaxContextChars *int   `json:"max_context_chars,omitempty"`
}

type citationDTO struct {
	ID    string         `json:"id"`
	Score *float64       `json:"score,omitempty"`
	Text  string         `json:"text"`
	Meta  map[string]any `json:"meta,omitempty"`
}

type askResponse struct {
	Answer    string        `json:"answer"`
	Citations []citationDTO `json:"citations"`
}

// Ask answers a question from the indexed corpus.
// (POST /v1/ask)
func (h *Handler) Ask(ctx echo.Context) error {
	var req askRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	out, err := h.askUsecase.Execute(ctx.Request().Context(), usecase.AskInput{
		Question:        req.Question,
		TopK:            req.TopK,
		AnswerMaxTokens: req.AnswerMaxTokens,
		MaxTokens:       req.MaxTokens,
		Style:           req.Style,
		SearchMode:      req.SearchMode,
		MaxContextChars: req.MaxContextChars,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuestion) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		// Retrieval failure is the only error the pipeline propagates.
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, askResponse{
		Answer:    out.Answer,
		Citations: toCitationDTOs(out.Citations),
	})
}

type retrieveRequest struct {
	Query      string `json:"query"`
	TopK       int    `json:"top_k,omitempty"`
	SearchMode string `json:"search_mode,omitempty"`
}

type retrieveResponse struct {
	Citations []citationDTO `json:"citations"`
}

// Retrieve returns curated citations without generation.
// (POST /v1/retrieve)
func (h *Handler) Retrieve(ctx echo.Context) error {
	var req retrieveRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	citations, err := h.retrieveUsecase.Execute(ctx.Request().Context(), usecase.RetrieveInput{
		Query:      req.Query,
		TopK:       req.TopK,
		SearchMode: req.SearchMode,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyQuestion) {
			return ctx.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return ctx.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, retrieveResponse{Citations: toCitationDTOs(citations)})
}

type ingestRequest struct {
	SourceID string         `json:"source_id"`
	Title    string         `json:"title,omitempty"`
	URL      string         `json:"url,omitempty"`
	Body     string         `json:"body"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// EnqueueIngest queues a document for background indexing.
// (POST /internal/ingest)
func (h *Handler) EnqueueIngest(ctx echo.Context) error {
	var req ingestRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if req.SourceID == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing source_id"})
	}
	if req.Body == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "missing body"})
	}

	now := time.Now()
	job := &domain.IngestJob{
		ID:      uuid.New(),
		JobType: domain.JobTypeIngestDocument,
		Payload: map[string]any{
			"source_id": req.SourceID,
			"title":     req.Title,
			"url":       req.URL,
			"body":      req.Body,
			"metadata":  req.Metadata,
		},
		Status:    "new",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.jobRepo.Enqueue(ctx.Request().Context(), job); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusAccepted, map[string]string{
		"job_id": job.ID.String(),
		"status": "queued",
	})
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz checks downstream readiness, currently the database.
func (h *Handler) Readyz(ctx echo.Context) error {
	if h.readyCheck != nil {
		if err := h.readyCheck(ctx); err != nil {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func toCitationDTOs(citations []domain.Citation) []citationDTO {
	dtos := make([]citationDTO, 0, len(citations))
	for _, c := range citations {
		dtos = append(dtos, citationDTO{
			ID:    c.ID,
			Score: c.Score,
			Text:  c.Text,
			Meta:  c.Meta,
		})
	}
	return dtos
}
