package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-gateway/internal/domain"
	"rag-gateway/internal/usecase"
)

type stubAskUsecase struct {
	gotInput usecase.AskInput
	out      *usecase.AskOutput
	err      error
}

func (s *stubAskUsecase) Execute(_ context.Context, in usecase.AskInput) (*usecase.AskOutput, error) {
	s.gotInput = in
	return s.out, s.err
}

type stubRetrieveUsecase struct {
	citations []domain.Citation
	err       error
}

func (s *stubRetrieveUsecase) Execute(context.Context, usecase.RetrieveInput) ([]domain.Citation, error) {
	return s.citations, s.err
}

type stubJobRepo struct {
	enqueued []*domain.IngestJob
	err      error
}

func (s *stubJobRepo) Enqueue(_ context.Context, job *domain.IngestJob) error {
	s.enqueued = append(s.enqueued, job)
	return s.err
}

func (s *stubJobRepo) AcquireNext(context.Context) (*domain.IngestJob, error) { return nil, nil }

func (s *stubJobRepo) UpdateStatus(context.Context, uuid.UUID, string, *string) error { return nil }

func doRequest(h *Handler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAsk_OK(t *testing.T) {
	score := 0.9
	ask := &stubAskUsecase{out: &usecase.AskOutput{
		Answer: "the answer [1]",
		Citations: []domain.Citation{
			{ID: "c1", Score: &score, Text: "excerpt", Meta: map[string]any{"url": "https://example.com"}},
		},
	}}
	h := NewHandler(ask, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/ask",
		`{"question":"why?","top_k":5,"style":"concise","search_mode":"hybrid"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp askResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "the answer [1]", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "c1", resp.Citations[0].ID)

	assert.Equal(t, "why?", ask.gotInput.Question)
	assert.Equal(t, 5, ask.gotInput.TopK)
	assert.Equal(t, "concise", ask.gotInput.Style)
	assert.Equal(t, "hybrid", ask.gotInput.SearchMode)
}

func TestAsk_EmptyQuestionIsBadRequest(t *testing.T) {
	ask := &stubAskUsecase{err: usecase.ErrEmptyQuestion}
	h := NewHandler(ask, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/ask", `{"question":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAsk_RetrievalFailureIsBadGateway(t *testing.T) {
	ask := &stubAskUsecase{err: errors.New("retrieval failed: db unreachable")}
	h := NewHandler(ask, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/ask", `{"question":"q"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestAsk_MalformedBody(t *testing.T) {
	h := NewHandler(&stubAskUsecase{}, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/ask", `{"question": 42`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRetrieve_OK(t *testing.T) {
	retrieve := &stubRetrieveUsecase{citations: []domain.Citation{
		{ID: "c1", Text: "passage", Meta: map[string]any{}},
	}}
	h := NewHandler(&stubAskUsecase{}, retrieve, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/v1/retrieve", `{"query":"find this"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp retrieveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "passage", resp.Citations[0].Text)
}

func TestEnqueueIngest_Accepted(t *testing.T) {
	jobs := &stubJobRepo{}
	h := NewHandler(&stubAskUsecase{}, &stubRetrieveUsecase{}, jobs, nil)

	rec := doRequest(h, http.MethodPost, "/internal/ingest",
		`{"source_id":"doc-1","title":"T","body":"some text"}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, jobs.enqueued, 1)
	job := jobs.enqueued[0]
	assert.Equal(t, domain.JobTypeIngestDocument, job.JobType)
	assert.Equal(t, "new", job.Status)
	assert.Equal(t, "doc-1", job.Payload["source_id"])
}

func TestEnqueueIngest_MissingFields(t *testing.T) {
	h := NewHandler(&stubAskUsecase{}, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodPost, "/internal/ingest", `{"title":"no source or body"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(h, http.MethodPost, "/internal/ingest", `{"source_id":"doc-1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	h := NewHandler(&stubAskUsecase{}, &stubRetrieveUsecase{}, &stubJobRepo{}, nil)

	rec := doRequest(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz_DownstreamFailure(t *testing.T) {
	h := NewHandler(&stubAskUsecase{}, &stubRetrieveUsecase{}, &stubJobRepo{},
		func(echo.Context) error { return errors.New("db down") })

	rec := doRequest(h, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
