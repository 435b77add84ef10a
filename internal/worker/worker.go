package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rag-gateway/internal/domain"
	"rag-gateway/internal/usecase"
)

const (
	defaultPollInterval = 1 * time.Second
	jobTimeout          = 5 * time.Minute
	initialBackoff      = 1 * time.Second
	maxBackoff          = 5 * time.Minute
)

// JobWorker drains the ingest queue in the background. Failed jobs push the
// poll interval into exponential backoff until a job succeeds again.
type JobWorker struct {
	jobRepo       domain.JobRepository
	ingestUsecase usecase.IngestDocumentUsecase
	logger        *slog.Logger
	pollInterval  time.Duration
	stopChan      chan struct{}
	backoff       time.Duration
}

func NewJobWorker(
	jobRepo domain.JobRepository,
	ingestUsecase usecase.IngestDocumentUsecase,
	logger *slog.Logger,
	pollInterval time.Duration,
) *JobWorker {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &JobWorker{
		jobRepo:       jobRepo,
		ingestUsecase: ingestUsecase,
		logger:        logger,
		pollInterval:  pollInterval,
		stopChan:      make(chan struct{}),
	}
}

func (w *JobWorker) Start() {
	w.logger.Info("job_worker_started", slog.Duration("poll_interval", w.pollInterval))
	go w.run()
}

func (w *JobWorker) Stop() {
	w.logger.Info("job_worker_stopping")
	close(w.stopChan)
}

func (w *JobWorker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.processNextJob()
			if w.backoff > 0 {
				ticker.Reset(w.backoff)
			} else {
				ticker.Reset(w.pollInterval)
			}
		}
	}
}

func (w *JobWorker) processNextJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	job, err := w.jobRepo.AcquireNext(ctx)
	if err != nil {
		w.logger.Error("job_acquire_failed", slog.String("error", err.Error()))
		return
	}
	if job == nil {
		return
	}

	w.logger.Info("job_processing",
		slog.String("job_id", job.ID.String()),
		slog.String("job_type", job.JobType))

	var processErr error
	switch job.JobType {
	case domain.JobTypeIngestDocument:
		processErr = w.processIngestDocument(ctx, job)
	default:
		processErr = fmt.Errorf("unknown job type: %s", job.JobType)
	}

	status := "completed"
	var errMsg *string
	if processErr != nil {
		status = "failed"
		msg := processErr.Error()
		errMsg = &msg
		w.backoff = w.nextBackoff(w.backoff)
		w.logger.Warn("job_failed_backing_off",
			slog.String("job_id", job.ID.String()),
			slog.Duration("backoff", w.backoff),
			slog.String("error", processErr.Error()))
	} else {
		w.backoff = 0
		w.logger.Info("job_completed", slog.String("job_id", job.ID.String()))
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, status, errMsg); err != nil {
		w.logger.Error("job_status_update_failed",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (w *JobWorker) nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return initialBackoff
	}
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (w *JobWorker) processIngestDocument(ctx context.Context, job *domain.IngestJob) error {
	payload := job.Payload
	sourceID, ok := payload["source_id"].(string)
	if !ok || sourceID == "" {
		return fmt.Errorf("missing or invalid source_id")
	}
	body, ok := payload["body"].(string)
	if !ok || body == "" {
		return fmt.Errorf("missing or invalid body")
	}
	title, _ := payload["title"].(string)
	url, _ := payload["url"].(string)
	metadata, _ := payload["metadata"].(map[string]any)

	return w.ingestUsecase.Upsert(ctx, usecase.IngestInput{
		SourceID: sourceID,
		Title:    title,
		URL:      url,
		Body:     body,
		Metadata: metadata,
	})
}
