package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3

	// StaleJobAge is how long a job may sit in processing before it is
	// assumed abandoned by a crashed worker and returned to pending.
	StaleJobAge = 15 * time.Minute
)

// IngestionJobRepository defines the interface for ingestion job persistence
type IngestionJobRepository interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestionJob, error)
	UpdateStatus(ctx context.Context, id string, status domain.IngestionJobStatus, errMsg string) error
	IncrementRetries(ctx context.Context, id string) error
	RequeueStale(ctx context.Context, maxAge time.Duration) (int64, error)
}

// Ingester defines the interface for running the ingestion pipeline
type Ingester interface {
	IngestFile(ctx context.Context, fileID string) error
}

// IngestionWorker claims pending ingestion jobs and runs the pipeline
// for each. Failed jobs go back to pending until MaxRetries is reached.
type IngestionWorker struct {
	repo      IngestionJobRepository
	ingester  Ingester
	batchSize int
	staleAge  time.Duration
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo IngestionJobRepository, ingester Ingester) *IngestionWorker {
	return &IngestionWorker{
		repo:      repo,
		ingester:  ingester,
		batchSize: 10,
		staleAge:  StaleJobAge,
	}
}

// ProcessJobs implements the JobProcessor interface. Each pass first
// rescues jobs abandoned in processing by a crashed worker, then claims
// a batch of pending jobs.
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	requeued, err := w.repo.RequeueStale(ctx, w.staleAge)
	if err != nil {
		log.Printf("failed to requeue stale jobs: %v", err)
	} else if requeued > 0 {
		log.Printf("requeued %d stale ingestion jobs", requeued)
	}

	jobs, err := w.repo.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("processing %d pending ingestion jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	log.Printf("processing job %s for file %s", job.ID, job.FileID)

	if err := w.ingester.IngestFile(ctx, job.FileID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("job %s completed", job.ID)
	return nil
}

// handleJobFailure applies retry logic to a failed job.
func (w *IngestionWorker) handleJobFailure(ctx context.Context, job *domain.IngestionJob, jobErr error) error {
	log.Printf("job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
