//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/testutil"
)

func createJobForNewFile(ctx context.Context, t *testing.T, files *KnowledgeFileRepository, jobs *IngestionJobRepository) *domain.IngestionJob {
	t.Helper()
	f := newTestFile("user-1", "")
	require.NoError(t, files.Create(ctx, f))

	job := domain.NewIngestionJob(uuid.NewString(), f.ID, time.Now().UTC().Truncate(time.Microsecond))
	require.NoError(t, jobs.Create(ctx, job))
	return job
}

func TestIngestionJobRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	job := createJobForNewFile(ctx, t, files, jobs)

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, job.FileID, got.FileID)
	assert.Equal(t, domain.IngestionJobStatusPending, got.Status)
	assert.Equal(t, int32(0), got.Retries)
	assert.Empty(t, got.Error)
	assert.Nil(t, got.ClaimedAt)
	assert.Nil(t, got.ProcessedAt)
}

func TestIngestionJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobs := NewIngestionJobRepository(pool)

	_, err := jobs.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrIngestionJobNotFound)
}

func TestIngestionJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	first := createJobForNewFile(ctx, t, files, jobs)
	second := createJobForNewFile(ctx, t, files, jobs)

	claimed, err := jobs.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	for _, j := range claimed {
		assert.Equal(t, domain.IngestionJobStatusProcessing, j.Status)
		require.NotNil(t, j.ClaimedAt)
		assert.WithinDuration(t, time.Now().UTC(), *j.ClaimedAt, time.Minute)
	}

	// Claimed jobs are no longer pending, so a second claim is empty.
	claimed, err = jobs.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)

	got, err := jobs.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionJobStatusProcessing, got.Status)
	got, err = jobs.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionJobStatusProcessing, got.Status)
}

func TestIngestionJobRepository_ClaimPending_Limit(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	for i := 0; i < 3; i++ {
		createJobForNewFile(ctx, t, files, jobs)
	}

	claimed, err := jobs.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 2)

	claimed, err = jobs.ClaimPending(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, claimed, 1)
}

func TestIngestionJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	job := createJobForNewFile(ctx, t, files, jobs)

	require.NoError(t, jobs.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, ""))

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionJobStatusCompleted, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.WithinDuration(t, time.Now().UTC(), *got.ProcessedAt, time.Minute)
}

func TestIngestionJobRepository_UpdateStatus_Failed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	job := createJobForNewFile(ctx, t, files, jobs)

	require.NoError(t, jobs.UpdateStatus(ctx, job.ID, domain.IngestionJobStatusFailed, "embedding generation failed"))

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionJobStatusFailed, got.Status)
	assert.Equal(t, "embedding generation failed", got.Error)
	assert.NotNil(t, got.ProcessedAt)
}

func TestIngestionJobRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobs := NewIngestionJobRepository(pool)

	err := jobs.UpdateStatus(ctx, uuid.NewString(), domain.IngestionJobStatusCompleted, "")
	assert.ErrorIs(t, err, domain.ErrIngestionJobNotFound)
}

func TestIngestionJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	job := createJobForNewFile(ctx, t, files, jobs)

	require.NoError(t, jobs.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobs.IncrementRetries(ctx, job.ID))

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), got.Retries)
}

func TestIngestionJobRepository_RequeueStale(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	jobs := NewIngestionJobRepository(pool)

	job := createJobForNewFile(ctx, t, files, jobs)
	claimed, err := jobs.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	// Staleness is measured from the claim, not the row's age, so a
	// job claimed moments ago is not touched by a generous cutoff.
	n, err := jobs.RequeueStale(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	n, err = jobs.RequeueStale(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := jobs.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestionJobStatusPending, got.Status)
	assert.Nil(t, got.ClaimedAt)

	// A requeued job is claimable again.
	claimed, err = jobs.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
}
