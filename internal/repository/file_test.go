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
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/pagination"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/testutil"
)

func newTestFile(userID, domainID string) *domain.KnowledgeFile {
	now := time.Now().UTC().Truncate(time.Microsecond)
	id := uuid.NewString()
	f := domain.NewKnowledgeFile(id, userID, domainID, "manual.pdf", "application/pdf", "uploads/"+id, 1024, now)
	return f
}

func TestKnowledgeFileRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	f := newTestFile("user-1", "billing")
	require.NoError(t, repo.Create(ctx, f))

	got, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ID, got.ID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "billing", got.DomainID)
	assert.Equal(t, "manual.pdf", got.Filename)
	assert.Equal(t, domain.FileStatusProcessing, got.Status)
	assert.Equal(t, int64(1024), got.SizeBytes)
	assert.Empty(t, got.ErrorMessage)
}

func TestKnowledgeFileRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	_, err := repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestKnowledgeFileRepository_EmptyDomainStoredAsNull(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	f := newTestFile("user-1", "")
	require.NoError(t, repo.Create(ctx, f))

	var isNull bool
	require.NoError(t, pool.QueryRow(ctx, `SELECT domain_id IS NULL FROM knowledge_files WHERE id = $1`, f.ID).Scan(&isNull))
	assert.True(t, isNull)

	got, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.DomainID)
}

func TestKnowledgeFileRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	f := newTestFile("user-1", "")
	require.NoError(t, repo.Create(ctx, f))

	require.NoError(t, repo.UpdateStatus(ctx, f.ID, domain.FileStatusFailed, "extraction failed"))

	got, err := repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusFailed, got.Status)
	assert.Equal(t, "extraction failed", got.ErrorMessage)
	assert.True(t, got.UpdatedAt.After(f.UpdatedAt) || got.UpdatedAt.Equal(f.UpdatedAt))

	require.NoError(t, repo.UpdateStatus(ctx, f.ID, domain.FileStatusReady, ""))
	got, err = repo.GetByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusReady, got.Status)
	assert.Empty(t, got.ErrorMessage)
}

func TestKnowledgeFileRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	err := repo.UpdateStatus(ctx, uuid.NewString(), domain.FileStatusReady, "")
	assert.ErrorIs(t, err, domain.ErrFileNotFound)
}

func TestKnowledgeFileRepository_ListByUserWithCursor(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	for i := 0; i < 5; i++ {
		f := newTestFile("user-1", "")
		f.CreatedAt = f.CreatedAt.Add(time.Duration(i) * time.Second)
		f.UpdatedAt = f.CreatedAt
		require.NoError(t, repo.Create(ctx, f))
	}
	other := newTestFile("user-2", "")
	require.NoError(t, repo.Create(ctx, other))

	page, err := repo.ListByUserWithCursor(ctx, "user-1", nil, 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.True(t, page.HasMore)
	require.NotEmpty(t, page.NextCursor)

	for _, f := range page.Items {
		assert.Equal(t, "user-1", f.UserID)
	}
	assert.True(t, page.Items[0].UpdatedAt.After(page.Items[1].UpdatedAt))

	cursor, err := pagination.DecodeCursor(page.NextCursor)
	require.NoError(t, err)

	page2, err := repo.ListByUserWithCursor(ctx, "user-1", cursor, 3)
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.NextCursor)
}

func TestKnowledgeFileRepository_Delete(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewKnowledgeFileRepository(pool)

	f := newTestFile("user-1", "")
	require.NoError(t, repo.Create(ctx, f))

	require.NoError(t, repo.Delete(ctx, f.ID))

	_, err := repo.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrFileNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, f.ID), domain.ErrFileNotFound)
}
