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

// testEmbedding builds a 1536-dim unit-ish vector dominated by one axis
// so cosine ordering in tests is predictable.
func testEmbedding(axis int) []float32 {
	v := make([]float32, 1536)
	v[axis] = 1
	return v
}

func makeChunks(file *domain.KnowledgeFile, contents []string, axis int) []domain.Chunk {
	now := time.Now().UTC().Truncate(time.Microsecond)
	chunks := make([]domain.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = domain.Chunk{
			ID:         uuid.NewString(),
			FileID:     file.ID,
			UserID:     file.UserID,
			DomainID:   file.DomainID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  testEmbedding(axis),
			CreatedAt:  now,
		}
	}
	return chunks
}

func createReadyFile(ctx context.Context, t *testing.T, files *KnowledgeFileRepository, userID, domainID string) *domain.KnowledgeFile {
	t.Helper()
	f := newTestFile(userID, domainID)
	require.NoError(t, files.Create(ctx, f))
	require.NoError(t, files.UpdateStatus(ctx, f.ID, domain.FileStatusReady, ""))
	f.Status = domain.FileStatusReady
	return f
}

func TestChunkRepository_ReplaceChunksForFile(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	f := createReadyFile(ctx, t, files, "user-1", "")

	require.NoError(t, chunks.ReplaceChunksForFile(ctx, f.ID, makeChunks(f, []string{"first", "second", "third"}, 0)))

	n, err := chunks.CountByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A second run fully replaces the previous set.
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, f.ID, makeChunks(f, []string{"only"}, 0)))

	n, err = chunks.CountByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestChunkRepository_ReplaceChunksForFile_EmptySetClears(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	f := createReadyFile(ctx, t, files, "user-1", "")
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, f.ID, makeChunks(f, []string{"a", "b"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, f.ID, nil))

	n, err := chunks.CountByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestChunkRepository_Search_ScopesByUser(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	mine := createReadyFile(ctx, t, files, "user-1", "")
	theirs := createReadyFile(ctx, t, files, "user-2", "")

	require.NoError(t, chunks.ReplaceChunksForFile(ctx, mine.ID, makeChunks(mine, []string{"my chunk"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, theirs.ID, makeChunks(theirs, []string{"their chunk"}, 0)))

	results, err := chunks.Search(ctx, testEmbedding(0), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "my chunk", results[0].Content)
	assert.Equal(t, mine.ID, results[0].FileID)
	assert.Equal(t, mine.Filename, results[0].Filename)
	assert.InDelta(t, 1.0, float64(results[0].Similarity), 0.001)
}

func TestChunkRepository_Search_DomainScoping(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	global := createReadyFile(ctx, t, files, "user-1", "")
	billing := createReadyFile(ctx, t, files, "user-1", "billing")
	support := createReadyFile(ctx, t, files, "user-1", "support")

	require.NoError(t, chunks.ReplaceChunksForFile(ctx, global.ID, makeChunks(global, []string{"global"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, billing.ID, makeChunks(billing, []string{"billing"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, support.ID, makeChunks(support, []string{"support"}, 0)))

	// Domain scoped: that domain's chunks plus domain-less ones.
	results, err := chunks.Search(ctx, testEmbedding(0), "user-1", "billing", 10)
	require.NoError(t, err)
	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	assert.ElementsMatch(t, []string{"global", "billing"}, contents)

	// No domain: only domain-less chunks.
	results, err = chunks.Search(ctx, testEmbedding(0), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "global", results[0].Content)
}

func TestChunkRepository_Search_ExcludesNonReadyFiles(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	ready := createReadyFile(ctx, t, files, "user-1", "")
	disabled := createReadyFile(ctx, t, files, "user-1", "")

	require.NoError(t, chunks.ReplaceChunksForFile(ctx, ready.ID, makeChunks(ready, []string{"visible"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, disabled.ID, makeChunks(disabled, []string{"hidden"}, 0)))
	require.NoError(t, files.UpdateStatus(ctx, disabled.ID, domain.FileStatusDisabled, ""))

	results, err := chunks.Search(ctx, testEmbedding(0), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "visible", results[0].Content)
}

func TestChunkRepository_Search_OrdersBySimilarityAndLimits(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	near := createReadyFile(ctx, t, files, "user-1", "")
	far := createReadyFile(ctx, t, files, "user-1", "")

	require.NoError(t, chunks.ReplaceChunksForFile(ctx, near.ID, makeChunks(near, []string{"near"}, 0)))
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, far.ID, makeChunks(far, []string{"far"}, 1)))

	results, err := chunks.Search(ctx, testEmbedding(0), "user-1", "", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].Content)
	assert.Equal(t, "far", results[1].Content)
	assert.Greater(t, results[0].Similarity, results[1].Similarity)

	results, err = chunks.Search(ctx, testEmbedding(0), "user-1", "", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "near", results[0].Content)
}

func TestChunkRepository_DeleteFileCascades(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	files := NewKnowledgeFileRepository(pool)
	chunks := NewChunkRepository(pool)

	f := createReadyFile(ctx, t, files, "user-1", "")
	require.NoError(t, chunks.ReplaceChunksForFile(ctx, f.ID, makeChunks(f, []string{"a", "b"}, 0)))

	require.NoError(t, files.Delete(ctx, f.ID))

	n, err := chunks.CountByFile(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
