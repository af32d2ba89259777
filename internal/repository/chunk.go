package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
)

// ChunkRepository handles persistence and vector search of embedded chunks.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// ReplaceChunksForFile atomically swaps the file's chunks for a new set.
// The whole replace runs in one transaction under a per-file advisory
// lock, so concurrent ingestion runs for the same file serialize and
// readers never observe a partially written set.
func (r *ChunkRepository) ReplaceChunksForFile(ctx context.Context, fileID string, chunks []domain.Chunk) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.NewStoreWriteFailure(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, fileID); err != nil {
		return domain.NewStoreWriteFailure(err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM knowledge_chunks WHERE file_id = $1`, fileID); err != nil {
		return domain.NewStoreWriteFailure(err)
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO knowledge_chunks
				(id, file_id, user_id, domain_id, chunk_index, content, embedding, created_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID,
			c.FileID,
			c.UserID,
			nullableString(c.DomainID),
			c.ChunkIndex,
			c.Content,
			pgvector.NewVector(c.Embedding),
			createdAt,
		)
		if err != nil {
			return domain.NewStoreWriteFailure(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreWriteFailure(err)
	}
	return nil
}

// Search returns the chunks closest to the query embedding for the
// user, ordered by ascending cosine distance. Only chunks of READY
// files are searched. A non-empty domainID matches that domain's
// chunks plus domain-less ones; an empty domainID matches domain-less
// chunks only.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float32, userID, domainID string, limit int) ([]*service.ChunkSearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.file_id, f.filename, c.chunk_index, c.content,
		        1 - (c.embedding <=> $1) AS similarity
		 FROM knowledge_chunks c
		 JOIN knowledge_files f ON f.id = c.file_id
		 WHERE c.user_id = $2
		   AND f.status = $3
		   AND (($4::text IS NOT NULL AND (c.domain_id = $4 OR c.domain_id IS NULL))
		     OR ($4::text IS NULL AND c.domain_id IS NULL))
		 ORDER BY c.embedding <=> $1, c.id
		 LIMIT $5`,
		vec, userID, domain.FileStatusReady, nullableString(domainID), limit,
	)
	if err != nil {
		return nil, domain.NewStoreQueryFailure(err)
	}
	defer rows.Close()

	var results []*service.ChunkSearchResult
	for rows.Next() {
		var item service.ChunkSearchResult
		if err := rows.Scan(&item.ChunkID, &item.FileID, &item.Filename, &item.ChunkIndex, &item.Content, &item.Similarity); err != nil {
			return nil, domain.NewStoreQueryFailure(err)
		}
		results = append(results, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreQueryFailure(err)
	}
	return results, nil
}

// CountByFile returns the number of stored chunks for a file.
func (r *ChunkRepository) CountByFile(ctx context.Context, fileID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM knowledge_chunks WHERE file_id = $1`, fileID).Scan(&n)
	if err != nil {
		return 0, domain.NewStoreQueryFailure(err)
	}
	return n, nil
}
