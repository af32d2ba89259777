package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/pagination"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
)

// KnowledgeFileRepository handles persistence of knowledge file records.
type KnowledgeFileRepository struct {
	db dbtx
}

func NewKnowledgeFileRepository(pool *pgxpool.Pool) *KnowledgeFileRepository {
	return &KnowledgeFileRepository{db: pool}
}

func NewKnowledgeFileRepositoryWithTx(tx pgx.Tx) *KnowledgeFileRepository {
	return &KnowledgeFileRepository{db: tx}
}

func (r *KnowledgeFileRepository) Create(ctx context.Context, f *domain.KnowledgeFile) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_files
			(id, user_id, domain_id, filename, file_type, storage_key, size_bytes, status, error_message, created_at, updated_at)
		 VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.ID, f.UserID, nullableString(f.DomainID), f.Filename, f.FileType, f.StorageKey,
		f.SizeBytes, f.Status, nullableString(f.ErrorMessage), f.CreatedAt, f.UpdatedAt,
	)
	return err
}

func (r *KnowledgeFileRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeFile, error) {
	var f domain.KnowledgeFile
	var domainID, errMsg *string
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, domain_id, filename, file_type, storage_key, size_bytes, status, error_message, created_at, updated_at
		 FROM knowledge_files WHERE id = $1`,
		id,
	).Scan(&f.ID, &f.UserID, &domainID, &f.Filename, &f.FileType, &f.StorageKey, &f.SizeBytes, &f.Status, &errMsg, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, err
	}
	if domainID != nil {
		f.DomainID = *domainID
	}
	if errMsg != nil {
		f.ErrorMessage = *errMsg
	}
	return &f, nil
}

func (r *KnowledgeFileRepository) ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*service.FilePageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, user_id, domain_id, filename, file_type, storage_key, size_bytes, status, error_message, created_at, updated_at
			 FROM knowledge_files
			 WHERE user_id = $1 AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			userID, cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, user_id, domain_id, filename, file_type, storage_key, size_bytes, status, error_message, created_at, updated_at
			 FROM knowledge_files
			 WHERE user_id = $1
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			userID, limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanFileRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.FilePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *KnowledgeFileRepository) UpdateStatus(ctx context.Context, id string, status domain.FileStatus, errorMessage string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_files SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`,
		status, nullableString(errorMessage), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

// Delete removes the file record. Chunks and jobs cascade via foreign keys.
func (r *KnowledgeFileRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM knowledge_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}

func scanFileRows(rows pgx.Rows) ([]*domain.KnowledgeFile, error) {
	var items []*domain.KnowledgeFile
	for rows.Next() {
		var f domain.KnowledgeFile
		var domainID, errMsg *string
		if err := rows.Scan(&f.ID, &f.UserID, &domainID, &f.Filename, &f.FileType, &f.StorageKey, &f.SizeBytes, &f.Status, &errMsg, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		if domainID != nil {
			f.DomainID = *domainID
		}
		if errMsg != nil {
			f.ErrorMessage = *errMsg
		}
		items = append(items, &f)
	}
	return items, rows.Err()
}
