package service

import (
	"context"
	"io"
	"time"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/pagination"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/telemetry"
)

// FileRepositoryInterface defines the repository interface for knowledge file persistence
type FileRepositoryInterface interface {
	Create(ctx context.Context, f *domain.KnowledgeFile) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	ListByUserWithCursor(ctx context.Context, userID string, cursor *pagination.Cursor, limit int) (*FilePageResult, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus, errorMessage string) error
	Delete(ctx context.Context, id string) error
}

type FilePageResult struct {
	Items      []*domain.KnowledgeFile
	NextCursor string
	HasMore    bool
}

// IngestionJobRepositoryInterface defines the repository interface for ingestion job persistence
type IngestionJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
}

// BlobWriter stores uploaded documents and removes them on delete.
type BlobWriter interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Delete(ctx context.Context, key string) error
}

// FileService handles the knowledge file lifecycle: upload, listing,
// reprocessing, disabling, and deletion. Ingestion itself happens
// asynchronously through the job queue.
type FileService struct {
	files   FileRepositoryInterface
	jobs    IngestionJobRepositoryInterface
	blobs   BlobWriter
	uuidGen UUIDGenerator
}

// NewFileService creates a new FileService instance
func NewFileService(
	files FileRepositoryInterface,
	jobs IngestionJobRepositoryInterface,
	blobs BlobWriter,
) *FileService {
	return &FileService{
		files:   files,
		jobs:    jobs,
		blobs:   blobs,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// WithUUIDGenerator overrides the UUID generator (for testing).
func (s *FileService) WithUUIDGenerator(gen UUIDGenerator) *FileService {
	s.uuidGen = gen
	return s
}

// UploadInput represents the input for uploading a knowledge file
type UploadInput struct {
	UserID   string
	DomainID string
	Filename string
	FileType string
	Content  io.Reader
}

// Upload stores the document, records it as PROCESSING, and queues an
// ingestion job. The uploaded file becomes searchable only once the
// worker finishes and marks it READY.
func (s *FileService) Upload(ctx context.Context, input UploadInput) (*domain.KnowledgeFile, error) {
	ctx, span := telemetry.StartSpan(ctx, "FileService.Upload", telemetry.SpanAttributes{
		UserID:    input.UserID,
		DomainID:  input.DomainID,
		Operation: "upload",
	})
	defer span.End()

	fileID := s.uuidGen.NewString()
	storageKey := "uploads/" + fileID

	size, err := s.blobs.Put(ctx, storageKey, input.Content)
	if err != nil {
		return nil, err
	}

	file := domain.NewKnowledgeFile(fileID, input.UserID, input.DomainID, input.Filename, input.FileType, storageKey, size, time.Now().UTC())
	if err := domain.ValidateKnowledgeFile(file); err != nil {
		return nil, err
	}

	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	if err := s.enqueueJob(ctx, file.ID); err != nil {
		return nil, err
	}

	return file, nil
}

// GetByID retrieves a knowledge file by ID
func (s *FileService) GetByID(ctx context.Context, id string) (*domain.KnowledgeFile, error) {
	return s.files.GetByID(ctx, id)
}

type ListFilesInput struct {
	UserID string
	Cursor string
	Limit  int
}

type ListFilesOutput struct {
	Items   []*domain.KnowledgeFile
	Cursor  string
	HasMore bool
}

// List returns the user's knowledge files, newest first, with cursor pagination.
func (s *FileService) List(ctx context.Context, input ListFilesInput) (*ListFilesOutput, error) {
	var cursor *pagination.Cursor
	if input.Cursor != "" {
		c, err := pagination.DecodeCursor(input.Cursor)
		if err != nil {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "invalid cursor")
		}
		cursor = c
	}

	page, err := s.files.ListByUserWithCursor(ctx, input.UserID, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListFilesOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

// Reprocess queues a fresh ingestion run for the file. The file is put
// back into PROCESSING; its existing chunks keep serving queries until
// the new run replaces them.
func (s *FileService) Reprocess(ctx context.Context, id string) (*domain.KnowledgeFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if file.Status == domain.FileStatusDisabled {
		return nil, domain.ErrFileDisabled
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.FileStatusProcessing, ""); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatusProcessing
	file.ErrorMessage = ""

	if err := s.enqueueJob(ctx, file.ID); err != nil {
		return nil, err
	}

	return file, nil
}

// Disable takes the file out of retrieval without deleting its data.
func (s *FileService) Disable(ctx context.Context, id string) (*domain.KnowledgeFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.FileStatusDisabled, ""); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatusDisabled
	file.ErrorMessage = ""
	return file, nil
}

// Enable brings a disabled file back by queueing a fresh ingestion run.
func (s *FileService) Enable(ctx context.Context, id string) (*domain.KnowledgeFile, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if file.Status != domain.FileStatusDisabled {
		return file, nil
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.FileStatusProcessing, ""); err != nil {
		return nil, err
	}
	file.Status = domain.FileStatusProcessing
	file.ErrorMessage = ""

	if err := s.enqueueJob(ctx, file.ID); err != nil {
		return nil, err
	}

	return file, nil
}

// Delete removes the file record, its chunks, and the stored document.
func (s *FileService) Delete(ctx context.Context, id string) error {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}

	return s.blobs.Delete(ctx, file.StorageKey)
}

func (s *FileService) enqueueJob(ctx context.Context, fileID string) error {
	job := domain.NewIngestionJob(s.uuidGen.NewString(), fileID, time.Now().UTC())
	if err := domain.ValidateIngestionJob(job); err != nil {
		return err
	}
	return s.jobs.Create(ctx, job)
}
