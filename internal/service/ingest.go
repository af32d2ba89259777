package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/chunker"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/telemetry"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// IngestFileRepository defines the repository interface for file ingestion
type IngestFileRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus, errorMessage string) error
}

// ChunkStore defines the repository interface for chunk persistence
type ChunkStore interface {
	ReplaceChunksForFile(ctx context.Context, fileID string, chunks []domain.Chunk) error
}

// TextExtractor defines the interface for extracting plain text from documents
type TextExtractor interface {
	Text(ctx context.Context, path string, declaredType string) (string, error)
}

// DocumentSource fetches the stored document to a local path for extraction.
// cleanup must always be safe to call, even when err is non-nil.
type DocumentSource interface {
	Fetch(ctx context.Context, storageKey string) (path string, cleanup func(), err error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DefaultEmbedConcurrency bounds parallel embedding requests per file.
const DefaultEmbedConcurrency = 4

// IngestService runs the extract, chunk, embed, store pipeline for a file.
type IngestService struct {
	files            IngestFileRepository
	chunks           ChunkStore
	source           DocumentSource
	extractor        TextExtractor
	embedder         EmbeddingClient
	chunkCfg         chunker.Config
	embedConcurrency int
	uuidGen          UUIDGenerator
}

// NewIngestService creates a new IngestService instance
func NewIngestService(
	files IngestFileRepository,
	chunks ChunkStore,
	source DocumentSource,
	extractor TextExtractor,
	embedder EmbeddingClient,
) *IngestService {
	return &IngestService{
		files:            files,
		chunks:           chunks,
		source:           source,
		extractor:        extractor,
		embedder:         embedder,
		chunkCfg:         chunker.DefaultConfig(),
		embedConcurrency: DefaultEmbedConcurrency,
		uuidGen:          &DefaultUUIDGenerator{},
	}
}

// WithChunkConfig overrides the chunking configuration.
func (s *IngestService) WithChunkConfig(cfg chunker.Config) *IngestService {
	s.chunkCfg = cfg
	return s
}

// WithEmbedConcurrency overrides the embedding concurrency limit.
func (s *IngestService) WithEmbedConcurrency(n int) *IngestService {
	if n > 0 {
		s.embedConcurrency = n
	}
	return s
}

// WithUUIDGenerator overrides the UUID generator (for testing).
func (s *IngestService) WithUUIDGenerator(gen UUIDGenerator) *IngestService {
	s.uuidGen = gen
	return s
}

// IngestFile processes a knowledge file end to end: fetch the stored
// document, extract its text, chunk it, embed every chunk, and replace
// the file's chunks in the vector store. On success the file is marked
// READY; on any failure it is marked FAILED with the error message and
// no chunks are written. Re-running on the same file replaces its
// previous chunks. DISABLED files are skipped without side effects.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) error {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.IngestFile", telemetry.SpanAttributes{
		FileID:    fileID,
		Operation: "ingest",
	})
	defer span.End()

	file, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}

	if file.Status == domain.FileStatusDisabled {
		return nil
	}

	if err := s.files.UpdateStatus(ctx, file.ID, domain.FileStatusProcessing, ""); err != nil {
		return err
	}

	path, cleanup, err := s.source.Fetch(ctx, file.StorageKey)
	if err != nil {
		return s.markFailed(ctx, file.ID, err)
	}
	defer cleanup()

	text, err := s.extractor.Text(ctx, path, file.FileType)
	if err != nil {
		return s.markFailed(ctx, file.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return s.markFailed(ctx, file.ID, domain.ErrEmptyDocument)
	}

	pieces := chunker.Split(text, s.chunkCfg)
	if len(pieces) == 0 {
		return s.markFailed(ctx, file.ID, domain.ErrNoChunksProduced)
	}

	embeddings, err := s.embedAll(ctx, pieces)
	if err != nil {
		return s.markFailed(ctx, file.ID, err)
	}

	now := time.Now().UTC()
	chunks := make([]domain.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = domain.Chunk{
			ID:         s.uuidGen.NewString(),
			FileID:     file.ID,
			UserID:     file.UserID,
			DomainID:   file.DomainID,
			ChunkIndex: i,
			Content:    content,
			Embedding:  embeddings[i],
			CreatedAt:  now,
		}
	}

	if err := s.chunks.ReplaceChunksForFile(ctx, file.ID, chunks); err != nil {
		return s.markFailed(ctx, file.ID, err)
	}

	return s.files.UpdateStatus(ctx, file.ID, domain.FileStatusReady, "")
}

// embedAll embeds each chunk with bounded concurrency, keeping results
// aligned with chunk order. A single failure aborts the whole batch.
func (s *IngestService) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	embeddings := make([][]float32, len(pieces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.embedConcurrency)

	for i, content := range pieces {
		i, content := i, content
		g.Go(func() error {
			embedding, err := s.embedder.GenerateEmbedding(gctx, content)
			if err != nil {
				return domain.NewEmbeddingFailure(err)
			}
			embeddings[i] = embedding
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

// markFailed records the failure on the file and returns the original error.
func (s *IngestService) markFailed(ctx context.Context, fileID string, cause error) error {
	if err := s.files.UpdateStatus(ctx, fileID, domain.FileStatusFailed, cause.Error()); err != nil {
		log.Printf("ingest: failed to mark file %s as FAILED: %v", fileID, err)
	}
	return cause
}
