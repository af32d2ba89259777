package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/chunker"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/config"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/database"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/extract"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/openai"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/repository"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
	"github.com/spf13/cobra"
)

// IngestCmd returns the ingest command, a synchronous one-shot ingestion
// of a local document. Useful for seeding a knowledge base without
// going through the HTTP API and job queue.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a local document into the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	cmd.Flags().String("user", "", "Owner user ID (required)")
	cmd.Flags().String("domain", "", "Optional knowledge domain scope")
	cmd.Flags().String("type", "", "Declared MIME type (defaults to the file extension)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")
	cmd.MarkFlagRequired("user")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	path := args[0]

	userID, _ := cmd.Flags().GetString("user")
	domainID, _ := cmd.Flags().GetString("domain")
	fileType, _ := cmd.Flags().GetString("type")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("OPENAI_API_KEY is required for ingestion")
	}

	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer src.Close()

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	fileRepo := repository.NewKnowledgeFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	fileID := uuid.NewString()
	storageKey := "uploads/" + fileID

	size, err := blobs.Put(ctx, storageKey, src)
	if err != nil {
		return fmt.Errorf("failed to store document: %w", err)
	}

	file := domain.NewKnowledgeFile(fileID, userID, domainID, filepath.Base(path), fileType, storageKey, size, time.Now().UTC())
	if err := domain.ValidateKnowledgeFile(file); err != nil {
		return err
	}
	if err := fileRepo.Create(ctx, file); err != nil {
		return fmt.Errorf("failed to create file record: %w", err)
	}

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		RequestTimeout: cfg.EmbedTimeout,
	})

	ingestSvc := service.NewIngestService(fileRepo, chunkRepo, blobs, extract.NewExtractor(), embeddingClient).
		WithChunkConfig(chunker.Config{ChunkSizeChars: cfg.ChunkSizeChars, OverlapChars: cfg.ChunkOverlap}).
		WithEmbedConcurrency(cfg.EmbedConcurrency)

	log.Printf("ingesting %s as file %s", path, fileID)
	if err := ingestSvc.IngestFile(ctx, fileID); err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	count, err := chunkRepo.CountByFile(ctx, fileID)
	if err != nil {
		return fmt.Errorf("failed to count chunks: %w", err)
	}

	fmt.Printf("ingested %s: file ID %s, %d chunks\n", filepath.Base(path), fileID, count)
	return nil
}
