package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/handlers"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/chunker"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/config"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/database"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/extract"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/jobs"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/openai"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/repository"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/server"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/storage"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/telemetry"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
)

// BlobStore is the document storage used by uploads and ingestion.
// Both the local filesystem store and the S3 client implement it.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (int64, error)
	Fetch(ctx context.Context, key string) (string, func(), error)
	Delete(ctx context.Context, key string) error
}

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the chatbot knowledge API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	fileRepo := repository.NewKnowledgeFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	var embeddingClient service.EmbeddingClient
	var ingestionWorker *jobs.Worker
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:         cfg.OpenAIAPIKey,
			RequestTimeout: cfg.EmbedTimeout,
		})

		extractor := extract.NewExtractor()
		ingestSvc := service.NewIngestService(fileRepo, chunkRepo, blobs, extractor, embeddingClient).
			WithChunkConfig(chunker.Config{ChunkSizeChars: cfg.ChunkSizeChars, OverlapChars: cfg.ChunkOverlap}).
			WithEmbedConcurrency(cfg.EmbedConcurrency)

		processor := jobs.NewIngestionWorker(jobRepo, ingestSvc)
		ingestionWorker = jobs.NewWorker(processor, cfg.JobPollInterval)
		go ingestionWorker.Start(ctx)
		log.Println("ingestion worker started")
	} else {
		log.Println("OPENAI_API_KEY not set: uploads will queue but not be ingested")
	}

	fileSvc := service.NewFileService(fileRepo, jobRepo, blobs)
	fileHandler := handlers.NewFileHandler(fileSvc)

	var contextHandler *handlers.ContextHandler
	if embeddingClient != nil {
		retrieveSvc := service.NewRetrieveServiceWithConfig(chunkRepo, embeddingClient, service.RetrieveConfig{
			TopK:            cfg.RetrieveTopK,
			SimilarityFloor: float32(cfg.SimilarityFloor),
			MaxContextChars: cfg.MaxContextChars,
		})
		contextHandler = handlers.NewContextHandler(retrieveSvc)
	} else {
		contextHandler = handlers.NewContextHandler(&noOpRetrieveService{})
	}

	routerCfg := server.RouterConfig{
		FileHandler:    fileHandler,
		ContextHandler: contextHandler,
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if ingestionWorker != nil {
		ingestionWorker.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (BlobStore, error) {
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		return s3Client, nil
	}

	localStore, err := storage.NewLocalStore(cfg.UploadDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	log.Printf("storing uploads under %s", cfg.UploadDir)
	return localStore, nil
}

type noOpRetrieveService struct{}

func (s *noOpRetrieveService) Search(ctx context.Context, query, userID, domainID string) ([]*service.ChunkSearchResult, error) {
	return nil, fmt.Errorf("retrieval not configured: OPENAI_API_KEY required")
}

func (s *noOpRetrieveService) GetContext(ctx context.Context, query, userID, domainID string) string {
	return ""
}

const migrationsSource = "file://migrations"

func runMigrations(databaseURL string) error {
	return runMigrationsFrom(databaseURL, migrationsSource)
}

func runMigrationsFrom(databaseURL, sourceURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	upErr := m.Up()
	if upErr != nil && upErr != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", upErr)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	}

	if upErr == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
