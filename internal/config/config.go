package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Local document storage, used when S3 is not configured
	UploadDir string `envconfig:"UPLOAD_DIR" default:"./data/uploads"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"chatbot-knowledge"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// Ingestion pipeline tuning
	ChunkSizeChars   int           `envconfig:"CHUNK_SIZE_CHARS" default:"4000"`
	ChunkOverlap     int           `envconfig:"CHUNK_OVERLAP_CHARS" default:"600"`
	EmbedConcurrency int           `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbedTimeout     time.Duration `envconfig:"EMBED_TIMEOUT" default:"30s"`
	JobPollInterval  time.Duration `envconfig:"JOB_POLL_INTERVAL" default:"5s"`

	// Retrieval tuning
	RetrieveTopK    int     `envconfig:"RETRIEVE_TOP_K" default:"6"`
	SimilarityFloor float64 `envconfig:"SIMILARITY_FLOOR" default:"0.7"`
	MaxContextChars int     `envconfig:"MAX_CONTEXT_CHARS" default:"4000"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("CHATBOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}
