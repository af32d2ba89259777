package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/telemetry"
)

// ChunkSearchResult is a chunk returned from vector search with its
// cosine similarity to the query.
type ChunkSearchResult struct {
	ChunkID    string
	FileID     string
	Filename   string
	ChunkIndex int
	Content    string
	Similarity float32
}

// SearchChunkStore defines the repository interface for vector search
type SearchChunkStore interface {
	Search(ctx context.Context, embedding []float32, userID, domainID string, limit int) ([]*ChunkSearchResult, error)
}

// RetrieveConfig controls retrieval behavior.
type RetrieveConfig struct {
	TopK            int
	SimilarityFloor float32
	MaxContextChars int
}

// DefaultRetrieveConfig returns the default retrieval configuration.
func DefaultRetrieveConfig() RetrieveConfig {
	return RetrieveConfig{
		TopK:            6,
		SimilarityFloor: 0.7,
		MaxContextChars: 4000,
	}
}

const contextSeparator = "\n\n---\n\n"

// RetrieveService answers queries against the knowledge base.
type RetrieveService struct {
	chunks   SearchChunkStore
	embedder EmbeddingClient
	cfg      RetrieveConfig
}

// NewRetrieveService creates a new RetrieveService instance
func NewRetrieveService(chunks SearchChunkStore, embedder EmbeddingClient) *RetrieveService {
	return NewRetrieveServiceWithConfig(chunks, embedder, DefaultRetrieveConfig())
}

// NewRetrieveServiceWithConfig creates a new RetrieveService with explicit configuration.
func NewRetrieveServiceWithConfig(chunks SearchChunkStore, embedder EmbeddingClient, cfg RetrieveConfig) *RetrieveService {
	if cfg.TopK <= 0 {
		cfg.TopK = 6
	}
	if cfg.MaxContextChars <= 0 {
		cfg.MaxContextChars = 4000
	}
	return &RetrieveService{
		chunks:   chunks,
		embedder: embedder,
		cfg:      cfg,
	}
}

// Search embeds the query and returns the most similar chunks for the
// user, filtered by the similarity floor. Results are ordered by
// descending similarity. A non-empty domainID scopes the search to that
// domain's chunks plus domain-less chunks; an empty domainID matches
// domain-less chunks only.
func (s *RetrieveService) Search(ctx context.Context, query, userID, domainID string) ([]*ChunkSearchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrieveService.Search", telemetry.SpanAttributes{
		UserID:    userID,
		DomainID:  domainID,
		Operation: "search",
	})
	defer span.End()

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	results, err := s.chunks.Search(ctx, embedding, userID, domainID, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Similarity > s.cfg.SimilarityFloor {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// GetContext returns a context block for the query, assembled from the
// best matching chunks. It never fails the caller: any retrieval error
// is logged and an empty string is returned so the chat flow can
// proceed without knowledge-base context.
func (s *RetrieveService) GetContext(ctx context.Context, query, userID, domainID string) string {
	results, err := s.Search(ctx, query, userID, domainID)
	if err != nil {
		log.Printf("retrieve: context lookup failed for user %s: %v", userID, err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[KB:%s#%d]\n%s", r.Filename, r.ChunkIndex, r.Content)
	}

	return truncateContext(strings.Join(blocks, contextSeparator), s.cfg.MaxContextChars)
}

// truncateContext trims the assembled context to max characters,
// preferring to cut at a block boundary or newline near the end so a
// chunk is not sliced mid-sentence when avoidable. The limit counts
// runes, like the chunker, so a multi-byte character is never split.
func truncateContext(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	cut := string(runes[:max])
	threshold := len(cut) * 4 / 5

	if idx := strings.LastIndex(cut, contextSeparator); idx >= threshold {
		return cut[:idx]
	}
	if idx := strings.LastIndex(cut, "\n"); idx >= threshold {
		return cut[:idx]
	}
	return cut
}
