package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/middleware"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
)

type RetrieveService interface {
	Search(ctx context.Context, query, userID, domainID string) ([]*service.ChunkSearchResult, error)
	GetContext(ctx context.Context, query, userID, domainID string) string
}

type ContextHandler struct {
	svc RetrieveService
}

func NewContextHandler(svc RetrieveService) *ContextHandler {
	return &ContextHandler{svc: svc}
}

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	FileID     string  `json:"file_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Similarity float32 `json:"similarity"`
}

type SearchResponse struct {
	Results []*SearchResultResponse `json:"results"`
}

type ContextResponse struct {
	Context string `json:"context"`
}

// Search runs a semantic search over the caller's knowledge base and
// returns the matching chunks.
func (h *ContextHandler) Search(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	results, err := h.svc.Search(r.Context(), req.Query, userID, middleware.GetDomainID(r.Context()))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SearchResultResponse, len(results))
	for i, result := range results {
		responses[i] = &SearchResultResponse{
			ChunkID:    result.ChunkID,
			FileID:     result.FileID,
			Filename:   result.Filename,
			ChunkIndex: result.ChunkIndex,
			Content:    result.Content,
			Similarity: result.Similarity,
		}
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: responses})
}

// GetContext returns an assembled context block for prompt injection.
// Retrieval failures degrade to an empty context rather than an error.
func (h *ContextHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	contextText := h.svc.GetContext(r.Context(), req.Query, userID, middleware.GetDomainID(r.Context()))

	api.Success(w, http.StatusOK, ContextResponse{Context: contextText})
}
