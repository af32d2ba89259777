//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/handlers"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/extract"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/jobs"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/repository"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/server"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/storage"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestEnv holds all resources needed for end-to-end tests
type TestEnv struct {
	T          *testing.T
	Ctx        context.Context
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	HTTPClient *http.Client
	Worker     *jobs.Worker
}

// hashEmbedder is a deterministic embedding client for tests. It maps
// each word to a dimension, so texts sharing words get a positive
// cosine similarity without calling a real embedding API.
type hashEmbedder struct{}

func (hashEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%1536]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	scale := float32(math.Sqrt(norm))
	for i := range vec {
		vec[i] /= scale
	}
	return vec, nil
}

// SetupTestEnv starts a pgvector container, runs migrations, and serves
// the full API stack with local document storage and a fake embedder.
func SetupTestEnv(t *testing.T) *TestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	blobs, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create local store: %v", err)
	}

	fileRepo := repository.NewKnowledgeFileRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)

	embedder := hashEmbedder{}
	ingestSvc := service.NewIngestService(fileRepo, chunkRepo, blobs, extract.NewExtractor(), embedder)

	worker := jobs.NewWorker(jobs.NewIngestionWorker(jobRepo, ingestSvc), 100*time.Millisecond)
	go worker.Start(ctx)

	fileSvc := service.NewFileService(fileRepo, jobRepo, blobs)
	retrieveSvc := service.NewRetrieveServiceWithConfig(chunkRepo, embedder, service.RetrieveConfig{
		TopK:            5,
		SimilarityFloor: 0.01,
		MaxContextChars: 4000,
	})

	router := server.NewRouter(server.RouterConfig{
		FileHandler:    handlers.NewFileHandler(fileSvc),
		ContextHandler: handlers.NewContextHandler(retrieveSvc),
	})

	srv := httptest.NewServer(router)

	t.Cleanup(func() {
		worker.Stop()
		srv.Close()
	})

	return &TestEnv{
		T:          t,
		Ctx:        ctx,
		Pool:       pool,
		Server:     srv,
		HTTPClient: srv.Client(),
		Worker:     worker,
	}
}

// UploadFile uploads a document through the API and returns its file ID.
func (env *TestEnv) UploadFile(userID, domainID, filename, fileType, content string) string {
	env.T.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		env.T.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		env.T.Fatalf("failed to write form file: %v", err)
	}
	if fileType != "" {
		if err := writer.WriteField("file_type", fileType); err != nil {
			env.T.Fatalf("failed to write file_type field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		env.T.Fatalf("failed to close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/files", &buf)
	if err != nil {
		env.T.Fatalf("failed to build upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID)
	if domainID != "" {
		req.Header.Set("X-Domain-ID", domainID)
	}

	body, status := env.do(req)
	if status != http.StatusCreated {
		env.T.Fatalf("upload returned status %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		env.T.Fatalf("failed to decode upload response: %v", err)
	}
	return resp.Data.ID
}

// GetFile fetches a file record through the API.
func (env *TestEnv) GetFile(userID, fileID string) map[string]interface{} {
	env.T.Helper()

	req, err := http.NewRequest(http.MethodGet, env.Server.URL+"/files/"+fileID, nil)
	if err != nil {
		env.T.Fatalf("failed to build get request: %v", err)
	}
	req.Header.Set("X-User-ID", userID)

	body, status := env.do(req)
	if status != http.StatusOK {
		env.T.Fatalf("get file returned status %d: %s", status, body)
	}

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		env.T.Fatalf("failed to decode file response: %v", err)
	}
	return resp.Data
}

// WaitForStatus polls until the file reaches the given status.
func (env *TestEnv) WaitForStatus(userID, fileID, status string) map[string]interface{} {
	env.T.Helper()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		file := env.GetFile(userID, fileID)
		if file["status"] == status {
			return file
		}
		time.Sleep(100 * time.Millisecond)
	}
	env.T.Fatalf("file %s did not reach status %s in time", fileID, status)
	return nil
}

// Search runs a semantic search through the API.
func (env *TestEnv) Search(userID, domainID, query string) []map[string]interface{} {
	env.T.Helper()

	payload := fmt.Sprintf(`{"query":%q}`, query)
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/search", strings.NewReader(payload))
	if err != nil {
		env.T.Fatalf("failed to build search request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	if domainID != "" {
		req.Header.Set("X-Domain-ID", domainID)
	}

	body, status := env.do(req)
	if status != http.StatusOK {
		env.T.Fatalf("search returned status %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			Results []map[string]interface{} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		env.T.Fatalf("failed to decode search response: %v", err)
	}
	return resp.Data.Results
}

// GetContext fetches an assembled context block through the API.
func (env *TestEnv) GetContext(userID, domainID, query string) string {
	env.T.Helper()

	payload := fmt.Sprintf(`{"query":%q}`, query)
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/context", strings.NewReader(payload))
	if err != nil {
		env.T.Fatalf("failed to build context request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)
	if domainID != "" {
		req.Header.Set("X-Domain-ID", domainID)
	}

	body, status := env.do(req)
	if status != http.StatusOK {
		env.T.Fatalf("context returned status %d: %s", status, body)
	}

	var resp struct {
		Data struct {
			Context string `json:"context"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		env.T.Fatalf("failed to decode context response: %v", err)
	}
	return resp.Data.Context
}

// DeleteFile removes a file through the API.
func (env *TestEnv) DeleteFile(userID, fileID string) {
	env.T.Helper()

	req, err := http.NewRequest(http.MethodDelete, env.Server.URL+"/files/"+fileID, nil)
	if err != nil {
		env.T.Fatalf("failed to build delete request: %v", err)
	}
	req.Header.Set("X-User-ID", userID)

	body, status := env.do(req)
	if status != http.StatusOK {
		env.T.Fatalf("delete returned status %d: %s", status, body)
	}
}

// PostFileAction hits one of the /files/{id}/<action> endpoints.
func (env *TestEnv) PostFileAction(userID, fileID, action string) map[string]interface{} {
	env.T.Helper()

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/files/"+fileID+"/"+action, nil)
	if err != nil {
		env.T.Fatalf("failed to build %s request: %v", action, err)
	}
	req.Header.Set("X-User-ID", userID)

	body, status := env.do(req)
	if status != http.StatusOK {
		env.T.Fatalf("%s returned status %d: %s", action, status, body)
	}

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		env.T.Fatalf("failed to decode %s response: %v", action, err)
	}
	return resp.Data
}

func (env *TestEnv) do(req *http.Request) (string, int) {
	env.T.Helper()

	resp, err := env.HTTPClient.Do(req)
	if err != nil {
		env.T.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		env.T.Fatalf("failed to read response body: %v", err)
	}
	return string(body), resp.StatusCode
}
