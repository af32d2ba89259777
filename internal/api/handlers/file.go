package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/middleware"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/domain"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/service"
)

// maxUploadMemory bounds how much of a multipart upload is buffered in
// memory before spilling to disk.
const maxUploadMemory = 10 << 20

type FileService interface {
	Upload(ctx context.Context, input service.UploadInput) (*domain.KnowledgeFile, error)
	GetByID(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	List(ctx context.Context, input service.ListFilesInput) (*service.ListFilesOutput, error)
	Reprocess(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	Disable(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	Enable(ctx context.Context, id string) (*domain.KnowledgeFile, error)
	Delete(ctx context.Context, id string) error
}

type FileHandler struct {
	svc FileService
}

func NewFileHandler(svc FileService) *FileHandler {
	return &FileHandler{svc: svc}
}

type FileResponse struct {
	ID           string `json:"id"`
	UserID       string `json:"user_id"`
	DomainID     string `json:"domain_id,omitempty"`
	Filename     string `json:"filename"`
	FileType     string `json:"file_type"`
	SizeBytes    int64  `json:"size_bytes"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type FileListResponse struct {
	Items   []*FileResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func fileToResponse(f *domain.KnowledgeFile) *FileResponse {
	return &FileResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		DomainID:     f.DomainID,
		Filename:     f.Filename,
		FileType:     f.FileType,
		SizeBytes:    f.SizeBytes,
		Status:       string(f.Status),
		ErrorMessage: f.ErrorMessage,
		CreatedAt:    f.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:    f.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// Upload accepts a multipart document under the "file" field and queues
// it for ingestion.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart request")
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer part.Close()

	if header.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	fileType := header.Header.Get("Content-Type")
	if override := r.FormValue("file_type"); override != "" {
		fileType = override
	}

	input := service.UploadInput{
		UserID:   userID,
		DomainID: middleware.GetDomainID(r.Context()),
		Filename: header.Filename,
		FileType: fileType,
		Content:  part,
	}

	file, err := h.svc.Upload(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, fileToResponse(file))
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	file, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	output, err := h.svc.List(r.Context(), service.ListFilesInput{
		UserID: userID,
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*FileResponse, len(output.Items))
	for i, f := range output.Items {
		items[i] = fileToResponse(f)
	}

	api.Success(w, http.StatusOK, FileListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *FileHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	file, err := h.svc.Reprocess(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) Disable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	file, err := h.svc.Disable(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) Enable(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	file, err := h.svc.Enable(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, fileToResponse(file))
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"status": "deleted"})
}
