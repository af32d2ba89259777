package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/handlers"
	"github.com/ilijachrchev/ChatBot-AI-sub001/internal/api/middleware"
)

type RouterConfig struct {
	FileHandler    *handlers.FileHandler
	ContextHandler *handlers.ContextHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 32 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireUser)

		r.Route("/files", func(r chi.Router) {
			r.Post("/", cfg.FileHandler.Upload)
			r.Get("/", cfg.FileHandler.List)
			r.Get("/{id}", cfg.FileHandler.Get)
			r.Post("/{id}/reprocess", cfg.FileHandler.Reprocess)
			r.Post("/{id}/disable", cfg.FileHandler.Disable)
			r.Post("/{id}/enable", cfg.FileHandler.Enable)
			r.Delete("/{id}", cfg.FileHandler.Delete)
		})

		r.Post("/search", cfg.ContextHandler.Search)
		r.Post("/context", cfg.ContextHandler.GetContext)
	})

	return r
}
