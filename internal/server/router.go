package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tome-labs/tome/internal/api"
	"github.com/tome-labs/tome/internal/api/handlers"
	"github.com/tome-labs/tome/internal/api/middleware"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	SearchHandler    *handlers.SearchHandler
	ChatHandler      *handlers.ChatHandler
	ProgressHandler  *handlers.ProgressHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/", cfg.KnowledgeHandler.Status)
	r.Post("/index", cfg.KnowledgeHandler.Index)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.KnowledgeHandler.List)
		r.Get("/{id}", cfg.KnowledgeHandler.Get)
		r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
	})

	r.Post("/search", cfg.SearchHandler.Search)

	r.Post("/chat", cfg.ChatHandler.Chat)
	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", cfg.ChatHandler.ListConversations)
		r.Get("/{id}", cfg.ChatHandler.GetConversation)
		r.Delete("/{id}", cfg.ChatHandler.DeleteConversation)
	})

	r.Route("/progress", func(r chi.Router) {
		r.Post("/", cfg.ProgressHandler.CreateItem)
		r.Get("/", cfg.ProgressHandler.ListItems)
		r.Get("/{id}", cfg.ProgressHandler.GetItem)
		r.Delete("/{id}", cfg.ProgressHandler.DeleteItem)
		r.Patch("/chapters/{chapterID}", cfg.ProgressHandler.UpdateChapter)
	})

	return r
}
