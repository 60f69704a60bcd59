package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/harborcrm/harborai/internal/api"
	"github.com/harborcrm/harborai/internal/api/handlers"
	"github.com/harborcrm/harborai/internal/api/middleware"
)

type RouterConfig struct {
	IngestHandler   *handlers.IngestHandler
	RetrieveHandler *handlers.RetrieveHandler
	BackfillHandler *handlers.BackfillHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ingest", cfg.IngestHandler.Ingest)
	r.Post("/retrieve", cfg.RetrieveHandler.Retrieve)
	r.Post("/backfill", cfg.BackfillHandler.Run)

	return r
}
