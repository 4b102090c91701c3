package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"clarifyai/internal/handlers"
	"clarifyai/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Documents service.DocumentService
	Queries   service.QueryService

	// Health checks
	Index     handlers.IndexCounter
	DB        handlers.Pinger
	Providers []string

	DocsDir    string // directory imported by the scan endpoint; empty disables it
	ImportUser string // owner of documents imported from DocsDir
	UploadDir  string // staging directory for uploads; empty uses the system temp dir
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	documentsHandler := handlers.NewDocumentsHandler(deps.Documents, deps.UploadDir)
	queryHandler := handlers.NewQueryHandler(deps.Queries)
	healthHandler := handlers.NewHealthHandler(deps.Index, deps.DB, deps.Providers)
	indexHandler := handlers.NewIndexHandler(deps.Documents, deps.DocsDir, deps.ImportUser)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1", func(r chi.Router) {
			r.Route("/documents", func(r chi.Router) {
				r.Post("/", documentsHandler.Upload)
				r.Get("/", documentsHandler.List)
				r.Delete("/{docID}", documentsHandler.Delete)
				r.Post("/{docID}/summary", documentsHandler.Summarize)
			})
			r.Post("/query", queryHandler.Ask)
			r.Get("/history", queryHandler.History)
			r.Get("/stats", documentsHandler.Stats)
			r.Method(http.MethodPost, "/ingest/scan", indexHandler)
		})
	})

	return r
}
