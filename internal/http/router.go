package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"mindvault/internal/handlers"
)

// Deps holds the handlers the router wires up.
type Deps struct {
	Ingest   *handlers.IngestHandler
	Query    *handlers.QueryHandler
	Memories *handlers.MemoriesHandler
	Events   *handlers.EventsHandler
	Graph    *handlers.GraphHandler
	Webhooks *handlers.WebhooksHandler
	Health   *handlers.HealthHandler
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(LoggerMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Post("/scan", deps.Ingest.Scan)
	r.Post("/ingest", deps.Ingest.Ingest)
	r.Post("/ingest/batch", deps.Ingest.IngestBatch)

	r.Post("/query", deps.Query.Query)

	r.Get("/memories", deps.Memories.List)
	r.Get("/memories/search", deps.Memories.Search)
	r.Delete("/memories/{id}", deps.Memories.Delete)

	r.Get("/notifications", deps.Events.Notifications)
	r.Delete("/events/{id}", deps.Events.Delete)
	r.Post("/events/cleanup", deps.Events.Cleanup)

	r.Get("/graph", deps.Graph.Graph)
	r.Get("/graph/stats", deps.Graph.Stats)
	r.Get("/graph/related/{id}", deps.Graph.Related)
	r.Get("/graph/category/{name}", deps.Graph.Category)

	r.Post("/webhooks", deps.Webhooks.Create)
	r.Get("/webhooks", deps.Webhooks.List)
	r.Delete("/webhooks/{id}", deps.Webhooks.Delete)
	r.Post("/webhooks/{id}/test", deps.Webhooks.Test)

	r.Get("/health", deps.Health.Health)

	return r
}
