package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/uxr/internal/assets"
	"github.com/starford/uxr/internal/reportservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *reportservice.Service, store *assets.Store, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)
	ah := NewAssetHandler(store)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Reports. GET /reports/* also serves <path>/download and <path>/preview.
	r.Get("/reports", h.ListReports)
	r.Post("/reports", h.SaveReport)
	r.Get("/reports/*", h.GetReport)
	r.Delete("/reports/*", h.DeleteReport)

	r.Get("/search", h.Search)

	r.Get("/categories", h.ListCategories)
	r.Post("/categories", h.AddCategory)

	r.Post("/render", h.Render)

	// Image assets referenced from report sections.
	r.Post("/assets", ah.Upload)
	r.Get("/assets/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
