package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/vellum/internal/pageservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// archiveRoot is used to resolve the scans directory.
func NewRouter(svc *pageservice.Service, authEnabled bool, token string, sseHandler http.Handler, archiveRoot string) chi.Router {
	h := NewHandler(svc)
	sh := NewScanHandler(archiveRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Pages CRUD.
	r.Get("/pages", h.ListPages)
	r.Post("/pages", h.CreatePage)
	r.Get("/pages/*", h.GetPage)
	r.Put("/pages/*", h.UpdatePage)
	r.Delete("/pages/*", h.DeletePage)

	// Rendering.
	r.Get("/preview/*", h.Preview)
	r.Post("/render", h.Render)

	// Search.
	r.Get("/search", h.Search)

	// Glossary.
	r.Get("/glossary", h.Glossary)
	r.Get("/glossary/pages", h.TermPages)

	// Scan upload (auth-protected).
	r.Post("/scans", sh.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
