package api

import (
	"github.com/starford/vellum/internal/index"
	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/pageservice"
)

// CreatePageRequest is the request body for creating a page.
type CreatePageRequest struct {
	Path    string `json:"path" example:"codex/014r.md" validate:"required"`
	Content string `json:"content" example:"<lang>latin</lang>\nIn principio..." validate:"required"`
}

// UpdatePageRequest is the request body for updating a page.
type UpdatePageRequest struct {
	Content string `json:"content" example:"Corrected transcription." validate:"required"`
}

// RenderRequest is the request body for rendering ad-hoc transcription text.
type RenderRequest struct {
	Content string `json:"content" example:"Here is the translation:\n[[folio: 2v]]\nText." validate:"required"`
}

// PageDetail is the full page response type (aliased from the domain layer).
type PageDetail = pageservice.PageDetail

// PageInfo is a lightweight item in a list response (aliased from the domain layer).
type PageInfo = models.PageInfo

// PageListResponse wraps paginated page listings.
type PageListResponse struct {
	Pages []PageInfo `json:"pages" validate:"required"`
	Total int        `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = index.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// GlossaryResponse wraps the aggregated archive glossary.
type GlossaryResponse struct {
	Terms []models.TermEntry `json:"terms" validate:"required"`
}

// TermPagesResponse lists the pages a glossary term appears on.
type TermPagesResponse struct {
	Term  string   `json:"term" example:"aratrum" validate:"required"`
	Pages []string `json:"pages" validate:"required"`
}

// ScanUploadResponse is returned after a successful scan upload.
type ScanUploadResponse struct {
	Filename string `json:"filename" example:"014r.jpg" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/scans/014r.jpg" validate:"required"`
}
