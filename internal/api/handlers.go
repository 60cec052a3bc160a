package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/markup"
	"github.com/starford/vellum/internal/pageservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *pageservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *pageservice.Service) *Handler {
	return &Handler{svc: svc}
}

// pagePath extracts the page path from the URL (everything after the route prefix).
// Supports encoded slashes from OpenAPI clients (e.g. codex%2F014r.md).
func pagePath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// boolParam reads a boolean query parameter, falling back to def when the
// parameter is absent or malformed.
func boolParam(q url.Values, name string, def bool) bool {
	v := q.Get(name)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return parsed
}

// renderOptions builds display options from query parameters. Defaults give
// the reader view: metadata on, editorial notes and image descriptions off.
func renderOptions(q url.Values) markup.Options {
	return markup.Options{
		ShowMetadata: boolParam(q, "metadata", true),
		ShowNotes:    boolParam(q, "notes", false),
		RevealImages: boolParam(q, "images", false),
	}
}

// writeRendered emits a processed document in the requested format.
func writeRendered(w http.ResponseWriter, path string, doc *markup.Document, opts markup.Options, format string) {
	body := map[string]any{}
	if path != "" {
		body["path"] = path
	}
	switch format {
	case "", "spans":
		body["document"] = doc
	case "html":
		body["html"] = markup.RenderHTML(doc.Clean, opts)
		if doc.Metadata != nil {
			body["metadata"] = doc.Metadata
		}
	case "text":
		body["text"] = markup.Flatten(doc.Spans)
		if doc.Metadata != nil {
			body["metadata"] = doc.Metadata
		}
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("unknown format: use spans, html, or text"))
		return
	}
	writeJSON(w, http.StatusOK, body)
}

// ListPages handles GET /api/pages.
//
//	@Summary		List pages with optional pagination and filtering
//	@Tags			pages
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			language	query		string	false	"Filter by language"
//	@Param			warned		query		bool	false	"Only pages with transcription warnings"
//	@Param			sort		query		string	false	"Sort field"	Enums(path, updated, folio)
//	@Success		200			{object}	PageListResponse
//	@Security		BearerAuth
//	@Router			/pages [get]
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	language := q.Get("language")
	sort := q.Get("sort")
	warned := boolParam(q, "warned", false)

	items, total, err := h.svc.ListPages(r.Context(), limit, offset, language, sort, warned)
	if err != nil {
		slog.Error("list pages failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"pages": items,
		"total": total,
	})
}

// GetPage handles GET /api/pages/*.
//
//	@Summary		Get a single page by path
//	@Tags			pages
//	@Produce		json
//	@Param			path	path		string	true	"Page path"
//	@Success		200		{object}	PageDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [get]
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	page, err := h.svc.GetPage(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get page failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CreatePage handles POST /api/pages.
//
//	@Summary		Create a new page
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreatePageRequest	true	"Page to create"
//	@Success		201		{object}	PageDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages [post]
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path and content are required"))
		return
	}
	if !strings.HasSuffix(req.Path, ".md") {
		writeJSON(w, http.StatusBadRequest, errorBody("path must end with .md"))
		return
	}
	page, err := h.svc.CreatePage(r.Context(), req.Path, []byte(req.Content))
	if err != nil {
		if errors.Is(err, apperr.ErrAlreadyExists) {
			writeJSON(w, http.StatusConflict, errorBody("page already exists"))
		} else {
			slog.Error("create page failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

// UpdatePage handles PUT /api/pages/*.
//
//	@Summary		Update a page with optimistic concurrency
//	@Tags			pages
//	@Accept			json
//	@Produce		json
//	@Param			path		path	string				true	"Page path"
//	@Param			If-Match	header	string				false	"SHA-256 checksum for optimistic concurrency"
//	@Param			body		body	UpdatePageRequest	true	"Updated content"
//	@Success		200			{object}	PageDetail
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [put]
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	ifMatch := r.Header.Get("If-Match")
	// Strip surrounding quotes if present (standard ETag format).
	ifMatch = strings.Trim(ifMatch, `"`)

	page, err := h.svc.UpdatePage(r.Context(), path, []byte(req.Content), ifMatch)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		case errors.Is(err, apperr.ErrConflict):
			writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
		default:
			slog.Error("update page failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// DeletePage handles DELETE /api/pages/*.
//
//	@Summary		Delete a page
//	@Tags			pages
//	@Param			path	path	string	true	"Page path"
//	@Success		204		"Page deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/pages/{path} [delete]
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeletePage(r.Context(), path); err != nil {
		slog.Error("delete page failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles GET /api/preview/*.
//
//	@Summary		Render a stored page for display
//	@Tags			render
//	@Produce		json
//	@Param			path		path		string	true	"Page path"
//	@Param			notes		query		bool	false	"Show editorial notes (default false)"
//	@Param			metadata	query		bool	false	"Attach extracted metadata (default true)"
//	@Param			images		query		bool	false	"Show image descriptions (default false)"
//	@Param			format		query		string	false	"Output format"	Enums(spans, html, text)
//	@Success		200			{object}	map[string]any
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/preview/{path} [get]
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	path := pagePath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	opts := renderOptions(q)

	doc, err := h.svc.Preview(r.Context(), path, opts)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("preview failed", slog.String("path", path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeRendered(w, path, doc, opts, q.Get("format"))
}

// Render handles POST /api/render: process ad-hoc transcription text
// without storing it.
//
//	@Summary		Extract metadata and render submitted text
//	@Tags			render
//	@Accept			json
//	@Produce		json
//	@Param			notes		query		bool			false	"Show editorial notes (default false)"
//	@Param			metadata	query		bool			false	"Attach extracted metadata (default true)"
//	@Param			images		query		bool			false	"Show image descriptions (default false)"
//	@Param			format		query		string			false	"Output format"	Enums(spans, html, text)
//	@Param			body		body		RenderRequest	true	"Raw transcription text"
//	@Success		200			{object}	map[string]any
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/render [post]
func (h *Handler) Render(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}

	q := r.URL.Query()
	opts := renderOptions(q)
	doc := markup.Process(req.Content, opts)
	writeRendered(w, "", &doc, opts, q.Get("format"))
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across pages
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}

// Glossary handles GET /api/glossary.
//
//	@Summary		Get the aggregated term glossary
//	@Tags			glossary
//	@Produce		json
//	@Success		200	{object}	GlossaryResponse
//	@Security		BearerAuth
//	@Router			/glossary [get]
func (h *Handler) Glossary(w http.ResponseWriter, r *http.Request) {
	terms, err := h.svc.Glossary(r.Context())
	if err != nil {
		slog.Error("glossary failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"terms": terms,
	})
}

// TermPages handles GET /api/glossary/pages.
//
//	@Summary		List the pages a glossary term appears on
//	@Tags			glossary
//	@Produce		json
//	@Param			term	query		string	true	"Glossary term"
//	@Success		200		{object}	TermPagesResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/glossary/pages [get]
func (h *Handler) TermPages(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("term")
	if term == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'term' is required"))
		return
	}
	pages, err := h.svc.PagesForTerm(r.Context(), term)
	if err != nil {
		slog.Error("term pages failed", slog.String("term", term), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if pages == nil {
		pages = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"term":  term,
		"pages": pages,
	})
}
