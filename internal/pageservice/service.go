// Package pageservice coordinates storage, extraction, and index operations
// for transcription pages.
package pageservice

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/starford/vellum/internal/apperr"
	"github.com/starford/vellum/internal/checksum"
	"github.com/starford/vellum/internal/index"
	"github.com/starford/vellum/internal/langdetect"
	"github.com/starford/vellum/internal/markup"
	"github.com/starford/vellum/internal/models"
	"github.com/starford/vellum/internal/storage"
)

// PageDetail is the full representation of a transcription page: the raw
// file as stored, the clean reading text, and the scraped metadata.
type PageDetail struct {
	Path             string          `json:"path"`
	Label            string          `json:"label"`
	Raw              string          `json:"raw"`
	Clean            string          `json:"clean"`
	Metadata         markup.Metadata `json:"metadata"`
	DetectedLanguage string          `json:"detected_language,omitempty"`
	Checksum         string          `json:"checksum"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Service coordinates storage and index operations.
type Service struct {
	store storage.Provider
	db    *index.DB
	det   *langdetect.Detector
}

// NewService creates a new page service. det may be nil to disable the
// language detection fallback.
func NewService(store storage.Provider, db *index.DB, det *langdetect.Detector) *Service {
	return &Service{store: store, db: db, det: det}
}

// GetPage reads a page from storage and runs metadata extraction on it.
func (s *Service) GetPage(_ context.Context, path string) (*PageDetail, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildPageDetail(path, data), nil
}

// CreatePage writes a new page and indexes it.
func (s *Service) CreatePage(_ context.Context, path string, content []byte) (*PageDetail, error) {
	if _, err := s.store.Read(path); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildPageDetail(path, content), nil
}

// UpdatePage writes updated content with optimistic concurrency.
func (s *Service) UpdatePage(_ context.Context, path string, content []byte, ifMatch string) (*PageDetail, error) {
	existing, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}
	if err := s.store.Write(path, content); err != nil {
		return nil, err
	}
	if err := s.IndexFile(path, content); err != nil {
		return nil, err
	}
	return s.buildPageDetail(path, content), nil
}

// DeletePage removes a page from storage and index.
func (s *Service) DeletePage(_ context.Context, path string) error {
	if err := s.store.Delete(path); err != nil {
		return err
	}
	return s.db.DeletePage(path)
}

// ListPages returns paginated pages with optional language and warning filters.
func (s *Service) ListPages(_ context.Context, limit, offset int, language, sort string, warnedOnly bool) ([]models.PageInfo, int, error) {
	rows, total, err := s.db.ListPages(limit, offset, language, sort, warnedOnly)
	if err != nil {
		return nil, 0, err
	}
	items := make([]models.PageInfo, len(rows))
	for i, r := range rows {
		items[i] = models.PageInfo{
			Path:             r.Path,
			Language:         r.Language,
			LanguageDetected: r.LanguageDetected,
			PageNumber:       r.PageNumber,
			Folio:            r.Folio,
			Warned:           r.Warning != "",
			Checksum:         r.Checksum,
			UpdatedAt:        r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Glossary returns the aggregated term glossary across the archive.
func (s *Service) Glossary(_ context.Context) ([]models.TermEntry, error) {
	entries, err := s.db.Glossary()
	if err != nil {
		return nil, err
	}
	out := make([]models.TermEntry, len(entries))
	for i, e := range entries {
		out[i] = models.TermEntry{Term: e.Term, Gloss: e.Gloss, Pages: e.Pages}
	}
	return out, nil
}

// PagesForTerm returns all page paths that gloss the given term.
func (s *Service) PagesForTerm(_ context.Context, term string) ([]string, error) {
	return s.db.PagesForTerm(term)
}

// Preview reads a stored page and renders it with the given display options.
func (s *Service) Preview(_ context.Context, path string, opts markup.Options) (*markup.Document, error) {
	data, err := s.store.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	doc := markup.Process(string(data), opts)
	return &doc, nil
}

// IndexFile extracts annotations from data and upserts the page row.
// Exported so that callers outside the watch loop can reuse it.
func (s *Service) IndexFile(path string, data []byte) error {
	return index.IndexFile(s.db, s.det, path, data)
}

// buildPageDetail constructs a PageDetail from raw data without re-reading the file.
func (s *Service) buildPageDetail(path string, data []byte) *PageDetail {
	raw := string(data)
	clean, meta := markup.Extract(raw)

	detected := ""
	if meta.Language == "" && s.det != nil {
		if guess, ok := s.det.Detect(clean); ok {
			detected = guess
		}
	}

	info := models.PageInfo{Path: path, PageNumber: meta.PageNumber, Folio: meta.Folio}
	return &PageDetail{
		Path:             path,
		Label:            info.Label(),
		Raw:              raw,
		Clean:            clean,
		Metadata:         meta,
		DetectedLanguage: detected,
		Checksum:         checksum.Sum(data),
		UpdatedAt:        time.Now(),
	}
}
