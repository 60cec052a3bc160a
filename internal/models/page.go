// Package models defines the domain types for Vellum.
package models

import (
	"path"
	"strings"
	"time"
)

// PageInfo is a lightweight representation returned by list operations.
type PageInfo struct {
	Path             string    `json:"path"`
	Language         string    `json:"language,omitempty"`
	LanguageDetected bool      `json:"language_detected,omitempty"`
	PageNumber       string    `json:"page_number,omitempty"`
	Folio            string    `json:"folio,omitempty"`
	Warned           bool      `json:"warned,omitempty"`
	Checksum         string    `json:"checksum"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Label returns the display label for a page: the folio mark when present,
// otherwise the page number, otherwise the file stem.
func (p PageInfo) Label() string {
	if p.Folio != "" {
		return p.Folio
	}
	if p.PageNumber != "" {
		return "p. " + p.PageNumber
	}
	base := path.Base(p.Path)
	return strings.TrimSuffix(base, path.Ext(base))
}

// TermEntry is one glossary row: a vocabulary term, its gloss, and the
// number of pages it appears on.
type TermEntry struct {
	Term  string `json:"term"`
	Gloss string `json:"gloss,omitempty"`
	Pages int    `json:"pages"`
}
