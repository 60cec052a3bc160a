package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PageRow represents a row in the pages table.
type PageRow struct {
	Path             string
	Language         string
	LanguageDetected bool
	PageNumber       string
	Folio            string
	Signature        string
	Warning          string
	Summary          string
	Keywords         []string
	Checksum         string
	UpdatedAt        time.Time
}

// Term is one glossary term attached to a page.
type Term struct {
	Term  string
	Gloss string
}

// GlossaryEntry is one aggregated glossary term across the archive.
type GlossaryEntry struct {
	Term  string `json:"term"`
	Gloss string `json:"gloss,omitempty"`
	Pages int    `json:"pages"`
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string `json:"path"`
	Folio   string `json:"folio,omitempty"`
	Snippet string `json:"snippet"`
}

// UpsertPage inserts or replaces a page, its FTS entry, and glossary terms
// within a transaction.
func (db *DB) UpsertPage(p PageRow, body string, terms []Term) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	keywordsJSON, _ := json.Marshal(p.Keywords)

	// Upsert pages table (includes body for fallback search).
	_, err = tx.Exec(`
		INSERT INTO pages (path, language, language_detected, page_number, folio,
			signature, warning, summary, keywords, checksum, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			language          = excluded.language,
			language_detected = excluded.language_detected,
			page_number       = excluded.page_number,
			folio             = excluded.folio,
			signature         = excluded.signature,
			warning           = excluded.warning,
			summary           = excluded.summary,
			keywords          = excluded.keywords,
			checksum          = excluded.checksum,
			body              = excluded.body,
			updated_at        = excluded.updated_at
	`, p.Path, p.Language, p.LanguageDetected, p.PageNumber, p.Folio,
		p.Signature, p.Warning, p.Summary, string(keywordsJSON), p.Checksum, body, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert page: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, p.Path, p.Folio, body, p.Summary, terms, p.Keywords); err != nil {
		return err
	}

	// Replace glossary terms: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM terms WHERE page = ?`, p.Path)
	if len(terms) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO terms (page, term, gloss) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare term insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range terms {
			if _, err := stmt.Exec(p.Path, t.Term, t.Gloss); err != nil {
				return fmt.Errorf("index: insert term: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeletePage removes a page, its FTS entry, and its glossary terms.
func (db *DB) DeletePage(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM terms WHERE page = ?`, path)
	_, _ = tx.Exec(`DELETE FROM pages WHERE path = ?`, path)

	return tx.Commit()
}

const pageColumns = `path, language, language_detected, page_number, folio,
	signature, warning, summary, keywords, checksum, updated_at`

func scanPageRow(scan func(...any) error) (PageRow, error) {
	var p PageRow
	var keywordsJSON string
	err := scan(&p.Path, &p.Language, &p.LanguageDetected, &p.PageNumber, &p.Folio,
		&p.Signature, &p.Warning, &p.Summary, &keywordsJSON, &p.Checksum, &p.UpdatedAt)
	if err != nil {
		return PageRow{}, err
	}
	if keywordsJSON != "" {
		_ = json.Unmarshal([]byte(keywordsJSON), &p.Keywords)
	}
	return p, nil
}

// GetPage returns the indexed row for a page, or nil if the page is not indexed.
func (db *DB) GetPage(path string) (*PageRow, error) {
	row := db.conn.QueryRow(`SELECT `+pageColumns+` FROM pages WHERE path = ?`, path)
	p, err := scanPageRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get page: %w", err)
	}
	return &p, nil
}

// GetChecksum returns the stored checksum for a page, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM pages WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// ListPages returns a page of indexed rows plus the total count for the
// given filters. language filters on the extracted or detected language,
// warnedOnly keeps rows with a non-empty transcription warning, and sort
// is one of "path" (default), "updated", or "folio".
func (db *DB) ListPages(limit, offset int, language, sort string, warnedOnly bool) ([]PageRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `1=1`
	args := []any{}
	if language != "" {
		where += ` AND language = ? COLLATE NOCASE`
		args = append(args, language)
	}
	if warnedOnly {
		where += ` AND warning != ''`
	}

	var order string
	switch sort {
	case "", "path":
		order = `path ASC`
	case "updated":
		order = `updated_at DESC, path ASC`
	case "folio":
		order = `folio ASC, path ASC`
	default:
		return nil, 0, fmt.Errorf("index: list pages: unknown sort %q", sort)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count pages: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+pageColumns+` FROM pages WHERE `+where+
		` ORDER BY `+order+` LIMIT ? OFFSET ?`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list pages: %w", err)
	}
	defer rows.Close()

	var out []PageRow
	for rows.Next() {
		p, err := scanPageRow(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// Glossary returns every term across the archive with one representative
// gloss and the number of pages the term appears on, sorted by term.
func (db *DB) Glossary() ([]GlossaryEntry, error) {
	rows, err := db.conn.Query(`
		SELECT term, MAX(gloss), COUNT(DISTINCT page)
		FROM terms
		GROUP BY term
		ORDER BY term COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("index: glossary: %w", err)
	}
	defer rows.Close()

	var out []GlossaryEntry
	for rows.Next() {
		var e GlossaryEntry
		if err := rows.Scan(&e.Term, &e.Gloss, &e.Pages); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// PagesForTerm returns all page paths that gloss the given term.
func (db *DB) PagesForTerm(term string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT page FROM terms WHERE term = ? COLLATE NOCASE ORDER BY page`, term)
	if err != nil {
		return nil, fmt.Errorf("index: pages for term: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed page path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum for every indexed page, keyed by path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM pages`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
