// Package index provides SQLite-backed page indexing with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS pages (
	path              TEXT PRIMARY KEY,
	language          TEXT NOT NULL DEFAULT '',
	language_detected INTEGER NOT NULL DEFAULT 0,
	page_number       TEXT NOT NULL DEFAULT '',
	folio             TEXT NOT NULL DEFAULT '',
	signature         TEXT NOT NULL DEFAULT '',
	warning           TEXT NOT NULL DEFAULT '',
	summary           TEXT NOT NULL DEFAULT '',
	keywords          TEXT NOT NULL DEFAULT '[]',
	checksum          TEXT NOT NULL DEFAULT '',
	body              TEXT NOT NULL DEFAULT '',
	updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS terms (
	page  TEXT NOT NULL,
	term  TEXT NOT NULL,
	gloss TEXT NOT NULL DEFAULT '',
	UNIQUE(page, term)
);

CREATE INDEX IF NOT EXISTS idx_terms_page ON terms(page);
CREATE INDEX IF NOT EXISTS idx_terms_term ON terms(term);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
