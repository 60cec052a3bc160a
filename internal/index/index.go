package index

// PageIndex defines the interface for page indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type PageIndex interface {
	UpsertPage(p PageRow, body string, terms []Term) error
	DeletePage(path string) error
	GetPage(path string) (*PageRow, error)
	GetChecksum(path string) (string, error)
	ListPages(limit, offset int, language, sort string, warnedOnly bool) ([]PageRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Glossary() ([]GlossaryEntry, error)
	PagesForTerm(term string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies PageIndex at compile time.
var _ PageIndex = (*DB)(nil)
