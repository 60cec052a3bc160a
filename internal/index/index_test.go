package index

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "vellum-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRow(path string) PageRow {
	return PageRow{
		Path:      path,
		Language:  "latin",
		Folio:     "14r",
		Checksum:  "abc123",
		UpdatedAt: time.Now().UTC(),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM pages`).Scan(&count); err != nil {
		t.Fatalf("pages table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM terms`).Scan(&count); err != nil {
		t.Fatalf("terms table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertPage(testRow("codex/014r.md"), "In principio erat verbum.", nil); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}
	cs, err := db.GetChecksum("codex/014r.md")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestGetPage_RoundTrip(t *testing.T) {
	db := testDB(t)
	row := PageRow{
		Path:             "codex/014r.md",
		Language:         "latin",
		LanguageDetected: true,
		PageNumber:       "27",
		Folio:            "14r",
		Signature:        "b.ii",
		Warning:          "ink faded along gutter",
		Summary:          "Opening of the creation account.",
		Keywords:         []string{"creation", "genesis"},
		Checksum:         "abc123",
		UpdatedAt:        time.Now().UTC(),
	}
	if err := db.UpsertPage(row, "body", nil); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	got, err := db.GetPage("codex/014r.md")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if got == nil {
		t.Fatal("GetPage returned nil for indexed page")
	}
	if got.Language != "latin" || !got.LanguageDetected {
		t.Errorf("language = %q detected=%v", got.Language, got.LanguageDetected)
	}
	if got.Folio != "14r" || got.Signature != "b.ii" || got.PageNumber != "27" {
		t.Errorf("locator fields = %+v", got)
	}
	if got.Warning != "ink faded along gutter" {
		t.Errorf("warning = %q", got.Warning)
	}
	if len(got.Keywords) != 2 || got.Keywords[0] != "creation" {
		t.Errorf("keywords = %v", got.Keywords)
	}
}

func TestGetPage_NotIndexed(t *testing.T) {
	db := testDB(t)
	got, err := db.GetPage("missing.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil row, got %+v", got)
	}
}

func TestDeletePage(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPage(testRow("del.md"), "body", []Term{{Term: "aratrum", Gloss: "plough"}})

	if err := db.DeletePage("del.md"); err != nil {
		t.Fatalf("DeletePage: %v", err)
	}
	cs, _ := db.GetChecksum("del.md")
	if cs != "" {
		t.Errorf("deleted page still has checksum %q", cs)
	}
	pages, _ := db.PagesForTerm("aratrum")
	if len(pages) != 0 {
		t.Errorf("expected 0 pages for term after delete, got %d", len(pages))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	row := testRow("up.md")
	_ = db.UpsertPage(row, "old body", []Term{{Term: "aratrum", Gloss: "plough"}})

	row.Checksum = "def456"
	row.Folio = "14v"
	_ = db.UpsertPage(row, "new body", []Term{{Term: "stilus", Gloss: "stylus"}})

	got, _ := db.GetPage("up.md")
	if got.Checksum != "def456" || got.Folio != "14v" {
		t.Errorf("row not updated: %+v", got)
	}
	pages, _ := db.PagesForTerm("aratrum")
	if len(pages) != 0 {
		t.Error("old term should be removed on upsert")
	}
	pages, _ = db.PagesForTerm("stilus")
	if len(pages) != 1 {
		t.Error("new term should exist")
	}
}

func TestListPages_PaginationAndTotal(t *testing.T) {
	db := testDB(t)
	for _, p := range []string{"a.md", "b.md", "c.md"} {
		_ = db.UpsertPage(testRow(p), "body", nil)
	}

	rows, total, err := db.ListPages(2, 0, "", "", false)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(rows) != 2 || rows[0].Path != "a.md" || rows[1].Path != "b.md" {
		t.Errorf("rows = %+v", rows)
	}

	rows, _, _ = db.ListPages(2, 2, "", "", false)
	if len(rows) != 1 || rows[0].Path != "c.md" {
		t.Errorf("offset page = %+v", rows)
	}
}

func TestListPages_LanguageFilter(t *testing.T) {
	db := testDB(t)
	latin := testRow("latin.md")
	_ = db.UpsertPage(latin, "body", nil)
	english := testRow("english.md")
	english.Language = "english"
	_ = db.UpsertPage(english, "body", nil)

	rows, total, err := db.ListPages(10, 0, "Latin", "", false)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Path != "latin.md" {
		t.Errorf("language filter: total=%d rows=%+v", total, rows)
	}
}

func TestListPages_WarnedOnly(t *testing.T) {
	db := testDB(t)
	clean := testRow("clean.md")
	_ = db.UpsertPage(clean, "body", nil)
	warned := testRow("warned.md")
	warned.Warning = "water damage obscures lower third"
	_ = db.UpsertPage(warned, "body", nil)

	rows, total, err := db.ListPages(10, 0, "", "", true)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Path != "warned.md" {
		t.Errorf("warned filter: total=%d rows=%+v", total, rows)
	}
}

func TestListPages_SortUpdated(t *testing.T) {
	db := testDB(t)
	old := testRow("old.md")
	old.UpdatedAt = time.Now().UTC().Add(-time.Hour)
	_ = db.UpsertPage(old, "body", nil)
	recent := testRow("recent.md")
	recent.UpdatedAt = time.Now().UTC()
	_ = db.UpsertPage(recent, "body", nil)

	rows, _, err := db.ListPages(10, 0, "", "updated", false)
	if err != nil {
		t.Fatalf("ListPages: %v", err)
	}
	if len(rows) != 2 || rows[0].Path != "recent.md" {
		t.Errorf("sort=updated rows = %+v", rows)
	}
}

func TestListPages_UnknownSort(t *testing.T) {
	db := testDB(t)
	if _, _, err := db.ListPages(10, 0, "", "bogus", false); err == nil {
		t.Error("expected error for unknown sort")
	}
}

func TestGlossary_AggregatesAcrossPages(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPage(testRow("a.md"), "body", []Term{
		{Term: "aratrum", Gloss: "plough"},
		{Term: "stilus", Gloss: ""},
	})
	_ = db.UpsertPage(testRow("b.md"), "body", []Term{
		{Term: "aratrum", Gloss: "plough"},
	})

	entries, err := db.Glossary()
	if err != nil {
		t.Fatalf("Glossary: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 glossary entries, got %d", len(entries))
	}
	if entries[0].Term != "aratrum" || entries[0].Gloss != "plough" || entries[0].Pages != 2 {
		t.Errorf("entry[0] = %+v", entries[0])
	}
	if entries[1].Term != "stilus" || entries[1].Pages != 1 {
		t.Errorf("entry[1] = %+v", entries[1])
	}
}

func TestPagesForTerm_CaseInsensitive(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPage(testRow("a.md"), "body", []Term{{Term: "Aratrum", Gloss: "plough"}})

	pages, err := db.PagesForTerm("aratrum")
	if err != nil {
		t.Fatalf("PagesForTerm: %v", err)
	}
	if len(pages) != 1 || pages[0] != "a.md" {
		t.Errorf("pages = %v", pages)
	}
}

func TestAllChecksums(t *testing.T) {
	db := testDB(t)
	a := testRow("a.md")
	b := testRow("b.md")
	b.Checksum = "zzz"
	_ = db.UpsertPage(a, "body", nil)
	_ = db.UpsertPage(b, "body", nil)

	all, err := db.AllChecksums()
	if err != nil {
		t.Fatalf("AllChecksums: %v", err)
	}
	if len(all) != 2 || all["a.md"] != "abc123" || all["b.md"] != "zzz" {
		t.Errorf("checksums = %v", all)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertPage(testRow("s.md"), "uniqueword appears here", nil)

	results, err := db.Search("uniqueword", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "s.md" {
		t.Errorf("search results = %+v, want 1 hit for s.md", results)
	}
	if results[0].Folio != "14r" {
		t.Errorf("folio = %q, want %q", results[0].Folio, "14r")
	}
}

func TestIndexFile_ExtractsMetadataAndTerms(t *testing.T) {
	db := testDB(t)
	data := []byte("<lang>latin</lang>\n[[folio: 14r]]\n" +
		"Arat terram [[term: aratrum → plough]] colonus.\n" +
		"[[note: ink blot beside the initial]]\n")

	if err := IndexFile(db, nil, "codex/014r.md", data); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}

	got, err := db.GetPage("codex/014r.md")
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if got == nil {
		t.Fatal("page not indexed")
	}
	if got.Language != "latin" || got.LanguageDetected {
		t.Errorf("language = %q detected=%v, want latin from directive", got.Language, got.LanguageDetected)
	}
	if got.Folio != "14r" {
		t.Errorf("folio = %q, want %q", got.Folio, "14r")
	}
	if got.Checksum == "" {
		t.Error("expected non-empty checksum")
	}

	pages, _ := db.PagesForTerm("aratrum")
	if len(pages) != 1 || pages[0] != "codex/014r.md" {
		t.Errorf("pages for term = %v", pages)
	}

	// Note text stays searchable even though readers hide it.
	results, _ := db.Search("blot", 10)
	if len(results) != 1 {
		t.Errorf("expected note text in search body, got %+v", results)
	}
}

func TestIndexFile_NoDetectorLeavesLanguageEmpty(t *testing.T) {
	db := testDB(t)
	if err := IndexFile(db, nil, "plain.md", []byte("No directives at all here.")); err != nil {
		t.Fatalf("IndexFile: %v", err)
	}
	got, _ := db.GetPage("plain.md")
	if got == nil {
		t.Fatal("page not indexed")
	}
	if got.Language != "" || got.LanguageDetected {
		t.Errorf("language = %q detected=%v, want empty", got.Language, got.LanguageDetected)
	}
}

func TestIndexFile_Unchanged(t *testing.T) {
	db := testDB(t)
	data := []byte("[[folio: 2v]]\nStable content.")
	_ = IndexFile(db, nil, "stable.md", data)
	cs1, _ := db.GetChecksum("stable.md")
	_ = IndexFile(db, nil, "stable.md", data)
	cs2, _ := db.GetChecksum("stable.md")
	if cs1 == "" || cs1 != cs2 {
		t.Errorf("checksum changed for identical content: %q vs %q", cs1, cs2)
	}
}
