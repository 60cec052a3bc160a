package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/vellum/internal/index"
	"github.com/starford/vellum/internal/storage"
)

func testServer(t *testing.T) (*Server, storage.Provider) {
	t.Helper()

	archiveDir := t.TempDir()
	store, err := storage.NewFS(archiveDir)
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "vellum-mcp-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	srv := New(store, db, nil)
	return srv, store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we call
	// the handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "search_pages":
		result, err = srv.searchPages(ctx, req)
	case "read_page":
		result, err = srv.readPage(ctx, req)
	case "create_page":
		result, err = srv.createPage(ctx, req)
	case "list_pages":
		result, err = srv.listPages(ctx, req)
	case "extract_metadata":
		result, err = srv.extractMetadata(ctx, req)
	case "render_preview":
		result, err = srv.renderPreview(ctx, req)
	case "glossary_lookup":
		result, err = srv.glossaryLookup(ctx, req)
	case "get_annotation_contract":
		result, err = srv.getAnnotationContract(ctx, req)
	case "upload_scan":
		result, err = srv.uploadScan(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestCreateAndReadPage(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_page", map[string]interface{}{
		"path":    "codex/014r.md",
		"content": "<lang>latin</lang>\nIn principio.",
	})
	text := resultText(r)
	if text != "created: codex/014r.md" {
		t.Errorf("create result = %q", text)
	}

	r = callTool(t, srv, "read_page", map[string]interface{}{
		"path": "codex/014r.md",
	})
	text = resultText(r)
	if text != "<lang>latin</lang>\nIn principio." {
		t.Errorf("read result = %q", text)
	}
}

func TestCreatePage_RequiresMarkdownPath(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "create_page", map[string]interface{}{
		"path":    "scan.jpg",
		"content": "x",
	})
	if !r.IsError {
		t.Error("expected error for non-markdown path")
	}
}

func TestListPages(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("a.md", []byte("a"))
	_ = store.Write("b.md", []byte("b"))

	r := callTool(t, srv, "list_pages", map[string]interface{}{})
	text := resultText(r)
	if text == "" {
		t.Error("list returned empty")
	}
}

func TestReadPageMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "read_page", map[string]interface{}{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing page")
	}
}

func TestExtractMetadata(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "extract_metadata", map[string]interface{}{
		"content": "<lang>latin</lang>\n[[folio: 14r]]\nIn principio.",
	})
	text := resultText(r)

	var out struct {
		Metadata struct {
			Language string `json:"language"`
			Folio    string `json:"folio"`
		} `json:"metadata"`
		Clean string `json:"clean"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		t.Fatalf("result not JSON: %v\n%s", err, text)
	}
	if out.Metadata.Language != "latin" || out.Metadata.Folio != "14r" {
		t.Errorf("metadata = %+v", out.Metadata)
	}
	if out.Clean != "In principio." {
		t.Errorf("clean = %q", out.Clean)
	}
}

func TestRenderPreview(t *testing.T) {
	srv, store := testServer(t)
	_ = store.Write("p.md", []byte("Body text. [[note: hidden aside]]"))

	r := callTool(t, srv, "render_preview", map[string]interface{}{"path": "p.md"})
	text := resultText(r)
	if strings.Contains(text, "hidden aside") {
		t.Errorf("reader preview leaked note: %q", text)
	}

	r = callTool(t, srv, "render_preview", map[string]interface{}{"path": "p.md", "notes": "true"})
	text = resultText(r)
	if !strings.Contains(text, "hidden aside") {
		t.Errorf("editor preview missing note: %q", text)
	}
}

func TestGlossaryLookup(t *testing.T) {
	srv, _ := testServer(t)
	_ = callTool(t, srv, "create_page", map[string]interface{}{
		"path":    "a.md",
		"content": "Hoc [[term: aratrum → plough]] est.",
	})

	r := callTool(t, srv, "glossary_lookup", map[string]interface{}{})
	text := resultText(r)
	if !strings.Contains(text, "aratrum") {
		t.Errorf("glossary = %q, want aratrum entry", text)
	}

	r = callTool(t, srv, "glossary_lookup", map[string]interface{}{"term": "aratrum"})
	text = resultText(r)
	if text != "a.md" {
		t.Errorf("pages for term = %q, want a.md", text)
	}
}

func TestGetAnnotationContract(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "get_annotation_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "[[term:") {
		t.Error("contract missing term directive documentation")
	}
}

func TestUploadScan_DataURI(t *testing.T) {
	srv, store := testServer(t)

	// Valid 8-byte PNG signature.
	r := callTool(t, srv, "upload_scan", map[string]interface{}{
		"url":      "data:image/png;base64,iVBORw0KGgo=",
		"filename": "014r.png",
	})
	if r.IsError {
		t.Fatalf("upload failed: %s", resultText(r))
	}

	var out uploadResult
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("result not JSON: %v", err)
	}
	if out.SavedPath != "/scans/014r.png" {
		t.Errorf("savedPath = %q", out.SavedPath)
	}
	if out.ImageDirective != "[[image: /scans/014r.png]]" {
		t.Errorf("imageDirective = %q", out.ImageDirective)
	}

	if _, err := store.Read("scans/014r.png"); err != nil {
		t.Errorf("scan not stored: %v", err)
	}
}

func TestUploadScan_RejectsBadExtension(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "upload_scan", map[string]interface{}{
		"url":      "data:image/png;base64,iVBORw0KGgo=",
		"filename": "notes.txt",
	})
	if !r.IsError {
		t.Error("expected error for disallowed extension")
	}
}

func TestUploadScan_RejectsMagicMismatch(t *testing.T) {
	srv, _ := testServer(t)

	// Plain text declared as PNG.
	r := callTool(t, srv, "upload_scan", map[string]interface{}{
		"url":      "data:image/png;base64,aGVsbG8=",
		"filename": "fake.png",
	})
	if !r.IsError {
		t.Error("expected error for content/extension mismatch")
	}
}
