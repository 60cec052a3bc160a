// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Vellum tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/vellum/internal/index"
	"github.com/starford/vellum/internal/langdetect"
	"github.com/starford/vellum/internal/markup"
	"github.com/starford/vellum/internal/storage"
)

// Server wraps the MCP server with Vellum tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	db    *index.DB
	det   *langdetect.Detector
}

// New creates a new MCP server with all Vellum tools registered.
func New(store storage.Provider, db *index.DB, det *langdetect.Detector) *Server {
	s := &Server{store: store, db: db, det: det}

	s.mcp = server.NewMCPServer(
		"Vellum",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_pages",
		mcp.WithDescription("Full-text search through transcribed page bodies, summaries, and glossary terms."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchPages)

	s.mcp.AddTool(mcp.NewTool("read_page",
		mcp.WithDescription("Read the raw transcription of a page, directives included."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the page (e.g. codex/014r.md)")),
	), s.readPage)

	s.mcp.AddTool(mcp.NewTool("create_page",
		mcp.WithDescription("Store a new page transcription at the specified path. "+
			"Content MUST follow the canonical annotation format (metadata directives, "+
			"inline annotations in double brackets). Read the contract first via "+
			"the get_annotation_contract tool or the vellum://annotation-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new page (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Transcription text following the Vellum annotation format contract")),
	), s.createPage)

	s.mcp.AddTool(mcp.NewTool("get_annotation_contract",
		mcp.WithDescription("Returns the canonical Vellum annotation format contract. "+
			"Call this before creating or updating pages to ensure correct markup."),
	), s.getAnnotationContract)

	s.mcp.AddTool(mcp.NewTool("list_pages",
		mcp.WithDescription("List all pages or pages in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listPages)

	s.mcp.AddTool(mcp.NewTool("extract_metadata",
		mcp.WithDescription("Extract the metadata record from raw transcription text and return it "+
			"together with the cleaned body. Accepts both directive syntaxes."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Raw transcription text to scrape")),
	), s.extractMetadata)

	s.mcp.AddTool(mcp.NewTool("render_preview",
		mcp.WithDescription("Render a stored page as reader-facing plain text. "+
			"Editorial annotations are hidden unless notes is 'true'."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the page to render")),
		mcp.WithString("notes", mcp.Description("Set to 'true' to include editorial notes in the output")),
	), s.renderPreview)

	s.mcp.AddTool(mcp.NewTool("glossary_lookup",
		mcp.WithDescription("Look up the archive glossary. Without a term it returns every "+
			"term with its gloss and page count; with a term it returns the pages defining it."),
		mcp.WithString("term", mcp.Description("Optional term to look up (empty for the full glossary)")),
	), s.glossaryLookup)

	s.mcp.AddTool(mcp.NewTool("upload_scan",
		mcp.WithDescription("Upload a manuscript scan image from a URL or data URI into the "+
			"shared scans/ directory. Returns the saved path and a ready-to-paste image directive."),
		mcp.WithString("url", mcp.Required(), mcp.Description("HTTP(S) URL or base64 data URI of the scan")),
		mcp.WithString("filename", mcp.Description("Optional filename override (extension decides the format)")),
	), s.uploadScan)

	// Resource: annotation format contract.
	s.mcp.AddResource(
		mcp.NewResource("vellum://annotation-format", "Annotation Format Contract",
			mcp.WithResourceDescription("Canonical transcription markup that all pages must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readAnnotationFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createPage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !strings.HasSuffix(path, ".md") {
		return mcp.NewToolResultError(fmt.Sprintf("path must end with .md: %s", path)), nil
	}

	// Check existence.
	if _, readErr := s.store.Read(path); readErr == nil {
		return mcp.NewToolResultError(fmt.Sprintf("page already exists: %s", path)), nil
	}

	data := []byte(content)
	if err := s.store.Write(path, data); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Index the new page.
	_ = index.IndexFile(s.db, s.det, path, data)

	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) listPages(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) extractMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	clean, meta := markup.Extract(content)
	out, _ := json.MarshalIndent(struct {
		Metadata markup.Metadata `json:"metadata"`
		Clean    string          `json:"clean"`
	}{meta, clean}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) renderPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	showNotes := false
	if v, nErr := req.RequireString("notes"); nErr == nil {
		showNotes = strings.EqualFold(strings.TrimSpace(v), "true")
	}

	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	doc := markup.Process(string(data), markup.Options{ShowMetadata: false, ShowNotes: showNotes})
	return mcp.NewToolResultText(markup.Flatten(doc.Spans)), nil
}

func (s *Server) glossaryLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term := ""
	if v, err := req.RequireString("term"); err == nil {
		term = strings.TrimSpace(v)
	}

	if term == "" {
		entries, err := s.db.Glossary()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out, _ := json.MarshalIndent(entries, "", "  ")
		return mcp.NewToolResultText(string(out)), nil
	}

	pages, err := s.db.PagesForTerm(term)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(pages) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("no pages define %q", term)), nil
	}
	return mcp.NewToolResultText(strings.Join(pages, "\n")), nil
}

func (s *Server) getAnnotationContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(AnnotationFormatContract), nil
}

func (s *Server) readAnnotationFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "vellum://annotation-format",
			MIMEType: "text/markdown",
			Text:     AnnotationFormatContract,
		},
	}, nil
}
