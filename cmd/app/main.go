package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/vellum/internal"
	"github.com/starford/vellum/internal/index"
	"github.com/starford/vellum/internal/langdetect"
	"github.com/starford/vellum/internal/markup"
	"github.com/starford/vellum/internal/mcpserver"
	"github.com/starford/vellum/internal/storage"
	pkgconfig "github.com/starford/vellum/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.Load(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

// readInput reads the first positional argument as a file, or stdin when
// the argument is absent or "-".
func readInput(cmd *cli.Command) ([]byte, error) {
	path := cmd.Args().First()
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func runExtract(ctx context.Context, cmd *cli.Command) error {
	data, err := readInput(cmd)
	if err != nil {
		return err
	}
	clean, meta := markup.Extract(string(data))

	if cmd.Bool("json") {
		out, err := json.MarshalIndent(struct {
			Metadata markup.Metadata `json:"metadata"`
			Clean    string          `json:"clean"`
		}{meta, clean}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(metadataTable(meta))
	if clean != "" {
		fmt.Println()
		fmt.Println(clean)
	}
	return nil
}

func metadataTable(meta markup.Metadata) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Field", "Value"})
	add := func(name, value string) {
		if value != "" {
			tw.AppendRow(table.Row{name, value})
		}
	}
	add("Language", meta.Language)
	add("Page number", meta.PageNumber)
	add("Folio", meta.Folio)
	add("Signature", meta.Signature)
	add("Warning", meta.Warning)
	add("Summary", meta.Summary)
	add("Keywords", strings.Join(meta.Keywords, ", "))
	add("Abbreviations", strings.Join(meta.Abbreviations, ", "))
	add("Vocabulary", strings.Join(meta.Vocabulary, ", "))
	add("Meta", strings.Join(meta.Meta, "; "))
	return tw.Render()
}

func runRender(ctx context.Context, cmd *cli.Command) error {
	data, err := readInput(cmd)
	if err != nil {
		return err
	}

	opts := markup.Options{
		ShowMetadata: cmd.Bool("metadata"),
		ShowNotes:    cmd.Bool("notes"),
		RevealImages: cmd.Bool("images"),
	}
	doc := markup.Process(string(data), opts)

	switch format := cmd.String("format"); format {
	case "spans":
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	case "html":
		fmt.Println(markup.RenderHTML(doc.Clean, opts))
	case "text":
		fmt.Println(markup.Flatten(doc.Spans))
	default:
		return fmt.Errorf("unknown format %q (use spans, html, or text)", format)
	}
	return nil
}

func runMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// The stdio transport owns stdout; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	if err := os.MkdirAll(cfg.Archive.Path, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Archive.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	var det *langdetect.Detector
	if cfg.Detect.Enabled {
		det, err = langdetect.New(cfg.Detect.Languages)
		if err != nil {
			return fmt.Errorf("init language detector: %w", err)
		}
	}

	if err := index.Sync(db, store, det, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	return mcpserver.New(store, db, det).ServeStdio()
}

func main() {
	cmd := &cli.Command{
		Name:   "vellum",
		Usage:  "Manuscript transcription archive with annotation markup, full-text search, and a reader API",
		Action: runServe,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the archive HTTP server (default)",
				Action: runServe,
			},
			{
				Name:      "extract",
				Usage:     "Extract the metadata record from a transcription",
				ArgsUsage: "[file.md]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Emit metadata and cleaned text as JSON",
					},
				},
				Action: runExtract,
			},
			{
				Name:      "render",
				Usage:     "Render a transcription for display",
				ArgsUsage: "[file.md]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: spans, html, or text",
						Value: "text",
					},
					&cli.BoolFlag{
						Name:  "metadata",
						Usage: "Attach the metadata record",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "notes",
						Usage: "Include editorial annotations",
					},
					&cli.BoolFlag{
						Name:  "images",
						Usage: "Include image descriptions",
					},
				},
				Action: runRender,
			},
			{
				Name:   "mcp",
				Usage:  "Serve archive tools over the Model Context Protocol on stdio",
				Action: runMCP,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
