package index

import (
	"log/slog"
	"time"

	"github.com/starford/vellum/internal/checksum"
	"github.com/starford/vellum/internal/langdetect"
	"github.com/starford/vellum/internal/markup"
	"github.com/starford/vellum/internal/storage"
)

// Sync walks the archive and brings the index up to date:
//   - new/changed transcriptions are processed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, det *langdetect.Detector, logger *slog.Logger) error {
	infos, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(infos))
	for _, info := range infos {
		disk[info.Path] = struct{}{}

		if checksums[info.Path] == info.Checksum {
			continue
		}

		data, err := store.Read(info.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", info.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, det, info.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", info.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", info.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeletePage(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexFile scrapes annotation metadata out of a raw transcription and
// upserts the page row, its search body, and its glossary terms. The body
// indexed for search keeps note and image text visible so annotations stay
// searchable even though reader output elides them. det may be nil, in
// which case no language detection fallback is attempted.
func IndexFile(db *DB, det *langdetect.Detector, path string, data []byte) error {
	clean, meta := markup.Extract(string(data))

	lang := meta.Language
	detected := false
	if lang == "" && det != nil {
		if guess, ok := det.Detect(clean); ok {
			lang = guess
			detected = true
		}
	}

	spans := markup.Render(clean, markup.Options{ShowNotes: true, RevealImages: true})
	body := markup.Flatten(spans)

	var terms []Term
	for _, sp := range spans {
		if sp.Kind == markup.KindTerm {
			terms = append(terms, Term{Term: sp.Content, Gloss: sp.Gloss})
		}
	}

	row := PageRow{
		Path:             path,
		Language:         lang,
		LanguageDetected: detected,
		PageNumber:       meta.PageNumber,
		Folio:            meta.Folio,
		Signature:        meta.Signature,
		Warning:          meta.Warning,
		Summary:          meta.Summary,
		Keywords:         meta.Keywords,
		Checksum:         checksum.Sum(data),
		UpdatedAt:        time.Now().UTC(),
	}
	return db.UpsertPage(row, body, terms)
}
