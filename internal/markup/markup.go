// Package markup parses annotation directives out of AI-produced manuscript
// transcriptions: it extracts page metadata and renders inline editorial
// annotations, supporting both the bracket [[tag: ...]] and tag <tag>...</tag>
// syntaxes found in stored documents.
package markup

import "strings"

// Kind classifies a rendered span.
type Kind string

const (
	KindText     Kind = "text"
	KindNote     Kind = "note"
	KindTerm     Kind = "term"
	KindMargin   Kind = "margin"
	KindGloss    Kind = "gloss"
	KindInsert   Kind = "insert"
	KindUnclear  Kind = "unclear"
	KindImage    Kind = "image"
	KindCentered Kind = "centered"
	KindHeading  Kind = "heading"
)

// Span is one typed fragment of rendered page text. Content is the literal
// source text of the fragment; display surfaces decide how each kind is
// presented (the unclear marker's trailing "?" is added at display time).
type Span struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content"`
	Gloss   string `json:"gloss,omitempty"`
	Level   int    `json:"level,omitempty"`
}

// Metadata holds the directive values extracted from a page. Singleton
// fields keep the first value written; list fields accumulate every
// occurrence in document order.
type Metadata struct {
	Language      string   `json:"language,omitempty"`
	PageNumber    string   `json:"page_number,omitempty"`
	Folio         string   `json:"folio,omitempty"`
	Signature     string   `json:"signature,omitempty"`
	Warning       string   `json:"warning,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Meta          []string `json:"meta,omitempty"`
	Abbreviations []string `json:"abbreviations,omitempty"`
	Vocabulary    []string `json:"vocabulary,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
}

// IsEmpty reports whether no directive populated any field.
func (m Metadata) IsEmpty() bool {
	return m.Language == "" && m.PageNumber == "" && m.Folio == "" &&
		m.Signature == "" && m.Warning == "" && m.Summary == "" &&
		len(m.Meta) == 0 && len(m.Abbreviations) == 0 &&
		len(m.Vocabulary) == 0 && len(m.Keywords) == 0
}

// Options controls what Process and Render surface. The three flags are
// independent: ShowMetadata only gates the metadata record, ShowNotes only
// gates editorial annotation content, and RevealImages only gates image
// descriptions. Term spans are vocabulary, not commentary, and are always
// rendered.
type Options struct {
	ShowMetadata bool `json:"show_metadata"`
	ShowNotes    bool `json:"show_notes"`
	RevealImages bool `json:"reveal_images"`
}

// Document is the result of running a page through both stages.
type Document struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Clean    string    `json:"clean"`
	Spans    []Span    `json:"spans"`
}

// Process runs extraction then rendering over raw page text. The metadata
// record is attached only when opts.ShowMetadata is set; extraction still
// runs regardless so directive syntax never reaches the span list.
func Process(text string, opts Options) Document {
	clean, meta := Extract(text)
	doc := Document{Clean: clean, Spans: Render(clean, opts)}
	if opts.ShowMetadata {
		doc.Metadata = &meta
	}
	return doc
}

// Flatten reduces a span list to plain display text: terms carry their
// gloss in parentheses and unclear text gains the trailing question mark.
func Flatten(spans []Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Kind {
		case KindTerm:
			b.WriteString(s.Content)
			if s.Gloss != "" {
				b.WriteString(" (")
				b.WriteString(s.Gloss)
				b.WriteString(")")
			}
		case KindUnclear:
			b.WriteString(s.Content)
			b.WriteString("?")
		default:
			b.WriteString(s.Content)
		}
	}
	return b.String()
}
