package markup

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var numberedLineRe = regexp.MustCompile(`(?m)^(\d+)\. `)

// EscapeNumberedLines protects lines that open with "12. "-style verse or
// paragraph numbering from being read as ordered-list markers by a
// Markdown renderer.
func EscapeNumberedLines(text string) string {
	return numberedLineRe.ReplaceAllString(text, `$1\. `)
}

// RenderHTML renders annotated page text to HTML. Annotation spans become
// styled fragments inline in the text, numbered paragraph openings are
// escaped, and the assembled document goes through the Markdown renderer
// for block-level layout (paragraphs, lists, tables, blockquotes).
func RenderHTML(clean string, opts Options) string {
	var b strings.Builder
	for _, s := range Render(clean, opts) {
		b.WriteString(spanHTML(s))
	}
	md := EscapeNumberedLines(b.String())
	return strings.TrimSpace(string(blackfriday.Run([]byte(md))))
}

func spanHTML(s Span) string {
	switch s.Kind {
	case KindText:
		// Plain text stays raw for the Markdown pass.
		return s.Content
	case KindNote:
		return `<span class="editorial-note">` + html.EscapeString(s.Content) + `</span>`
	case KindTerm:
		if s.Gloss != "" {
			return `<span class="term">` + html.EscapeString(s.Content) +
				` <span class="term-gloss">(` + html.EscapeString(s.Gloss) + `)</span></span>`
		}
		return `<span class="term">` + html.EscapeString(s.Content) + `</span>`
	case KindMargin:
		return `<span class="marginalia">` + html.EscapeString(s.Content) + `</span>`
	case KindGloss:
		return `<span class="gloss">` + html.EscapeString(s.Content) + `</span>`
	case KindInsert:
		return `<span class="insertion">` + html.EscapeString(s.Content) + `</span>`
	case KindUnclear:
		return `<span class="unclear">` + html.EscapeString(s.Content) + `?</span>`
	case KindImage:
		return "\n\n<figure class=\"image-description\">" + html.EscapeString(s.Content) + "</figure>\n\n"
	case KindCentered:
		return "\n\n<div class=\"centered\">" + centeredHTML(s.Content) + "</div>\n\n"
	case KindHeading:
		return fmt.Sprintf("\n\n<h%d class=\"centered\">%s</h%d>\n\n",
			s.Level, html.EscapeString(s.Content), s.Level)
	}
	return ""
}

// centeredHTML turns the newlines inside a centered block into explicit
// line breaks.
func centeredHTML(content string) string {
	var parts []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, html.EscapeString(line))
		}
	}
	return strings.Join(parts, "<br>")
}
