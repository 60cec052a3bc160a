package markup

import (
	"regexp"
	"sort"
	"strings"
)

// Metadata fields addressable by directives. header is recognized and
// stripped but never surfaced.
type field int

const (
	fieldLanguage field = iota
	fieldPageNumber
	fieldFolio
	fieldSignature
	fieldWarning
	fieldSummary
	fieldMeta
	fieldAbbreviations
	fieldVocabulary
	fieldKeywords
	fieldHeader
)

func (f field) isList() bool {
	switch f {
	case fieldMeta, fieldAbbreviations, fieldVocabulary, fieldKeywords:
		return true
	}
	return false
}

type tagDirective struct {
	field field
	re    *regexp.Regexp
}

// tagDirectives covers the current <tag>value</tag> syntax. One pattern per
// tag name since the close tag must repeat the open tag's name.
var tagDirectives = buildTagDirectives()

func buildTagDirectives() []tagDirective {
	specs := []struct {
		tag   string
		field field
	}{
		{"lang", fieldLanguage},
		{"page-num", fieldPageNumber},
		{"folio", fieldFolio},
		{"sig", fieldSignature},
		{"warning", fieldWarning},
		{"meta", fieldMeta},
		{"abbrev", fieldAbbreviations},
		{"vocab", fieldVocabulary},
		{"summary", fieldSummary},
		{"keywords", fieldKeywords},
		{"header", fieldHeader},
	}
	out := make([]tagDirective, 0, len(specs))
	for _, s := range specs {
		out = append(out, tagDirective{
			field: s.field,
			re:    regexp.MustCompile(`(?is)<` + s.tag + `>\s*(.*?)\s*</` + s.tag + `>`),
		})
	}
	return out
}

var (
	// bracketRe covers the older [[key: value]] metadata syntax. The value
	// class excludes brackets so a span missing its closer stays literal
	// instead of running on to the next directive's ]].
	bracketRe = regexp.MustCompile(`(?i)\[\[\s*(language|page\s+number|folio|warning|signature|meta|abbrev|vocabulary|summary|keywords|header)\s*:\s*([^\[\]]*?)\s*\]\]`)

	preambleRe    = regexp.MustCompile(`(?i)^\s*(?:here is|here's|here are|below is|i have translated|the following is)[^:\n]*:\s*`)
	summaryLineRe = regexp.MustCompile(`(?i)^\s*summary:\s*(.*)$`)
	tagOpenRe     = regexp.MustCompile(`(?i)^<[a-z][a-z-]*>`)
	catchAllRe    = regexp.MustCompile(`(?i)\[\[\s*([a-z][a-z0-9_-]*)\s*:\s*[^\[\]]*?\]\]`)

	whitespaceLineRe = regexp.MustCompile(`(?m)^[ \t]+$`)
	blankRunRe       = regexp.MustCompile(`\n{3,}`)
)

var bracketFields = map[string]field{
	"language":   fieldLanguage,
	"pagenumber": fieldPageNumber,
	"folio":      fieldFolio,
	"warning":    fieldWarning,
	"signature":  fieldSignature,
	"meta":       fieldMeta,
	"abbrev":     fieldAbbreviations,
	"vocabulary": fieldVocabulary,
	"summary":    fieldSummary,
	"keywords":   fieldKeywords,
	"header":     fieldHeader,
}

// inlineKinds are the annotation directives that belong to the renderer.
// The cleanup pass must leave them in the text.
var inlineKinds = map[string]bool{
	"note":    true,
	"notes":   true,
	"term":    true,
	"margin":  true,
	"gloss":   true,
	"insert":  true,
	"unclear": true,
	"image":   true,
}

// Extract scrapes metadata directives out of raw page text and returns the
// cleaned body alongside the collected record. It is a best-effort pass:
// text that matches no directive pattern is left in place, and no input
// causes an error. Running Extract over its own clean output yields the
// same text and an empty record.
func Extract(text string) (string, Metadata) {
	var meta Metadata
	text = unwrapCodeFence(text)
	text = stripPreamble(text)
	text = scanDirectives(text, &meta)
	if meta.Summary == "" {
		text = scanSummaryLine(text, &meta)
	}
	text = stripUnknownDirectives(text)
	return collapseBlankLines(text), meta
}

// unwrapCodeFence removes a ``` or ```markdown fence when it wraps the
// entire text. Partial fences are left alone.
func unwrapCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return text
	}
	lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(lines[0], "```")))
	if lang != "" && lang != "markdown" && lang != "md" {
		return text
	}
	if strings.TrimSpace(lines[len(lines)-1]) != "```" {
		return text
	}
	return strings.Join(lines[1:len(lines)-1], "\n")
}

// stripPreamble drops a leading conversational sentence the model sometimes
// emits before the actual transcription, through its trailing colon and any
// blank lines after it. The phrase and its colon must share the opening
// line; a colon further down the body never extends the match.
func stripPreamble(text string) string {
	if loc := preambleRe.FindStringIndex(text); loc != nil {
		return text[loc[1]:]
	}
	return text
}

type directiveMatch struct {
	start, end int
	field      field
	value      string
	tagSyntax  bool
}

// scanDirectives finds every metadata directive in both syntaxes, merges
// their values into meta, and returns the text with all matched spans
// removed. Singleton fields follow first-writer-wins with the tag syntax
// considered before the bracket syntax; list fields accumulate across both
// syntaxes in document order. A directive starting inside an earlier
// match's span is ignored.
func scanDirectives(text string, meta *Metadata) string {
	var found []directiveMatch
	for _, d := range tagDirectives {
		for _, loc := range d.re.FindAllStringSubmatchIndex(text, -1) {
			found = append(found, directiveMatch{
				start:     loc[0],
				end:       loc[1],
				field:     d.field,
				value:     text[loc[2]:loc[3]],
				tagSyntax: true,
			})
		}
	}
	for _, loc := range bracketRe.FindAllStringSubmatchIndex(text, -1) {
		f, ok := bracketFields[normalizeKey(text[loc[2]:loc[3]])]
		if !ok {
			continue
		}
		found = append(found, directiveMatch{
			start: loc[0],
			end:   loc[1],
			field: f,
			value: text[loc[4]:loc[5]],
		})
	}
	sort.Slice(found, func(i, j int) bool { return found[i].start < found[j].start })

	var accepted []directiveMatch
	end := 0
	for _, m := range found {
		if m.start < end {
			continue
		}
		accepted = append(accepted, m)
		end = m.end
	}

	for _, m := range accepted {
		if m.tagSyntax && !m.field.isList() {
			setSingleton(meta, m.field, m.value)
		}
	}
	for _, m := range accepted {
		if !m.tagSyntax && !m.field.isList() {
			setSingleton(meta, m.field, m.value)
		}
	}
	for _, m := range accepted {
		if m.field.isList() {
			appendListValue(meta, m.field, m.value)
		}
	}

	ranges := make([][2]int, len(accepted))
	for i, m := range accepted {
		ranges[i] = [2]int{m.start, m.end}
	}
	return cutRanges(text, ranges)
}

func setSingleton(meta *Metadata, f field, raw string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	switch f {
	case fieldLanguage:
		if meta.Language == "" {
			meta.Language = v
		}
	case fieldPageNumber:
		if meta.PageNumber == "" {
			meta.PageNumber = v
		}
	case fieldFolio:
		if meta.Folio == "" {
			meta.Folio = v
		}
	case fieldSignature:
		if meta.Signature == "" {
			meta.Signature = v
		}
	case fieldWarning:
		if meta.Warning == "" {
			meta.Warning = v
		}
	case fieldSummary:
		if meta.Summary == "" {
			meta.Summary = normalizeSpace(v)
		}
	}
}

func appendListValue(meta *Metadata, f field, raw string) {
	if f == fieldMeta {
		// Free-text notes, one entry per directive.
		if v := strings.TrimSpace(raw); v != "" {
			meta.Meta = append(meta.Meta, v)
		}
		return
	}
	parts := splitList(raw)
	if len(parts) == 0 {
		return
	}
	switch f {
	case fieldAbbreviations:
		meta.Abbreviations = append(meta.Abbreviations, parts...)
	case fieldVocabulary:
		meta.Vocabulary = append(meta.Vocabulary, parts...)
	case fieldKeywords:
		meta.Keywords = append(meta.Keywords, parts...)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// scanSummaryLine handles the oldest stored layout where the page summary
// is a bare "Summary:" line instead of a directive. The summary runs until
// a blank line or the start of another directive. Callers only invoke it
// when no directive has set the summary.
func scanSummaryLine(text string, meta *Metadata) string {
	lines := strings.Split(text, "\n")
	start := -1
	var collected []string
	for i, line := range lines {
		m := summaryLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		start = i
		if v := strings.TrimSpace(m[1]); v != "" {
			collected = append(collected, v)
		}
		break
	}
	if start < 0 {
		return text
	}
	end := start + 1
	for ; end < len(lines); end++ {
		line := strings.TrimSpace(lines[end])
		if line == "" || startsDirective(line) {
			break
		}
		collected = append(collected, line)
	}
	meta.Summary = normalizeSpace(strings.Join(collected, " "))
	kept := append([]string{}, lines[:start]...)
	kept = append(kept, lines[end:]...)
	return strings.Join(kept, "\n")
}

func startsDirective(line string) bool {
	return strings.HasPrefix(line, "[[") || tagOpenRe.MatchString(line)
}

// stripUnknownDirectives removes leftover [[word: ...]] spans that no pass
// claimed, so retired or misspelled directive keys never reach display.
// Inline annotation kinds are preserved for the renderer, and a span whose
// value would cross another bracket is left literal rather than removed.
func stripUnknownDirectives(text string) string {
	var ranges [][2]int
	for _, loc := range catchAllRe.FindAllStringSubmatchIndex(text, -1) {
		if inlineKinds[strings.ToLower(text[loc[2]:loc[3]])] {
			continue
		}
		ranges = append(ranges, [2]int{loc[0], loc[1]})
	}
	return cutRanges(text, ranges)
}

// cutRanges removes the given half-open byte ranges from text. Ranges must
// be sorted and non-overlapping.
func cutRanges(text string, ranges [][2]int) string {
	if len(ranges) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, r := range ranges {
		b.WriteString(text[prev:r[0]])
		prev = r[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func collapseBlankLines(text string) string {
	text = whitespaceLineRe.ReplaceAllString(text, "")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// normalizeSpace collapses all runs of whitespace, including newlines, to
// single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), ""))
}
