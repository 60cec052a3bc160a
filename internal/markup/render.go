package markup

import (
	"regexp"
	"strings"
)

// inlineRe matches every inline construct in one scan so the centering
// arrows are never confused with a term's gloss arrow. Alternatives are
// ordered most-specific first: heading markers outside the arrows, heading
// markers inside the arrows, plain centered blocks in both delimiter
// styles, then the bracket annotation directives. Annotation content
// excludes brackets so an unterminated directive stays literal instead of
// swallowing the text up to the next one's ]].
var inlineRe = regexp.MustCompile(`(?is)` +
	`(?m:^[ \t]*(#{1,6})[ \t]*->[ \t]*(.*?)[ \t]*<-)` +
	`|->[ \t]*(#{1,6})[ \t]*(.*?)[ \t]*<-` +
	`|->[ \t]*(.*?)[ \t]*<-` +
	`|::[ \t]*(.*?)[ \t]*::` +
	`|\[\[\s*(notes?|term|margin|gloss|insert|unclear|image)\s*:\s*([^\[\]]*?)\s*\]\]`)

// Capture group positions within inlineRe.
const (
	grpHeadHashOut = 1
	grpHeadTextOut = 2
	grpHeadHashIn  = 3
	grpHeadTextIn  = 4
	grpCenterArrow = 5
	grpCenterColon = 6
	grpKind        = 7
	grpContent     = 8
)

// Render scans metadata-free text and returns the display span list.
// Suppressed annotations are elided entirely, content included; the
// surrounding text keeps its original spacing. Directive syntax that
// matches nothing passes through as literal text. Render never fails.
func Render(clean string, opts Options) []Span {
	var spans []Span
	appendText := func(s string) {
		if s != "" {
			spans = append(spans, Span{Kind: KindText, Content: s})
		}
	}
	prev := 0
	for _, loc := range inlineRe.FindAllStringSubmatchIndex(clean, -1) {
		appendText(clean[prev:loc[0]])
		prev = loc[1]
		spans = appendMatch(spans, clean, loc, opts)
	}
	appendText(clean[prev:])
	return spans
}

func appendMatch(spans []Span, text string, loc []int, opts Options) []Span {
	group := func(i int) (string, bool) {
		if loc[2*i] < 0 {
			return "", false
		}
		return text[loc[2*i]:loc[2*i+1]], true
	}

	if hashes, ok := group(grpHeadHashOut); ok {
		content, _ := group(grpHeadTextOut)
		return appendHeading(spans, len(hashes), content)
	}
	if hashes, ok := group(grpHeadHashIn); ok {
		content, _ := group(grpHeadTextIn)
		return appendHeading(spans, len(hashes), content)
	}
	if content, ok := group(grpCenterArrow); ok {
		return appendCentered(spans, content)
	}
	if content, ok := group(grpCenterColon); ok {
		return appendCentered(spans, content)
	}
	kind, _ := group(grpKind)
	content, _ := group(grpContent)
	return appendAnnotation(spans, kind, content, opts)
}

func appendHeading(spans []Span, level int, content string) []Span {
	if content == "" {
		return spans
	}
	return append(spans, Span{Kind: KindHeading, Content: content, Level: level})
}

func appendCentered(spans []Span, content string) []Span {
	if content == "" {
		return spans
	}
	return append(spans, Span{Kind: KindCentered, Content: content})
}

func appendAnnotation(spans []Span, kind, content string, opts Options) []Span {
	switch strings.ToLower(kind) {
	case "note", "notes":
		if opts.ShowNotes {
			spans = append(spans, Span{Kind: KindNote, Content: content})
		}
	case "term":
		// Terms survive regardless of ShowNotes.
		term, gloss := splitTermGloss(content)
		if term != "" {
			spans = append(spans, Span{Kind: KindTerm, Content: term, Gloss: gloss})
		}
	case "margin":
		if opts.ShowNotes {
			spans = append(spans, Span{Kind: KindMargin, Content: content})
		}
	case "gloss":
		if opts.ShowNotes {
			spans = append(spans, Span{Kind: KindGloss, Content: content})
		}
	case "insert":
		if opts.ShowNotes {
			spans = append(spans, Span{Kind: KindInsert, Content: content})
		}
	case "unclear":
		if opts.ShowNotes {
			spans = append(spans, Span{Kind: KindUnclear, Content: content})
		}
	case "image":
		if opts.RevealImages {
			spans = append(spans, Span{Kind: KindImage, Content: content})
		}
	}
	return spans
}

// splitTermGloss splits "word → meaning" on the first arrow of either
// style. Content without an arrow is all term, no gloss.
func splitTermGloss(content string) (term, gloss string) {
	idx, width := -1, 0
	if i := strings.Index(content, "→"); i >= 0 {
		idx, width = i, len("→")
	}
	if i := strings.Index(content, "->"); i >= 0 && (idx < 0 || i < idx) {
		idx, width = i, len("->")
	}
	if idx < 0 {
		return strings.TrimSpace(content), ""
	}
	return strings.TrimSpace(content[:idx]), strings.TrimSpace(content[idx+width:])
}
