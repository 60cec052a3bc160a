package markup

import (
	"strings"
	"testing"
)

var showAll = Options{ShowMetadata: true, ShowNotes: true, RevealImages: true}

func spanKinds(spans []Span) []Kind {
	kinds := make([]Kind, len(spans))
	for i, s := range spans {
		kinds[i] = s.Kind
	}
	return kinds
}

func findSpan(t *testing.T, spans []Span, kind Kind) Span {
	t.Helper()
	for _, s := range spans {
		if s.Kind == kind {
			return s
		}
	}
	t.Fatalf("no %s span in %v", kind, spans)
	return Span{}
}

func TestRender_PlainText(t *testing.T) {
	spans := Render("Just ordinary prose.", showAll)
	if len(spans) != 1 || spans[0].Kind != KindText {
		t.Fatalf("spans = %v, want one text span", spans)
	}
	if spans[0].Content != "Just ordinary prose." {
		t.Errorf("content = %q", spans[0].Content)
	}
}

func TestRender_EmptyInput(t *testing.T) {
	if spans := Render("", showAll); len(spans) != 0 {
		t.Errorf("spans = %v, want none", spans)
	}
}

func TestRender_NoteSpan(t *testing.T) {
	spans := Render("Before [[note: scribal correction]] after.", Options{ShowNotes: true})
	if len(spans) != 3 {
		t.Fatalf("spans = %v, want 3", spans)
	}
	note := findSpan(t, spans, KindNote)
	if note.Content != "scribal correction" {
		t.Errorf("note content = %q", note.Content)
	}
	if spans[0].Content != "Before " || spans[2].Content != " after." {
		t.Errorf("surrounding text wrong: %v", spans)
	}
}

func TestRender_NotesAliasKind(t *testing.T) {
	spans := Render("[[notes: plural form]]", Options{ShowNotes: true})
	note := findSpan(t, spans, KindNote)
	if note.Content != "plural form" {
		t.Errorf("note content = %q", note.Content)
	}
}

func TestRender_TermWithUnicodeArrow(t *testing.T) {
	spans := Render("[[term: opus → work]]", Options{})
	term := findSpan(t, spans, KindTerm)
	if term.Content != "opus" || term.Gloss != "work" {
		t.Errorf("term = %q gloss = %q, want opus/work", term.Content, term.Gloss)
	}
}

func TestRender_TermWithAsciiArrow(t *testing.T) {
	spans := Render("[[term: labor -> toil]]", Options{})
	term := findSpan(t, spans, KindTerm)
	if term.Content != "labor" || term.Gloss != "toil" {
		t.Errorf("term = %q gloss = %q, want labor/toil", term.Content, term.Gloss)
	}
}

func TestRender_TermWithoutGloss(t *testing.T) {
	spans := Render("[[term: codex]]", Options{})
	term := findSpan(t, spans, KindTerm)
	if term.Content != "codex" || term.Gloss != "" {
		t.Errorf("term = %q gloss = %q, want codex with no gloss", term.Content, term.Gloss)
	}
}

func TestRender_TermVisibleWhenNotesHidden(t *testing.T) {
	input := "See [[term: opus → work]] here [[note: editorial aside]]"
	flat := Flatten(Render(input, Options{ShowNotes: false}))
	if !strings.Contains(flat, "opus (work)") {
		t.Errorf("term missing from output: %q", flat)
	}
	if strings.Contains(flat, "editorial aside") {
		t.Errorf("suppressed note leaked: %q", flat)
	}
}

func TestRender_NoteElisionRemovesContent(t *testing.T) {
	// Hidden annotations disappear entirely, not just their styling.
	input := "A [[note: n1]] B [[margin: m1]] C [[gloss: g1]] D [[insert: i1]] E [[unclear: u1]] F"
	spans := Render(input, Options{ShowNotes: false})
	for _, s := range spans {
		if s.Kind != KindText {
			t.Fatalf("unexpected %s span: %+v", s.Kind, s)
		}
	}
	flat := Flatten(spans)
	for _, hidden := range []string{"n1", "m1", "g1", "i1", "u1"} {
		if strings.Contains(flat, hidden) {
			t.Errorf("hidden content %q leaked into %q", hidden, flat)
		}
	}
}

func TestRender_AnnotationKinds(t *testing.T) {
	input := "[[margin: in margine]] [[gloss: id est]] [[insert: supra lineam]]"
	spans := Render(input, Options{ShowNotes: true})
	if findSpan(t, spans, KindMargin).Content != "in margine" {
		t.Error("margin content wrong")
	}
	if findSpan(t, spans, KindGloss).Content != "id est" {
		t.Error("gloss content wrong")
	}
	if findSpan(t, spans, KindInsert).Content != "supra lineam" {
		t.Error("insert content wrong")
	}
}

func TestRender_UnclearKeepsLiteralContent(t *testing.T) {
	spans := Render("word [[unclear: illegible]] word", Options{ShowNotes: true})
	unclear := findSpan(t, spans, KindUnclear)
	// The question mark belongs to display surfaces, not the span.
	if unclear.Content != "illegible" {
		t.Errorf("unclear content = %q, want %q", unclear.Content, "illegible")
	}
	if flat := Flatten(spans); !strings.Contains(flat, "illegible?") {
		t.Errorf("flattened output = %q, want it to contain %q", flat, "illegible?")
	}
}

func TestRender_ImageHiddenWithoutReveal(t *testing.T) {
	input := "[[image: woodcut of a plough]]"
	spans := Render(input, Options{ShowNotes: true})
	for _, s := range spans {
		if s.Kind == KindImage {
			t.Fatalf("image span should be suppressed: %+v", s)
		}
	}
}

func TestRender_ImageRevealedIndependently(t *testing.T) {
	input := "[[image: woodcut of a plough]]"
	spans := Render(input, Options{ShowNotes: false, RevealImages: true})
	img := findSpan(t, spans, KindImage)
	if img.Content != "woodcut of a plough" {
		t.Errorf("image content = %q", img.Content)
	}
}

func TestRender_CenteredArrowBlock(t *testing.T) {
	spans := Render("before ->Finis<- after", showAll)
	c := findSpan(t, spans, KindCentered)
	if c.Content != "Finis" {
		t.Errorf("centered content = %q, want %q", c.Content, "Finis")
	}
}

func TestRender_CenteredColonBlock(t *testing.T) {
	spans := Render("::Explicit liber primus::", showAll)
	c := findSpan(t, spans, KindCentered)
	if c.Content != "Explicit liber primus" {
		t.Errorf("centered content = %q", c.Content)
	}
}

func TestRender_CenteredMultiline(t *testing.T) {
	spans := Render("->line one\nline two<-", showAll)
	c := findSpan(t, spans, KindCentered)
	if c.Content != "line one\nline two" {
		t.Errorf("centered content = %q", c.Content)
	}
}

func TestRender_CenteredHeadingArrowFirst(t *testing.T) {
	spans := Render("->## Title<-", showAll)
	h := findSpan(t, spans, KindHeading)
	if h.Level != 2 {
		t.Errorf("level = %d, want 2", h.Level)
	}
	if h.Content != "Title" {
		t.Errorf("content = %q, want %q", h.Content, "Title")
	}
}

func TestRender_CenteredHeadingHashFirst(t *testing.T) {
	spans := Render("### ->Capitulum<-", showAll)
	h := findSpan(t, spans, KindHeading)
	if h.Level != 3 {
		t.Errorf("level = %d, want 3", h.Level)
	}
	if h.Content != "Capitulum" {
		t.Errorf("content = %q, want %q", h.Content, "Capitulum")
	}
}

func TestRender_TermArrowNotCentered(t *testing.T) {
	spans := Render("See [[term: ora -> pray]] done.", showAll)
	kinds := spanKinds(spans)
	for _, k := range kinds {
		if k == KindCentered {
			t.Fatalf("gloss arrow misread as centering: %v", kinds)
		}
	}
	term := findSpan(t, spans, KindTerm)
	if term.Content != "ora" || term.Gloss != "pray" {
		t.Errorf("term = %+v", term)
	}
}

func TestRender_UnknownDirectivePassesThrough(t *testing.T) {
	input := "keep [[mystery: value]] literal"
	spans := Render(input, showAll)
	if len(spans) != 1 || spans[0].Kind != KindText {
		t.Fatalf("spans = %v, want single literal text span", spans)
	}
	if spans[0].Content != input {
		t.Errorf("content = %q, want %q", spans[0].Content, input)
	}
}

func TestRender_UnterminatedCenteringLiteral(t *testing.T) {
	spans := Render("an arrow -> with no close", showAll)
	if len(spans) != 1 || spans[0].Kind != KindText {
		t.Fatalf("spans = %v, want single text span", spans)
	}
}

func TestRender_UnterminatedAnnotationStaysLiteral(t *testing.T) {
	spans := Render("[[note: runs off\nsome prose [[note: whole]] end", Options{ShowNotes: true})
	if len(spans) < 2 || spans[0].Kind != KindText {
		t.Fatalf("spans = %v, want leading literal text", spans)
	}
	if !strings.Contains(spans[0].Content, "[[note: runs off") {
		t.Errorf("unterminated directive should stay literal, got %q", spans[0].Content)
	}
	if !strings.Contains(spans[0].Content, "some prose") {
		t.Errorf("prose swallowed by unterminated directive: %q", spans[0].Content)
	}
	if note := findSpan(t, spans, KindNote); note.Content != "whole" {
		t.Errorf("note content = %q, want %q", note.Content, "whole")
	}
}

func TestRender_CaseInsensitiveKinds(t *testing.T) {
	spans := Render("[[Note: upper]] [[TERM: Dominus]]", Options{ShowNotes: true})
	if findSpan(t, spans, KindNote).Content != "upper" {
		t.Error("capitalized note not recognized")
	}
	if findSpan(t, spans, KindTerm).Content != "Dominus" {
		t.Error("capitalized term not recognized")
	}
}

func TestProcess_MetadataGate(t *testing.T) {
	input := "<lang>Latin</lang>\nBody."
	doc := Process(input, Options{ShowMetadata: true, ShowNotes: true})
	if doc.Metadata == nil || doc.Metadata.Language != "Latin" {
		t.Fatalf("metadata = %+v, want language Latin", doc.Metadata)
	}
	if doc.Clean != "Body." {
		t.Errorf("clean = %q", doc.Clean)
	}

	doc = Process(input, Options{ShowMetadata: false, ShowNotes: true})
	if doc.Metadata != nil {
		t.Errorf("metadata should be withheld, got %+v", doc.Metadata)
	}
	// Extraction still strips the directive.
	if strings.Contains(doc.Clean, "<lang>") {
		t.Errorf("directive leaked into clean text: %q", doc.Clean)
	}
}

func TestProcess_FullPipeline(t *testing.T) {
	input := "Here is the translation:\n\n<lang>Latin</lang>\n" +
		"->## De Agricultura<-\n\n" +
		"Colonus [[term: aratrum → plough]] agrum colit. [[note: tense uncertain]]\n" +
		"[[image: field scene]]\n"
	doc := Process(input, Options{ShowMetadata: true, ShowNotes: true})
	if doc.Metadata == nil || doc.Metadata.Language != "Latin" {
		t.Fatalf("metadata = %+v", doc.Metadata)
	}
	h := findSpan(t, doc.Spans, KindHeading)
	if h.Content != "De Agricultura" || h.Level != 2 {
		t.Errorf("heading = %+v", h)
	}
	if findSpan(t, doc.Spans, KindTerm).Gloss != "plough" {
		t.Error("term gloss lost in pipeline")
	}
	for _, s := range doc.Spans {
		if s.Kind == KindImage {
			t.Error("image should stay hidden without the reveal flag")
		}
	}
}

func TestFlatten_TermAndUnclear(t *testing.T) {
	spans := []Span{
		{Kind: KindText, Content: "a "},
		{Kind: KindTerm, Content: "opus", Gloss: "work"},
		{Kind: KindText, Content: " b "},
		{Kind: KindUnclear, Content: "smudge"},
	}
	if got := Flatten(spans); got != "a opus (work) b smudge?" {
		t.Errorf("flatten = %q", got)
	}
}
