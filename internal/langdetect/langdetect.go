// Package langdetect guesses the language of a transcription when the text
// carries no language directive.
package langdetect

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// DefaultLanguages covers the languages the archive's manuscripts commonly
// use. Narrowing the set improves both accuracy and startup time, so
// deployments with a known corpus should configure their own list.
var DefaultLanguages = []string{
	"Latin", "English", "German", "French", "Italian",
	"Spanish", "Dutch", "Portuguese", "Greek",
}

// minSampleRunes guards against guessing from fragments; n-gram models
// need a sentence or two to say anything useful.
const minSampleRunes = 32

var languageByName = buildLanguageTable()

func buildLanguageTable() map[string]lingua.Language {
	m := make(map[string]lingua.Language)
	for _, l := range lingua.AllLanguages() {
		m[strings.ToLower(l.String())] = l
	}
	return m
}

// Detector wraps a lingua language detector restricted to a configured
// language set.
type Detector struct {
	inner lingua.LanguageDetector
}

// New builds a detector for the named languages. An empty list selects
// DefaultLanguages; unknown names are rejected.
func New(names []string) (*Detector, error) {
	if len(names) == 0 {
		names = DefaultLanguages
	}
	langs := make([]lingua.Language, 0, len(names))
	for _, n := range names {
		l, ok := languageByName[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			return nil, fmt.Errorf("langdetect: unknown language %q", n)
		}
		langs = append(langs, l)
	}
	if len(langs) < 2 {
		return nil, errors.New("langdetect: need at least two languages")
	}
	return &Detector{
		inner: lingua.NewLanguageDetectorBuilder().FromLanguages(langs...).Build(),
	}, nil
}

// Detect returns the language name for text and whether the guess is
// usable. Samples shorter than a sentence are skipped.
func (d *Detector) Detect(text string) (string, bool) {
	sample := strings.TrimSpace(text)
	if utf8.RuneCountInString(sample) < minSampleRunes {
		return "", false
	}
	lang, ok := d.inner.DetectLanguageOf(sample)
	if !ok {
		return "", false
	}
	return lang.String(), true
}

// Known reports whether name is a language this package can detect.
func Known(name string) bool {
	_, ok := languageByName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
