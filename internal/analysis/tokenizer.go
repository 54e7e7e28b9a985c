// Package analysis provides text analysis for lexical retrieval.
//
// The default analyzer lowercases input, splits on non-alphanumeric
// boundaries and camelCase transitions, and drops stopwords and
// single-character tokens.
package analysis

import (
	"strings"
	"unicode"
)

// defaultStopwords are common English terms excluded from indexing.
var defaultStopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {},
}

// Analyzer converts raw text into index terms.
type Analyzer struct {
	stopwords map[string]struct{}
	splitCase bool
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithStopwords replaces the default stopword list.
func WithStopwords(words []string) Option {
	return func(a *Analyzer) {
		a.stopwords = make(map[string]struct{}, len(words))
		for _, w := range words {
			a.stopwords[strings.ToLower(w)] = struct{}{}
		}
	}
}

// WithoutCaseSplit disables camelCase splitting.
func WithoutCaseSplit() Option {
	return func(a *Analyzer) { a.splitCase = false }
}

// New creates an Analyzer with the default configuration.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		stopwords: defaultStopwords,
		splitCase: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tokenize splits text into normalized terms.
func (a *Analyzer) Tokenize(text string) []string {
	var terms []string
	for _, word := range splitWords(text) {
		if a.splitCase {
			for _, part := range splitCamel(word) {
				if t := a.normalize(part); t != "" {
					terms = append(terms, t)
				}
			}
		} else if t := a.normalize(word); t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

func (a *Analyzer) normalize(word string) string {
	t := strings.ToLower(word)
	if len(t) < 2 {
		return ""
	}
	if _, stop := a.stopwords[t]; stop {
		return ""
	}
	return t
}

// splitWords breaks text at non-alphanumeric runes.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// splitCamel breaks a word at lower-to-upper transitions and at the
// end of an uppercase run followed by a lowercase letter, so that
// "HTTPServer" yields "HTTP" and "Server".
func splitCamel(word string) []string {
	runes := []rune(word)
	if len(runes) < 2 {
		return []string{word}
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur)
		if !boundary && i+1 < len(runes) {
			boundary = unicode.IsUpper(prev) && unicode.IsUpper(cur) && unicode.IsLower(runes[i+1])
		}
		if boundary {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}
