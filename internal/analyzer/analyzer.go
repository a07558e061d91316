// Package analyzer turns raw text into index terms. The same functions are
// used when documents are indexed and when queries are parsed, so a term
// produced from a query always compares equal to the same word in a note.
package analyzer

import (
	"strings"
	"unicode"
)

// Token is a normalised term and its position in the original text.
type Token struct {
	Term     string
	Position int
}

// Analyze lower-cases text, splits it on every rune that is not a letter
// or a digit and returns the resulting terms with 0-based positions.
func Analyze(text string) []Token {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		tokens = append(tokens, Token{Term: word, Position: len(tokens)})
	}
	return tokens
}

// Tokenize returns only the terms produced by Analyze.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), isSeparator)
	if len(words) == 0 {
		return nil
	}
	return words
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// Span is a Token together with its byte offsets in the original text.
type Span struct {
	Token
	Start int
	End   int
}

// Spans splits text exactly like Analyze and also reports where each term
// came from.
func Spans(text string) []Span {
	var spans []Span
	start := -1
	emit := func(end int) {
		spans = append(spans, Span{
			Token: Token{Term: strings.ToLower(text[start:end]), Position: len(spans)},
			Start: start,
			End:   end,
		})
		start = -1
	}
	for i, r := range text {
		switch {
		case !isSeparator(r):
			if start < 0 {
				start = i
			}
		case start >= 0:
			emit(i)
		}
	}
	if start >= 0 {
		emit(len(text))
	}
	return spans
}
