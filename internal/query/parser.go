// Package query parses free-text search input into a boolean plan of
// term and phrase clauses.
package query

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/starford/nnotes/internal/analyzer"
)

// Occur says how a clause participates in matching.
type Occur int

const (
	// Should clauses are OR-combined; a document must match at least one of
	// them unless the plan has Must clauses.
	Should Occur = iota
	Must
	MustNot
)

func (o Occur) String() string {
	switch o {
	case Must:
		return "must"
	case MustNot:
		return "must_not"
	default:
		return "should"
	}
}

// Clause matches a single term, or a phrase when it holds more than one term.
// An empty Field means every searchable field.
type Clause struct {
	Occur Occur
	Field string
	Terms []string
}

// Phrase reports whether the clause requires consecutive positions.
func (c Clause) Phrase() bool {
	return len(c.Terms) > 1
}

// Plan is a parsed query.
type Plan struct {
	Raw     string
	Clauses []Clause
}

// Matchable reports whether the plan can select any document. A plan made
// only of MustNot clauses selects nothing.
func (p *Plan) Matchable() bool {
	for _, c := range p.Clauses {
		if c.Occur != MustNot {
			return true
		}
	}
	return false
}

type item struct {
	occur    Occur
	explicit bool
	field    string
	text     string
	quoted   bool
}

// Parse builds a plan from raw. It never fails: syntax it does not
// understand is treated as plain text. fields lists the names accepted in
// "field:term" prefixes.
//
// Supported syntax: bare words (should), +word (must), -word (must not),
// AND / OR / NOT keywords, field:word, "quoted phrases". A bare word that
// analyzes into several terms ("e-mail") becomes a phrase.
func Parse(raw string, fields []string) *Plan {
	plan := &Plan{Raw: raw}
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}

	negateNext := false
	requireNext := false
	for _, it := range lex(raw) {
		if !it.quoted && !it.explicit && it.field == "" {
			switch it.text {
			case "AND":
				if n := len(plan.Clauses); n > 0 && plan.Clauses[n-1].Occur == Should {
					plan.Clauses[n-1].Occur = Must
				}
				requireNext = true
				continue
			case "OR":
				continue
			case "NOT":
				negateNext = true
				continue
			}
		}

		field, text := it.field, it.text
		if field != "" {
			if _, ok := known[field]; !ok {
				text = field + " " + text
				field = ""
			}
		}
		terms := analyzer.Tokenize(text)
		if len(terms) == 0 {
			continue
		}

		occur := Should
		if it.explicit {
			occur = it.occur
		}
		switch {
		case negateNext:
			occur = MustNot
		case requireNext && occur == Should:
			occur = Must
		}
		negateNext, requireNext = false, false

		plan.Clauses = append(plan.Clauses, Clause{Occur: occur, Field: field, Terms: terms})
	}
	return plan
}

func lex(raw string) []item {
	var items []item
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRuneInString(raw[i:])
		if unicode.IsSpace(r) {
			i += size
			continue
		}

		var it item
		switch raw[i] {
		case '+':
			it.occur, it.explicit = Must, true
			i++
		case '-':
			it.occur, it.explicit = MustNot, true
			i++
		}

		if n := fieldPrefix(raw[i:]); n > 0 {
			it.field = raw[i : i+n-1]
			i += n
		}

		if i < len(raw) && raw[i] == '"' {
			it.quoted = true
			end := strings.IndexByte(raw[i+1:], '"')
			if end < 0 {
				it.text = raw[i+1:]
				i = len(raw)
			} else {
				it.text = raw[i+1 : i+1+end]
				i += end + 2
			}
		} else {
			end := strings.IndexFunc(raw[i:], unicode.IsSpace)
			if end < 0 {
				end = len(raw) - i
			}
			it.text = raw[i : i+end]
			i += end
		}
		items = append(items, it)
	}
	return items
}

// fieldPrefix returns the length of a leading "name:" (including the colon)
// when name is made of ASCII letters, and 0 otherwise.
func fieldPrefix(s string) int {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == ':':
			if i == 0 {
				return 0
			}
			return i + 1
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
		default:
			return 0
		}
	}
	return 0
}
