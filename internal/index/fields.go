package index

import (
	"slices"

	"github.com/starford/nnotes/internal/analyzer"
)

// FieldKind says how a field is indexed.
type FieldKind string

const (
	// KindExact fields are matched as a single untokenized value.
	KindExact FieldKind = "exact"
	// KindText fields are tokenized by the analyzer and searchable.
	KindText FieldKind = "text"
)

const (
	FieldID      = "id"
	FieldTitle   = "title"
	FieldContent = "content"
)

// Field describes one schema field.
type Field struct {
	Name   string    `json:"name"`
	Kind   FieldKind `json:"kind"`
	Stored bool      `json:"stored"`
}

// Schema is the fixed field layout every backend persists and checks on open.
var Schema = []Field{
	{Name: FieldID, Kind: KindExact, Stored: true},
	{Name: FieldTitle, Kind: KindText, Stored: true},
	{Name: FieldContent, Kind: KindText, Stored: true},
}

// TextFields are the fields queried when a clause names no field.
var TextFields = []string{FieldTitle, FieldContent}

func schemaMatches(fields []Field) bool {
	return slices.Equal(fields, Schema)
}

func isTextField(name string) bool {
	return slices.Contains(TextFields, name)
}

func (d Document) value(field string) string {
	switch field {
	case FieldID:
		return d.ID
	case FieldTitle:
		return d.Title
	case FieldContent:
		return d.Content
	}
	return ""
}

type termPosting struct {
	term string
	Posting
}

// analyzeDocument tokenizes the text fields of doc and returns the token
// count per field and one posting per (term, field), in field order and
// then first occurrence.
func analyzeDocument(seq uint64, doc Document) (map[string]int, []termPosting) {
	lengths := make(map[string]int, len(TextFields))
	var out []termPosting
	for _, field := range TextFields {
		tokens := analyzer.Analyze(doc.value(field))
		lengths[field] = len(tokens)

		at := make(map[string]int)
		for _, tok := range tokens {
			i, ok := at[tok.Term]
			if !ok {
				i = len(out)
				at[tok.Term] = i
				out = append(out, termPosting{term: tok.Term, Posting: Posting{Doc: seq, Field: field}})
			}
			out[i].Freq++
			out[i].Positions = append(out[i].Positions, tok.Position)
		}
	}
	return lengths, out
}
