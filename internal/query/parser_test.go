package query

import (
	"reflect"
	"testing"
)

var fields = []string{"title", "content"}

func TestParse_BareWordsAreShould(t *testing.T) {
	plan := Parse("milk Eggs", fields)
	want := []Clause{
		{Occur: Should, Terms: []string{"milk"}},
		{Occur: Should, Terms: []string{"eggs"}},
	}
	if !reflect.DeepEqual(plan.Clauses, want) {
		t.Errorf("clauses = %+v, want %+v", plan.Clauses, want)
	}
	if !plan.Matchable() {
		t.Error("plan should be matchable")
	}
}

func TestParse_Operators(t *testing.T) {
	plan := Parse("+milk -eggs bread", fields)
	want := []Clause{
		{Occur: Must, Terms: []string{"milk"}},
		{Occur: MustNot, Terms: []string{"eggs"}},
		{Occur: Should, Terms: []string{"bread"}},
	}
	if !reflect.DeepEqual(plan.Clauses, want) {
		t.Errorf("clauses = %+v, want %+v", plan.Clauses, want)
	}
}

func TestParse_Keywords(t *testing.T) {
	plan := Parse("milk AND eggs OR bread NOT butter", fields)
	want := []Clause{
		{Occur: Must, Terms: []string{"milk"}},
		{Occur: Must, Terms: []string{"eggs"}},
		{Occur: Should, Terms: []string{"bread"}},
		{Occur: MustNot, Terms: []string{"butter"}},
	}
	if !reflect.DeepEqual(plan.Clauses, want) {
		t.Errorf("clauses = %+v, want %+v", plan.Clauses, want)
	}
}

func TestParse_LowercaseKeywordsAreTerms(t *testing.T) {
	plan := Parse("cats and dogs", fields)
	if len(plan.Clauses) != 3 {
		t.Fatalf("expected 3 clauses, got %+v", plan.Clauses)
	}
	if plan.Clauses[1].Terms[0] != "and" {
		t.Errorf("clause 1 = %+v", plan.Clauses[1])
	}
}

func TestParse_FieldPrefix(t *testing.T) {
	plan := Parse(`title:Groceries content:"buy milk" http://example`, fields)
	want := []Clause{
		{Occur: Should, Field: "title", Terms: []string{"groceries"}},
		{Occur: Should, Field: "content", Terms: []string{"buy", "milk"}},
		{Occur: Should, Terms: []string{"http", "example"}},
	}
	if !reflect.DeepEqual(plan.Clauses, want) {
		t.Errorf("clauses = %+v, want %+v", plan.Clauses, want)
	}
	if !plan.Clauses[1].Phrase() {
		t.Error("quoted clause should be a phrase")
	}
}

func TestParse_HyphenatedWordIsPhrase(t *testing.T) {
	plan := Parse("nonexistent-term", fields)
	if len(plan.Clauses) != 1 {
		t.Fatalf("expected 1 clause, got %+v", plan.Clauses)
	}
	c := plan.Clauses[0]
	if !c.Phrase() || c.Occur != Should {
		t.Errorf("clause = %+v, want should phrase", c)
	}
}

func TestParse_UnterminatedQuote(t *testing.T) {
	plan := Parse(`"buy milk`, fields)
	if len(plan.Clauses) != 1 || !reflect.DeepEqual(plan.Clauses[0].Terms, []string{"buy", "milk"}) {
		t.Errorf("clauses = %+v", plan.Clauses)
	}
}

func TestParse_EmptyAndNegativeOnly(t *testing.T) {
	for _, q := range []string{"", "   ", "!!! ---", "+ -"} {
		if plan := Parse(q, fields); len(plan.Clauses) != 0 || plan.Matchable() {
			t.Errorf("Parse(%q) = %+v, want no clauses", q, plan.Clauses)
		}
	}
	if Parse("-milk", fields).Matchable() {
		t.Error("must-not-only plan should not be matchable")
	}
}
