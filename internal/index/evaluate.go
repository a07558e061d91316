package index

import (
	"slices"

	"github.com/starford/nnotes/internal/query"
	"github.com/starford/nnotes/internal/ranker"
)

// Posting links a term to one field of one document.
type Posting struct {
	Doc       uint64 `json:"d"`
	Field     string `json:"f"`
	Freq      int    `json:"n"`
	Positions []int  `json:"p"`
}

// corpus is the read side shared by the postings-based backends.
type corpus interface {
	docCount() (int, error)
	// postings returns every posting for term, ordered by doc then field.
	postings(term string) ([]Posting, error)
	fieldLength(doc uint64, field string) (int, error)
	avgFieldLength(field string) (float64, error)
}

// evaluate runs plan against c and returns the top limit documents.
func evaluate(c corpus, plan *query.Plan, params ranker.Params, limit int) ([]ranker.Scored, error) {
	if !plan.Matchable() {
		return nil, nil
	}
	total, err := c.docCount()
	if err != nil || total == 0 {
		return nil, err
	}

	cache := make(map[string][]Posting)
	lookup := func(term string) ([]Posting, error) {
		if ps, ok := cache[term]; ok {
			return ps, nil
		}
		ps, err := c.postings(term)
		if err != nil {
			return nil, err
		}
		cache[term] = ps
		return ps, nil
	}

	scores := make(map[uint64]float64)
	mustHits := make(map[uint64]int)
	excluded := make(map[uint64]struct{})
	musts := 0

	for _, cl := range plan.Clauses {
		matched, err := evalClause(c, cl, params, total, lookup)
		if err != nil {
			return nil, err
		}
		switch cl.Occur {
		case query.MustNot:
			for doc := range matched {
				excluded[doc] = struct{}{}
			}
		case query.Must:
			musts++
			for doc, s := range matched {
				mustHits[doc]++
				scores[doc] += s
			}
		default:
			for doc, s := range matched {
				scores[doc] += s
			}
		}
	}

	for doc := range scores {
		if _, ok := excluded[doc]; ok || mustHits[doc] < musts {
			delete(scores, doc)
		}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return ranker.TopK(scores, limit), nil
}

// evalClause scores every document matching cl, summed over the fields
// the clause applies to.
func evalClause(c corpus, cl query.Clause, params ranker.Params, total int, lookup func(string) ([]Posting, error)) (map[uint64]float64, error) {
	fields := TextFields
	if cl.Field != "" {
		fields = []string{cl.Field}
	}

	out := make(map[uint64]float64)
	for _, field := range fields {
		freqs, err := fieldFreqs(cl.Terms, field, lookup)
		if err != nil {
			return nil, err
		}
		if len(freqs) == 0 {
			continue
		}
		avg, err := c.avgFieldLength(field)
		if err != nil {
			return nil, err
		}
		for doc, tf := range freqs {
			n, err := c.fieldLength(doc, field)
			if err != nil {
				return nil, err
			}
			out[doc] += params.Score(field, tf, n, len(freqs), total, avg)
		}
	}
	return out, nil
}

// fieldFreqs maps each document whose field contains terms (as a phrase
// when there are several) to the number of occurrences.
func fieldFreqs(terms []string, field string, lookup func(string) ([]Posting, error)) (map[uint64]int, error) {
	positions := make([]map[uint64][]int, len(terms))
	for i, term := range terms {
		ps, err := lookup(term)
		if err != nil {
			return nil, err
		}
		m := make(map[uint64][]int)
		for _, p := range ps {
			if p.Field == field {
				m[p.Doc] = p.Positions
			}
		}
		if len(m) == 0 {
			return nil, nil
		}
		positions[i] = m
	}

	freqs := make(map[uint64]int)
	if len(terms) == 1 {
		ps, _ := lookup(terms[0])
		for _, p := range ps {
			if p.Field == field {
				freqs[p.Doc] = p.Freq
			}
		}
		return freqs, nil
	}

	for doc, starts := range positions[0] {
		n := 0
		for _, start := range starts {
			if phraseAt(positions, doc, start) {
				n++
			}
		}
		if n > 0 {
			freqs[doc] = n
		}
	}
	return freqs, nil
}

func phraseAt(positions []map[uint64][]int, doc uint64, start int) bool {
	for i := 1; i < len(positions); i++ {
		if _, ok := slices.BinarySearch(positions[i][doc], start+i); !ok {
			return false
		}
	}
	return true
}
