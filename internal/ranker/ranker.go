// Package ranker scores term matches with BM25 and selects the best
// documents with a bounded heap.
package ranker

import (
	"container/heap"
	"math"
)

const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Params tunes BM25 and per-field weighting.
type Params struct {
	K1     float64
	B      float64
	Boosts map[string]float64
}

// DefaultParams weights title matches twice as much as content matches.
func DefaultParams() Params {
	return Params{
		K1: DefaultK1,
		B:  DefaultB,
		Boosts: map[string]float64{
			"title":   2,
			"content": 1,
		},
	}
}

// Boost returns the weight for field, 1 when none is configured.
func (p Params) Boost(field string) float64 {
	if b, ok := p.Boosts[field]; ok {
		return b
	}
	return 1
}

// Score is the BM25 contribution of one term (or phrase) in one field of
// one document: termFreq occurrences in a field of fieldLen terms, matched
// by docFreq of totalDocs documents.
func (p Params) Score(field string, termFreq, fieldLen, docFreq, totalDocs int, avgFieldLen float64) float64 {
	if termFreq <= 0 {
		return 0
	}
	return p.Boost(field) * IDF(totalDocs, docFreq) * p.tfNorm(float64(termFreq), float64(fieldLen), avgFieldLen)
}

// IDF rewards terms that occur in few documents. It stays positive even
// when every document contains the term.
func IDF(totalDocs, docFreq int) float64 {
	n := float64(totalDocs)
	df := float64(docFreq)
	return math.Log(1 + (n-df+0.5)/(df+0.5))
}

func (p Params) tfNorm(termFreq, fieldLen, avgFieldLen float64) float64 {
	lengthRatio := 1.0
	if avgFieldLen > 0 {
		lengthRatio = fieldLen / avgFieldLen
	}
	return (termFreq * (p.K1 + 1)) / (termFreq + p.K1*(1-p.B+p.B*lengthRatio))
}

// Scored is a document sequence number and its relevance.
type Scored struct {
	Doc   uint64
	Score float64
}

// worse orders candidates: lower score first, then later insertion first.
func worse(a, b Scored) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Doc > b.Doc
}

type scoredHeap []Scored

func (h scoredHeap) Len() int           { return len(h) }
func (h scoredHeap) Less(i, j int) bool { return worse(h[i], h[j]) }
func (h scoredHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *scoredHeap) Push(x any)        { *h = append(*h, x.(Scored)) }
func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// TopK returns at most limit documents ordered by score descending, ties
// broken by ascending sequence number (insertion order). Scores are
// rounded to four decimals so float noise does not reorder equal matches.
// A limit <= 0 returns every document.
func TopK(scores map[uint64]float64, limit int) []Scored {
	if limit <= 0 || limit > len(scores) {
		limit = len(scores)
	}
	h := make(scoredHeap, 0, limit)
	for doc, s := range scores {
		c := Scored{Doc: doc, Score: math.Round(s*10000) / 10000}
		if h.Len() < limit {
			heap.Push(&h, c)
			continue
		}
		if limit > 0 && worse(h[0], c) {
			h[0] = c
			heap.Fix(&h, 0)
		}
	}
	out := make([]Scored, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Scored)
	}
	return out
}
