package ranker

import (
	"testing"
)

func TestIDF_RareTermsScoreHigher(t *testing.T) {
	rare := IDF(100, 1)
	common := IDF(100, 90)
	if rare <= common {
		t.Errorf("IDF rare=%f common=%f, want rare > common", rare, common)
	}
	if everywhere := IDF(3, 3); everywhere <= 0 {
		t.Errorf("IDF for a term in every doc = %f, want > 0", everywhere)
	}
}

func TestScore_MonotonicInTermFrequency(t *testing.T) {
	p := DefaultParams()
	prev := 0.0
	for tf := 1; tf <= 10; tf++ {
		s := p.Score("content", tf, 20, 2, 10, 20)
		if s <= prev {
			t.Fatalf("score not increasing at tf=%d: %f <= %f", tf, s, prev)
		}
		prev = s
	}
}

func TestScore_LongerFieldsScoreLower(t *testing.T) {
	p := DefaultParams()
	short := p.Score("content", 1, 5, 1, 10, 20)
	long := p.Score("content", 1, 80, 1, 10, 20)
	if short <= long {
		t.Errorf("short=%f long=%f, want short > long", short, long)
	}
}

func TestScore_TitleBoost(t *testing.T) {
	p := DefaultParams()
	title := p.Score("title", 1, 5, 1, 10, 5)
	content := p.Score("content", 1, 5, 1, 10, 5)
	if title != 2*content {
		t.Errorf("title=%f content=%f, want title = 2*content", title, content)
	}
	if p.Boost("unknown") != 1 {
		t.Error("unknown field boost should be 1")
	}
}

func TestTopK_OrderAndLimit(t *testing.T) {
	scores := map[uint64]float64{
		1: 0.5,
		2: 2.0,
		3: 1.0,
		4: 2.0,
		5: 0.1,
	}
	got := TopK(scores, 3)
	want := []uint64{2, 4, 3}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, doc := range want {
		if got[i].Doc != doc {
			t.Errorf("position %d: doc %d, want %d (%+v)", i, got[i].Doc, doc, got)
		}
	}
}

func TestTopK_TiesBrokenByInsertionOrder(t *testing.T) {
	scores := make(map[uint64]float64)
	for doc := uint64(1); doc <= 15; doc++ {
		scores[doc] = 1.23456789
	}
	got := TopK(scores, 10)
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	for i, s := range got {
		if s.Doc != uint64(i+1) {
			t.Errorf("position %d: doc %d, want %d", i, s.Doc, i+1)
		}
		if s.Score != 1.2346 {
			t.Errorf("score = %v, want rounded 1.2346", s.Score)
		}
	}
}

func TestTopK_NoLimit(t *testing.T) {
	got := TopK(map[uint64]float64{7: 1, 3: 1}, 0)
	if len(got) != 2 || got[0].Doc != 3 {
		t.Errorf("got %+v", got)
	}
	if len(TopK(nil, 10)) != 0 {
		t.Error("expected empty result for no scores")
	}
}
