package index

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/starford/nnotes/internal/analyzer"
	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/query"
	"github.com/starford/nnotes/internal/ranker"
)

const (
	bleveAnalyzer  = "nnotes"
	bleveTokenizer = "nnotes"
	fieldSeq       = "seq"
)

func init() {
	registry.RegisterTokenizer(bleveTokenizer, func(map[string]interface{}, *registry.Cache) (analysis.Tokenizer, error) {
		return spanTokenizer{}, nil
	})
}

// spanTokenizer makes bleve split text the same way the other backends do.
type spanTokenizer struct{}

func (spanTokenizer) Tokenize(input []byte) analysis.TokenStream {
	spans := analyzer.Spans(string(input))
	out := make(analysis.TokenStream, 0, len(spans))
	for _, s := range spans {
		out = append(out, &analysis.Token{
			Term:     []byte(s.Term),
			Start:    s.Start,
			End:      s.End,
			Position: s.Position + 1,
			Type:     analysis.AlphaNumeric,
		})
	}
	return out
}

// Bleve is the Index backed by a bleve index directory. Documents are keyed
// by note id, so adding an id twice replaces the first entry.
type Bleve struct {
	mu      sync.Mutex
	idx     bleve.Index
	params  ranker.Params
	logger  *slog.Logger
	lastSeq int64
}

// OpenBleve opens the bleve index at path, creating it when path does not
// exist yet.
func OpenBleve(path string, params ranker.Params, logger *slog.Logger) (*Bleve, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "index"))

	idx, err := bleve.Open(path)
	switch {
	case errors.Is(err, bleve.ErrorIndexPathDoesNotExist):
		m, merr := bleveMapping()
		if merr != nil {
			return nil, fmt.Errorf("index: build mapping: %w", merr)
		}
		idx, err = bleve.New(path, m)
		if err != nil {
			return nil, fmt.Errorf("index: create bleve: %w: %w", apperr.ErrCommitFailed, err)
		}
		logger.Info("index: created", slog.String("path", path))
	case err != nil:
		return nil, fmt.Errorf("index: open bleve: %w: %w", apperr.ErrIndexCorrupt, err)
	default:
		if err := checkBleveMapping(idx.Mapping()); err != nil {
			idx.Close()
			return nil, err
		}
	}
	return &Bleve{idx: idx, params: params, logger: logger}, nil
}

func bleveMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(bleveAnalyzer, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": bleveTokenizer,
	})
	if err != nil {
		return nil, err
	}
	im.DefaultAnalyzer = bleveAnalyzer

	doc := bleve.NewDocumentMapping()
	doc.Dynamic = false

	id := bleve.NewKeywordFieldMapping()
	id.IncludeInAll = false
	doc.AddFieldMappingsAt(FieldID, id)

	for _, field := range TextFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = bleveAnalyzer
		fm.IncludeInAll = false
		fm.IncludeTermVectors = true
		doc.AddFieldMappingsAt(field, fm)
	}

	seq := bleve.NewNumericFieldMapping()
	seq.IncludeInAll = false
	doc.AddFieldMappingsAt(fieldSeq, seq)

	im.DefaultMapping = doc
	return im, nil
}

func checkBleveMapping(m mapping.IndexMapping) error {
	im, ok := m.(*mapping.IndexMappingImpl)
	if !ok || im.DefaultMapping == nil {
		return fmt.Errorf("index: unexpected bleve mapping: %w", apperr.ErrIndexCorrupt)
	}
	for _, f := range Schema {
		if _, ok := im.DefaultMapping.Properties[f.Name]; !ok {
			return fmt.Errorf("index: bleve mapping lacks %q: %w", f.Name, apperr.ErrIndexCorrupt)
		}
	}
	return nil
}

// nextSeq returns a sequence number greater than any handed out before by
// this process. Wall-clock microseconds keep it increasing across runs.
func (b *Bleve) nextSeq() int64 {
	seq := time.Now().UnixMicro()
	if seq <= b.lastSeq {
		seq = b.lastSeq + 1
	}
	b.lastSeq = seq
	return seq
}

func bleveDoc(doc Document, seq int64) map[string]interface{} {
	return map[string]interface{}{
		FieldID:      doc.ID,
		FieldTitle:   doc.Title,
		FieldContent: doc.Content,
		fieldSeq:     float64(seq),
	}
}

// Add indexes doc under its id.
func (b *Bleve) Add(doc Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.idx.Index(doc.ID, bleveDoc(doc, b.nextSeq())); err != nil {
		return fmt.Errorf("index: add: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Delete removes id from the index.
func (b *Bleve) Delete(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.idx.Delete(id); err != nil {
		return fmt.Errorf("index: delete: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Replace swaps the contents for docs in a single batch.
func (b *Bleve) Replace(docs []Document) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.documents()
	if err != nil {
		return err
	}
	batch := b.idx.NewBatch()
	for _, d := range existing {
		batch.Delete(d.ID)
	}
	for _, d := range docs {
		if err := batch.Index(d.ID, bleveDoc(d, b.nextSeq())); err != nil {
			return fmt.Errorf("index: replace: %w: %w", apperr.ErrCommitFailed, err)
		}
	}
	if err := b.idx.Batch(batch); err != nil {
		return fmt.Errorf("index: replace: %w: %w", apperr.ErrCommitFailed, err)
	}
	b.logger.Info("index: replaced", slog.Int("docs", len(docs)))
	return nil
}

// Search translates q into a bleve boolean query.
func (b *Bleve) Search(q string, limit int) ([]Hit, error) {
	plan := query.Parse(q, TextFields)
	if !plan.Matchable() {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	req := bleve.NewSearchRequestOptions(bleveQuery(plan, b.params), limit, 0, false)
	req.Fields = []string{FieldTitle, FieldContent}
	req.SortBy([]string{"-_score", fieldSeq})

	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, Hit{
			Document: Document{
				ID:      h.ID,
				Title:   stringField(h.Fields, FieldTitle),
				Content: stringField(h.Fields, FieldContent),
			},
			Score: math.Round(h.Score*10000) / 10000,
		})
	}
	return hits, nil
}

func bleveQuery(plan *query.Plan, params ranker.Params) bquery.Query {
	bq := bleve.NewBooleanQuery()
	for _, cl := range plan.Clauses {
		q := clauseQuery(cl, params)
		switch cl.Occur {
		case query.Must:
			bq.AddMust(q)
		case query.MustNot:
			bq.AddMustNot(q)
		default:
			bq.AddShould(q)
		}
	}
	return bq
}

// clauseQuery matches cl in each field it applies to, boosted per field.
func clauseQuery(cl query.Clause, params ranker.Params) bquery.Query {
	fields := TextFields
	if cl.Field != "" {
		fields = []string{cl.Field}
	}

	qs := make([]bquery.Query, 0, len(fields))
	for _, field := range fields {
		if cl.Phrase() {
			pq := bleve.NewPhraseQuery(cl.Terms, field)
			pq.SetBoost(params.Boost(field))
			qs = append(qs, pq)
			continue
		}
		tq := bleve.NewTermQuery(cl.Terms[0])
		tq.SetField(field)
		tq.SetBoost(params.Boost(field))
		qs = append(qs, tq)
	}
	if len(qs) == 1 {
		return qs[0]
	}
	return bleve.NewDisjunctionQuery(qs...)
}

// Documents returns every indexed document ordered by seq.
func (b *Bleve) Documents() ([]Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.documents()
}

func (b *Bleve) documents() ([]Document, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return nil, fmt.Errorf("index: count: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), int(n), 0, false)
	req.Fields = []string{FieldTitle, FieldContent}
	req.SortBy([]string{fieldSeq})

	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	out := make([]Document, 0, len(res.Hits))
	for _, h := range res.Hits {
		out = append(out, Document{
			ID:      h.ID,
			Title:   stringField(h.Fields, FieldTitle),
			Content: stringField(h.Fields, FieldContent),
		})
	}
	return out, nil
}

func stringField(fields map[string]interface{}, name string) string {
	s, _ := fields[name].(string)
	return s
}

// Close closes the bleve index.
func (b *Bleve) Close() error {
	return b.idx.Close()
}
