package index

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"sort"
	"sync"

	"github.com/starford/nnotes/internal/analyzer"
	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/query"
	"github.com/starford/nnotes/internal/ranker"
	"github.com/starford/nnotes/internal/storage"
)

const (
	metaKey     = "meta.json"
	postingsKey = "postings.dat"
)

// storedDoc is a document plus its sequence number and per-field lengths.
type storedDoc struct {
	Seq     uint64         `json:"seq"`
	ID      string         `json:"id"`
	Title   string         `json:"title"`
	Content string         `json:"content"`
	Lengths map[string]int `json:"lengths"`
}

func (d *storedDoc) document() Document {
	return Document{ID: d.ID, Title: d.Title, Content: d.Content}
}

// state is the in-memory inverted index. Postings lists are kept sorted by
// (doc, field) so search order follows insertion order.
type state struct {
	nextSeq uint64
	docs    map[uint64]*storedDoc
	byID    map[string][]uint64
	terms   map[string][]Posting
	totals  map[string]int
}

func newState() *state {
	return &state{
		docs:   make(map[uint64]*storedDoc),
		byID:   make(map[string][]uint64),
		terms:  make(map[string][]Posting),
		totals: make(map[string]int),
	}
}

// insert adds d and its postings. d.Lengths is recomputed.
func (s *state) insert(d *storedDoc) {
	lengths, postings := analyzeDocument(d.Seq, d.document())
	d.Lengths = lengths
	for field, n := range lengths {
		s.totals[field] += n
	}
	for _, tp := range postings {
		s.terms[tp.term] = insertPosting(s.terms[tp.term], tp.Posting)
	}

	s.docs[d.Seq] = d
	ids := s.byID[d.ID]
	i, _ := slices.BinarySearch(ids, d.Seq)
	s.byID[d.ID] = slices.Insert(ids, i, d.Seq)
}

func insertPosting(list []Posting, p Posting) []Posting {
	i := sort.Search(len(list), func(k int) bool {
		if list[k].Doc != p.Doc {
			return list[k].Doc > p.Doc
		}
		return list[k].Field > p.Field
	})
	return slices.Insert(list, i, p)
}

// remove drops the document with seq and all its postings.
func (s *state) remove(seq uint64) *storedDoc {
	d, ok := s.docs[seq]
	if !ok {
		return nil
	}
	doc := d.document()
	for _, field := range TextFields {
		for _, term := range analyzer.Tokenize(doc.value(field)) {
			list, ok := s.terms[term]
			if !ok {
				continue
			}
			list = slices.DeleteFunc(list, func(p Posting) bool {
				return p.Doc == seq && p.Field == field
			})
			if len(list) == 0 {
				delete(s.terms, term)
			} else {
				s.terms[term] = list
			}
		}
		s.totals[field] -= d.Lengths[field]
	}

	delete(s.docs, seq)
	ids := slices.DeleteFunc(s.byID[d.ID], func(v uint64) bool { return v == seq })
	if len(ids) == 0 {
		delete(s.byID, d.ID)
	} else {
		s.byID[d.ID] = ids
	}
	return d
}

func (s *state) sortedSeqs() []uint64 {
	seqs := make([]uint64, 0, len(s.docs))
	for seq := range s.docs {
		seqs = append(seqs, seq)
	}
	slices.Sort(seqs)
	return seqs
}

func (s *state) docCount() (int, error) {
	return len(s.docs), nil
}

func (s *state) postings(term string) ([]Posting, error) {
	return s.terms[term], nil
}

func (s *state) fieldLength(doc uint64, field string) (int, error) {
	if d, ok := s.docs[doc]; ok {
		return d.Lengths[field], nil
	}
	return 0, nil
}

func (s *state) avgFieldLength(field string) (float64, error) {
	if len(s.docs) == 0 {
		return 0, nil
	}
	return float64(s.totals[field]) / float64(len(s.docs)), nil
}

// Inverted is an inverted index held in memory and persisted as a single
// snapshot blob under dir. Every mutation is committed before it returns;
// a failed commit rolls the in-memory state back to the last commit.
type Inverted struct {
	mu     sync.RWMutex
	blobs  storage.Provider
	dir    string
	params ranker.Params
	logger *slog.Logger
	st     *state
}

// OpenInverted loads the index stored under dir, or creates an empty one
// when dir holds no index yet.
func OpenInverted(blobs storage.Provider, dir string, params ranker.Params, logger *slog.Logger) (*Inverted, error) {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Inverted{
		blobs:  blobs,
		dir:    dir,
		params: params,
		logger: logger.With(slog.String("component", "index")),
		st:     newState(),
	}

	raw, err := blobs.Read(i.key(metaKey))
	if errors.Is(err, fs.ErrNotExist) {
		if err := i.create(); err != nil {
			return nil, err
		}
		i.logger.Info("index: created", slog.String("dir", dir))
		return i, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: read meta: %w: %w", apperr.ErrIndexCorrupt, err)
	}
	if err := checkMeta(raw); err != nil {
		return nil, err
	}

	data, err := blobs.Read(i.key(postingsKey))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		i.logger.Warn("index: postings missing, starting empty", slog.String("dir", dir))
	case err != nil:
		return nil, fmt.Errorf("index: read postings: %w: %w", apperr.ErrIndexCorrupt, err)
	default:
		st, err := decodeSnapshot(data)
		if err != nil {
			return nil, err
		}
		i.st = st
	}

	i.logger.Debug("index: opened",
		slog.String("dir", dir),
		slog.Int("docs", len(i.st.docs)),
		slog.Int("terms", len(i.st.terms)))
	return i, nil
}

func (i *Inverted) key(name string) string {
	return path.Join(i.dir, name)
}

func (i *Inverted) create() error {
	raw, err := encodeMeta()
	if err != nil {
		return fmt.Errorf("index: encode meta: %w: %w", apperr.ErrCommitFailed, err)
	}
	if err := i.blobs.Write(i.key(metaKey), raw); err != nil {
		return fmt.Errorf("index: write meta: %w: %w", apperr.ErrCommitFailed, err)
	}
	return i.commit()
}

// commit persists the current state atomically.
func (i *Inverted) commit() error {
	data, err := encodeSnapshot(i.st)
	if err != nil {
		return fmt.Errorf("index: encode postings: %w: %w", apperr.ErrCommitFailed, err)
	}
	if err := i.blobs.Write(i.key(postingsKey), data); err != nil {
		return fmt.Errorf("index: commit: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Add indexes doc under a new sequence number and commits.
func (i *Inverted) Add(doc Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	seq := i.st.nextSeq + 1
	i.st.insert(&storedDoc{Seq: seq, ID: doc.ID, Title: doc.Title, Content: doc.Content})
	i.st.nextSeq = seq

	if err := i.commit(); err != nil {
		i.st.remove(seq)
		i.st.nextSeq = seq - 1
		return err
	}
	i.logger.Debug("index: added", slog.String("id", doc.ID), slog.Uint64("seq", seq))
	return nil
}

// Delete removes every entry for id and commits.
func (i *Inverted) Delete(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	seqs := slices.Clone(i.st.byID[id])
	if len(seqs) == 0 {
		return nil
	}
	removed := make([]*storedDoc, 0, len(seqs))
	for _, seq := range seqs {
		removed = append(removed, i.st.remove(seq))
	}

	if err := i.commit(); err != nil {
		for _, d := range removed {
			i.st.insert(d)
		}
		return err
	}
	i.logger.Debug("index: deleted", slog.String("id", id), slog.Int("entries", len(seqs)))
	return nil
}

// Replace swaps the index contents for docs in one commit.
func (i *Inverted) Replace(docs []Document) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	next := newState()
	next.nextSeq = i.st.nextSeq
	for _, doc := range docs {
		next.nextSeq++
		next.insert(&storedDoc{Seq: next.nextSeq, ID: doc.ID, Title: doc.Title, Content: doc.Content})
	}

	prev := i.st
	i.st = next
	if err := i.commit(); err != nil {
		i.st = prev
		return err
	}
	i.logger.Info("index: replaced", slog.Int("docs", len(docs)))
	return nil
}

// Search runs query and returns at most limit hits.
func (i *Inverted) Search(q string, limit int) ([]Hit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	plan := query.Parse(q, TextFields)
	scored, err := evaluate(i.st, plan, i.params, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		hits = append(hits, Hit{Document: i.st.docs[s.Doc].document(), Score: s.Score})
	}
	return hits, nil
}

// Documents returns the stored documents in insertion order.
func (i *Inverted) Documents() ([]Document, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seqs := i.st.sortedSeqs()
	out := make([]Document, 0, len(seqs))
	for _, seq := range seqs {
		out = append(out, i.st.docs[seq].document())
	}
	return out, nil
}

// Close releases nothing; every mutation is already committed.
func (i *Inverted) Close() error {
	return nil
}
