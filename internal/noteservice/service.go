// Package noteservice keeps the note store and the search index in step.
// The store is authoritative: every mutation reaches the store before the
// index, and an index failure after a store success is reported as a
// partial failure that a rebuild, sync or reindex repairs.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/index"
	"github.com/starford/nnotes/internal/models"
	"github.com/starford/nnotes/internal/notestore"
)

const maxIDAttempts = 8

var errNoIndex = errors.New("index not open")

// Option configures a Service.
type Option func(*Service)

// WithLimit sets the number of search results returned.
func WithLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces uuid.NewString as the source of note ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// Service coordinates the note store and the index. Operations are
// serialised so the watcher and the MCP server never interleave them.
type Service struct {
	mu     sync.Mutex
	notes  *notestore.Store
	idx    index.Index
	limit  int
	newID  func() string
	logger *slog.Logger
}

// NewService creates a note service. idx may be nil for callers that only
// list notes.
func NewService(notes *notestore.Store, idx index.Index, opts ...Option) *Service {
	s := &Service{
		notes:  notes,
		idx:    idx,
		limit:  index.DefaultLimit,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "noteservice"))
	return s
}

func storeErr(op string, err error) error {
	return &apperr.StageError{Stage: apperr.StageStore, Op: op, Err: err}
}

func indexErr(op string, err error) error {
	return &apperr.StageError{Stage: apperr.StageIndex, Op: op, Err: err}
}

func (s *Service) index(op string) (index.Index, error) {
	if s.idx == nil {
		return nil, indexErr(op, errNoIndex)
	}
	return s.idx, nil
}

func toDocument(n models.Note) index.Document {
	return index.Document{ID: n.ID, Title: n.Title, Content: n.Content}
}

// Create stores a new note under a fresh id, then indexes it. When only
// the index step fails the note is returned together with a
// *apperr.PartialFailureError.
func (s *Service) Create(_ context.Context, title, content string) (models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index("create")
	if err != nil {
		return models.Note{}, err
	}

	n := models.Note{Title: title, Content: content}
	for attempt := 1; ; attempt++ {
		n.ID = s.newID()
		err = s.notes.Append(n)
		if errors.Is(err, apperr.ErrAlreadyExists) && attempt < maxIDAttempts {
			s.logger.Debug("create: id collision, redrawing", slog.String("id", n.ID))
			continue
		}
		break
	}
	if err != nil {
		return models.Note{}, storeErr("create", err)
	}

	if err := idx.Add(toDocument(n)); err != nil {
		s.logger.Error("create: index failed after store write",
			slog.String("id", n.ID),
			slog.String("error", err.Error()))
		return n, &apperr.PartialFailureError{Op: "create", ID: n.ID, Err: err}
	}
	s.logger.Info("create: note saved", slog.String("id", n.ID))
	return n, nil
}

// List returns every stored note in insertion order. It never touches
// the index.
func (s *Service) List(_ context.Context) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.notes.Load()
	if err != nil {
		return nil, storeErr("list", err)
	}
	return notes, nil
}

// Delete removes the note from the store, then from the index. An unknown
// id yields apperr.ErrNotFound and leaves the index alone. The store
// removal is kept even when the index step fails.
func (s *Service) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index("delete")
	if err != nil {
		return err
	}

	removed, err := s.notes.Remove(id)
	if err != nil {
		return storeErr("delete", err)
	}
	if !removed {
		return fmt.Errorf("noteservice: delete %s: %w", id, apperr.ErrNotFound)
	}

	if err := idx.Delete(id); err != nil {
		s.logger.Error("delete: index failed after store removal",
			slog.String("id", id),
			slog.String("error", err.Error()))
		return &apperr.PartialFailureError{Op: "delete", ID: id, Err: err}
	}
	s.logger.Info("delete: note removed", slog.String("id", id))
	return nil
}

// Search queries the index only.
func (s *Service) Search(_ context.Context, query string) ([]index.Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index("search")
	if err != nil {
		return nil, err
	}
	hits, err := idx.Search(query, s.limit)
	if err != nil {
		return nil, indexErr("search", err)
	}
	return hits, nil
}

// Rebuild replaces the index contents with every stored note and returns
// how many were indexed.
func (s *Service) Rebuild(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index("rebuild")
	if err != nil {
		return 0, err
	}
	notes, err := s.notes.Load()
	if err != nil {
		return 0, storeErr("rebuild", err)
	}
	docs := make([]index.Document, 0, len(notes))
	for _, n := range notes {
		docs = append(docs, toDocument(n))
	}
	if err := idx.Replace(docs); err != nil {
		return 0, indexErr("rebuild", err)
	}
	s.logger.Info("rebuild: done", slog.Int("notes", len(docs)))
	return len(docs), nil
}

// Reindex re-adds one stored note, dropping any entries the index already
// holds for it.
func (s *Service) Reindex(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.index("reindex")
	if err != nil {
		return err
	}
	n, err := s.notes.Get(id)
	if err != nil {
		return storeErr("reindex", err)
	}
	if err := idx.Delete(id); err != nil {
		return indexErr("reindex", err)
	}
	if err := idx.Add(toDocument(n)); err != nil {
		return indexErr("reindex", err)
	}
	s.logger.Info("reindex: done", slog.String("id", id))
	return nil
}
