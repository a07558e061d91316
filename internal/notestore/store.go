// Package notestore keeps the authoritative note snapshot: a JSON array of
// notes in insertion order, rewritten whole on every mutation.
package notestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/checksum"
	"github.com/starford/nnotes/internal/models"
	"github.com/starford/nnotes/internal/storage"
)

// DefaultKey is the snapshot name inside the data directory.
const DefaultKey = "notes.json"

// Store reads and writes the snapshot stored under one key. Every mutation
// loads the full snapshot and saves it back, so cost grows with the number
// of notes.
type Store struct {
	blobs storage.Provider
	key   string
}

// New binds a Store to key in blobs.
func New(blobs storage.Provider, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{blobs: blobs, key: key}
}

// Key returns the snapshot key.
func (s *Store) Key() string {
	return s.key
}

// Load returns every stored note. A missing snapshot is an empty store.
func (s *Store) Load() ([]models.Note, error) {
	data, err := s.blobs.Read(s.key)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.Note{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notestore: read %s: %w: %w", s.key, apperr.ErrStoreIO, err)
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, fmt.Errorf("notestore: parse %s: %w: %w", s.key, apperr.ErrStoreIO, err)
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

// Save replaces the snapshot with notes.
func (s *Store) Save(notes []models.Note) error {
	if notes == nil {
		notes = []models.Note{}
	}
	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return fmt.Errorf("notestore: encode: %w: %w", apperr.ErrStoreIO, err)
	}
	if err := s.blobs.Write(s.key, data); err != nil {
		return fmt.Errorf("notestore: write %s: %w: %w", s.key, apperr.ErrStoreIO, err)
	}
	return nil
}

// Append adds n after every stored note.
func (s *Store) Append(n models.Note) error {
	notes, err := s.Load()
	if err != nil {
		return err
	}
	if slices.ContainsFunc(notes, func(o models.Note) bool { return o.ID == n.ID }) {
		return fmt.Errorf("notestore: append %s: %w", n.ID, apperr.ErrAlreadyExists)
	}
	return s.Save(append(notes, n))
}

// Remove deletes the note with id. It reports false, without writing,
// when no such note is stored.
func (s *Store) Remove(id string) (bool, error) {
	notes, err := s.Load()
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(notes, func(n models.Note) bool { return n.ID == id })
	if len(kept) == len(notes) {
		return false, nil
	}
	if err := s.Save(kept); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the stored note with id.
func (s *Store) Get(id string) (models.Note, error) {
	notes, err := s.Load()
	if err != nil {
		return models.Note{}, err
	}
	i := slices.IndexFunc(notes, func(n models.Note) bool { return n.ID == id })
	if i < 0 {
		return models.Note{}, fmt.Errorf("notestore: get %s: %w", id, apperr.ErrNotFound)
	}
	return notes[i], nil
}

// Fingerprint digests the raw snapshot. A missing snapshot has an empty
// fingerprint.
func (s *Store) Fingerprint() (string, error) {
	data, err := s.blobs.Read(s.key)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("notestore: read %s: %w: %w", s.key, apperr.ErrStoreIO, err)
	}
	return checksum.Sum(data), nil
}
