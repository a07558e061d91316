// Package testutil provides shared test helpers for data directories,
// indexes and blob stores that fail on demand.
package testutil

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/starford/nnotes/internal/index"
	"github.com/starford/nnotes/internal/ranker"
	"github.com/starford/nnotes/internal/storage"
)

// ErrInjected is returned by a FailingProvider whose failure switch is on.
var ErrInjected = errors.New("injected failure")

// TestDataDir creates a temporary data directory with a storage.Provider.
func TestDataDir(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestIndex opens an inverted index under "index/" of store.
func TestIndex(t *testing.T, store storage.Provider) *index.Inverted {
	t.Helper()
	idx, err := index.OpenInverted(store, "index", ranker.DefaultParams(), Logger())
	if err != nil {
		t.Fatalf("OpenInverted: %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

// FailingProvider wraps a Provider and fails writes and deletes for keys
// under Prefix while failing is switched on.
type FailingProvider struct {
	storage.Provider
	Prefix string

	mu      sync.Mutex
	failing bool
}

// NewFailingProvider wraps p; failures apply to keys starting with prefix.
func NewFailingProvider(p storage.Provider, prefix string) *FailingProvider {
	return &FailingProvider{Provider: p, Prefix: prefix}
}

// Fail switches injected failures on or off.
func (f *FailingProvider) Fail(on bool) {
	f.mu.Lock()
	f.failing = on
	f.mu.Unlock()
}

func (f *FailingProvider) fails(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing && strings.HasPrefix(key, f.Prefix)
}

func (f *FailingProvider) Write(key string, content []byte) error {
	if f.fails(key) {
		return ErrInjected
	}
	return f.Provider.Write(key, content)
}

func (f *FailingProvider) Delete(key string) error {
	if f.fails(key) {
		return ErrInjected
	}
	return f.Provider.Delete(key)
}
