// Package index provides the full-text search index for notes. The Index
// interface has three implementations: Inverted, a postings index persisted
// through a storage.Provider; DB, the same postings model kept in SQLite;
// and Bleve, backed by the bleve search library.
package index

// DefaultLimit caps search results when the caller passes no limit.
const DefaultLimit = 10

// Document is the unit of indexing. All three fields are stored so search
// results can be materialised without consulting the note store.
type Document struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Hit is a search result.
type Hit struct {
	Document
	Score float64 `json:"score"`
}

// Index defines the operations the note service needs from a search index.
// Consumers should depend on this interface rather than a concrete backend.
type Index interface {
	// Add indexes doc and commits before returning. Adding an id that is
	// already present creates a second entry; callers delete first.
	Add(doc Document) error
	// Delete removes every entry for id. Unknown ids are not an error.
	Delete(id string) error
	// Search returns at most limit hits, best first.
	Search(query string, limit int) ([]Hit, error)
	// Replace atomically swaps the whole index contents for docs.
	Replace(docs []Document) error
	// Documents returns the stored documents in insertion order.
	Documents() ([]Document, error)
	Close() error
}

// Verify the backends satisfy Index at compile time.
var (
	_ Index = (*Inverted)(nil)
	_ Index = (*DB)(nil)
	_ Index = (*Bleve)(nil)
)
