// Package storage defines the byte-level blob store that backs the note
// snapshot and the on-disk search index.
package storage

// Provider is a key-value blob store. Keys are slash-separated paths
// relative to the store root.
type Provider interface {
	// Read returns the bytes stored under key. A missing key yields an
	// error wrapping os.ErrNotExist.
	Read(key string) ([]byte, error)
	// Write atomically replaces the bytes stored under key.
	Write(key string, content []byte) error
	// Delete removes key.
	Delete(key string) error
	// Exists reports whether key is present.
	Exists(key string) (bool, error)
}
