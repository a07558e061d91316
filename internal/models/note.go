// Package models defines the domain types for nnotes.
package models

// Note is a single record in the note store.
type Note struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}
