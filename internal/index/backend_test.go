package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/blevesearch/bleve/v2"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/ranker"
)

func TestSQLiteSchemaCreation(t *testing.T) {
	db := testSQLite(t)
	for _, table := range []string{"schema_info", "docs", "postings"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestSQLiteDeleteCascadesPostings(t *testing.T) {
	db := testSQLite(t)
	mustAdd(t, db, Document{ID: "a", Title: "hello", Content: "world"})
	if err := db.Delete("a"); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM postings`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("postings left behind: %d", n)
	}
}

func TestOpenSQLiteRejectsNonDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	if err := os.WriteFile(path, []byte("this is definitely not a sqlite database file, just text"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenSQLite(path, ranker.DefaultParams())
	if !errors.Is(err, apperr.ErrIndexCorrupt) {
		t.Errorf("err = %v, want ErrIndexCorrupt", err)
	}
}

func TestOpenSQLiteRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.db")
	db, err := OpenSQLite(path, ranker.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec(`UPDATE schema_info SET value = '[]' WHERE key = 'schema'`); err != nil {
		t.Fatal(err)
	}
	db.Close()

	_, err = OpenSQLite(path, ranker.DefaultParams())
	if !errors.Is(err, apperr.ErrIndexCorrupt) {
		t.Errorf("err = %v, want ErrIndexCorrupt", err)
	}
}

func TestOpenBleveRejectsCorruptMeta(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(path, "index_meta.json"), []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := OpenBleve(path, ranker.DefaultParams(), quietLogger())
	if !errors.Is(err, apperr.ErrIndexCorrupt) {
		t.Errorf("err = %v, want ErrIndexCorrupt", err)
	}
}

func TestOpenBleveRejectsForeignMapping(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bleve")
	idx, err := bleve.New(path, bleve.NewIndexMapping())
	if err != nil {
		t.Fatal(err)
	}
	idx.Close()

	_, err = OpenBleve(path, ranker.DefaultParams(), quietLogger())
	if !errors.Is(err, apperr.ErrIndexCorrupt) {
		t.Errorf("err = %v, want ErrIndexCorrupt", err)
	}
}

func TestSpanTokenizerMatchesAnalyzer(t *testing.T) {
	stream := spanTokenizer{}.Tokenize([]byte("Don't PANIC, e-mail"))
	want := []string{"don", "t", "panic", "e", "mail"}
	if len(stream) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(stream), len(want))
	}
	for i, tok := range stream {
		if string(tok.Term) != want[i] || tok.Position != i+1 {
			t.Errorf("token %d = %q@%d", i, tok.Term, tok.Position)
		}
	}
}
