package index

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/query"
)

// lengthColumns maps a text field to its length column in docs.
var lengthColumns = map[string]string{
	FieldTitle:   "title_len",
	FieldContent: "content_len",
}

// Add inserts doc and its postings within a transaction.
func (db *DB) Add(doc Document) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w: %w", apperr.ErrCommitFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if err := insertDoc(tx, doc); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

func insertDoc(tx *sql.Tx, doc Document) error {
	lengths, _ := analyzeDocument(0, doc)
	res, err := tx.Exec(`
		INSERT INTO docs (id, title, content, title_len, content_len)
		VALUES (?, ?, ?, ?, ?)
	`, doc.ID, doc.Title, doc.Content, lengths[FieldTitle], lengths[FieldContent])
	if err != nil {
		return fmt.Errorf("index: insert doc: %w: %w", apperr.ErrCommitFailed, err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("index: insert doc: %w: %w", apperr.ErrCommitFailed, err)
	}

	_, postings := analyzeDocument(uint64(seq), doc)
	if len(postings) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(`INSERT INTO postings (term, seq, field, freq, positions) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("index: prepare posting insert: %w: %w", apperr.ErrCommitFailed, err)
	}
	defer stmt.Close()
	for _, tp := range postings {
		pos, _ := json.Marshal(tp.Positions)
		if _, err := stmt.Exec(tp.term, seq, tp.Field, tp.Freq, string(pos)); err != nil {
			return fmt.Errorf("index: insert posting: %w: %w", apperr.ErrCommitFailed, err)
		}
	}
	return nil
}

// Delete removes every entry for id. Postings go with their docs rows.
func (db *DB) Delete(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w: %w", apperr.ErrCommitFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM postings WHERE seq IN (SELECT seq FROM docs WHERE id = ?)`, id); err != nil {
		return fmt.Errorf("index: delete postings: %w: %w", apperr.ErrCommitFailed, err)
	}
	if _, err := tx.Exec(`DELETE FROM docs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("index: delete doc: %w: %w", apperr.ErrCommitFailed, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Replace clears both tables and inserts docs in one transaction.
func (db *DB) Replace(docs []Document) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w: %w", apperr.ErrCommitFailed, err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM postings`); err != nil {
		return fmt.Errorf("index: clear postings: %w: %w", apperr.ErrCommitFailed, err)
	}
	if _, err := tx.Exec(`DELETE FROM docs`); err != nil {
		return fmt.Errorf("index: clear docs: %w: %w", apperr.ErrCommitFailed, err)
	}
	for _, doc := range docs {
		if err := insertDoc(tx, doc); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("index: commit: %w: %w", apperr.ErrCommitFailed, err)
	}
	return nil
}

// Search evaluates q against a consistent snapshot of the tables.
func (db *DB) Search(q string, limit int) ([]Hit, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // read-only

	plan := query.Parse(q, TextFields)
	scored, err := evaluate(sqlCorpus{tx: tx}, plan, db.params, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}

	hits := make([]Hit, 0, len(scored))
	for _, s := range scored {
		var h Hit
		err := tx.QueryRow(`SELECT id, title, content FROM docs WHERE seq = ?`, s.Doc).
			Scan(&h.ID, &h.Title, &h.Content)
		if err != nil {
			return nil, fmt.Errorf("index: load hit %d: %w", s.Doc, err)
		}
		h.Score = s.Score
		hits = append(hits, h)
	}
	return hits, nil
}

// Documents returns every indexed document ordered by seq.
func (db *DB) Documents() ([]Document, error) {
	rows, err := db.conn.Query(`SELECT id, title, content FROM docs ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("index: documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.Title, &d.Content); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// sqlCorpus reads postings and lengths inside a transaction.
type sqlCorpus struct {
	tx *sql.Tx
}

func (c sqlCorpus) docCount() (int, error) {
	var n int
	err := c.tx.QueryRow(`SELECT COUNT(*) FROM docs`).Scan(&n)
	return n, err
}

func (c sqlCorpus) postings(term string) ([]Posting, error) {
	rows, err := c.tx.Query(`
		SELECT seq, field, freq, positions FROM postings
		WHERE term = ? ORDER BY seq, field
	`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Posting
	for rows.Next() {
		var (
			p   Posting
			pos string
		)
		if err := rows.Scan(&p.Doc, &p.Field, &p.Freq, &pos); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(pos), &p.Positions); err != nil {
			return nil, fmt.Errorf("positions for %q: %w: %w", term, apperr.ErrIndexCorrupt, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c sqlCorpus) fieldLength(doc uint64, field string) (int, error) {
	col, ok := lengthColumns[field]
	if !ok {
		return 0, nil
	}
	var n int
	err := c.tx.QueryRow(`SELECT `+col+` FROM docs WHERE seq = ?`, doc).Scan(&n)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return n, err
}

func (c sqlCorpus) avgFieldLength(field string) (float64, error) {
	col, ok := lengthColumns[field]
	if !ok {
		return 0, nil
	}
	var avg sql.NullFloat64
	if err := c.tx.QueryRow(`SELECT AVG(` + col + `) FROM docs`).Scan(&avg); err != nil {
		return 0, err
	}
	return avg.Float64, nil
}
