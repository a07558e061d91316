package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/nnotes/internal/apperr"
	"github.com/starford/nnotes/internal/ranker"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS schema_info (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS docs (
	seq         INTEGER PRIMARY KEY AUTOINCREMENT,
	id          TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	content     TEXT NOT NULL DEFAULT '',
	title_len   INTEGER NOT NULL DEFAULT 0,
	content_len INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS postings (
	term      TEXT NOT NULL,
	seq       INTEGER NOT NULL REFERENCES docs(seq) ON DELETE CASCADE,
	field     TEXT NOT NULL,
	freq      INTEGER NOT NULL,
	positions TEXT NOT NULL DEFAULT '[]',
	PRIMARY KEY (term, seq, field)
);

CREATE INDEX IF NOT EXISTS idx_docs_id ON docs(id);
CREATE INDEX IF NOT EXISTS idx_postings_seq ON postings(seq);
`

// DB is the postings index kept in SQLite. Every mutation runs in one
// transaction, so a failed commit leaves the previous contents.
type DB struct {
	conn   *sql.DB
	params ranker.Params
}

// OpenSQLite opens (or creates) the SQLite index at dsn and checks that the
// stored field schema matches Schema.
func OpenSQLite(dsn string, params ranker.Params) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w: %w", apperr.ErrIndexCorrupt, err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w: %w", apperr.ErrIndexCorrupt, err)
	}
	if err := checkStoredSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn, params: params}, nil
}

func checkStoredSchema(conn *sql.DB) error {
	var raw string
	err := conn.QueryRow(`SELECT value FROM schema_info WHERE key = 'schema'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		data, _ := json.Marshal(Schema)
		if _, err := conn.Exec(`INSERT INTO schema_info (key, value) VALUES ('schema', ?)`, string(data)); err != nil {
			return fmt.Errorf("index: write schema: %w: %w", apperr.ErrCommitFailed, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("index: read schema: %w: %w", apperr.ErrIndexCorrupt, err)
	}

	var fields []Field
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return fmt.Errorf("index: parse schema: %w: %w", apperr.ErrIndexCorrupt, err)
	}
	if !schemaMatches(fields) {
		return fmt.Errorf("index: schema mismatch: %w", apperr.ErrIndexCorrupt)
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
