// Package snapshot persists validation runs to SQLite for the serving layer.
// The core pipeline never touches it; every run is written wholesale and the
// newest run is the one the API reads.
package snapshot

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// keepRuns bounds the run history; older runs are pruned on save.
const keepRuns = 20

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	corpus_digest TEXT NOT NULL,
	documents     INTEGER NOT NULL,
	links         INTEGER NOT NULL,
	broken        INTEGER NOT NULL,
	orphans       INTEGER NOT NULL,
	result_json   TEXT NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS documents (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	doc_id     TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	path       TEXT NOT NULL,
	category   TEXT NOT NULL DEFAULT 'note',
	relates_to TEXT NOT NULL DEFAULT '',
	aliases    TEXT NOT NULL DEFAULT '[]',
	tags       TEXT NOT NULL DEFAULT '[]',
	UNIQUE(run_id, doc_id)
);

CREATE TABLE IF NOT EXISTS links (
	run_id     INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	source_id  TEXT NOT NULL,
	raw_target TEXT NOT NULL,
	target_id  TEXT NOT NULL DEFAULT '',
	link_type  TEXT NOT NULL,
	status     TEXT NOT NULL,
	line       INTEGER NOT NULL,
	col        INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_run ON documents(run_id, doc_id);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(run_id, target_id, status);
`

// Store wraps a sql.DB with snapshot-specific operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("snapshot: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("snapshot: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
