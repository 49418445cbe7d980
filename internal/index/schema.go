// Package index is the SQLite store behind tagfs: tags, files and the
// assignments between them. Read queries serve the resolution engine; the
// mutation methods serve the command line and the location watcher.
package index

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"tagfs/internal/logging"
)

var (
	indexLogger = logging.GetLogger().WithPrefix("index")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tags (
	tag_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	tag_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS files (
	file_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	file_name     TEXT NOT NULL,
	file_location TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS file_tags (
	file_id INTEGER NOT NULL REFERENCES files(file_id) ON DELETE CASCADE,
	tag_id  INTEGER NOT NULL REFERENCES tags(tag_id),
	PRIMARY KEY (file_id, tag_id)
);

CREATE INDEX IF NOT EXISTS idx_file_tags_tag ON file_tags(tag_id, file_id);
`

// Tag is a named label. IDs are assigned by the database.
type Tag struct {
	ID   int64
	Name string
}

// File is a tagged file: Name is its entry name in the mounted tree and
// Location its absolute path on the underlying filesystem.
type File struct {
	ID       int64
	Name     string
	Location string
}

// DB wraps a sql.DB with tag index operations. Its read queries run on the
// connection pool; use ReadTx to group them.
type DB struct {
	Reader
	conn *sql.DB
}

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	indexLogger.Debug("Opening tag database: %s", path)
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply schema: %w", err)
	}
	indexLogger.Info("Tag database ready: %s", path)
	return New(conn), nil
}

// New wraps an already opened connection. The schema is not applied.
func New(conn *sql.DB) *DB {
	return &DB{Reader: Reader{q: conn}, conn: conn}
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database still answers.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}
