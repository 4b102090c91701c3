package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// New opens the metadata database at path. WAL lets history and document
// reads proceed during an upload; writers wait up to the busy timeout.
func New(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, nil
}

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		username TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		chunk_count INTEGER NOT NULL DEFAULT 0,
		token_count INTEGER NOT NULL DEFAULT 0,
		index_version TEXT NOT NULL DEFAULT '',
		uploaded_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_username ON documents(username, uploaded_at)`,
	`DROP INDEX IF EXISTS idx_documents_fingerprint`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_documents_user_fingerprint ON documents(username, fingerprint)`,
	`CREATE TABLE IF NOT EXISTS history (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		query TEXT NOT NULL,
		answer TEXT NOT NULL,
		context_used TEXT NOT NULL DEFAULT '[]',
		sources TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_username ON history(username, created_at)`,
}

// Migrate creates the documents and history tables in one transaction.
// Running it again is a no-op.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	return tx.Commit()
}
