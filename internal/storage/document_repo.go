package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_store.go -package=mocks clarifyai/internal/storage DocumentStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"clarifyai/internal/apperr"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = fmt.Errorf("record %w", apperr.ErrNotFound)

// ErrDuplicate is returned by Create when the user already has a document
// with the same fingerprint.
var ErrDuplicate = errors.New("duplicate document")

// DocumentStore defines the interface for document storage operations.
type DocumentStore interface {
	// Create inserts a document row. UploadedAt is set when zero. A second
	// document with the same username and fingerprint fails with ErrDuplicate.
	Create(ctx context.Context, doc *Document) error
	// Get returns the document with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)
	// List returns documents newest first. An empty username lists all.
	List(ctx context.Context, username string) ([]Document, error)
	// Delete removes the document with id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
	// Totals counts documents, chunks and tokens.
	Totals(ctx context.Context) (Totals, error)
	// FindByFingerprint returns a document of username with the given
	// fingerprint, or ErrNotFound.
	FindByFingerprint(ctx context.Context, username, fingerprint string) (*Document, error)
}

// DocumentRepo provides methods for document operations.
// It implements the DocumentStore interface.
type DocumentRepo struct {
	db *sql.DB
}

// NewDocumentRepo creates a new DocumentRepo.
func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = "id, filename, username, fingerprint, chunk_count, token_count, index_version, uploaded_at"

// Create inserts a document row.
func (r *DocumentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Username, doc.Fingerprint,
		doc.ChunkCount, doc.TokenCount, doc.IndexVersion, doc.UploadedAt.UTC().Format(timeLayout),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// Get returns the document with id.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

// List returns documents newest first.
func (r *DocumentRepo) List(ctx context.Context, username string) ([]Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if username != "" {
		query += ` WHERE username = ?`
		args = append(args, username)
	}
	query += ` ORDER BY uploaded_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Delete removes the document with id.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Totals counts documents, chunks and tokens.
func (r *DocumentRepo) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(chunk_count), 0), COALESCE(SUM(token_count), 0) FROM documents`,
	).Scan(&t.Documents, &t.Chunks, &t.Tokens)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to count documents: %w", err)
	}
	return t, nil
}

// FindByFingerprint returns the newest document of username with fingerprint.
func (r *DocumentRepo) FindByFingerprint(ctx context.Context, username, fingerprint string) (*Document, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE username = ? AND fingerprint = ? ORDER BY uploaded_at DESC LIMIT 1`,
		username, fingerprint,
	)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query document: %w", err)
	}
	return doc, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*Document, error) {
	var (
		doc        Document
		uploadedAt string
	)
	if err := s.Scan(&doc.ID, &doc.Filename, &doc.Username, &doc.Fingerprint,
		&doc.ChunkCount, &doc.TokenCount, &doc.IndexVersion, &uploadedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, uploadedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse uploaded_at timestamp: %w", err)
	}
	doc.UploadedAt = t
	return &doc, nil
}
