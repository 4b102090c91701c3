package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_history_store.go -package=mocks clarifyai/internal/storage HistoryStore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DefaultHistoryLimit caps List when the caller passes no limit.
const DefaultHistoryLimit = 100

// HistoryStore defines the interface for query history operations.
type HistoryStore interface {
	// Append stores entry, assigning an ID and CreatedAt when unset.
	Append(ctx context.Context, entry *HistoryEntry) error
	// List returns the entries of username oldest first, at most limit.
	List(ctx context.Context, username string, limit int) ([]HistoryEntry, error)
}

// HistoryRepo provides methods for history operations.
// It implements the HistoryStore interface.
type HistoryRepo struct {
	db *sql.DB
}

// NewHistoryRepo creates a new HistoryRepo.
func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

// Append stores entry.
func (r *HistoryRepo) Append(ctx context.Context, entry *HistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	contextUsed, err := json.Marshal(nonNil(entry.ContextUsed))
	if err != nil {
		return fmt.Errorf("failed to encode context: %w", err)
	}
	sources, err := json.Marshal(nonNil(entry.Sources))
	if err != nil {
		return fmt.Errorf("failed to encode sources: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO history (id, username, query, answer, context_used, sources, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.Username, entry.Query, entry.Answer, string(contextUsed), string(sources), entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// List returns the most recent entries of username, oldest first.
func (r *HistoryRepo) List(ctx context.Context, username string, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, query, answer, context_used, sources, created_at FROM (
			SELECT * FROM history WHERE username = ? ORDER BY created_at DESC, id DESC LIMIT ?
		) ORDER BY created_at, id`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var (
			e                    HistoryEntry
			contextUsed, sources string
			createdAt            string
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Query, &e.Answer, &contextUsed, &sources, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(contextUsed), &e.ContextUsed); err != nil {
			return nil, fmt.Errorf("failed to decode context: %w", err)
		}
		if err := json.Unmarshal([]byte(sources), &e.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
		if e.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse created_at timestamp: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
