package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
)

// IndexFileName is the database file kept inside the index directory.
const IndexFileName = "index.db"

// SQLiteIndex is an Index persisted in a SQLite file. Queries scan the
// candidate vectors and rank them by exact cosine distance.
type SQLiteIndex struct {
	db  *sql.DB
	dir string
	// mu makes writers exclusive so a query never interleaves with half of
	// an insert or delete.
	mu sync.RWMutex
}

// OpenSQLiteIndex opens (creating when needed) the index stored in dir.
func OpenSQLiteIndex(dir string) (*SQLiteIndex, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to create index directory")
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL",
		filepath.Join(dir, IndexFileName))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to open index")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to open index")
	}

	idx := &SQLiteIndex{db: db, dir: dir}
	if err := idx.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (s *SQLiteIndex) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS records (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT NOT NULL,
			vector BLOB NOT NULL,
			dim INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_records_doc ON records (doc_id, chunk_index);`,
		`CREATE TABLE IF NOT EXISTS index_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to migrate index")
		}
	}
	return nil
}

// Dir returns the directory holding the index files.
func (s *SQLiteIndex) Dir() string { return s.dir }

// Close releases the database handle.
func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// Insert implements Index. The batch is written in a single transaction.
func (s *SQLiteIndex) Insert(ctx context.Context, docID string, texts []string, vectors [][]float32, metas []Metadata) error {
	logger := contextutil.LoggerFromContext(ctx)

	records, err := prepareRecords(docID, texts, vectors, metas)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	dim := len(records[0].Vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to begin insert")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := ensureDimension(ctx, tx, dim); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, doc_id, chunk_index, text, metadata, vector, dim)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		 doc_id = excluded.doc_id, chunk_index = excluded.chunk_index, text = excluded.text,
		 metadata = excluded.metadata, vector = excluded.vector, dim = excluded.dim`)
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to prepare insert")
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, rec := range records {
		meta, err := json.Marshal(rec.Metadata)
		if err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to encode metadata")
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, docID, i, rec.Text, string(meta), encodeVector(rec.Vector), dim); err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to insert record "+rec.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to commit insert")
	}

	logger.DebugContext(ctx, "inserted records", "doc_id", docID, "count", len(records))
	return nil
}

// ensureDimension pins the index dimension on first write and rejects
// vectors of any other size while records remain. An empty index takes the
// dimension of the next write, so switching embedding models only needs
// every document deleted.
func ensureDimension(ctx context.Context, tx *sql.Tx, dim int) error {
	var stored string
	err := tx.QueryRowContext(ctx, "SELECT value FROM index_meta WHERE key = 'dimension'").Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := tx.ExecContext(ctx, "INSERT INTO index_meta (key, value) VALUES ('dimension', ?)", strconv.Itoa(dim)); err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to record dimension")
		}
		return nil
	}
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to read dimension")
	}
	if stored == strconv.Itoa(dim) {
		return nil
	}

	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to count records")
	}
	if n == 0 {
		if _, err := tx.ExecContext(ctx, "UPDATE index_meta SET value = ? WHERE key = 'dimension'", strconv.Itoa(dim)); err != nil {
			return apperr.Classify(apperr.ErrIndex, err, "failed to record dimension")
		}
		return nil
	}
	return fmt.Errorf("%w: vector dimension %d does not match index dimension %s", apperr.ErrIndex, dim, stored)
}

// Query implements Index.
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, topK int, docID string) ([]Result, error) {
	if topK <= 0 {
		return nil, &apperr.ValidationError{Field: "top_k", Message: "must be greater than 0"}
	}
	if len(vector) == 0 {
		return nil, &apperr.ValidationError{Field: "vector", Message: "cannot be empty"}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, text, metadata, vector, dim FROM records"
	var args []any
	if docID != "" {
		query += " WHERE doc_id = ?"
		args = append(args, docID)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to query index")
	}
	defer func() {
		_ = rows.Close()
	}()

	results := []Result{}
	for rows.Next() {
		var (
			id, text, meta string
			blob           []byte
			dim            int
		)
		if err := rows.Scan(&id, &text, &meta, &blob, &dim); err != nil {
			return nil, apperr.Classify(apperr.ErrIndex, err, "failed to scan record")
		}
		if dim != len(vector) {
			return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d", apperr.ErrIndex, len(vector), dim)
		}
		md, err := decodeMetadata(meta)
		if err != nil {
			return nil, apperr.Classify(apperr.ErrIndex, err, "failed to decode metadata of "+id)
		}
		d := cosineDistance(vector, decodeVector(blob))
		results = append(results, Result{ID: id, Text: text, Metadata: md, Distance: &d})
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "row iteration error")
	}

	sort.SliceStable(results, func(i, j int) bool {
		if *results[i].Distance != *results[j].Distance {
			return *results[i].Distance < *results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// DeleteByDoc implements Index.
func (s *SQLiteIndex) DeleteByDoc(ctx context.Context, docID string) error {
	logger := contextutil.LoggerFromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE doc_id = ?", docID)
	if err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to delete records")
	}
	n, _ := res.RowsAffected()
	logger.DebugContext(ctx, "deleted records", "doc_id", docID, "count", n)
	return nil
}

// ChunksByDoc implements Index.
func (s *SQLiteIndex) ChunksByDoc(ctx context.Context, docID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT text FROM records WHERE doc_id = ? ORDER BY chunk_index, id", docID)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to fetch chunks")
	}
	defer func() {
		_ = rows.Close()
	}()

	texts := []string{}
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, apperr.Classify(apperr.ErrIndex, err, "failed to scan chunk")
		}
		texts = append(texts, text)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "row iteration error")
	}
	return texts, nil
}

// Count implements Index.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM records").Scan(&n); err != nil {
		return 0, apperr.Classify(apperr.ErrIndex, err, "failed to count records")
	}
	return n, nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}

func decodeMetadata(raw string) (Metadata, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return Metadata(m).Normalize()
}
