package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks clarifyai/internal/vectorstore Index

import (
	"context"
	"fmt"
)

// Index stores chunk embeddings grouped by document and answers nearest
// neighbour queries by cosine distance.
//
// Implementations are safe for concurrent use. Insert and DeleteByDoc are
// durable when they return.
type Index interface {
	// Insert stores one record per text. texts, vectors and metas must have
	// equal length; record i gets id RecordID(docID, i) and doc_id merged into
	// its metadata. Records with the same id are replaced.
	Insert(ctx context.Context, docID string, texts []string, vectors [][]float32, metas []Metadata) error

	// Query returns at most topK records ordered by ascending cosine distance.
	// An empty docID searches every document.
	Query(ctx context.Context, vector []float32, topK int, docID string) ([]Result, error)

	// DeleteByDoc removes every record of docID. Deleting an unknown document
	// is not an error.
	DeleteByDoc(ctx context.Context, docID string) error

	// ChunksByDoc returns the stored texts of docID ordered by chunk_index.
	ChunksByDoc(ctx context.Context, docID string) ([]string, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// Record is a stored chunk.
type Record struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata Metadata
}

// Result is a record returned by Query. Distance is nil when the backend
// cannot report one.
type Result struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance *float64 `json:"distance,omitempty"`
}

// RecordID derives the id of chunk index of docID.
func RecordID(docID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", docID, index)
}
