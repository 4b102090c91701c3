package storage

import "time"

// timeLayout is how timestamps are stored; it sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Document is an uploaded file whose chunks live in the vector index.
type Document struct {
	ID           string    `json:"doc_id"`
	Filename     string    `json:"filename"`
	Username     string    `json:"username"`
	Fingerprint  string    `json:"fingerprint"` // highwayhash of the extracted text
	ChunkCount   int       `json:"chunks"`
	TokenCount   int       `json:"tokens"`
	IndexVersion string    `json:"index_version"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// HistoryEntry is one answered question.
type HistoryEntry struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Query       string    `json:"query"`
	Answer      string    `json:"answer"`
	ContextUsed []string  `json:"context_used"`
	Sources     []string  `json:"sources"`
	CreatedAt   time.Time `json:"timestamp"`
}

// Totals aggregates the documents table.
type Totals struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
	Tokens    int `json:"tokens"`
}
