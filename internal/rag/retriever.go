// Package rag retrieves document chunks relevant to a question and builds
// the prompts sent to the generation chain.
package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_retriever.go -package=mocks clarifyai/internal/rag Searcher

import (
	"context"
	"log/slog"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
	"clarifyai/internal/llm"
	"clarifyai/internal/vectorstore"
)

// DefaultTopK is the number of chunks retrieved when the caller asks for
// zero or fewer.
const DefaultTopK = 4

// Searcher returns the chunks closest to a query.
type Searcher interface {
	Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Result, error)
}

// Retriever embeds a query and searches every document in the index.
type Retriever struct {
	embedder llm.Embedder
	index    vectorstore.Index
	logger   *slog.Logger
}

// NewRetriever creates a new retriever.
func NewRetriever(embedder llm.Embedder, index vectorstore.Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// WithLogger sets the logger used when the request context carries none.
func (r *Retriever) WithLogger(logger *slog.Logger) *Retriever {
	r.logger = logger
	return r
}

// Retrieve returns at most topK chunks ordered by ascending distance.
// An empty index yields an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]vectorstore.Result, error) {
	logger := contextutil.LoggerOr(ctx, r.logger)
	if topK <= 0 {
		topK = DefaultTopK
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrEmbedding, err, "failed to embed query")
	}

	results, err := r.index.Query(ctx, vec, topK, "")
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to search index")
	}
	if results == nil {
		results = []vectorstore.Result{}
	}

	logger.DebugContext(ctx, "retrieval completed", "top_k", topK, "results", len(results))
	return results, nil
}
