package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks clarifyai/internal/llm Embedder

import (
	"context"
	"fmt"
	"sync"

	"clarifyai/internal/apperr"
)

// Embedder maps text to fixed-dimension dense vectors.
//
// EmbedBatch returns one vector per input in input order; an empty batch
// returns an empty result without calling the model. Implementations must
// be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// LockedEmbedder serializes calls to an embedder whose backend cannot run
// concurrently. Only the embedding call itself holds the lock.
type LockedEmbedder struct {
	mu    sync.Mutex
	inner Embedder
}

// NewLockedEmbedder wraps inner.
func NewLockedEmbedder(inner Embedder) *LockedEmbedder {
	return &LockedEmbedder{inner: inner}
}

func (e *LockedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.Embed(ctx, text)
}

func (e *LockedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inner.EmbedBatch(ctx, texts)
}

func (e *LockedEmbedder) Dimension() int { return e.inner.Dimension() }

// embedOne runs a single text through batch.
func embedOne(ctx context.Context, batch func(context.Context, []string) ([][]float32, error), text string) ([]float32, error) {
	vecs, err := batch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", apperr.ErrEmbedding, len(vecs))
	}
	return vecs[0], nil
}

// checkVectors validates count and dimension of a model response.
func checkVectors(vecs [][]float32, want, dim int) error {
	if len(vecs) != want {
		return fmt.Errorf("%w: expected %d embeddings, got %d", apperr.ErrEmbedding, want, len(vecs))
	}
	for i, v := range vecs {
		if len(v) != dim {
			return fmt.Errorf("%w: embedding %d has size %d, expected %d", apperr.ErrEmbedding, i, len(v), dim)
		}
	}
	return nil
}
