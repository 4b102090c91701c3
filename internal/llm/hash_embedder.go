package llm

import (
	"context"
	"math"
	"strings"
	"unicode"

	"github.com/minio/highwayhash"
)

// hashKey is the fixed 32-byte highwayhash key; changing it changes every
// vector the HashEmbedder produces.
var hashKey = []byte("clarifyai-feature-hash-key-00001")

// HashEmbedder is a deterministic bag-of-words embedder. Each lower-cased
// token is hashed into one of dim buckets with a hash-derived sign, then the
// vector is L2-normalised. It needs no model server, which makes it useful
// for development and tests.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates an embedder producing dim-sized vectors.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

// Dimension implements Embedder.
func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed implements Embedder.
func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := highwayhash.Sum64([]byte(tok), hashKey)
		bucket := h % uint64(e.dim)
		if h>>63 == 1 {
			vec[bucket]--
		} else {
			vec[bucket]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch implements Embedder.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return vecs, nil
}
