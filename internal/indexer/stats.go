package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
)

// ChunkerVersion identifies the chunking algorithm. Bump it when boundaries
// produced for the same input change.
const ChunkerVersion = "tokenwindow-v1"

// ChunkTokenStats summarises the token counts of a set of chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// computeTokenStats computes min, max, mean and nearest-rank p95.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	rank := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	if rank < 0 {
		rank = 0
	}

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100,
		P95:  sorted[rank],
	}
}

// IndexVersion fingerprints everything that decides what lands in the index:
// chunker, tokenizer, embedding model and chunk parameters. Two ingestions with
// different versions should not be mixed in one index.
func IndexVersion(tokenizerName, embeddingModel string, chunkSize, overlap int) string {
	chunkSize, overlap = normalizeParams(chunkSize, overlap)
	input := fmt.Sprintf("%s|%s|%s|size=%d|overlap=%d",
		ChunkerVersion, tokenizerName, embeddingModel, chunkSize, overlap)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])[:16]
}
