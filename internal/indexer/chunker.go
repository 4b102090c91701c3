package indexer

import (
	"strings"

	"clarifyai/internal/tokenizer"
)

const (
	// DefaultChunkSize is the token budget of a chunk.
	DefaultChunkSize = 400
	// DefaultOverlap is the token budget carried from the end of one chunk
	// to the start of the next.
	DefaultOverlap = 75
)

// TokenChunker splits text into overlapping windows of whole words whose
// token cost stays within a budget.
type TokenChunker struct {
	estimator tokenizer.Estimator
}

// NewTokenChunker creates a chunker that costs words with estimator.
// A nil estimator selects the character heuristic.
func NewTokenChunker(estimator tokenizer.Estimator) *TokenChunker {
	if estimator == nil {
		estimator = tokenizer.Heuristic{}
	}
	return &TokenChunker{estimator: estimator}
}

// Estimator returns the token estimator used for every chunking call.
func (c *TokenChunker) Estimator() tokenizer.Estimator {
	return c.estimator
}

// normalizeParams applies defaults and keeps overlap strictly below chunkSize.
func normalizeParams(chunkSize, overlap int) (int, int) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}
	return chunkSize, overlap
}

// Chunk splits text on whitespace and greedily packs words into chunks of at
// most chunkSize tokens. Each new chunk starts with the longest suffix of the
// previous chunk that fits in overlap tokens. A word that alone exceeds
// chunkSize becomes a chunk of its own. Empty input yields no chunks.
func (c *TokenChunker) Chunk(text string, chunkSize, overlap int) []Chunk {
	chunkSize, overlap = normalizeParams(chunkSize, overlap)

	words := strings.Fields(text)
	if len(words) == 0 {
		return []Chunk{}
	}
	costs := make([]int, len(words))
	for i, w := range words {
		costs[i] = c.estimator.Count(w)
	}

	var (
		chunks []Chunk
		buf    []int // indexes into words
		total  int
		fresh  int // words in buf not carried over from the previous chunk
	)

	emit := func() {
		parts := make([]string, len(buf))
		for i, wi := range buf {
			parts[i] = words[wi]
		}
		chunks = append(chunks, Chunk{
			Text:       strings.Join(parts, " "),
			Index:      len(chunks),
			TokenCount: total,
		})
	}

	// seed rebuilds buf from the tail of the chunk just emitted.
	seed := func() {
		prev := buf
		buf, total, fresh = nil, 0, 0
		if overlap == 0 {
			return
		}
		start := len(prev)
		for i := len(prev) - 1; i >= 0; i-- {
			if total+costs[prev[i]] > overlap {
				break
			}
			total += costs[prev[i]]
			start = i
		}
		buf = append([]int(nil), prev[start:]...)
	}

	for i := 0; i < len(words); {
		cost := costs[i]
		if total+cost <= chunkSize {
			buf = append(buf, i)
			total += cost
			fresh++
			i++
			continue
		}

		switch {
		case len(buf) == 0:
			// Oversized word: keep it whole in its own chunk.
			buf = []int{i}
			total = cost
			emit()
			seed()
			i++
		case fresh == 0:
			// Shorten the carried overlap from the front until the next
			// word fits.
			for len(buf) > 0 && total+cost > chunkSize {
				total -= costs[buf[0]]
				buf = buf[1:]
			}
		default:
			emit()
			seed()
		}
	}

	if fresh > 0 {
		emit()
	}
	return chunks
}
