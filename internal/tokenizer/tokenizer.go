// Package tokenizer estimates how many model tokens a span of text costs.
//
// Two strategies are available: an exact byte-pair encoder matching the
// target model vocabulary, and a character heuristic used whenever the
// encoder cannot be initialised.
package tokenizer

import (
	"log/slog"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE vocabulary used by current OpenAI-style models.
const DefaultEncoding = "cl100k_base"

// CharsPerToken is the ratio used by the heuristic estimator.
const CharsPerToken = 4

// Estimator counts tokens. Implementations are deterministic and safe for
// concurrent use.
type Estimator interface {
	Count(text string) int
	Name() string
}

// Heuristic estimates ceil(characters / 4).
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + CharsPerToken - 1) / CharsPerToken
}

func (Heuristic) Name() string { return "heuristic" }

// BPE counts tokens with a tiktoken encoding.
type BPE struct {
	encoding string
	enc      *tiktoken.Tiktoken
}

// NewBPE loads the named encoding. The BPE ranks are fetched once and cached
// under TIKTOKEN_CACHE_DIR when that variable is set.
func NewBPE(encoding string) (*BPE, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, err
	}
	return &BPE{encoding: encoding, enc: enc}, nil
}

func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(b.enc.Encode(text, nil, nil))
}

func (b *BPE) Name() string { return b.encoding }

// New returns the exact estimator for encoding, or the heuristic when the
// encoder is unavailable. It never fails.
func New(encoding string) Estimator {
	if encoding == "" || encoding == (Heuristic{}).Name() {
		return Heuristic{}
	}
	bpe, err := NewBPE(encoding)
	if err != nil {
		slog.Debug("tokenizer unavailable, using heuristic", "encoding", encoding, "error", err)
		return Heuristic{}
	}
	return bpe
}
