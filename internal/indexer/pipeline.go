package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"clarifyai/internal/apperr"
	"clarifyai/internal/contextutil"
	"clarifyai/internal/llm"
	"clarifyai/internal/vectorstore"
)

// IngestResult describes what one ingestion wrote to the index.
type IngestResult struct {
	DocID        string          `json:"doc_id"`
	Chunks       int             `json:"chunks"`
	TotalTokens  int             `json:"total_tokens"`
	TokenStats   ChunkTokenStats `json:"token_stats"`
	IndexVersion string          `json:"index_version"`
}

// PipelineOptions configures chunking and labels the index version.
type PipelineOptions struct {
	ChunkSize      int
	Overlap        int
	EmbeddingModel string
	Logger         *slog.Logger
}

// Pipeline chunks documents, embeds the chunks and stores them in the
// vector index.
type Pipeline struct {
	chunker        *TokenChunker
	embedder       llm.Embedder
	index          vectorstore.Index
	chunkSize      int
	overlap        int
	embeddingModel string
	logger         *slog.Logger
}

// NewPipeline creates a new ingestion pipeline. A nil chunker uses the
// character heuristic.
func NewPipeline(
	chunker *TokenChunker,
	embedder llm.Embedder,
	index vectorstore.Index,
	opts PipelineOptions,
) *Pipeline {
	if chunker == nil {
		chunker = NewTokenChunker(nil)
	}
	chunkSize, overlap := normalizeParams(opts.ChunkSize, opts.Overlap)
	return &Pipeline{
		chunker:        chunker,
		embedder:       embedder,
		index:          index,
		chunkSize:      chunkSize,
		overlap:        overlap,
		embeddingModel: opts.EmbeddingModel,
		logger:         opts.Logger,
	}
}

func (p *Pipeline) getLogger(ctx context.Context) *slog.Logger {
	return contextutil.LoggerOr(ctx, p.logger)
}

// Version returns the index version produced by this pipeline's settings.
func (p *Pipeline) Version() string {
	return IndexVersion(p.chunker.Estimator().Name(), p.embeddingModel, p.chunkSize, p.overlap)
}

// Preview chunks text with the pipeline settings without embedding or
// writing anything.
func (p *Pipeline) Preview(text string) ([]Chunk, ChunkTokenStats) {
	chunks := p.chunker.Chunk(text, p.chunkSize, p.overlap)
	counts := make([]int, len(chunks))
	for i, c := range chunks {
		counts[i] = c.TokenCount
	}
	return chunks, computeTokenStats(counts)
}

// IngestText chunks text, embeds every chunk in one batch and inserts the
// records. Each record carries chunk_index, token_count and the fields of
// extra. Empty text produces no chunks and leaves the index untouched.
// If the insert fails the document's records are removed.
func (p *Pipeline) IngestText(ctx context.Context, docID, text string, extra vectorstore.Metadata) (IngestResult, error) {
	logger := p.getLogger(ctx)
	result := IngestResult{DocID: docID, IndexVersion: p.Version()}

	if docID == "" {
		return result, &apperr.ValidationError{Field: vectorstore.KeyDocID, Message: "cannot be empty"}
	}

	chunks, stats := p.Preview(text)
	if len(chunks) == 0 {
		logger.WarnContext(ctx, "no chunks generated", "doc_id", docID)
		return result, nil
	}

	texts := make([]string, len(chunks))
	metas := make([]vectorstore.Metadata, len(chunks))
	total := 0
	for i, c := range chunks {
		texts[i] = c.Text
		meta := make(vectorstore.Metadata, len(extra)+3)
		maps.Copy(meta, extra)
		meta[vectorstore.KeyChunkIndex] = int64(c.Index)
		meta[vectorstore.KeyTokenCount] = int64(c.TokenCount)
		if _, ok := meta[vectorstore.KeyFilename]; !ok {
			meta[vectorstore.KeyFilename] = ""
		}
		metas[i] = meta
		total += c.TokenCount
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return result, apperr.Classify(apperr.ErrEmbedding, err, "failed to embed chunks")
	}
	if len(vectors) != len(chunks) {
		return result, apperr.Classify(apperr.ErrEmbedding,
			fmt.Errorf("expected %d vectors, got %d", len(chunks), len(vectors)), "failed to embed chunks")
	}

	if err := p.index.Insert(ctx, docID, texts, vectors, metas); err != nil {
		if delErr := p.index.DeleteByDoc(context.WithoutCancel(ctx), docID); delErr != nil {
			logger.WarnContext(ctx, "failed to remove partial records", "doc_id", docID, "error", delErr)
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			return result, apperr.WrapError(err, "failed to insert chunks")
		}
		return result, apperr.Classify(apperr.ErrIndex, err, "failed to insert chunks")
	}

	result.Chunks = len(chunks)
	result.TotalTokens = total
	result.TokenStats = stats
	logger.InfoContext(ctx, "ingested document",
		"doc_id", docID,
		"chunks", result.Chunks,
		"total_tokens", total,
		"index_version", result.IndexVersion,
	)
	return result, nil
}

// DeleteDocument removes every indexed chunk of docID.
func (p *Pipeline) DeleteDocument(ctx context.Context, docID string) error {
	if err := p.index.DeleteByDoc(ctx, docID); err != nil {
		return apperr.Classify(apperr.ErrIndex, err, "failed to delete document chunks")
	}
	return nil
}

// DocumentChunks returns the chunk texts of docID in document order.
func (p *Pipeline) DocumentChunks(ctx context.Context, docID string) ([]string, error) {
	texts, err := p.index.ChunksByDoc(ctx, docID)
	if err != nil {
		return nil, apperr.Classify(apperr.ErrIndex, err, "failed to fetch document chunks")
	}
	return texts, nil
}

// IndexSize returns the number of records in the index.
func (p *Pipeline) IndexSize(ctx context.Context) (int, error) {
	n, err := p.index.Count(ctx)
	if err != nil {
		return 0, apperr.Classify(apperr.ErrIndex, err, "failed to count index records")
	}
	return n, nil
}
