package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"clarifyai/internal/apperr"
	"clarifyai/internal/llm"
	llm_mocks "clarifyai/internal/llm/mocks"
	"clarifyai/internal/vectorstore"
	vectorstore_mocks "clarifyai/internal/vectorstore/mocks"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%03d", i%1000)
	}
	return strings.Join(w, " ")
}

func fakeVectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{1, float32(i)}
	}
	return out
}

func TestNewPipeline_Defaults(t *testing.T) {
	p := NewPipeline(nil, nil, nil, PipelineOptions{})
	if p.chunker == nil {
		t.Fatal("NewPipeline() chunker should not be nil")
	}
	if p.chunkSize != DefaultChunkSize || p.overlap != DefaultOverlap {
		t.Errorf("params = %d/%d, want %d/%d", p.chunkSize, p.overlap, DefaultChunkSize, DefaultOverlap)
	}
	if p.Version() != IndexVersion("heuristic", "", DefaultChunkSize, DefaultOverlap) {
		t.Errorf("Version() = %s", p.Version())
	}
}

func TestPipeline_IngestText(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	index := vectorstore_mocks.NewMockIndex(ctrl)

	p := NewPipeline(nil, embedder, index, PipelineOptions{ChunkSize: 10, Overlap: 2, EmbeddingModel: "m", Logger: quietLogger()})
	text := words(25)

	embedder.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
			return fakeVectors(len(texts)), nil
		})
	index.EXPECT().Insert(gomock.Any(), "doc-1", gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, texts []string, vectors [][]float32, metas []vectorstore.Metadata) error {
			if len(texts) != len(vectors) || len(texts) != len(metas) {
				t.Fatalf("length mismatch %d/%d/%d", len(texts), len(vectors), len(metas))
			}
			for i, m := range metas {
				if idx, _ := m.Int(vectorstore.KeyChunkIndex); idx != int64(i) {
					t.Errorf("metas[%d] chunk_index = %d", i, idx)
				}
				if _, ok := m.Int(vectorstore.KeyTokenCount); !ok {
					t.Errorf("metas[%d] missing token_count", i)
				}
				if m.String(vectorstore.KeyFilename) != "a.txt" {
					t.Errorf("metas[%d] filename = %q", i, m.String(vectorstore.KeyFilename))
				}
				if m.String("username") != "alice" {
					t.Errorf("metas[%d] username = %q", i, m.String("username"))
				}
			}
			return nil
		})

	res, err := p.IngestText(context.Background(), "doc-1", text, vectorstore.Metadata{
		vectorstore.KeyFilename: "a.txt",
		"username":              "alice",
	})
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if res.Chunks != 3 {
		t.Errorf("Chunks = %d, want 3", res.Chunks)
	}
	if res.TokenStats.Max > 10 {
		t.Errorf("TokenStats.Max = %d, want <= 10", res.TokenStats.Max)
	}
	if res.IndexVersion != p.Version() {
		t.Errorf("IndexVersion = %s, want %s", res.IndexVersion, p.Version())
	}
}

func TestPipeline_IngestText_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	embedder := llm_mocks.NewMockEmbedder(ctrl)
	index := vectorstore_mocks.NewMockIndex(ctrl)
	p := NewPipeline(nil, embedder, index, PipelineOptions{Logger: quietLogger()})

	res, err := p.IngestText(context.Background(), "doc-1", "   \n\t ", nil)
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if res.Chunks != 0 {
		t.Errorf("Chunks = %d, want 0", res.Chunks)
	}
}

func TestPipeline_IngestText_Errors(t *testing.T) {
	tests := []struct {
		name    string
		docID   string
		setup   func(e *llm_mocks.MockEmbedder, i *vectorstore_mocks.MockIndex)
		wantErr error
	}{
		{
			name:    "empty doc id",
			docID:   "",
			setup:   func(*llm_mocks.MockEmbedder, *vectorstore_mocks.MockIndex) {},
			wantErr: apperr.ErrInvalidInput,
		},
		{
			name:  "embedding fails",
			docID: "d",
			setup: func(e *llm_mocks.MockEmbedder, _ *vectorstore_mocks.MockIndex) {
				e.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return(nil, errors.New("model down"))
			},
			wantErr: apperr.ErrEmbedding,
		},
		{
			name:  "embedding count mismatch",
			docID: "d",
			setup: func(e *llm_mocks.MockEmbedder, _ *vectorstore_mocks.MockIndex) {
				e.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return(fakeVectors(1), nil)
			},
			wantErr: apperr.ErrEmbedding,
		},
		{
			name:  "insert fails and partial state is removed",
			docID: "d",
			setup: func(e *llm_mocks.MockEmbedder, i *vectorstore_mocks.MockIndex) {
				e.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, texts []string) ([][]float32, error) {
						return fakeVectors(len(texts)), nil
					})
				gomock.InOrder(
					i.EXPECT().Insert(gomock.Any(), "d", gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full")),
					i.EXPECT().DeleteByDoc(gomock.Any(), "d").Return(nil),
				)
			},
			wantErr: apperr.ErrIndex,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			embedder := llm_mocks.NewMockEmbedder(ctrl)
			index := vectorstore_mocks.NewMockIndex(ctrl)
			tt.setup(embedder, index)

			p := NewPipeline(nil, embedder, index, PipelineOptions{ChunkSize: 10, Overlap: 2, Logger: quietLogger()})
			_, err := p.IngestText(context.Background(), tt.docID, words(25), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("IngestText() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// Ingests through the real SQLite index and hash embedder, then reads the
// document back.
func TestPipeline_EndToEnd(t *testing.T) {
	index, err := vectorstore.OpenSQLiteIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenSQLiteIndex() error = %v", err)
	}
	defer index.Close()

	p := NewPipeline(nil, llm.NewHashEmbedder(64), index, PipelineOptions{Logger: quietLogger()})
	ctx := context.Background()

	res, err := p.IngestText(ctx, "doc-900", words(900), vectorstore.Metadata{vectorstore.KeyFilename: "big.txt"})
	if err != nil {
		t.Fatalf("IngestText() error = %v", err)
	}
	if res.Chunks != 3 {
		t.Fatalf("Chunks = %d, want 3", res.Chunks)
	}

	texts, err := p.DocumentChunks(ctx, "doc-900")
	if err != nil {
		t.Fatalf("DocumentChunks() error = %v", err)
	}
	if len(texts) != 3 {
		t.Fatalf("DocumentChunks() = %d texts, want 3", len(texts))
	}
	if !strings.HasPrefix(texts[0], "w000 w001") {
		t.Errorf("first chunk starts %q", texts[0][:20])
	}

	n, err := p.IndexSize(ctx)
	if err != nil || n != 3 {
		t.Errorf("IndexSize() = %d, %v, want 3", n, err)
	}

	if err := p.DeleteDocument(ctx, "doc-900"); err != nil {
		t.Fatalf("DeleteDocument() error = %v", err)
	}
	if texts, _ := p.DocumentChunks(ctx, "doc-900"); len(texts) != 0 {
		t.Errorf("chunks after delete = %d, want 0", len(texts))
	}
}
