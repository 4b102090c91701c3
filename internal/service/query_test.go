package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"clarifyai/internal/apperr"
	"clarifyai/internal/llm"
	"clarifyai/internal/rag"
	rag_mocks "clarifyai/internal/rag/mocks"
	"clarifyai/internal/service"
	"clarifyai/internal/service/mocks"
	"clarifyai/internal/storage"
	storage_mocks "clarifyai/internal/storage/mocks"
	"clarifyai/internal/vectorstore"
)

type queryDeps struct {
	searcher  *rag_mocks.MockSearcher
	generator *mocks.MockGenerator
	history   *storage_mocks.MockHistoryStore
}

func newQueryService(t *testing.T) (service.QueryService, queryDeps) {
	ctrl := gomock.NewController(t)
	d := queryDeps{
		searcher:  rag_mocks.NewMockSearcher(ctrl),
		generator: mocks.NewMockGenerator(ctrl),
		history:   storage_mocks.NewMockHistoryStore(ctrl),
	}
	return service.NewQueryService(d.searcher, d.generator, d.history, 0, 0), d
}

var retrieved = []vectorstore.Result{
	{ID: "d_chunk_0", Text: "Revenue grew 12%.", Metadata: vectorstore.Metadata{vectorstore.KeyFilename: "q3.pdf"}},
	{ID: "e_chunk_4", Text: "Costs were flat.", Metadata: vectorstore.Metadata{}},
}

func TestQueryService_Ask(t *testing.T) {
	svc, d := newQueryService(t)

	d.searcher.EXPECT().Retrieve(gomock.Any(), "How did revenue change?", rag.DefaultTopK).Return(retrieved, nil)
	d.generator.EXPECT().GenerateWithAttempts(gomock.Any(), gomock.Any(), service.DefaultMaxTokens).
		DoAndReturn(func(_ context.Context, prompt string, _ int) (string, []llm.Attempt, error) {
			if !strings.Contains(prompt, "Revenue grew 12%.\n\nCosts were flat.") {
				t.Errorf("prompt missing context: %q", prompt)
			}
			return "It grew 12%.", []llm.Attempt{{Provider: "groq", Err: errors.New("429")}, {Provider: "gemini"}}, nil
		})
	d.history.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *storage.HistoryEntry) error {
			if e.Username != "alice" || e.Answer != "It grew 12%." || len(e.Sources) != 2 {
				t.Errorf("history entry = %+v", e)
			}
			return nil
		})

	got, err := svc.Ask(testContext(), service.QueryRequest{Username: "alice", Query: "  How did revenue change?  "})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Answer != "It grew 12%." {
		t.Errorf("Answer = %q", got.Answer)
	}
	if got.Provider != "gemini" {
		t.Errorf("Provider = %q, want gemini", got.Provider)
	}
	if len(got.ContextUsed) != 2 || got.Sources[0] != "q3.pdf" || got.Sources[1] != rag.UnknownSource {
		t.Errorf("context = %v, sources = %v", got.ContextUsed, got.Sources)
	}
}

func TestQueryService_Ask_NothingFound(t *testing.T) {
	svc, d := newQueryService(t)
	d.searcher.EXPECT().Retrieve(gomock.Any(), "q", 7).Return([]vectorstore.Result{}, nil)

	got, err := svc.Ask(testContext(), service.QueryRequest{Username: "alice", Query: "q", TopK: 7})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Answer != rag.NotFoundAnswer {
		t.Errorf("Answer = %q, want %q", got.Answer, rag.NotFoundAnswer)
	}
	if got.ContextUsed == nil || got.Sources == nil {
		t.Error("ContextUsed and Sources should be empty, not nil")
	}
}

func TestQueryService_Ask_ProvidersDown(t *testing.T) {
	svc, d := newQueryService(t)
	d.searcher.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(retrieved, nil)
	d.generator.EXPECT().GenerateWithAttempts(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", []llm.Attempt{{Provider: "groq", Err: errors.New("down")}}, apperr.ErrExternalService)
	d.history.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("db locked"))

	got, err := svc.Ask(testContext(), service.QueryRequest{Username: "alice", Query: "q"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if got.Answer != rag.UnavailableAnswer {
		t.Errorf("Answer = %q, want %q", got.Answer, rag.UnavailableAnswer)
	}
	if got.Provider != "" {
		t.Errorf("Provider = %q, want empty", got.Provider)
	}
}

func TestQueryService_Ask_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     service.QueryRequest
		setup   func(d queryDeps)
		wantErr error
	}{
		{name: "empty query", req: service.QueryRequest{Username: "a", Query: "   "}, setup: func(queryDeps) {}, wantErr: apperr.ErrInvalidInput},
		{name: "empty username", req: service.QueryRequest{Query: "q"}, setup: func(queryDeps) {}, wantErr: apperr.ErrInvalidInput},
		{
			name: "retrieval fails",
			req:  service.QueryRequest{Username: "a", Query: "q"},
			setup: func(d queryDeps) {
				d.searcher.EXPECT().Retrieve(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, apperr.ErrEmbedding)
			},
			wantErr: apperr.ErrEmbedding,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, d := newQueryService(t)
			tt.setup(d)
			if _, err := svc.Ask(testContext(), tt.req); !errors.Is(err, tt.wantErr) {
				t.Errorf("Ask() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestQueryService_History(t *testing.T) {
	svc, d := newQueryService(t)
	d.history.EXPECT().List(gomock.Any(), "alice", 20).Return([]storage.HistoryEntry{{Query: "q"}}, nil)

	got, err := svc.History(testContext(), "alice", 20)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("History() len = %d, want 1", len(got))
	}

	if _, err := svc.History(testContext(), "", 20); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("History() error = %v, want ErrInvalidInput", err)
	}
}
