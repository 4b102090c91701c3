package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_query_service.go -package=mocks clarifyai/internal/service QueryService

import (
	"context"
	"log/slog"
	"strings"

	"clarifyai/internal/apperr"
	"clarifyai/internal/rag"
	"clarifyai/internal/storage"
)

// QueryRequest is a question asked against every uploaded document.
type QueryRequest struct {
	Username string
	Query    string
	TopK     int // zero selects the configured default
}

// QueryResponse is an answer and the chunks it was grounded on.
type QueryResponse struct {
	Answer      string   `json:"answer"`
	ContextUsed []string `json:"context_used"`
	Sources     []string `json:"sources"`
	Provider    string   `json:"provider,omitempty"`
}

// QueryService answers questions from the indexed documents.
type QueryService interface {
	// Ask retrieves relevant chunks and generates a grounded answer.
	Ask(ctx context.Context, req QueryRequest) (QueryResponse, error)
	// History returns the most recent questions of username, oldest first.
	History(ctx context.Context, username string, limit int) ([]storage.HistoryEntry, error)
}

type queryService struct {
	searcher  rag.Searcher
	generator Generator
	history   storage.HistoryStore
	topK      int
	maxTokens int
	logger    *slog.Logger
}

// NewQueryService creates a new QueryService. topK <= 0 selects
// rag.DefaultTopK and maxTokens <= 0 selects DefaultMaxTokens.
func NewQueryService(searcher rag.Searcher, generator Generator, history storage.HistoryStore, topK, maxTokens int, opts ...Option) QueryService {
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &queryService{
		searcher:  searcher,
		generator: generator,
		history:   history,
		topK:      topK,
		maxTokens: maxTokens,
		logger:    applyOptions(opts).logger,
	}
}

// Ask answers req.Query. When nothing relevant is indexed, or every
// provider fails, a fixed answer is returned instead of an error.
func (s *queryService) Ask(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := loggerFor(ctx, s.logger)

	query := strings.TrimSpace(req.Query)
	if query == "" {
		logger.WarnContext(ctx, "empty query")
		return QueryResponse{}, &apperr.ValidationError{Field: "query", Message: "cannot be empty"}
	}
	if req.Username == "" {
		return QueryResponse{}, &apperr.ValidationError{Field: "username", Message: "cannot be empty"}
	}
	topK := req.TopK
	if topK <= 0 {
		topK = s.topK
	}

	results, err := s.searcher.Retrieve(ctx, query, topK)
	if err != nil {
		logger.ErrorContext(ctx, "failed to retrieve context", "error", err)
		return QueryResponse{}, err
	}
	if len(results) == 0 {
		logger.InfoContext(ctx, "no relevant chunks found")
		return QueryResponse{
			Answer:      rag.NotFoundAnswer,
			ContextUsed: []string{},
			Sources:     []string{},
		}, nil
	}

	resp := QueryResponse{
		ContextUsed: rag.Texts(results),
		Sources:     rag.Sources(results),
	}

	answer, attempts, err := s.generator.GenerateWithAttempts(ctx, rag.AnswerPrompt(query, results), s.maxTokens)
	logAttempts(ctx, logger, attempts)
	if err != nil {
		logger.ErrorContext(ctx, "no provider could answer", "error", err)
		answer = rag.UnavailableAnswer
	}
	resp.Answer = answer
	resp.Provider = answeredBy(attempts)

	entry := &storage.HistoryEntry{
		Username:    req.Username,
		Query:       query,
		Answer:      resp.Answer,
		ContextUsed: resp.ContextUsed,
		Sources:     resp.Sources,
	}
	if err := s.history.Append(ctx, entry); err != nil {
		logger.WarnContext(ctx, "failed to record history", "error", err)
	}

	logger.InfoContext(ctx, "query answered",
		"chunks_used", len(results),
		"provider", resp.Provider,
		"answer_length", len(resp.Answer),
	)
	return resp, nil
}

func (s *queryService) History(ctx context.Context, username string, limit int) ([]storage.HistoryEntry, error) {
	if username == "" {
		return nil, &apperr.ValidationError{Field: "username", Message: "cannot be empty"}
	}
	entries, err := s.history.List(ctx, username, limit)
	if err != nil {
		return nil, apperr.WrapError(err, "failed to load history")
	}
	return entries, nil
}
