// Package service holds the document and query use cases behind the HTTP
// handlers and the CLI.
package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ingester.go -package=mocks clarifyai/internal/service Ingester
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_generator.go -package=mocks clarifyai/internal/service Generator

import (
	"context"
	"log/slog"

	"clarifyai/internal/contextutil"
	"clarifyai/internal/indexer"
	"clarifyai/internal/llm"
	"clarifyai/internal/vectorstore"
)

// DefaultMaxTokens bounds generated answers and summaries.
const DefaultMaxTokens = 1000

// Ingester writes document chunks to the vector index.
// This interface is defined from the service layer's perspective (consumer-first).
type Ingester interface {
	IngestText(ctx context.Context, docID, text string, extra vectorstore.Metadata) (indexer.IngestResult, error)
	DeleteDocument(ctx context.Context, docID string) error
	DocumentChunks(ctx context.Context, docID string) ([]string, error)
	IndexSize(ctx context.Context) (int, error)
	Version() string
}

// Generator produces completions through an ordered list of providers and
// reports every attempt.
type Generator interface {
	GenerateWithAttempts(ctx context.Context, prompt string, maxTokens int) (string, []llm.Attempt, error)
}

// Option configures a service.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger used when the request context carries none.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func loggerFor(ctx context.Context, l *slog.Logger) *slog.Logger {
	return contextutil.LoggerOr(ctx, l)
}

// logAttempts records failed provider attempts at warn level.
func logAttempts(ctx context.Context, logger *slog.Logger, attempts []llm.Attempt) {
	for _, a := range attempts {
		if a.OK() {
			logger.DebugContext(ctx, "provider answered", "provider", a.Provider, "duration", a.Duration)
			continue
		}
		logger.WarnContext(ctx, "provider failed", "provider", a.Provider, "duration", a.Duration, "error", a.Err)
	}
}

// answeredBy returns the provider of the successful attempt, if any.
func answeredBy(attempts []llm.Attempt) string {
	for _, a := range attempts {
		if a.OK() {
			return a.Provider
		}
	}
	return ""
}
