// Package app assembles the storage, index, embedding and generation layers
// from configuration. The API server and the CLI share it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"clarifyai/internal/apperr"
	"clarifyai/internal/config"
	"clarifyai/internal/extract"
	"clarifyai/internal/indexer"
	"clarifyai/internal/llm"
	"clarifyai/internal/rag"
	"clarifyai/internal/service"
	"clarifyai/internal/storage"
	"clarifyai/internal/tokenizer"
	"clarifyai/internal/vectorstore"
)

// App holds the wired components of one process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB       *sql.DB
	Index    vectorstore.Index
	Embedder llm.Embedder
	Chain    *llm.Chain
	Pipeline *indexer.Pipeline

	Documents service.DocumentService
	Queries   service.QueryService

	closers []io.Closer
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// New opens the database and the vector index, builds the embedder and the
// provider chain, and wires the services. The caller must Close the App.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, logger := a.Config, a.Logger

	db, err := storage.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db)

	if err := storage.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database initialized", "path", cfg.DBPath)

	embedder, err := NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.Embedder = embedder

	if err := a.openIndex(ctx); err != nil {
		return err
	}

	a.Chain = NewChain(cfg, logger)
	if a.Chain.Len() == 0 {
		logger.Warn("no LLM provider configured, questions will get the unavailable answer")
	} else {
		logger.Info("LLM providers configured", "providers", a.Chain.Names())
	}

	estimator := tokenizer.New(cfg.TokenizerEncoding)
	extractor := extract.New()
	a.Pipeline = indexer.NewPipeline(indexer.NewTokenChunker(estimator), embedder, a.Index, indexer.PipelineOptions{
		ChunkSize:      cfg.ChunkSize,
		Overlap:        cfg.ChunkOverlap,
		EmbeddingModel: cfg.EmbeddingModelName,
		Logger:         logger,
	})
	logger.Info("ingestion pipeline ready",
		"tokenizer", estimator.Name(),
		"chunk_size", cfg.ChunkSize,
		"overlap", cfg.ChunkOverlap,
		"index_version", a.Pipeline.Version(),
	)

	a.Documents = service.NewDocumentService(extractor, a.Pipeline, storage.NewDocumentRepo(db), a.Chain, cfg.LLMMaxTokens, service.WithLogger(logger))
	retriever := rag.NewRetriever(embedder, a.Index).WithLogger(logger)
	a.Queries = service.NewQueryService(retriever, a.Chain, storage.NewHistoryRepo(db), cfg.RetrievalTopK, cfg.LLMMaxTokens, service.WithLogger(logger))
	return nil
}

func (a *App) openIndex(ctx context.Context) error {
	cfg := a.Config
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		idx, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, idx)
		if err := idx.EnsureCollection(ctx, a.Embedder.Dimension()); err != nil {
			return fmt.Errorf("failed to ensure Qdrant collection: %w", err)
		}
		a.Index = idx
		a.Logger.Info("qdrant collection ready", "collection", cfg.QdrantCollection, "vector_size", a.Embedder.Dimension())
	default:
		idx, err := vectorstore.OpenSQLiteIndex(cfg.IndexDir)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, idx)
		a.Index = idx
		a.Logger.Info("local vector index opened", "dir", cfg.IndexDir)
	}
	return nil
}

// Close releases everything New opened, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// NewEmbedder builds the configured embedder and checks that it returns
// vectors of the configured dimension.
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (llm.Embedder, error) {
	var embedder llm.Embedder
	switch cfg.EmbeddingProvider {
	case config.EmbeddingHash:
		embedder = llm.NewHashEmbedder(cfg.EmbeddingDimension)
	case config.EmbeddingOpenAI:
		embedder = llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension)
	default:
		if cfg.EmbeddingAutoload {
			loader := llm.NewModelLoader(cfg.EmbeddingBaseURL)
			if err := loader.LoadModel(ctx, cfg.EmbeddingModelName, nil); err != nil {
				return nil, apperr.Classify(apperr.ErrEmbedding, err, "failed to load embedding model")
			}
			logger.Info("embedding model loaded", "model", cfg.EmbeddingModelName)
		}
		embedder = llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingDimension)
	}
	if cfg.EmbeddingSerialize {
		embedder = llm.NewLockedEmbedder(embedder)
	}

	probe, err := embedder.Embed(ctx, "test")
	if err != nil {
		return nil, apperr.Classify(apperr.ErrEmbedding, err, "failed to validate embedding client")
	}
	if len(probe) != cfg.EmbeddingDimension {
		return nil, fmt.Errorf("%w: embedding vector size mismatch: expected %d, got %d",
			apperr.ErrConfiguration, cfg.EmbeddingDimension, len(probe))
	}
	logger.Info("embedding client validated",
		"provider", cfg.EmbeddingProvider,
		"model", cfg.EmbeddingModelName,
		"vector_size", cfg.EmbeddingDimension,
	)
	return embedder, nil
}

// NewChain builds the provider chain in LLM_PROVIDERS order. Providers with
// missing credentials are skipped with a warning; an empty chain is valid.
func NewChain(cfg *config.Config, logger *slog.Logger) *llm.Chain {
	var providers []llm.Provider
	for _, name := range cfg.LLMProviders {
		settings, ok := cfg.Provider(name)
		if !ok {
			continue
		}
		if name == config.ProviderLocal {
			providers = append(providers, llm.NewClient(settings.BaseURL, settings.APIKey, settings.Model))
			continue
		}
		p, err := llm.NewOpenAIProvider(llm.ProviderConfig{
			Name:              name,
			BaseURL:           settings.BaseURL,
			APIKey:            settings.APIKey,
			Model:             settings.Model,
			RequestsPerSecond: cfg.LLMRateLimit,
		})
		if err != nil {
			logger.Warn("skipping LLM provider", "provider", name, "error", err)
			continue
		}
		providers = append(providers, p)
	}
	return llm.NewChain(providers...).WithLogger(logger)
}
