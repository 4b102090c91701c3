package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clarifyai/internal/app"
	"clarifyai/internal/config"
	"clarifyai/internal/http"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API answers questions about uploaded PDF, DOCX, Markdown and text documents
// using retrieval-augmented generation.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: ClarifyAI API
//   description: |
//     Upload documents, then ask questions answered only from their content.
//     Answers come from the first available language model provider.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
//   - multipart/form-data
// produces:
//   - application/json

// importUser owns documents imported from DOCS_DIR.
const importUser = "system"

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := app.NewLogger(cfg, os.Stdout)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer func() {
		_ = a.Close()
	}()

	router := http.NewRouter(&http.Deps{
		Documents:  a.Documents,
		Queries:    a.Queries,
		Index:      a.Index,
		DB:         a.DB,
		Providers:  a.Chain.Names(),
		DocsDir:    cfg.DocsDir,
		ImportUser: importUser,
	})

	// Import DOCS_DIR in background after router is ready
	if cfg.DocsDir != "" {
		go func() {
			slog.Info("Starting background import", "dir", cfg.DocsDir)
			res, err := a.Documents.ImportDirectory(ctx, cfg.DocsDir, importUser)
			if err != nil {
				slog.Error("Import failed", "error", err)
				return
			}
			slog.Info("Import completed", "imported", res.Imported, "skipped", res.Skipped, "failed", res.Failed)
		}()
	}

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}
	slog.Info("API server stopped")
}
