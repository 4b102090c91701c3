package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_document_service.go -package=mocks clarifyai/internal/service DocumentService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clarifyai/internal/apperr"
	"clarifyai/internal/extract"
	"clarifyai/internal/indexer"
	"clarifyai/internal/rag"
	"clarifyai/internal/storage"
	"clarifyai/internal/vectorstore"
)

// UploadRequest describes a file already written to local disk.
type UploadRequest struct {
	Username string
	Filename string // name shown to users; its extension selects the extractor
	Path     string
}

// UploadResult is the outcome of an upload.
type UploadResult struct {
	Document  storage.Document     `json:"document"`
	Ingest    indexer.IngestResult `json:"ingest"`
	Duplicate bool                 `json:"duplicate"`
}

// Stats summarises the stored documents and the index.
type Stats struct {
	Documents    int    `json:"documents"`
	Chunks       int    `json:"chunks"`
	Tokens       int    `json:"tokens"`
	IndexRecords int    `json:"index_records"`
	IndexVersion string `json:"index_version"`
}

// ImportResult counts the files handled by ImportDirectory.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Upload extracts, chunks and indexes a file, then records it.
	Upload(ctx context.Context, req UploadRequest) (UploadResult, error)
	// Delete removes a document and its chunks.
	Delete(ctx context.Context, docID string) error
	// List returns the documents of username, or all when empty.
	List(ctx context.Context, username string) ([]storage.Document, error)
	// Summarize asks the generator for a summary of a document.
	Summarize(ctx context.Context, docID string) (string, error)
	// Stats reports document and index totals.
	Stats(ctx context.Context) (Stats, error)
	// ImportDirectory uploads every supported file below root.
	ImportDirectory(ctx context.Context, root, username string) (ImportResult, error)
}

type documentService struct {
	extractor extract.Extractor
	ingester  Ingester
	docs      storage.DocumentStore
	generator Generator
	maxTokens int
	logger    *slog.Logger
}

// NewDocumentService creates a new DocumentService. maxTokens <= 0 selects
// DefaultMaxTokens.
func NewDocumentService(
	extractor extract.Extractor,
	ingester Ingester,
	docs storage.DocumentStore,
	generator Generator,
	maxTokens int,
	opts ...Option,
) DocumentService {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &documentService{
		extractor: extractor,
		ingester:  ingester,
		docs:      docs,
		generator: generator,
		maxTokens: maxTokens,
		logger:    applyOptions(opts).logger,
	}
}

// Upload stores a new document. The document row is written only after its
// chunks are indexed, so listed documents are always searchable.
func (s *documentService) Upload(ctx context.Context, req UploadRequest) (UploadResult, error) {
	logger := loggerFor(ctx, s.logger)

	if strings.TrimSpace(req.Filename) == "" {
		return UploadResult{}, &apperr.ValidationError{Field: "filename", Message: "cannot be empty"}
	}
	if !extract.Supported(req.Filename) {
		return UploadResult{}, &apperr.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("unsupported file type %q, expected one of %s", filepath.Ext(req.Filename), strings.Join(extract.SupportedExtensions, ", ")),
		}
	}

	text, err := s.extractor.Extract(ctx, req.Path)
	if err != nil {
		logger.ErrorContext(ctx, "failed to extract document", "filename", req.Filename, "error", err)
		return UploadResult{}, err
	}

	fingerprint := storage.Fingerprint(text)
	existing, err := s.docs.FindByFingerprint(ctx, req.Username, fingerprint)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "document already uploaded", "filename", req.Filename, "doc_id", existing.ID)
		return UploadResult{Document: *existing, Duplicate: true}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return UploadResult{}, apperr.WrapError(err, "failed to check for duplicate document")
	}

	docID := uuid.New().String()
	ingest, err := s.ingester.IngestText(ctx, docID, text, vectorstore.Metadata{
		vectorstore.KeyFilename: req.Filename,
		"username":              req.Username,
	})
	if err != nil {
		s.cleanup(ctx, logger, docID)
		logger.ErrorContext(ctx, "failed to ingest document", "filename", req.Filename, "error", err)
		return UploadResult{}, err
	}

	doc := storage.Document{
		ID:           docID,
		Filename:     req.Filename,
		Username:     req.Username,
		Fingerprint:  fingerprint,
		ChunkCount:   ingest.Chunks,
		TokenCount:   ingest.TotalTokens,
		IndexVersion: ingest.IndexVersion,
	}
	if err := s.docs.Create(ctx, &doc); err != nil {
		s.cleanup(ctx, logger, docID)
		if errors.Is(err, storage.ErrDuplicate) {
			// A concurrent upload of the same text was recorded first.
			existing, findErr := s.docs.FindByFingerprint(ctx, req.Username, fingerprint)
			if findErr != nil {
				return UploadResult{}, apperr.WrapError(findErr, "failed to load duplicate document")
			}
			logger.InfoContext(ctx, "document already uploaded", "filename", req.Filename, "doc_id", existing.ID)
			return UploadResult{Document: *existing, Duplicate: true}, nil
		}
		return UploadResult{}, apperr.WrapError(err, "failed to record document")
	}

	logger.InfoContext(ctx, "document uploaded",
		"doc_id", docID,
		"filename", req.Filename,
		"chunks", ingest.Chunks,
		"tokens", ingest.TotalTokens,
	)
	return UploadResult{Document: doc, Ingest: ingest}, nil
}

func (s *documentService) cleanup(ctx context.Context, logger *slog.Logger, docID string) {
	if err := s.ingester.DeleteDocument(context.WithoutCancel(ctx), docID); err != nil {
		logger.WarnContext(ctx, "failed to remove partial document", "doc_id", docID, "error", err)
	}
}

// Delete removes a document from the index and then from the database.
func (s *documentService) Delete(ctx context.Context, docID string) error {
	logger := loggerFor(ctx, s.logger)

	if _, err := s.docs.Get(ctx, docID); err != nil {
		return err
	}
	if err := s.ingester.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := s.docs.Delete(ctx, docID); err != nil {
		return apperr.WrapError(err, "failed to delete document")
	}

	logger.InfoContext(ctx, "document deleted", "doc_id", docID)
	return nil
}

func (s *documentService) List(ctx context.Context, username string) ([]storage.Document, error) {
	docs, err := s.docs.List(ctx, username)
	if err != nil {
		return nil, apperr.WrapError(err, "failed to list documents")
	}
	return docs, nil
}

// Summarize builds a summary from the document's chunks in order.
func (s *documentService) Summarize(ctx context.Context, docID string) (string, error) {
	logger := loggerFor(ctx, s.logger)

	if _, err := s.docs.Get(ctx, docID); err != nil {
		return "", err
	}
	chunks, err := s.ingester.DocumentChunks(ctx, docID)
	if err != nil {
		return "", err
	}
	if len(chunks) == 0 {
		return "", &apperr.ValidationError{Field: "doc_id", Message: "document has no indexed text"}
	}

	summary, attempts, err := s.generator.GenerateWithAttempts(ctx, rag.SummaryPrompt(chunks), s.maxTokens)
	logAttempts(ctx, logger, attempts)
	if err != nil {
		return "", apperr.Classify(apperr.ErrExternalService, err, "failed to summarize document")
	}

	logger.InfoContext(ctx, "document summarized", "doc_id", docID, "provider", answeredBy(attempts), "summary_length", len(summary))
	return summary, nil
}

func (s *documentService) Stats(ctx context.Context) (Stats, error) {
	totals, err := s.docs.Totals(ctx)
	if err != nil {
		return Stats{}, apperr.WrapError(err, "failed to count documents")
	}
	records, err := s.ingester.IndexSize(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Documents:    totals.Documents,
		Chunks:       totals.Chunks,
		Tokens:       totals.Tokens,
		IndexRecords: records,
		IndexVersion: s.ingester.Version(),
	}, nil
}

// ImportDirectory uploads each supported file below root. Errors for
// individual files are counted and logged but don't stop the import.
func (s *documentService) ImportDirectory(ctx context.Context, root, username string) (ImportResult, error) {
	logger := loggerFor(ctx, s.logger)

	files, err := indexer.ScanDirectory(ctx, root, extract.SupportedExtensions)
	if err != nil {
		return ImportResult{}, err
	}

	logger.InfoContext(ctx, "starting import", "root", root, "total_files", len(files))

	var result ImportResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := s.Upload(ctx, UploadRequest{Username: username, Filename: file.RelPath, Path: file.AbsPath})
		switch {
		case err != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.RelPath, err))
			logger.ErrorContext(ctx, "failed to import file", "rel_path", file.RelPath, "error", err)
		case res.Duplicate:
			result.Skipped++
		default:
			result.Imported++
		}
	}

	logger.InfoContext(ctx, "import completed",
		"total_files", len(files),
		"imported", result.Imported,
		"skipped", result.Skipped,
		"failed", result.Failed,
	)
	return result, nil
}
