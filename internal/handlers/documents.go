package handlers

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"clarifyai/internal/contextutil"
	"clarifyai/internal/service"
)

// MaxUploadBytes limits the size of an uploaded document.
const MaxUploadBytes = 32 << 20

// DocumentsHandler handles HTTP requests for uploaded documents.
type DocumentsHandler struct {
	documents service.DocumentService
	uploadDir string
}

// NewDocumentsHandler creates a new DocumentsHandler. Uploads are staged in
// uploadDir, or the system temp directory when empty.
func NewDocumentsHandler(documents service.DocumentService, uploadDir string) *DocumentsHandler {
	return &DocumentsHandler{documents: documents, uploadDir: uploadDir}
}

// UploadResponse is returned for a stored document.
//
// swagger:model UploadResponse
type UploadResponse struct {
	DocID     string `json:"doc_id"`
	Filename  string `json:"filename"`
	Chunks    int    `json:"chunks"`
	Tokens    int    `json:"tokens"`
	Duplicate bool   `json:"duplicate"`
	Message   string `json:"message"`
}

// SummaryResponse carries a generated document summary.
//
// swagger:model SummaryResponse
type SummaryResponse struct {
	DocID   string `json:"doc_id"`
	Summary string `json:"summary"`
}

// Upload handles multipart uploads with a "file" part and a "username" field.
//
// swagger:route POST /api/v1/documents documents uploadDocument
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		logger.WarnContext(ctx, "invalid multipart body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file")
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	staged, err := h.stage(file, filename)
	if err != nil {
		logger.ErrorContext(ctx, "failed to stage upload", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer func() {
		_ = os.Remove(staged)
	}()

	res, err := h.documents.Upload(ctx, service.UploadRequest{
		Username: r.FormValue("username"),
		Filename: filename,
		Path:     staged,
	})
	if err != nil {
		handleServiceError(ctx, w, err, "Failed to upload document")
		return
	}

	status := http.StatusCreated
	message := "Document uploaded and indexed successfully"
	if res.Duplicate {
		status = http.StatusOK
		message = "Document already uploaded"
	}
	writeJSON(w, status, UploadResponse{
		DocID:     res.Document.ID,
		Filename:  res.Document.Filename,
		Chunks:    res.Document.ChunkCount,
		Tokens:    res.Document.TokenCount,
		Duplicate: res.Duplicate,
		Message:   message,
	})
}

// stage copies an upload to a temporary file that keeps its extension.
func (h *DocumentsHandler) stage(src io.Reader, filename string) (string, error) {
	f, err := os.CreateTemp(h.uploadDir, "upload-*"+filepath.Ext(filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// List returns the documents of ?username=, or all documents.
//
// swagger:route GET /api/v1/documents documents listDocuments
func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to list documents")
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

// Delete removes a document and its chunks.
//
// swagger:route DELETE /api/v1/documents/{docID} documents deleteDocument
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	if err := h.documents.Delete(r.Context(), docID); err != nil {
		handleServiceError(r.Context(), w, err, "Failed to delete document")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully", "doc_id": docID})
}

// Summarize generates a summary of a document.
//
// swagger:route POST /api/v1/documents/{docID}/summary documents summarizeDocument
func (h *DocumentsHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	summary, err := h.documents.Summarize(r.Context(), docID)
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to summarize document")
		return
	}
	writeJSON(w, http.StatusOK, SummaryResponse{DocID: docID, Summary: summary})
}

// Stats reports document and index totals.
//
// swagger:route GET /api/v1/stats documents stats
func (h *DocumentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.documents.Stats(r.Context())
	if err != nil {
		handleServiceError(r.Context(), w, err, "Failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
