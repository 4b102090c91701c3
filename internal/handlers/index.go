package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"clarifyai/internal/contextutil"
	"clarifyai/internal/service"
)

// IndexHandler handles HTTP requests for importing a documents directory.
type IndexHandler struct {
	documents service.DocumentService
	docsDir   string
	username  string
}

// NewIndexHandler creates a new IndexHandler. Files found below docsDir are
// recorded under username.
func NewIndexHandler(documents service.DocumentService, docsDir, username string) *IndexHandler {
	return &IndexHandler{
		documents: documents,
		docsDir:   docsDir,
		username:  username,
	}
}

// IndexResponse represents the response from the index endpoint.
type IndexResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

type scanRequest struct {
	Username string `json:"username"`
}

// ServeHTTP starts an import of the documents directory.
//
// swagger:route POST /api/v1/ingest/scan ingest scanDirectory
func (h *IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if h.docsDir == "" {
		writeError(w, http.StatusBadRequest, "No documents directory configured")
		return
	}

	username := h.username
	if r.ContentLength != 0 {
		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Username != "" {
			username = req.Username
		}
	}

	logger.InfoContext(ctx, "directory import triggered via API", "dir", h.docsDir, "username", username)

	// The import outlives the request but keeps its logger.
	go func(ctx context.Context) {
		res, err := h.documents.ImportDirectory(ctx, h.docsDir, username)
		if err != nil {
			logger.ErrorContext(ctx, "directory import failed", "error", err)
			return
		}
		logger.InfoContext(ctx, "directory import completed",
			"imported", res.Imported,
			"skipped", res.Skipped,
			"failed", res.Failed,
		)
	}(context.WithoutCancel(ctx))

	writeJSON(w, http.StatusAccepted, IndexResponse{
		Message: "Import started. Check server logs for progress.",
		Status:  "accepted",
	})
}
